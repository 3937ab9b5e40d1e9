package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sarisssa/dappify-contracts/internal/config"
	"github.com/sarisssa/dappify-contracts/internal/logger"
)

// 代币合约ABI定义（简化版）
const tokenABI = `[
	{
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "mint",
		"outputs": [],
		"type": "function"
	},
	{
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"inputs": [
			{"name": "from", "type": "address"},
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "transferFrom",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"inputs": [{"name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function",
		"stateMutability": "view"
	}
]`

const tokenTxGasLimit = 120000

// Client 链上托管后端，通过ERC-20代币合约实现资产发行与资金收付
type Client struct {
	client        *ethclient.Client
	privateKey    *ecdsa.PrivateKey
	chainId       *big.Int
	custody       common.Address
	tokenAddr     common.Address
	tokenABI      abi.ABI
	confirmations int
}

func Init(cfg config.ChainConfig) (*Client, error) {
	// 连接以太坊客户端
	client, err := ethclient.Dial(cfg.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ethereum client: %w", err)
	}

	// 解析托管账户私钥
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	custody := crypto.PubkeyToAddress(privateKey.PublicKey)

	// 解析ABI
	parsedABI, err := abi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token ABI: %w", err)
	}

	return &Client{
		client:        client,
		privateKey:    privateKey,
		chainId:       big.NewInt(cfg.ChainId),
		custody:       custody,
		tokenAddr:     common.HexToAddress(cfg.TokenAddress),
		tokenABI:      parsedABI,
		confirmations: cfg.Confirmations,
	}, nil
}

// CustodyAddress 托管账户地址
func (c *Client) CustodyAddress() string {
	return c.custody.Hex()
}

// Mint 铸造份额到指定地址，asset句柄落在单一代币合约上
func (c *Client) Mint(ctx context.Context, asset string, to string, amount int64) error {
	data, err := c.tokenABI.Pack("mint", common.HexToAddress(to), big.NewInt(amount))
	if err != nil {
		return fmt.Errorf("failed to pack mint call: %w", err)
	}
	return c.sendTokenTx(ctx, data)
}

// Transfer 在两个地址之间转移份额
func (c *Client) Transfer(ctx context.Context, asset string, from, to string, amount int64) error {
	fromAddr := common.HexToAddress(from)
	toAddr := common.HexToAddress(to)

	var data []byte
	var err error
	if fromAddr == c.custody {
		data, err = c.tokenABI.Pack("transfer", toAddr, big.NewInt(amount))
	} else {
		data, err = c.tokenABI.Pack("transferFrom", fromAddr, toAddr, big.NewInt(amount))
	}
	if err != nil {
		return fmt.Errorf("failed to pack transfer call: %w", err)
	}
	return c.sendTokenTx(ctx, data)
}

// BalanceOf 查询余额
func (c *Client) BalanceOf(ctx context.Context, asset string, address string) (int64, error) {
	data, err := c.tokenABI.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return 0, fmt.Errorf("failed to pack balanceOf call: %w", err)
	}

	result, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &c.tokenAddr, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to call balanceOf: %w", err)
	}

	values, err := c.tokenABI.Unpack("balanceOf", result)
	if err != nil {
		return 0, fmt.Errorf("failed to unpack balanceOf result: %w", err)
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected balanceOf result type: %T", values[0])
	}
	return balance.Int64(), nil
}

// Collect 从出资人收取认购款到托管账户，需要出资人事先授权
func (c *Client) Collect(ctx context.Context, from string, amount int64) error {
	return c.Transfer(ctx, "", from, c.custody.Hex(), amount)
}

// Send 从托管账户向外支付
func (c *Client) Send(ctx context.Context, to string, amount int64) error {
	return c.Transfer(ctx, "", c.custody.Hex(), to, amount)
}

// sendTokenTx 发送代币合约交易并等待上链，回执失败视为转账失败
func (c *Client) sendTokenTx(ctx context.Context, data []byte) error {
	nonce, err := c.client.PendingNonceAt(ctx, c.custody)
	if err != nil {
		return fmt.Errorf("failed to fetch nonce: %w", err)
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to suggest gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, c.tokenAddr, big.NewInt(0), tokenTxGasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(c.chainId), c.privateKey)
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return fmt.Errorf("failed to send transaction: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, c.client, signedTx)
	if err != nil {
		return fmt.Errorf("failed to wait for transaction %s: %w", signedTx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("transaction %s reverted", signedTx.Hash().Hex())
	}

	logger.Info("Token transaction mined: %s, block=%d", signedTx.Hash().Hex(), receipt.BlockNumber.Uint64())
	return nil
}
