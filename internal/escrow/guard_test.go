package escrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardRejectsNestedEntry(t *testing.T) {
	guard := NewGuard()

	require.NoError(t, guard.Enter("project:1"))

	err := guard.Enter("project:1")
	var inProgress *OperationInProgressError
	require.ErrorAs(t, err, &inProgress)
	assert.Equal(t, "project:1", inProgress.Key)

	// 不同键互不影响
	require.NoError(t, guard.Enter("project:2"))

	guard.Leave("project:1")
	require.NoError(t, guard.Enter("project:1"))
}
