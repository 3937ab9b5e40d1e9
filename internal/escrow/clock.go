package escrow

import (
	"time"
)

// Clock 环境时钟，所有时间窗口判断在调用瞬间读取
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock 系统时钟
func SystemClock() Clock {
	return systemClock{}
}
