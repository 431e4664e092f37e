package configs

import (
	"sync/atomic"
	"time"
)

var txnIndex = uint64(0)

// NextTxnIndex returns the next transaction index. Indexes are unique and
// monotone within one coordinator lifetime; they are the sole transaction
// identifier exchanged with participants.
func NextTxnIndex() uint64 {
	return atomic.AddUint64(&txnIndex, 1)
}

// The clock offset learned from the registration surface's getServerTime
// (Cristian's algorithm). Informational only: it feeds log timestamps and
// never any ordering decision.
var clockOffsetMs = int64(0)

func SetClockOffset(offset int64) {
	atomic.StoreInt64(&clockOffsetMs, offset)
}

func ClockOffset() int64 {
	return atomic.LoadInt64(&clockOffsetMs)
}

func AdjustedNowMs() int64 {
	return time.Now().UnixNano()/int64(time.Millisecond) + ClockOffset()
}

func Max(x int, y int) int {
	if x > y {
		return x
	}
	return y
}

func Min(x int, y int) int {
	if x < y {
		return x
	}
	return y
}
