package configs

import (
	"testing"
	"time"

	"github.com/magiconair/properties/assert"
)

func TestTxnIndexIsMonotone(t *testing.T) {
	a := NextTxnIndex()
	b := NextTxnIndex()
	assert.Equal(t, b > a, true)
}

func TestAdjustedClockFollowsOffset(t *testing.T) {
	defer SetClockOffset(0)
	SetClockOffset(120000)
	diff := AdjustedNowMs() - time.Now().UnixNano()/int64(time.Millisecond)
	assert.Equal(t, diff > 110000 && diff < 130000, true)
}
