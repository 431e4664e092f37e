package participant

import (
	"path/filepath"
	"sync"
	"time"

	"RCS/configs"
	"RCS/network"
	"github.com/goccy/go-json"
	"github.com/tidwall/wal"
)

// LogManager appends a begin record per YES vote and a resolve record per
// local commit/abort to a write-ahead log. Records buffer into a batch and
// a background task syncs them to disk; Replay reports the begins with no
// matching resolve so recovery can re-arm them.
type LogManager struct {
	latch  sync.Mutex
	lsn    uint64
	logs   *wal.Log
	buffer *wal.Batch
	done   chan bool
}

type logRecord struct {
	Kind    string `json:"kind"`
	Index   uint64 `json:"index"`
	Op      string `json:"op,omitempty"`
	Key     string `json:"key,omitempty"`
	Value   string `json:"value,omitempty"`
	Outcome string `json:"outcome,omitempty"`
}

const (
	logKindBegin   = "begin"
	logKindResolve = "resolve"
)

func NewLogManager(nodeID string) *LogManager {
	res := &LogManager{}
	if !configs.UseWAL {
		return res
	}
	log, err := wal.Open(filepath.Join(configs.StorageRoot, "logs", nodeID), nil)
	configs.CheckError(err)
	res.logs = log
	res.lsn, err = log.LastIndex()
	configs.CheckError(err)
	res.buffer = &wal.Batch{}
	res.done = make(chan bool, 1)
	go res.localBatchSyncLogger(res.lsn)
	return res
}

func (c *LogManager) write(rec *logRecord) {
	if !configs.UseWAL {
		return
	}
	byt, err := json.Marshal(rec)
	configs.CheckError(err)
	c.latch.Lock()
	defer c.latch.Unlock()
	c.lsn++
	c.buffer.Write(c.lsn, byt)
}

func (c *LogManager) writeBegin(t *network.Transaction) {
	c.write(&logRecord{Kind: logKindBegin, Index: t.Index, Op: t.Op, Key: t.Key, Value: t.Value})
}

func (c *LogManager) writeResolve(index uint64, outcome string) {
	c.write(&logRecord{Kind: logKindResolve, Index: index, Outcome: outcome})
}

func (c *LogManager) localBatchSyncLogger(initLSN uint64) {
	lastLSN := initLSN
	for {
		select {
		case <-time.After(configs.LogBatchInterval):
			c.latch.Lock()
			if c.lsn != lastLSN && c.buffer != nil {
				configs.CheckError(c.logs.WriteBatch(c.buffer))
				c.buffer.Clear()
				lastLSN = c.lsn
			}
			c.latch.Unlock()
		case <-c.done:
			return
		}
	}
}

// Replay returns the transactions left pending by the previous run.
func (c *LogManager) Replay() []*network.Transaction {
	if !configs.UseWAL {
		return nil
	}
	c.latch.Lock()
	defer c.latch.Unlock()
	first, err := c.logs.FirstIndex()
	configs.CheckError(err)
	last, err := c.logs.LastIndex()
	configs.CheckError(err)
	pending := make(map[uint64]*network.Transaction)
	order := make([]uint64, 0)
	for i := first; i <= last && i > 0; i++ {
		byt, err := c.logs.Read(i)
		configs.CheckError(err)
		rec := &logRecord{}
		configs.CheckError(json.Unmarshal(byt, rec))
		switch rec.Kind {
		case logKindBegin:
			if _, ok := pending[rec.Index]; !ok {
				order = append(order, rec.Index)
			}
			pending[rec.Index] = &network.Transaction{Index: rec.Index, Op: rec.Op, Key: rec.Key, Value: rec.Value}
		case logKindResolve:
			delete(pending, rec.Index)
		}
	}
	res := make([]*network.Transaction, 0, len(pending))
	for _, idx := range order {
		if t, ok := pending[idx]; ok {
			res = append(res, t)
		}
	}
	return res
}

func (c *LogManager) Close() {
	if !configs.UseWAL || c.logs == nil {
		return
	}
	c.done <- true
	c.latch.Lock()
	defer c.latch.Unlock()
	if c.buffer != nil {
		configs.CheckError(c.logs.WriteBatch(c.buffer))
		c.buffer.Clear()
	}
	configs.CheckError(c.logs.Close())
}
