package participant

import (
	"time"

	"RCS/configs"
	"RCS/network"
)

// decisionPoller is the participant-driven half of termination: one
// background task per pending transaction that, after a grace period, asks
// the coordinator for the verdict. The coordinator's own doCommit/doAbort
// usually arrives first and retires the poller through setFinished.
type decisionPoller struct {
	txn      *network.Transaction
	finished chan struct{}
}

func newDecisionPoller(t *network.Transaction) *decisionPoller {
	return &decisionPoller{txn: t, finished: make(chan struct{}, 1)}
}

func (p *decisionPoller) setFinished() {
	select {
	case p.finished <- struct{}{}:
	default:
	}
}

// startPoller registers and launches the poller for t. Caller holds
// txnLatch.
func (c *Manager) startPoller(t *network.Transaction) {
	p := newDecisionPoller(t)
	c.pollers[t.Index] = p
	go c.runPoller(p)
}

func (c *Manager) finishPoller(index uint64) {
	c.txnLatch.Lock()
	defer c.txnLatch.Unlock()
	if p, ok := c.pollers[index]; ok {
		p.setFinished()
		delete(c.pollers, index)
	}
}

func (c *Manager) runPoller(p *decisionPoller) {
	select {
	case <-time.After(configs.DecisionPollInterval):
	case <-p.finished:
		return
	case <-c.stmt.ctx.Done():
		return
	}
	t := p.txn
	ack, err := c.stmt.getDecision(t)
	if err != nil {
		// The coordinator is unreachable; the transaction stays pending
		// and log recovery owns it after a restart.
		configs.Warn(false, "decision poll failed: "+err.Error())
		return
	}
	switch ack {
	case configs.AckYes:
		configs.TxnPrint(t.Index, "poller learned COMMIT")
		c.DoCommit(t)
		c.stmt.haveCommitted(t)
	case configs.AckNo:
		configs.TxnPrint(t.Index, "poller learned ABORT")
		c.DoAbort(t)
	default:
		// NA: the coordinator no longer tracks the transaction.
	}
}
