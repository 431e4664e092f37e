package coordinator

import (
	"sync"
	"time"

	"RCS/configs"
	"RCS/network"
)

// commitWait tracks outstanding haveCommitted notifications for one
// committed transaction; the wake channel closes when every issued
// doCommit has been acknowledged.
type commitWait struct {
	remaining int
	wake      chan struct{}
}

func (c *Manager) setDecision(index uint64, ack string) {
	c.decisionLatch.Lock()
	defer c.decisionLatch.Unlock()
	c.decisions[index] = ack
}

func (c *Manager) clearDecision(index uint64) {
	c.decisionLatch.Lock()
	defer c.decisionLatch.Unlock()
	delete(c.decisions, index)
}

// GetDecision answers a participant's decision poll. NA means the
// transaction is unknown or still undecided; the poller backs off.
func (c *Manager) GetDecision(t *network.Transaction) string {
	c.decisionLatch.Lock()
	defer c.decisionLatch.Unlock()
	if ack, ok := c.decisions[t.Index]; ok {
		return ack
	}
	return configs.AckNA
}

// HaveCommitted acknowledges one participant's local commit. Notifications
// for transactions no longer tracked arrive routinely, a participant's
// poller re-sends after the coordinator has already cleared the entry.
func (c *Manager) HaveCommitted(t *network.Transaction, from string) {
	c.decisionLatch.Lock()
	defer c.decisionLatch.Unlock()
	w, ok := c.waits[t.Index]
	if !ok {
		return
	}
	w.remaining--
	configs.TxnPrint(t.Index, "haveCommitted from %v, %v left", from, w.remaining)
	if w.remaining <= 0 {
		close(w.wake)
		delete(c.waits, t.Index)
	}
}

// canCommitAll fans the vote request out to every participant in parallel
// and aggregates; an unreachable participant counts as a NO vote.
func (c *Manager) canCommitAll(t *network.Transaction, parts []string) bool {
	votes := make([]bool, len(parts))
	wg := sync.WaitGroup{}
	for i, p := range parts {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			req := &network.Request{Kind: configs.KindCanCommit, From: c.stmt.Addr(), Txn: t}
			resp := network.AckResponse{}
			if err := c.stmt.caller.Call(p, req, &resp); err != nil {
				configs.Warn(false, "canCommit to "+p+" failed: "+err.Error())
				return
			}
			votes[i] = resp.Ack == configs.AckYes
		}(i, p)
	}
	wg.Wait()
	for _, yes := range votes {
		if !yes {
			return false
		}
	}
	return true
}

// abortAll is fire-and-forget: the decision is already recorded, so any
// participant that misses the message learns the verdict from its poller.
func (c *Manager) abortAll(t *network.Transaction, parts []string) {
	for _, p := range parts {
		go func(p string) {
			req := &network.Request{Kind: configs.KindDoAbort, From: c.stmt.Addr(), Txn: t}
			resp := network.Response{}
			if err := c.stmt.caller.Call(p, req, &resp); err != nil {
				configs.Warn(false, "doAbort to "+p+" failed: "+err.Error())
			}
		}(p)
	}
}

// commitAll issues doCommit to every participant and waits, bounded, for
// their haveCommitted notifications.
func (c *Manager) commitAll(t *network.Transaction, parts []string) {
	if len(parts) == 0 {
		return
	}
	w := &commitWait{remaining: 0, wake: make(chan struct{})}
	c.decisionLatch.Lock()
	c.waits[t.Index] = w
	w.remaining = len(parts)
	c.decisionLatch.Unlock()
	for _, p := range parts {
		go func(p string) {
			req := &network.Request{Kind: configs.KindDoCommit, From: c.stmt.Addr(), Txn: t}
			resp := network.Response{}
			if err := c.stmt.caller.Call(p, req, &resp); err != nil {
				configs.Warn(false, "doCommit to "+p+" failed: "+err.Error())
			}
		}(p)
	}
	select {
	case <-w.wake:
	case <-time.After(configs.CommitWaitTimeout):
		configs.TxnPrint(t.Index, "commit wait timed out, stragglers resolve via polling")
	}
	c.decisionLatch.Lock()
	delete(c.waits, t.Index)
	c.decisionLatch.Unlock()
}

// GenericCommit drives one transaction through both phases against every
// registered data node. The decision table entry is visible to pollers for
// the whole window between the fan-outs.
func (c *Manager) GenericCommit(t *network.Transaction) bool {
	defer configs.TimeTrack(time.Now(), "GenericCommit", t.Index)
	parts := c.participants()
	// A transaction with nobody to replicate to must not read as committed.
	if len(parts) == 0 {
		configs.TxnPrint(t.Index, "refused: no registered data nodes")
		return false
	}
	c.setDecision(t.Index, configs.AckNA)
	if !c.canCommitAll(t, parts) {
		c.setDecision(t.Index, configs.AckNo)
		c.abortAll(t, parts)
		c.clearDecision(t.Index)
		configs.TxnPrint(t.Index, "aborted %v", t.String())
		return false
	}
	c.setDecision(t.Index, configs.AckYes)
	c.commitAll(t, parts)
	c.clearDecision(t.Index)
	configs.TxnPrint(t.Index, "committed %v", t.String())
	return true
}

// CommitWithPlacement composes one transaction with a non-transactional
// chat-node side effect: votes first, then the side effect while the
// decision still reads NA, and only commits once the side effect succeeded.
// A failed side effect forces the decision to NO so voted participants
// abort through their pollers.
func (c *Manager) CommitWithPlacement(t *network.Transaction, sideEffect func() network.ChatroomResponse) network.ChatroomResponse {
	defer configs.TimeTrack(time.Now(), "CommitWithPlacement", t.Index)
	parts := c.participants()
	if len(parts) == 0 {
		configs.TxnPrint(t.Index, "refused: no registered data nodes")
		return network.ChatroomResponse{Response: network.Fail("Something went wrong, please try again")}
	}
	c.setDecision(t.Index, configs.AckNA)
	if !c.canCommitAll(t, parts) {
		c.setDecision(t.Index, configs.AckNo)
		c.abortAll(t, parts)
		c.clearDecision(t.Index)
		return network.ChatroomResponse{Response: network.Fail("Something went wrong, please try again")}
	}
	side := sideEffect()
	if side.Status != configs.StatusOK {
		c.setDecision(t.Index, configs.AckNo)
		c.abortAll(t, parts)
		c.clearDecision(t.Index)
		return side
	}
	c.setDecision(t.Index, configs.AckYes)
	c.commitAll(t, parts)
	c.clearDecision(t.Index)
	configs.TxnPrint(t.Index, "committed %v with placement", t.String())
	return side
}
