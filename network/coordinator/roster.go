package coordinator

import (
	"sync"
	"time"

	"RCS/configs"
	"RCS/locks"
	"RCS/network"
	lock "github.com/viney-shih/go-lock"
)

// Manager holds the central server's soft state: the node rosters, the
// transaction decision and commit-wait tables, and the re-establishment
// latch. All of it is rebuilt from registrations; nothing here is durable.
type Manager struct {
	stmt *Context

	// dataOps and dataParts pair by index: entry i of each belongs to the
	// same data node.
	rosterLatch *locks.RWLock
	dataOps     []string
	dataParts   []string

	chatLatch *locks.RWLock
	chatNodes []string

	decisionLatch lock.Mutex
	decisions     map[uint64]string
	waits         map[uint64]*commitWait

	// reestablishLatch serializes chatroom re-establishment so a burst of
	// orphaned clients produces one placement.
	reestablishLatch sync.Mutex
}

func NewManager(stmt *Context) *Manager {
	return &Manager{
		stmt:          stmt,
		rosterLatch:   locks.NewLocker(),
		dataOps:       make([]string, 0),
		dataParts:     make([]string, 0),
		chatLatch:     locks.NewLocker(),
		chatNodes:     make([]string, 0),
		decisionLatch: lock.NewCASMutex(),
		decisions:     make(map[uint64]string),
		waits:         make(map[uint64]*commitWait),
	}
}

// participants snapshots the transaction fan-out targets.
func (c *Manager) participants() []string {
	c.rosterLatch.RLock()
	defer c.rosterLatch.RUnlock()
	res := make([]string, len(c.dataParts))
	copy(res, c.dataParts)
	return res
}

// dataNodes snapshots the query surfaces.
func (c *Manager) dataNodes() []string {
	c.rosterLatch.RLock()
	defer c.rosterLatch.RUnlock()
	res := make([]string, len(c.dataOps))
	copy(res, c.dataOps)
	return res
}

func (c *Manager) chatNodeList() []string {
	c.chatLatch.RLock()
	defer c.chatLatch.RUnlock()
	res := make([]string, len(c.chatNodes))
	copy(res, c.chatNodes)
	return res
}

// RegisterDataNode adds a data node to both data rosters and replays the
// rooms it already holds so every durable room has a live placement again.
// A replayed room that is already placed elsewhere is skipped.
func (c *Manager) RegisterDataNode(host string, opsPort int, partPort int, rooms []string) network.RegisterResponse {
	opsAddr := network.JoinAddr(host, opsPort)
	partAddr := network.JoinAddr(host, partPort)
	c.rosterLatch.Lock()
	known := false
	for _, p := range c.dataParts {
		if p == partAddr {
			known = true
			break
		}
	}
	if !known {
		c.dataOps = append(c.dataOps, opsAddr)
		c.dataParts = append(c.dataParts, partAddr)
	}
	c.rosterLatch.Unlock()
	configs.DPrintf("data node registered: ops %v participant %v, %v known rooms", opsAddr, partAddr, len(rooms))
	for _, room := range rooms {
		resp := c.innerCreateChatroom(room)
		if resp.Status != configs.StatusOK {
			if resp.Message == configs.ExistingChatroomMessage {
				configs.DPrintf("room %v already placed, skipping replay", room)
			} else {
				configs.Warn(false, "failed to replay room "+room+": "+resp.Message)
			}
		}
	}
	return network.RegisterResponse{Port: network.AddrPort(c.stmt.Addr())}
}

// RegisterChatNode adds a chat node's management surface to the roster and
// tells it which port to submit chat logs to.
func (c *Manager) RegisterChatNode(host string, opsPort int) network.RegisterResponse {
	addr := network.JoinAddr(host, opsPort)
	c.chatLatch.Lock()
	known := false
	for _, p := range c.chatNodes {
		if p == addr {
			known = true
			break
		}
	}
	if !known {
		c.chatNodes = append(c.chatNodes, addr)
	}
	c.chatLatch.Unlock()
	configs.DPrintf("chat node registered: %v", addr)
	return network.RegisterResponse{Port: network.AddrPort(c.stmt.Addr())}
}

// CleanChatNodes drops unreachable chat nodes from the roster.
func (c *Manager) CleanChatNodes() {
	c.chatLatch.Lock()
	defer c.chatLatch.Unlock()
	alive := c.chatNodes[:0]
	for _, p := range c.chatNodes {
		if network.Probe(p) {
			alive = append(alive, p)
		} else {
			configs.DPrintf("chat node %v unreachable, dropped from roster", p)
		}
	}
	c.chatNodes = alive
}

// CleanDataNodes drops unreachable data nodes; the paired rosters move
// together. In-flight transactions are not failed here, dropped
// participants resolve through their decision pollers.
func (c *Manager) CleanDataNodes() {
	c.rosterLatch.Lock()
	defer c.rosterLatch.Unlock()
	ops := c.dataOps[:0]
	parts := c.dataParts[:0]
	for i, p := range c.dataParts {
		if network.Probe(p) {
			ops = append(ops, c.dataOps[i])
			parts = append(parts, p)
		} else {
			configs.DPrintf("data node %v unreachable, dropped from roster", p)
		}
	}
	c.dataOps = ops
	c.dataParts = parts
}

// sweeper is the periodic liveness pass over both rosters.
func (c *Manager) sweeper() {
	for {
		select {
		case <-time.After(configs.SweepInterval):
			c.CleanDataNodes()
			c.CleanChatNodes()
		case <-c.stmt.ctx.Done():
			return
		}
	}
}
