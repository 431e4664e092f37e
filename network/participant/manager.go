package participant

import (
	"RCS/configs"
	"RCS/locks"
	"RCS/network"
	"RCS/storage"
	lock "github.com/viney-shih/go-lock"
)

// Manager maintains one data node's replica: the in-memory user and
// chatroom tables backed by a storage.Store, the map of transactions
// between a YES vote and their resolution, and a decision poller per
// pending transaction.
type Manager struct {
	stmt *Context

	userLatch *locks.RWLock
	users     map[string]string
	roomLatch *locks.RWLock
	rooms     map[string]string

	// txnLatch guards both maps below; per-key exclusion is checked here.
	txnLatch lock.Mutex
	txns     map[uint64]*network.Transaction
	pollers  map[uint64]*decisionPoller

	store storage.Store
	wal   *LogManager
}

func NewManager(stmt *Context) *Manager {
	res := &Manager{
		stmt:      stmt,
		userLatch: locks.NewLocker(),
		roomLatch: locks.NewLocker(),
		txnLatch:  lock.NewCASMutex(),
		txns:      make(map[uint64]*network.Transaction),
		pollers:   make(map[uint64]*decisionPoller),
		store:     storage.NewStore(stmt.ctx, stmt.nodeID),
		wal:       NewLogManager(stmt.nodeID),
	}
	var err error
	res.users, err = res.store.LoadUsers()
	configs.CheckError(err)
	res.rooms, err = res.store.LoadRooms()
	configs.CheckError(err)
	return res
}

// CanCommit is the phase-one vote. A transaction is refused when it would
// recreate an existing user or when another pending transaction already
// holds its key; otherwise it enters the transaction map, gets a begin
// record in the log, and a decision poller watching the coordinator.
func (c *Manager) CanCommit(t *network.Transaction) string {
	if t.Op == configs.CreateUser && c.UserExists(t.Key) {
		configs.TxnPrint(t.Index, "vote NO: user %v already exists", t.Key)
		return configs.AckNo
	}
	c.txnLatch.Lock()
	defer c.txnLatch.Unlock()
	for _, pending := range c.txns {
		if pending.Key == t.Key {
			configs.TxnPrint(t.Index, "vote NO: key %v held by TXN%v", t.Key, pending.Index)
			return configs.AckNo
		}
	}
	c.txns[t.Index] = t
	c.wal.writeBegin(t)
	c.startPoller(t)
	configs.TxnPrint(t.Index, "vote YES on %v", t.String())
	return configs.AckYes
}

// DoCommit applies the transaction. It is idempotent: the decision poller
// and the coordinator's doCommit can race, the second application finds
// the work already done.
func (c *Manager) DoCommit(t *network.Transaction) {
	c.finishPoller(t.Index)
	c.apply(t)
	c.wal.writeResolve(t.Index, configs.AckYes)
	c.txnLatch.Lock()
	delete(c.txns, t.Index)
	c.txnLatch.Unlock()
	c.stmt.haveCommitted(t)
}

func (c *Manager) DoAbort(t *network.Transaction) {
	c.finishPoller(t.Index)
	c.txnLatch.Lock()
	_, pending := c.txns[t.Index]
	delete(c.txns, t.Index)
	c.txnLatch.Unlock()
	if pending {
		c.wal.writeResolve(t.Index, configs.AckNo)
	}
	configs.TxnPrint(t.Index, "aborted")
}

func (c *Manager) apply(t *network.Transaction) {
	switch t.Op {
	case configs.CreateUser:
		c.userLatch.Lock()
		defer c.userLatch.Unlock()
		if _, ok := c.users[t.Key]; ok {
			return
		}
		configs.CheckError(c.store.AppendUser(t.Key, t.Value))
		c.users[t.Key] = t.Value
	case configs.CreateChatroom:
		c.roomLatch.Lock()
		defer c.roomLatch.Unlock()
		if _, ok := c.rooms[t.Key]; ok {
			return
		}
		configs.CheckError(c.store.AppendRoom(t.Key, t.Value))
		c.rooms[t.Key] = t.Value
		configs.CheckError(c.store.CreateChatLog(t.Key))
	case configs.DeleteChatroom:
		c.roomLatch.Lock()
		defer c.roomLatch.Unlock()
		if _, ok := c.rooms[t.Key]; !ok {
			return
		}
		delete(c.rooms, t.Key)
		configs.CheckError(c.store.RewriteRooms(c.rooms))
		configs.CheckError(c.store.RemoveChatLog(t.Key))
	case configs.LogMessage:
		c.roomLatch.RLock()
		defer c.roomLatch.RUnlock()
		configs.CheckError(c.store.AppendChatLog(t.Key, t.Value))
	default:
		configs.Warn(false, "unknown transaction operation "+t.Op)
	}
}

func (c *Manager) UserExists(name string) bool {
	c.userLatch.RLock()
	defer c.userLatch.RUnlock()
	_, ok := c.users[name]
	return ok
}

func (c *Manager) ChatroomExists(room string) bool {
	c.roomLatch.RLock()
	defer c.roomLatch.RUnlock()
	_, ok := c.rooms[room]
	return ok
}

func (c *Manager) VerifyUser(name string, password string) network.Response {
	c.userLatch.RLock()
	defer c.userLatch.RUnlock()
	pw, ok := c.users[name]
	if !ok {
		return network.Fail("User does not exist")
	}
	if pw != password {
		return network.Fail("User provided an invalid password")
	}
	return network.OK("success")
}

func (c *Manager) VerifyOwnership(room string, user string) network.Response {
	c.roomLatch.RLock()
	defer c.roomLatch.RUnlock()
	owner, ok := c.rooms[room]
	if !ok {
		return network.Fail("Cannot verify ownership of non-existent chatroom")
	}
	if owner != user {
		return network.Fail("You are not the owner of this chatroom")
	}
	return network.OK("success")
}

// Rooms snapshots the chatroom names for registration.
func (c *Manager) Rooms() []string {
	c.roomLatch.RLock()
	defer c.roomLatch.RUnlock()
	res := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		res = append(res, room)
	}
	return res
}

// ReadChatLog exposes the durable chat log for verification.
func (c *Manager) ReadChatLog(room string) ([]string, error) {
	return c.store.ReadChatLog(room)
}

// recover re-arms the transactions whose begin record has no matching
// resolve: they re-enter the map and poll the coordinator for the verdict.
func (c *Manager) recover() {
	pending := c.wal.Replay()
	c.txnLatch.Lock()
	defer c.txnLatch.Unlock()
	for _, t := range pending {
		c.txns[t.Index] = t
		c.startPoller(t)
		configs.TxnPrint(t.Index, "recovered pending transaction %v", t.String())
	}
}

func (c *Manager) Close() {
	c.txnLatch.Lock()
	for idx, p := range c.pollers {
		p.setFinished()
		delete(c.pollers, idx)
	}
	c.txnLatch.Unlock()
	c.wal.Close()
	c.store.Close()
}
