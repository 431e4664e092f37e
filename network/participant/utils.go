package participant

import (
	"context"
	"testing"

	"RCS/configs"
	"RCS/network"
	"github.com/magiconair/properties/assert"
)

// TestKit spins up a full data node against a running central server.
func TestKit(nodeID string, opsAddr string, partAddr string) *Context {
	stmt := &Context{}
	begin(stmt, nodeID, opsAddr, partAddr)
	return stmt
}

// ManagerKit builds the replica manager without serving or registering,
// for tests that drive CanCommit/DoCommit directly. Calls back to the
// central server fail fast and are tolerated.
func ManagerKit(nodeID string) *Context {
	stmt := &Context{nodeID: nodeID}
	stmt.done = make(chan bool, 1)
	stmt.ctx, stmt.cancel = context.WithCancel(context.Background())
	stmt.caller = network.NewCaller()
	stmt.opsConn = network.NewComm(stmt, "127.0.0.1:0")
	stmt.partConn = network.NewComm(stmt, "127.0.0.1:0")
	stmt.decisionAddr = configs.CoordinatorServerAddress
	stmt.Manager = NewManager(stmt)
	return stmt
}

func (stmt *Context) CloseKit() {
	stmt.cancel()
	stmt.Manager.Close()
	stmt.opsConn.Close()
	stmt.partConn.Close()
	stmt.caller.Close()
}

// CheckVal asserts the replica tables a manager holds in memory.
func CheckVal(t *testing.T, m *Manager, users map[string]string, rooms map[string]string) {
	m.userLatch.RLock()
	gotUsers := make(map[string]string, len(m.users))
	for k, v := range m.users {
		gotUsers[k] = v
	}
	m.userLatch.RUnlock()
	m.roomLatch.RLock()
	gotRooms := make(map[string]string, len(m.rooms))
	for k, v := range m.rooms {
		gotRooms[k] = v
	}
	m.roomLatch.RUnlock()
	assert.Equal(t, gotUsers, users)
	assert.Equal(t, gotRooms, rooms)
}
