package coordinator

import (
	"RCS/configs"
)

// TestKit spins up a central server on addr and points node registration
// at it.
func TestKit(addr string) *Context {
	stmt := &Context{}
	begin(stmt, addr)
	configs.CoordinatorServerAddress = stmt.Addr()
	return stmt
}

// RegisteredDataNodes reports the current data roster size.
func (c *Manager) RegisteredDataNodes() int {
	c.rosterLatch.RLock()
	defer c.rosterLatch.RUnlock()
	return len(c.dataParts)
}

// RegisteredChatNodes reports the current chat roster size.
func (c *Manager) RegisteredChatNodes() int {
	c.chatLatch.RLock()
	defer c.chatLatch.RUnlock()
	return len(c.chatNodes)
}
