package chatnode

import (
	"sync"
	"time"

	"RCS/configs"
	"RCS/locks"
	"RCS/network"
)

// Manager maintains one chat node's live rooms and the serial channel for
// submitting published lines to the central server's durable log.
type Manager struct {
	stmt *Context

	roomLatch *locks.RWLock
	rooms     map[string]*Chatroom

	// logLatch keeps chat-log submission serial per node, so the durable
	// log preserves this node's publish order.
	logLatch sync.Mutex
}

func NewManager(stmt *Context) *Manager {
	return &Manager{
		stmt:      stmt,
		roomLatch: locks.NewLocker(),
		rooms:     make(map[string]*Chatroom),
	}
}

// CreateRoom spawns a live room on this node.
func (c *Manager) CreateRoom(name string) network.Response {
	c.roomLatch.Lock()
	defer c.roomLatch.Unlock()
	if _, ok := c.rooms[name]; ok {
		return network.Fail("A room with the provided name already exists")
	}
	c.rooms[name] = NewChatroom(name)
	configs.DPrintf("chatroom %v created on %v", name, c.stmt.nodeID)
	return network.OK("success")
}

// DeleteRoom closes a live room. Deleting an absent room succeeds, the
// caller only cares that the room is gone.
func (c *Manager) DeleteRoom(name string) network.Response {
	c.roomLatch.Lock()
	defer c.roomLatch.Unlock()
	if room, ok := c.rooms[name]; ok {
		room.closeRoom()
		delete(c.rooms, name)
		configs.DPrintf("chatroom %v deleted from %v", name, c.stmt.nodeID)
	}
	return network.OK("success")
}

// RoomData reports this node's load and addressing for placement.
func (c *Manager) RoomData() network.ChatroomDataResponse {
	c.roomLatch.RLock()
	defer c.roomLatch.RUnlock()
	users := 0
	for _, room := range c.rooms {
		users += room.userCount()
	}
	return network.ChatroomDataResponse{
		Chatrooms: len(c.rooms),
		Users:     users,
		Addr:      network.AddrHost(c.stmt.RPCAddr()),
		RPCPort:   network.AddrPort(c.stmt.RPCAddr()),
		TCPPort:   network.AddrPort(c.stmt.StreamAddr()),
	}
}

func (c *Manager) RoomList() network.ChatroomListResponse {
	c.roomLatch.RLock()
	defer c.roomLatch.RUnlock()
	names := make([]string, 0, len(c.rooms))
	for name := range c.rooms {
		names = append(names, name)
	}
	return network.ChatroomListResponse{Names: names}
}

func (c *Manager) lookup(name string) *Chatroom {
	c.roomLatch.RLock()
	defer c.roomLatch.RUnlock()
	return c.rooms[name]
}

// Chat publishes a user's message to the room's subscribers, then submits
// the line for durable logging. Submission retries until the central
// server accepts it; the publish is never rolled back.
func (c *Manager) Chat(roomName string, user string, message string) network.Response {
	line := user + " >> " + message
	c.roomLatch.RLock()
	room := c.rooms[roomName]
	if room == nil {
		c.roomLatch.RUnlock()
		return network.Fail("Chatroom does not exist")
	}
	room.publish(line)
	c.roomLatch.RUnlock()
	c.submitLog(roomName, line)
	return network.OK("success")
}

func (c *Manager) submitLog(roomName string, line string) {
	c.logLatch.Lock()
	defer c.logLatch.Unlock()
	for {
		req := &network.Request{Kind: configs.KindLogChatMessage, From: c.stmt.RPCAddr(), Room: roomName, Message: line}
		resp := network.Response{}
		err := c.stmt.caller.Call(c.stmt.logAddr, req, &resp)
		if err == nil && resp.Status == configs.StatusOK {
			return
		}
		if err != nil {
			configs.Warn(false, "chat log submission failed: "+err.Error())
		} else {
			configs.Warn(false, "chat log submission refused: "+resp.Message)
		}
		select {
		case <-time.After(configs.LogRetryInterval):
		case <-c.stmt.ctx.Done():
			return
		}
	}
}

// JoinRoom announces a subscriber to the room.
func (c *Manager) JoinRoom(roomName string, user string) network.Response {
	if room := c.lookup(roomName); room != nil {
		room.publish(configs.SystemUser + " >> " + user + " has joined the chat")
		return network.OK("success")
	}
	configs.Warn(false, "join for non-existent chatroom "+roomName)
	return network.Fail("Chatroom does not exist")
}

// LeaveRoom drops the subscriber and announces the departure to the rest.
func (c *Manager) LeaveRoom(roomName string, user string) network.Response {
	if room := c.lookup(roomName); room != nil {
		room.unsubscribe(user)
		room.publish(configs.SystemUser + " >> " + user + " has left the chat")
		return network.OK("success")
	}
	configs.Warn(false, "leave for non-existent chatroom "+roomName)
	return network.Fail("Chatroom does not exist")
}
