package coordinator

import (
	"fmt"
	"strings"

	"RCS/configs"
	"RCS/network"
)

func (c *Manager) userExistsAnywhere(name string) bool {
	for _, node := range c.dataNodes() {
		req := &network.Request{Kind: configs.KindUserExists, From: c.stmt.Addr(), User: name}
		resp := network.ExistsResponse{}
		if err := c.stmt.caller.Call(node, req, &resp); err != nil {
			configs.Warn(false, "userExists at "+node+" failed: "+err.Error())
			continue
		}
		if resp.Exists {
			return true
		}
	}
	return false
}

func (c *Manager) chatroomExistsAnywhere(name string) bool {
	for _, node := range c.dataNodes() {
		req := &network.Request{Kind: configs.KindChatroomExists, From: c.stmt.Addr(), Room: name}
		resp := network.ExistsResponse{}
		if err := c.stmt.caller.Call(node, req, &resp); err != nil {
			configs.Warn(false, "chatroomExists at "+node+" failed: "+err.Error())
			continue
		}
		if resp.Exists {
			return true
		}
	}
	return false
}

// RegisterUser creates a user account through a replicated transaction.
func (c *Manager) RegisterUser(user string, password string) network.Response {
	if len(c.dataNodes()) == 0 {
		return network.Fail("Unable to register user")
	}
	if strings.Contains(user, ":") || strings.Contains(password, ":") {
		return network.Fail(`You cannot have a username or password that contains ":"`)
	}
	if c.userExistsAnywhere(user) {
		return network.Fail("User already exists")
	}
	t := network.NewTransaction(configs.CreateUser, user, password)
	if !c.GenericCommit(t) {
		return network.Fail("Unable to register user")
	}
	return network.OK("success")
}

// Login verifies credentials against the data nodes; the first node that
// accepts them wins.
func (c *Manager) Login(user string, password string) network.Response {
	nodes := c.dataNodes()
	if len(nodes) == 0 {
		return network.Fail("Unable to perform login")
	}
	for _, node := range nodes {
		req := &network.Request{Kind: configs.KindVerifyUser, From: c.stmt.Addr(), User: user, Password: password}
		resp := network.Response{}
		if err := c.stmt.caller.Call(node, req, &resp); err != nil {
			configs.Warn(false, "verifyUser at "+node+" failed: "+err.Error())
			continue
		}
		if resp.Status == configs.StatusOK {
			return network.OK("success")
		}
	}
	return network.Fail("Login failed")
}

// ListChatrooms concatenates the live rooms across chat nodes, skipping
// unreachable ones.
func (c *Manager) ListChatrooms() network.ChatroomListResponse {
	names := make([]string, 0)
	for _, node := range c.chatNodeList() {
		rooms, err := c.roomList(node)
		if err != nil {
			configs.Warn(false, "getChatrooms from "+node+" failed: "+err.Error())
			continue
		}
		names = append(names, rooms...)
	}
	return network.ChatroomListResponse{Names: names}
}

// CreateChatroom records ownership on every data node and places the live
// room on a chat node, composed so neither happens without the other.
func (c *Manager) CreateChatroom(name string, owner string) network.ChatroomResponse {
	if len(c.dataNodes()) == 0 {
		return network.ChatroomResponse{Response: network.Fail("Unable to create chatroom")}
	}
	if strings.Contains(name, ":") {
		return network.ChatroomResponse{Response: network.Fail(`You cannot have a chatroom name that contains ":"`)}
	}
	if c.chatroomExistsAnywhere(name) {
		return network.ChatroomResponse{Response: network.Fail(fmt.Sprintf("Chatroom \"%v\" already exists", name))}
	}
	t := network.NewTransaction(configs.CreateChatroom, name, owner)
	return c.CommitWithPlacement(t, func() network.ChatroomResponse {
		return c.innerCreateChatroom(name)
	})
}

// GetChatroom reports where a live chatroom is served.
func (c *Manager) GetChatroom(name string) network.ChatroomResponse {
	return c.getChatroomResponse(name)
}

// DeleteChatroom removes ownership everywhere and closes the live room.
// Only the owner may delete.
func (c *Manager) DeleteChatroom(name string, user string, password string) network.Response {
	if !c.chatroomExistsAnywhere(name) {
		return network.Fail("Chatroom doesn't exist")
	}
	if !c.verifyUserAnywhere(user, password) {
		return network.Fail("Unable to verify user")
	}
	if !c.verifyOwnershipAnywhere(name, user) {
		return network.Fail(fmt.Sprintf("User \"%v\" is unauthorized to delete chatroom \"%v\"", user, name))
	}
	t := network.NewTransaction(configs.DeleteChatroom, name, user)
	resp := c.CommitWithPlacement(t, func() network.ChatroomResponse {
		return c.innerDeleteChatroom(name)
	})
	return resp.Response
}

func (c *Manager) verifyUserAnywhere(user string, password string) bool {
	for _, node := range c.dataNodes() {
		req := &network.Request{Kind: configs.KindVerifyUser, From: c.stmt.Addr(), User: user, Password: password}
		resp := network.Response{}
		if err := c.stmt.caller.Call(node, req, &resp); err != nil {
			configs.Warn(false, "verifyUser at "+node+" failed: "+err.Error())
			continue
		}
		return resp.Status == configs.StatusOK
	}
	return false
}

func (c *Manager) verifyOwnershipAnywhere(room string, user string) bool {
	for _, node := range c.dataNodes() {
		req := &network.Request{Kind: configs.KindVerifyOwnership, From: c.stmt.Addr(), Room: room, User: user}
		resp := network.Response{}
		if err := c.stmt.caller.Call(node, req, &resp); err != nil {
			configs.Warn(false, "verifyOwnership at "+node+" failed: "+err.Error())
			continue
		}
		return resp.Status == configs.StatusOK
	}
	return false
}

// ReestablishChatroom re-places a chatroom whose hosting chat node died.
// Serialized so a burst of orphaned clients yields one placement: the
// first caller re-creates the room, the rest match the existing-room
// message and are redirected to the placement the first caller made.
func (c *Manager) ReestablishChatroom(name string, user string) network.ChatroomResponse {
	c.reestablishLatch.Lock()
	defer c.reestablishLatch.Unlock()
	configs.DPrintf("reestablishing chatroom %v for %v", name, user)
	c.CleanChatNodes()
	resp := c.innerCreateChatroom(name)
	if resp.Status != configs.StatusOK && resp.Message == configs.ExistingChatroomMessage {
		return c.getChatroomResponse(name)
	}
	return resp
}

// LogChatMessage durably appends one published chat line on every data
// node.
func (c *Manager) LogChatMessage(room string, line string) network.Response {
	t := network.NewTransaction(configs.LogMessage, room, line)
	if !c.GenericCommit(t) {
		return network.Fail("Unable to log chat message")
	}
	return network.OK("success")
}
