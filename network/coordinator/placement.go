package coordinator

import (
	"RCS/configs"
	"RCS/network"
)

func (c *Manager) roomList(node string) ([]string, error) {
	req := &network.Request{Kind: configs.KindRoomList, From: c.stmt.Addr()}
	resp := network.ChatroomListResponse{}
	if err := c.stmt.caller.Call(node, req, &resp); err != nil {
		return nil, err
	}
	return resp.Names, nil
}

func (c *Manager) roomData(node string) (network.ChatroomDataResponse, error) {
	req := &network.Request{Kind: configs.KindRoomData, From: c.stmt.Addr()}
	resp := network.ChatroomDataResponse{}
	err := c.stmt.caller.Call(node, req, &resp)
	return resp, err
}

// findRoomHost scans the chat nodes for the one serving room. Unreachable
// nodes are skipped.
func (c *Manager) findRoomHost(room string, nodes []string) (string, bool) {
	for _, node := range nodes {
		names, err := c.roomList(node)
		if err != nil {
			configs.Warn(false, "getChatrooms from "+node+" failed: "+err.Error())
			continue
		}
		for _, name := range names {
			if name == room {
				return node, true
			}
		}
	}
	return "", false
}

// innerCreateChatroom places a new live chatroom: refuse a name that is
// already live anywhere, then pick the node with the fewest users (ties
// broken by fewest chatrooms, then first seen) and create the room there.
// Serialized by the chat roster latch.
func (c *Manager) innerCreateChatroom(name string) network.ChatroomResponse {
	c.chatLatch.Lock()
	defer c.chatLatch.Unlock()
	nodes := make([]string, len(c.chatNodes))
	copy(nodes, c.chatNodes)

	if _, found := c.findRoomHost(name, nodes); found {
		return network.ChatroomResponse{Response: network.Fail(configs.ExistingChatroomMessage)}
	}

	winner := ""
	var winnerData network.ChatroomDataResponse
	for _, node := range nodes {
		data, err := c.roomData(node)
		if err != nil {
			configs.Warn(false, "getChatroomData from "+node+" failed: "+err.Error())
			continue
		}
		if winner == "" || data.Users < winnerData.Users ||
			(data.Users == winnerData.Users && data.Chatrooms < winnerData.Chatrooms) {
			winner = node
			winnerData = data
		}
	}
	if winner == "" {
		return network.ChatroomResponse{Response: network.Fail("Unable to create chatroom")}
	}

	req := &network.Request{Kind: configs.KindNodeCreateRoom, From: c.stmt.Addr(), Room: name}
	resp := network.Response{}
	if err := c.stmt.caller.Call(winner, req, &resp); err != nil || resp.Status != configs.StatusOK {
		return network.ChatroomResponse{Response: network.Fail("Unable to create chatroom")}
	}
	configs.DPrintf("chatroom %v placed on %v", name, winner)
	return network.ChatroomResponse{
		Response: network.OK("success"),
		Name:     name,
		Addr:     winnerData.Addr,
		TCPPort:  winnerData.TCPPort,
		RPCPort:  winnerData.RPCPort,
	}
}

// getChatroomResponse locates an existing live chatroom and reports its
// placement. Serialized by the chat roster latch.
func (c *Manager) getChatroomResponse(name string) network.ChatroomResponse {
	c.chatLatch.RLock()
	nodes := make([]string, len(c.chatNodes))
	copy(nodes, c.chatNodes)
	c.chatLatch.RUnlock()

	host, found := c.findRoomHost(name, nodes)
	if !found {
		return network.ChatroomResponse{Response: network.Fail("Unable to locate chatroom")}
	}
	data, err := c.roomData(host)
	if err != nil {
		return network.ChatroomResponse{Response: network.Fail("Unable to get chatroom data")}
	}
	return network.ChatroomResponse{
		Response: network.OK("success"),
		Name:     name,
		Addr:     data.Addr,
		TCPPort:  data.TCPPort,
		RPCPort:  data.RPCPort,
	}
}

// innerDeleteChatroom closes the live chatroom on its hosting node.
func (c *Manager) innerDeleteChatroom(name string) network.ChatroomResponse {
	c.chatLatch.Lock()
	defer c.chatLatch.Unlock()
	nodes := make([]string, len(c.chatNodes))
	copy(nodes, c.chatNodes)

	host, found := c.findRoomHost(name, nodes)
	if !found {
		return network.ChatroomResponse{Response: network.Fail("Chatroom does not exist")}
	}
	req := &network.Request{Kind: configs.KindNodeDeleteRoom, From: c.stmt.Addr(), Room: name}
	resp := network.Response{}
	if err := c.stmt.caller.Call(host, req, &resp); err != nil || resp.Status != configs.StatusOK {
		return network.ChatroomResponse{Response: network.Fail("Unable to delete chatroom")}
	}
	return network.ChatroomResponse{Response: network.OK("Chatroom was successfully deleted")}
}
