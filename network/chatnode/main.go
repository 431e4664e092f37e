package chatnode

import (
	"context"
	"net"

	"RCS/configs"
	"RCS/network"
)

// Context is the statement context for one chat node process: the JSON
// management/user surface, the raw subscriber stream listener, and the
// cached channel for durable log submission.
type Context struct {
	ctx    context.Context
	cancel context.CancelFunc
	nodeID string

	rpcConn        *network.Comm
	streamListener net.Listener
	caller         *network.Caller

	// logAddr is the central server's chat-log surface, learned at
	// registration.
	logAddr string

	Manager *Manager
	done    chan bool
}

func (stmt *Context) RPCAddr() string {
	return stmt.rpcConn.Addr()
}

func (stmt *Context) StreamAddr() string {
	return stmt.streamListener.Addr().String()
}

func (stmt *Context) HandleRequest(req *network.Request) interface{} {
	switch req.Kind {
	case configs.KindNodeCreateRoom:
		return stmt.Manager.CreateRoom(req.Room)
	case configs.KindNodeDeleteRoom:
		return stmt.Manager.DeleteRoom(req.Room)
	case configs.KindRoomData:
		return stmt.Manager.RoomData()
	case configs.KindRoomList:
		return stmt.Manager.RoomList()
	case configs.KindChat:
		return stmt.Manager.Chat(req.Room, req.User, req.Message)
	case configs.KindJoinRoom:
		return stmt.Manager.JoinRoom(req.Room, req.User)
	case configs.KindLeaveRoom:
		return stmt.Manager.LeaveRoom(req.Room, req.User)
	default:
		configs.Warn(false, "unknown request kind "+req.Kind)
		return network.Fail("unknown request")
	}
}

func (stmt *Context) register() error {
	req := &network.Request{
		Kind:    configs.KindRegisterChatNode,
		From:    stmt.RPCAddr(),
		Host:    network.AddrHost(stmt.RPCAddr()),
		OpsPort: network.AddrPort(stmt.RPCAddr()),
	}
	resp := network.RegisterResponse{}
	if err := stmt.caller.Call(configs.CoordinatorServerAddress, req, &resp); err != nil {
		return err
	}
	stmt.logAddr = network.JoinAddr(network.AddrHost(configs.CoordinatorServerAddress), resp.Port)
	return nil
}

func begin(stmt *Context, nodeID string, rpcAddr string, streamAddr string) {
	configs.TPrintf("Initializing chat node " + nodeID)
	stmt.nodeID = nodeID
	stmt.done = make(chan bool, 1)
	stmt.ctx, stmt.cancel = context.WithCancel(context.Background())
	stmt.caller = network.NewCaller()
	stmt.rpcConn = network.NewComm(stmt, rpcAddr)
	tcpAddr, err := net.ResolveTCPAddr("tcp4", streamAddr)
	configs.CheckError(err)
	stmt.streamListener, err = net.ListenTCP("tcp", tcpAddr)
	configs.CheckError(err)
	stmt.Manager = NewManager(stmt)
	configs.CheckError(stmt.register())
	go stmt.rpcConn.Run()
	go stmt.runStreamListener()
	configs.DPrintf("chat node %v serving rpc on %v, streams on %v", nodeID, stmt.RPCAddr(), stmt.StreamAddr())
}

func (stmt *Context) Close() {
	configs.TPrintf("Close called at chat node " + stmt.nodeID)
	stmt.done <- true
	stmt.cancel()
	stmt.rpcConn.Close()
	configs.CheckError(stmt.streamListener.Close())
	stmt.caller.Close()
}

// Main runs a chat node process until it is killed.
func Main(nodeID string, rpcAddr string, streamAddr string) {
	stmt := &Context{}
	begin(stmt, nodeID, rpcAddr, streamAddr)
	<-stmt.ctx.Done()
}

// Kill simulates a crash: the listeners and every subscriber stream drop
// without any close notice.
func (stmt *Context) Kill() {
	stmt.cancel()
	stmt.rpcConn.Close()
	_ = stmt.streamListener.Close()
	stmt.Manager.roomLatch.Lock()
	for _, room := range stmt.Manager.rooms {
		room.latch.Lock()
		for _, conn := range room.subs {
			_ = conn.Close()
		}
		room.subs = make(map[string]net.Conn)
		room.latch.Unlock()
	}
	stmt.Manager.roomLatch.Unlock()
	stmt.caller.Close()
}

// TestKit spins up a chat node against a running central server.
func TestKit(nodeID string, rpcAddr string, streamAddr string) *Context {
	stmt := &Context{}
	begin(stmt, nodeID, rpcAddr, streamAddr)
	return stmt
}
