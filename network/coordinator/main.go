package coordinator

import (
	"context"
	"time"

	"RCS/configs"
	"RCS/network"
)

// Context is the statement context for the central server process. One
// listener serves every surface: registration, user operations, chat-log
// submission, and the transaction decision table.
type Context struct {
	ctx    context.Context
	cancel context.CancelFunc

	conn   *network.Comm
	caller *network.Caller

	Manager *Manager
	done    chan bool
}

func (stmt *Context) Addr() string {
	return stmt.conn.Addr()
}

func (stmt *Context) HandleRequest(req *network.Request) interface{} {
	switch req.Kind {
	case configs.KindRegisterDataNode:
		return stmt.Manager.RegisterDataNode(req.Host, req.OpsPort, req.PartPort, req.Rooms)
	case configs.KindRegisterChatNode:
		return stmt.Manager.RegisterChatNode(req.Host, req.OpsPort)
	case configs.KindServerTime:
		return network.TimeResponse{Millis: time.Now().UnixNano() / int64(time.Millisecond)}
	case configs.KindRegisterUser:
		return stmt.Manager.RegisterUser(req.User, req.Password)
	case configs.KindLogin:
		return stmt.Manager.Login(req.User, req.Password)
	case configs.KindListChatrooms:
		return stmt.Manager.ListChatrooms()
	case configs.KindCreateChatroom:
		return stmt.Manager.CreateChatroom(req.Room, req.User)
	case configs.KindGetChatroom:
		return stmt.Manager.GetChatroom(req.Room)
	case configs.KindDeleteChatroom:
		return stmt.Manager.DeleteChatroom(req.Room, req.User, req.Password)
	case configs.KindReestablishRoom:
		return stmt.Manager.ReestablishChatroom(req.Room, req.User)
	case configs.KindLogChatMessage:
		return stmt.Manager.LogChatMessage(req.Room, req.Message)
	case configs.KindGetDecision:
		return network.AckResponse{Ack: stmt.Manager.GetDecision(req.Txn)}
	case configs.KindHaveCommitted:
		stmt.Manager.HaveCommitted(req.Txn, req.From)
		return network.OK("success")
	default:
		configs.Warn(false, "unknown request kind "+req.Kind)
		return network.Fail("unknown request")
	}
}

func begin(stmt *Context, addr string) {
	configs.TPrintf("Initializing central server")
	stmt.done = make(chan bool, 1)
	stmt.ctx, stmt.cancel = context.WithCancel(context.Background())
	stmt.caller = network.NewCaller()
	stmt.conn = network.NewComm(stmt, addr)
	stmt.Manager = NewManager(stmt)
	go stmt.Manager.sweeper()
	go stmt.conn.Run()
	configs.DPrintf("central server serving on %v", stmt.Addr())
}

func (stmt *Context) Close() {
	configs.TPrintf("Close called at central server")
	stmt.done <- true
	stmt.cancel()
	stmt.conn.Close()
	stmt.caller.Close()
}

// Main runs the central server process until it is killed.
func Main(addr string) {
	stmt := &Context{}
	begin(stmt, addr)
	<-stmt.ctx.Done()
}
