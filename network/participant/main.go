package participant

import (
	"context"
	"time"

	"RCS/configs"
	"RCS/network"
)

// Context is the statement context for one data node process: the two
// serving surfaces (query operations and the transaction participant), the
// replica manager, and the cached channel back to the central server.
type Context struct {
	ctx    context.Context
	cancel context.CancelFunc
	nodeID string

	opsConn  *network.Comm
	partConn *network.Comm
	caller   *network.Caller

	// decisionAddr is the central server's decision surface, learned from
	// the registration reply.
	decisionAddr string

	Manager *Manager
	done    chan bool
}

func (stmt *Context) OpsAddr() string {
	return stmt.opsConn.Addr()
}

func (stmt *Context) PartAddr() string {
	return stmt.partConn.Addr()
}

// HandleRequest serves both data-node surfaces; the kinds are disjoint so
// one dispatcher covers them.
func (stmt *Context) HandleRequest(req *network.Request) interface{} {
	switch req.Kind {
	case configs.KindCanCommit:
		return network.AckResponse{Ack: stmt.Manager.CanCommit(req.Txn)}
	case configs.KindDoCommit:
		stmt.Manager.DoCommit(req.Txn)
		return network.OK("success")
	case configs.KindDoAbort:
		stmt.Manager.DoAbort(req.Txn)
		return network.OK("success")
	case configs.KindVerifyUser:
		return stmt.Manager.VerifyUser(req.User, req.Password)
	case configs.KindVerifyOwnership:
		return stmt.Manager.VerifyOwnership(req.Room, req.User)
	case configs.KindUserExists:
		return network.ExistsResponse{Exists: stmt.Manager.UserExists(req.User)}
	case configs.KindChatroomExists:
		return network.ExistsResponse{Exists: stmt.Manager.ChatroomExists(req.Room)}
	default:
		configs.Warn(false, "unknown request kind "+req.Kind)
		return network.Fail("unknown request")
	}
}

func (stmt *Context) getDecision(t *network.Transaction) (string, error) {
	req := &network.Request{Kind: configs.KindGetDecision, From: stmt.PartAddr(), Txn: t}
	resp := network.AckResponse{}
	if err := stmt.caller.Call(stmt.decisionAddr, req, &resp); err != nil {
		return "", err
	}
	return resp.Ack, nil
}

// haveCommitted tells the central server this node applied the commit.
// Best-effort: a lost notification only costs the coordinator its bounded
// commit wait.
func (stmt *Context) haveCommitted(t *network.Transaction) {
	req := &network.Request{Kind: configs.KindHaveCommitted, From: stmt.PartAddr(), Txn: t}
	resp := network.Response{}
	if err := stmt.caller.Call(stmt.decisionAddr, req, &resp); err != nil {
		configs.Warn(false, "haveCommitted dropped: "+err.Error())
	}
}

// register announces this node to the central server, carrying the room
// names already durable here so placement can be rebuilt, and learns the
// decision surface port from the reply.
func (stmt *Context) register() error {
	req := &network.Request{
		Kind:     configs.KindRegisterDataNode,
		From:     stmt.PartAddr(),
		Host:     network.AddrHost(stmt.PartAddr()),
		OpsPort:  network.AddrPort(stmt.OpsAddr()),
		PartPort: network.AddrPort(stmt.PartAddr()),
		Rooms:    stmt.Manager.Rooms(),
	}
	resp := network.RegisterResponse{}
	if err := stmt.caller.Call(configs.CoordinatorServerAddress, req, &resp); err != nil {
		return err
	}
	stmt.decisionAddr = network.JoinAddr(network.AddrHost(configs.CoordinatorServerAddress), resp.Port)
	stmt.syncClock()
	return nil
}

// syncClock runs one Cristian probe against the registration surface. The
// learned offset feeds log timestamps only.
func (stmt *Context) syncClock() {
	req := &network.Request{Kind: configs.KindServerTime, From: stmt.PartAddr()}
	resp := network.TimeResponse{}
	before := time.Now()
	if err := stmt.caller.Call(configs.CoordinatorServerAddress, req, &resp); err != nil {
		configs.Warn(false, "clock probe failed: "+err.Error())
		return
	}
	rtt := time.Since(before)
	local := before.Add(rtt/2).UnixNano() / int64(time.Millisecond)
	configs.SetClockOffset(resp.Millis - local)
}

func begin(stmt *Context, nodeID string, opsAddr string, partAddr string) {
	configs.TPrintf("Initializing data node " + nodeID)
	stmt.nodeID = nodeID
	stmt.done = make(chan bool, 1)
	stmt.ctx, stmt.cancel = context.WithCancel(context.Background())
	stmt.caller = network.NewCaller()
	stmt.opsConn = network.NewComm(stmt, opsAddr)
	stmt.partConn = network.NewComm(stmt, partAddr)
	stmt.Manager = NewManager(stmt)
	configs.CheckError(stmt.register())
	stmt.Manager.recover()
	go stmt.opsConn.Run()
	go stmt.partConn.Run()
	configs.DPrintf("data node %v serving ops on %v, participant on %v", nodeID, stmt.OpsAddr(), stmt.PartAddr())
}

func (stmt *Context) Close() {
	configs.TPrintf("Close called at data node " + stmt.nodeID)
	stmt.done <- true
	stmt.cancel()
	stmt.opsConn.Close()
	stmt.partConn.Close()
	stmt.Manager.Close()
	stmt.caller.Close()
}

// Main runs a data node process until it is killed.
func Main(nodeID string, opsAddr string, partAddr string) {
	stmt := &Context{}
	begin(stmt, nodeID, opsAddr, partAddr)
	<-stmt.ctx.Done()
}
