package network

import (
	"RCS/configs"
)

// Transaction is the unit replicated through 2PC. Index is the sole
// identifier exchanged between the coordinator and participants; a
// transaction is immutable once constructed.
type Transaction struct {
	Index uint64
	Op    string
	Key   string
	Value string
}

func NewTransaction(op string, key string, value string) *Transaction {
	return &Transaction{
		Index: configs.NextTxnIndex(),
		Op:    op,
		Key:   key,
		Value: value,
	}
}

func (t *Transaction) String() string {
	return configs.JToString(t)
}

// Request is the envelope for every JSON surface. Kind selects the
// operation; the remaining fields are populated per kind. From carries the
// caller's serving address where the callee needs to correlate responses to
// a node (the p_self of the participant surfaces).
type Request struct {
	Kind string
	From string

	// 2PC and decision operations.
	Txn *Transaction

	// Registration.
	Host     string
	OpsPort  int
	PartPort int
	Rooms    []string

	// User, data, and chatroom operations.
	User     string
	Password string
	Room     string
	Message  string
}

// Response is the plain status/message reply shared by most operations.
type Response struct {
	Status  string
	Message string
}

func OK(message string) Response {
	return Response{Status: configs.StatusOK, Message: message}
}

func Fail(message string) Response {
	return Response{Status: configs.StatusFail, Message: message}
}

// AckResponse carries a participant vote or a coordinator decision.
type AckResponse struct {
	Ack string
}

// ExistsResponse answers the userExists/chatroomExists queries.
type ExistsResponse struct {
	Exists bool
}

// RegisterResponse tells a registering node which port on the central
// server it should direct its follow-up traffic to.
type RegisterResponse struct {
	Port int
}

// TimeResponse returns the master wall clock in milliseconds for the
// Cristian probe.
type TimeResponse struct {
	Millis int64
}

// ChatroomResponse describes the placement of a chatroom: the hosting chat
// node's address, its client stream port, and its RPC port.
type ChatroomResponse struct {
	Response
	Name    string
	Addr    string
	TCPPort int
	RPCPort int
}

// ChatroomListResponse lists chatroom names.
type ChatroomListResponse struct {
	Names []string
}

// ChatroomDataResponse reports a chat node's load and addressing, used by
// the coordinator for placement decisions.
type ChatroomDataResponse struct {
	Chatrooms int
	Users     int
	Addr      string
	RPCPort   int
	TCPPort   int
}
