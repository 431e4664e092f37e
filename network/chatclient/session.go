package chatclient

import (
	"bufio"
	"net"
	"strings"
	"sync"

	"RCS/configs"
	"RCS/network"
	"RCS/utils"
)

// RoomSession is one user's live subscription to one chatroom: a single
// stream, a single receive goroutine, and the chat-node RPC surface for
// publishing. If the hosting chat node dies mid-session the receive loop
// asks the central server to re-establish the room and re-subscribes; if
// the room is deleted the session ends with RoomDeleted set.
type RoomSession struct {
	accessor *CentralAccessor
	caller   *network.Caller
	room     string
	user     string

	mu      sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
	rpcAddr string
	closed  bool

	// Lines delivers published messages; it closes when the session ends.
	Lines       chan string
	done        chan struct{}
	RoomDeleted bool
}

func NewRoomSession(accessor *CentralAccessor, room string) *RoomSession {
	return &RoomSession{
		accessor: accessor,
		caller:   network.NewCaller(),
		room:     room,
		user:     accessor.User,
		Lines:    make(chan string, 64),
		done:     make(chan struct{}),
	}
}

// Join subscribes to the room at the given placement and starts the
// receive goroutine.
func (s *RoomSession) Join(placement network.ChatroomResponse) error {
	if s.user == "" {
		return utils.ErrNotRegistered
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.dial(placement); err != nil {
		return err
	}
	go s.receive()
	return s.announceJoin()
}

// dial opens the stream and performs the subscribe handshake. Caller holds
// the session latch.
func (s *RoomSession) dial(placement network.ChatroomResponse) error {
	addr := network.JoinAddr(placement.Addr, placement.TCPPort)
	conn, err := net.DialTimeout("tcp", addr, configs.DialTimeout)
	if err != nil {
		return err
	}
	if _, err = conn.Write([]byte(s.room + ":" + s.user + "\n")); err != nil {
		_ = conn.Close()
		return err
	}
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		_ = conn.Close()
		return err
	}
	if strings.TrimRight(line, "\r\n") != configs.StreamAccept {
		_ = conn.Close()
		return utils.ErrRoomClosed
	}
	s.conn = conn
	s.reader = reader
	s.rpcAddr = network.JoinAddr(placement.Addr, placement.RPCPort)
	return nil
}

func (s *RoomSession) announceJoin() error {
	req := &network.Request{Kind: configs.KindJoinRoom, Room: s.room, User: s.user}
	resp := network.Response{}
	return s.caller.Call(s.rpcAddr, req, &resp)
}

func (s *RoomSession) receive() {
	defer close(s.Lines)
	defer close(s.done)
	for {
		s.mu.Lock()
		reader := s.reader
		s.mu.Unlock()
		line, err := reader.ReadString('\n')
		if err != nil {
			s.mu.Lock()
			quit := s.closed
			s.mu.Unlock()
			if quit {
				return
			}
			// The stream broke under us: the chat node died. Ask the
			// central server to re-place the room and re-subscribe.
			if !s.reestablish() {
				return
			}
			continue
		}
		line = strings.TrimRight(line, "\r\n")
		if line == configs.RoomClosedSentinel {
			s.mu.Lock()
			s.RoomDeleted = true
			s.closed = true
			_ = s.conn.Close()
			s.mu.Unlock()
			return
		}
		s.Lines <- line
	}
}

func (s *RoomSession) reestablish() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	_ = s.conn.Close()
	placement, err := s.accessor.ReestablishChatroom(s.room)
	if err != nil || placement.Status != configs.StatusOK {
		configs.Warn(false, "failed to reestablish chatroom "+s.room)
		return false
	}
	if err = s.dial(placement); err != nil {
		configs.Warn(false, "failed to rejoin chatroom "+s.room+": "+err.Error())
		return false
	}
	return s.announceJoin() == nil
}

// Chat publishes one message through the hosting chat node.
func (s *RoomSession) Chat(message string) (network.Response, error) {
	s.mu.Lock()
	rpcAddr := s.rpcAddr
	s.mu.Unlock()
	req := &network.Request{Kind: configs.KindChat, Room: s.room, User: s.user, Message: message}
	resp := network.Response{}
	err := s.caller.Call(rpcAddr, req, &resp)
	return resp, err
}

// Leave ends the session: the chat node announces the departure and the
// stream closes. Blocks until the receive goroutine has drained.
func (s *RoomSession) Leave() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	rpcAddr := s.rpcAddr
	s.mu.Unlock()
	req := &network.Request{Kind: configs.KindLeaveRoom, Room: s.room, User: s.user}
	resp := network.Response{}
	if err := s.caller.Call(rpcAddr, req, &resp); err != nil {
		configs.Warn(false, "leaveChatroom failed: "+err.Error())
	}
	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.mu.Unlock()
	<-s.done
	s.caller.Close()
}

// Done reports session termination to selectors.
func (s *RoomSession) Done() <-chan struct{} {
	return s.done
}
