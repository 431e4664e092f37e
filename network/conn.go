package network

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"RCS/configs"
	"github.com/goccy/go-json"
)

// Handler dispatches one decoded request and returns the response value to
// be written back on the same connection.
type Handler interface {
	HandleRequest(req *Request) interface{}
}

// Comm runs one JSON request/response surface: an accept loop with a
// bounded handler pool, one reader goroutine per connection, and replies
// written back on the connection the request arrived on. Requests on a
// single connection are served in order; callers that want parallelism open
// parallel connections.
type Comm struct {
	done     chan bool
	listener net.Listener
	handler  Handler
	sem      chan struct{}
}

func NewComm(handler Handler, address string) *Comm {
	res := &Comm{handler: handler}
	res.done = make(chan bool, 1)
	tcpAddr, err := net.ResolveTCPAddr("tcp4", address)
	configs.CheckError(err)
	res.listener, err = net.ListenTCP("tcp", tcpAddr)
	configs.CheckError(err)
	return res
}

func (c *Comm) Addr() string {
	return c.listener.Addr().String()
}

func (c *Comm) Run() {
	c.sem = make(chan struct{}, configs.MaxConnectionHandler)
	for {
		conn, err := c.listener.Accept()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
				configs.Warn(false, err.Error())
				return
			}
		}
		c.sem <- struct{}{}
		go func() {
			defer func() {
				<-c.sem
			}()
			c.handleConn(conn)
		}()
	}
}

func (c *Comm) Close() {
	c.done <- true
	configs.CheckError(c.listener.Close())
}

func (c *Comm) handleConn(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		data, err := reader.ReadString('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			configs.Warn(false, err.Error())
			break
		}
		var req Request
		if err = json.Unmarshal([]byte(data), &req); err != nil {
			configs.Warn(false, "malformed request dropped: "+err.Error())
			break
		}
		var resp interface{}
		if req.Kind == configs.KindPing {
			resp = OK("pong")
		} else {
			resp = c.handler.HandleRequest(&req)
		}
		byt, err := json.Marshal(resp)
		configs.CheckError(err)
		byt = append(byt, '\n')
		if err = conn.SetWriteDeadline(time.Now().Add(configs.ConnectionTimeout)); err != nil {
			configs.Warn(false, err.Error())
			break
		}
		if _, err = conn.Write(byt); err != nil {
			configs.Warn(false, err.Error())
			break
		}
	}
}

// Caller issues synchronous requests over cached connections. One request
// is in flight per connection at a time; concurrent calls to the same
// target serialize on the connection latch.
type Caller struct {
	connMap *sync.Map
}

type callerConn struct {
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

func NewCaller() *Caller {
	return &Caller{connMap: &sync.Map{}}
}

func (c *Caller) Call(to string, req *Request, resp interface{}) error {
	cur, ok := c.connMap.Load(to)
	if !ok {
		conn, err := net.DialTimeout("tcp", to, configs.DialTimeout)
		if err != nil {
			return err
		}
		cur, ok = c.connMap.LoadOrStore(to, &callerConn{conn: conn, reader: bufio.NewReader(conn)})
		if ok {
			// lost the race, use the cached connection.
			_ = conn.Close()
		}
	}
	cc := cur.(*callerConn)
	cc.mu.Lock()
	defer cc.mu.Unlock()
	byt, err := json.Marshal(req)
	configs.CheckError(err)
	byt = append(byt, '\n')
	if err = cc.conn.SetWriteDeadline(time.Now().Add(configs.ConnectionTimeout)); err != nil {
		c.drop(to, cc)
		return err
	}
	if _, err = cc.conn.Write(byt); err != nil {
		c.drop(to, cc)
		return err
	}
	if err = cc.conn.SetReadDeadline(time.Now().Add(configs.ReadTimeout)); err != nil {
		c.drop(to, cc)
		return err
	}
	data, err := cc.reader.ReadString('\n')
	if err != nil {
		c.drop(to, cc)
		return err
	}
	return json.Unmarshal([]byte(data), resp)
}

func (c *Caller) drop(to string, cc *callerConn) {
	c.connMap.Delete(to)
	_ = cc.conn.Close()
}

func (c *Caller) Close() {
	c.connMap.Range(func(key, value interface{}) bool {
		_ = value.(*callerConn).conn.Close()
		c.connMap.Delete(key)
		return true
	})
}

// Probe checks that a remote surface still resolves. The liveness sweep
// treats a failed probe as a dead node.
func Probe(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, configs.DialTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// JoinAddr composes a roster address from a registered host and port.
func JoinAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// AddrPort extracts the port of a serving address.
func AddrPort(addr string) int {
	_, p, err := net.SplitHostPort(addr)
	configs.CheckError(err)
	port, err := strconv.Atoi(p)
	configs.CheckError(err)
	return port
}

// AddrHost extracts the host of a serving address.
func AddrHost(addr string) string {
	h, _, err := net.SplitHostPort(addr)
	configs.CheckError(err)
	return h
}
