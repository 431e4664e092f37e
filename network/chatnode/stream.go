package chatnode

import (
	"bufio"
	"net"
	"strings"

	"RCS/configs"
)

// runStreamListener accepts subscriber TCP sessions. The handshake is one
// plain-text line, "<room>:<user>", answered with "success" or "fail"; an
// accepted stream joins the room's subscriber table and from then on only
// receives published lines.
func (stmt *Context) runStreamListener() {
	for {
		conn, err := stmt.streamListener.Accept()
		if err != nil {
			select {
			case <-stmt.ctx.Done():
				return
			default:
				configs.Warn(false, err.Error())
				return
			}
		}
		go stmt.handshake(conn)
	}
}

func (stmt *Context) handshake(conn net.Conn) {
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		_ = conn.Close()
		return
	}
	line = strings.TrimRight(line, "\r\n")
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		configs.Warn(false, "malformed stream handshake: "+line)
		stmt.reject(conn)
		return
	}
	room := stmt.Manager.lookup(parts[0])
	if room == nil {
		configs.Warn(false, "stream handshake for unknown chatroom "+parts[0])
		stmt.reject(conn)
		return
	}
	room.subscribe(parts[1], conn)
	if _, err = conn.Write([]byte(configs.StreamAccept + "\n")); err != nil {
		room.unsubscribe(parts[1])
	}
}

func (stmt *Context) reject(conn net.Conn) {
	_, _ = conn.Write([]byte(configs.StreamReject + "\n"))
	_ = conn.Close()
}
