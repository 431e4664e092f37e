package chatnode

import (
	"net"

	"RCS/configs"
	lock "github.com/viney-shih/go-lock"
)

// Chatroom is one live room: a name and the subscriber streams. Messages
// fan out to every subscriber before publish returns; a dead subscriber's
// write error is logged and the stream kept, the subscriber's own session
// teardown reclaims it.
type Chatroom struct {
	name  string
	latch lock.Mutex
	subs  map[string]net.Conn
}

func NewChatroom(name string) *Chatroom {
	return &Chatroom{
		name:  name,
		latch: lock.NewCASMutex(),
		subs:  make(map[string]net.Conn),
	}
}

func (r *Chatroom) subscribe(user string, conn net.Conn) {
	r.latch.Lock()
	defer r.latch.Unlock()
	if old, ok := r.subs[user]; ok {
		_ = old.Close()
	}
	r.subs[user] = conn
}

func (r *Chatroom) unsubscribe(user string) {
	r.latch.Lock()
	defer r.latch.Unlock()
	if conn, ok := r.subs[user]; ok {
		_ = conn.Close()
		delete(r.subs, user)
	}
}

func (r *Chatroom) publish(line string) {
	r.latch.Lock()
	defer r.latch.Unlock()
	for user, conn := range r.subs {
		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			configs.Warn(false, "publish to "+user+" in "+r.name+" failed: "+err.Error())
		}
	}
}

// closeRoom tells every subscriber the room is gone and closes the
// streams.
func (r *Chatroom) closeRoom() {
	r.latch.Lock()
	defer r.latch.Unlock()
	for user, conn := range r.subs {
		if _, err := conn.Write([]byte(configs.RoomClosedSentinel + "\n")); err != nil {
			configs.Warn(false, "close notice to "+user+" failed: "+err.Error())
		}
		_ = conn.Close()
	}
	r.subs = make(map[string]net.Conn)
}

func (r *Chatroom) userCount() int {
	r.latch.Lock()
	defer r.latch.Unlock()
	return len(r.subs)
}
