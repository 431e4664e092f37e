package benchmark

import (
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"RCS/configs"
	"RCS/network/chatclient"
	"RCS/utils"
	mapset "github.com/deckarep/golang-set"
	"github.com/pingcap/go-ycsb/pkg/generator"
)

// ChatStmt drives a closed-loop chat workload against a running cluster:
// every client goroutine owns an accessor and a set of live room sessions,
// picks rooms with a zipfian skew, and splits its operations between
// publishing messages and read traffic.
type ChatStmt struct {
	stat   *utils.Stat
	stop   int32
	wait   sync.WaitGroup
	rooms  mapset.Set
	users  mapset.Set
	roomMu sync.Mutex
}

type ChatClient struct {
	md       int
	from     *ChatStmt
	r        *rand.Rand
	zip      *generator.Zipfian
	accessor *chatclient.CentralAccessor
	sessions map[string]*chatclient.RoomSession
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

func randSeq(r *rand.Rand, n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[r.Intn(len(letters))]
	}
	return string(b)
}

func roomName(i int) string {
	return "bench_room_" + strconv.Itoa(i)
}

func (stmt *ChatStmt) Stopped() bool {
	return atomic.LoadInt32(&stmt.stop) != 0
}

func (stmt *ChatStmt) Stop() {
	atomic.StoreInt32(&stmt.stop, 1)
}

// ensureRoom creates the benchmark room once across all clients; a
// concurrent creator losing the race sees the existing-room failure and
// moves on.
func (c *ChatClient) ensureRoom(name string) bool {
	stmt := c.from
	if stmt.rooms.Contains(name) {
		return true
	}
	stmt.roomMu.Lock()
	defer stmt.roomMu.Unlock()
	if stmt.rooms.Contains(name) {
		return true
	}
	resp, err := c.accessor.CreateChatroom(name)
	if err != nil {
		configs.Warn(false, "create room failed: "+err.Error())
		return false
	}
	if resp.Status != configs.StatusOK && resp.Message != "Chatroom \""+name+"\" already exists" {
		configs.Warn(false, "create room refused: "+resp.Message)
		return false
	}
	stmt.rooms.Add(name)
	return true
}

func (c *ChatClient) session(name string) *chatclient.RoomSession {
	if s, ok := c.sessions[name]; ok {
		return s
	}
	placement, err := c.accessor.GetChatroom(name)
	if err != nil || placement.Status != configs.StatusOK {
		return nil
	}
	s := chatclient.NewRoomSession(c.accessor, name)
	if err = s.Join(placement); err != nil {
		configs.Warn(false, "join failed for "+name+": "+err.Error())
		return nil
	}
	go func() {
		// Drain the feed; the benchmark measures the publish path.
		for range s.Lines {
		}
	}()
	c.sessions[name] = s
	return s
}

func (c *ChatClient) performOp() {
	room := roomName(int(c.zip.Next(c.r)))
	if !c.ensureRoom(room) {
		return
	}
	if c.r.Float64() < configs.ChatFraction {
		info := utils.NewInfo(configs.LogMessage)
		s := c.session(room)
		if s == nil {
			info.Failure = true
			c.from.stat.Append(info)
			return
		}
		st := time.Now()
		resp, err := s.Chat(randSeq(c.r, 12))
		info.Latency = time.Since(st)
		if err != nil || resp.Status != configs.StatusOK {
			info.Failure = true
		} else {
			info.IsCommit = true
		}
		c.from.stat.Append(info)
	} else {
		info := utils.NewInfo(configs.KindListChatrooms)
		st := time.Now()
		_, err := c.accessor.ListChatrooms()
		info.Latency = time.Since(st)
		if err != nil {
			info.Failure = true
		} else {
			info.IsCommit = true
		}
		c.from.stat.Append(info)
	}
}

func (stmt *ChatStmt) startChatClient(seed int, md int) {
	defer stmt.wait.Done()
	client := &ChatClient{
		md:       md,
		from:     stmt,
		r:        rand.New(rand.NewSource(int64(seed))),
		accessor: chatclient.NewAccessor(configs.CoordinatorServerAddress),
		sessions: make(map[string]*chatclient.RoomSession),
	}
	client.zip = generator.NewZipfianWithRange(0, int64(configs.NumberOfRooms-1), configs.RoomSkewness)
	user := "bench_user_" + strconv.Itoa(md) + "_" + randSeq(client.r, 6)
	resp, err := client.accessor.RegisterUser(user, randSeq(client.r, 8))
	if err != nil || resp.Status != configs.StatusOK {
		configs.Warn(false, "benchmark client "+strconv.Itoa(md)+" could not register")
		return
	}
	stmt.users.Add(user)
	for !stmt.Stopped() {
		client.performOp()
	}
	for _, s := range client.sessions {
		s.Leave()
	}
	client.accessor.Close()
}

// ChatTest runs the workload for configs.WorkloadRunTime and prints one
// summary line.
func (stmt *ChatStmt) ChatTest() {
	stmt.stat = utils.NewStat()
	stmt.rooms = mapset.NewSet()
	stmt.users = mapset.NewSet()
	for i := 0; i < configs.ClientRoutineNumber; i++ {
		stmt.wait.Add(1)
		go stmt.startChatClient(i+1, i)
	}
	time.Sleep(configs.WorkloadRunTime)
	stmt.Stop()
	stmt.wait.Wait()
	stmt.stat.Log()
}
