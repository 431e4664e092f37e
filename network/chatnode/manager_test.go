package chatnode

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"RCS/configs"
	"RCS/network/coordinator"
	"RCS/network/participant"
	"github.com/magiconair/properties/assert"
	"github.com/stretchr/testify/require"
)

func spinChatNode(t *testing.T, base int) *Context {
	configs.StorageRoot = t.TempDir()
	co := coordinator.TestKit(addr(base))
	t.Cleanup(co.Close)
	p := participant.TestKit("p1", addr(base+3), addr(base+4))
	t.Cleanup(p.Close)
	cn := TestKit("c1", addr(base+1), addr(base+2))
	t.Cleanup(cn.Close)
	return cn
}

func addr(port int) string {
	return fmt.Sprintf("127.0.0.1:%d", port)
}

// subscribe dials the stream surface and performs the handshake.
func subscribe(t *testing.T, cn *Context, room string, user string) (net.Conn, *bufio.Reader) {
	conn, err := net.Dial("tcp", cn.StreamAddr())
	require.NoError(t, err)
	_, err = conn.Write([]byte(room + ":" + user + "\n"))
	require.NoError(t, err)
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, strings.TrimRight(line, "\r\n"), configs.StreamAccept)
	return conn, reader
}

func readLine(t *testing.T, reader *bufio.Reader) string {
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimRight(line, "\r\n")
}

func TestCreateAndDeleteRoom(t *testing.T) {
	cn := spinChatNode(t, 22000)
	resp := cn.Manager.CreateRoom("general")
	assert.Equal(t, resp.Status, configs.StatusOK)
	dup := cn.Manager.CreateRoom("general")
	assert.Equal(t, dup.Message, "A room with the provided name already exists")

	assert.Equal(t, cn.Manager.RoomList().Names, []string{"general"})

	del := cn.Manager.DeleteRoom("general")
	assert.Equal(t, del.Status, configs.StatusOK)
	// Deleting an absent room still succeeds.
	del = cn.Manager.DeleteRoom("general")
	assert.Equal(t, del.Status, configs.StatusOK)
	assert.Equal(t, len(cn.Manager.RoomList().Names), 0)
}

func TestHandshake(t *testing.T) {
	cn := spinChatNode(t, 22010)
	require.Equal(t, cn.Manager.CreateRoom("general").Status, configs.StatusOK)

	conn, err := net.Dial("tcp", cn.StreamAddr())
	require.NoError(t, err)
	_, err = conn.Write([]byte("general:alice\n"))
	require.NoError(t, err)
	reader := bufio.NewReader(conn)
	assert.Equal(t, readLine(t, reader), configs.StreamAccept)
	_ = conn.Close()

	// Unknown room is refused.
	conn, err = net.Dial("tcp", cn.StreamAddr())
	require.NoError(t, err)
	_, err = conn.Write([]byte("nosuch:alice\n"))
	require.NoError(t, err)
	reader = bufio.NewReader(conn)
	assert.Equal(t, readLine(t, reader), configs.StreamReject)

	// Malformed handshake is refused.
	conn, err = net.Dial("tcp", cn.StreamAddr())
	require.NoError(t, err)
	_, err = conn.Write([]byte("no-colon-here\n"))
	require.NoError(t, err)
	reader = bufio.NewReader(conn)
	assert.Equal(t, readLine(t, reader), configs.StreamReject)
}

func TestPublishFanOut(t *testing.T) {
	cn := spinChatNode(t, 22020)
	require.Equal(t, cn.Manager.CreateRoom("general").Status, configs.StatusOK)
	_, ra := subscribe(t, cn, "general", "alice")
	_, rb := subscribe(t, cn, "general", "bob")

	resp := cn.Manager.JoinRoom("general", "bob")
	assert.Equal(t, resp.Status, configs.StatusOK)
	assert.Equal(t, readLine(t, ra), "System >> bob has joined the chat")
	assert.Equal(t, readLine(t, rb), "System >> bob has joined the chat")

	resp = cn.Manager.Chat("general", "alice", "hi")
	assert.Equal(t, resp.Status, configs.StatusOK)
	assert.Equal(t, readLine(t, ra), "alice >> hi")
	assert.Equal(t, readLine(t, rb), "alice >> hi")

	resp = cn.Manager.LeaveRoom("general", "bob")
	assert.Equal(t, resp.Status, configs.StatusOK)
	assert.Equal(t, readLine(t, ra), "System >> bob has left the chat")

	data := cn.Manager.RoomData()
	assert.Equal(t, data.Chatrooms, 1)
	assert.Equal(t, data.Users, 1)
}

func TestDeleteRoomNotifiesSubscribers(t *testing.T) {
	cn := spinChatNode(t, 22030)
	require.Equal(t, cn.Manager.CreateRoom("general").Status, configs.StatusOK)
	conn, ra := subscribe(t, cn, "general", "alice")

	require.Equal(t, cn.Manager.DeleteRoom("general").Status, configs.StatusOK)
	assert.Equal(t, readLine(t, ra), configs.RoomClosedSentinel)
	// The stream is closed after the sentinel.
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, err := ra.ReadString('\n')
	assert.Equal(t, err != nil, true)
}

func TestChatInUnknownRoom(t *testing.T) {
	cn := spinChatNode(t, 22040)
	resp := cn.Manager.Chat("nosuch", "alice", "hi")
	assert.Equal(t, resp.Message, "Chatroom does not exist")
}
