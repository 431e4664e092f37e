package chatclient

import (
	"fmt"
	"testing"
	"time"

	"RCS/configs"
	"RCS/network"
	"RCS/network/chatnode"
	"RCS/network/coordinator"
	"RCS/network/participant"
	"RCS/utils"
	"github.com/magiconair/properties/assert"
	"github.com/stretchr/testify/require"
)

func spinWorld(t *testing.T, nData int, nChat int, base int) (*coordinator.Context, []*participant.Context, []*chatnode.Context) {
	configs.StorageRoot = t.TempDir()
	co := coordinator.TestKit(fmt.Sprintf("127.0.0.1:%d", base))
	t.Cleanup(co.Close)
	parts := make([]*participant.Context, 0, nData)
	for i := 0; i < nData; i++ {
		p := participant.TestKit(
			fmt.Sprintf("p%d", i+1),
			fmt.Sprintf("127.0.0.1:%d", base+1+2*i),
			fmt.Sprintf("127.0.0.1:%d", base+2+2*i),
		)
		t.Cleanup(p.Close)
		parts = append(parts, p)
	}
	chats := make([]*chatnode.Context, 0, nChat)
	for i := 0; i < nChat; i++ {
		cn := chatnode.TestKit(
			fmt.Sprintf("c%d", i+1),
			fmt.Sprintf("127.0.0.1:%d", base+20+2*i),
			fmt.Sprintf("127.0.0.1:%d", base+21+2*i),
		)
		chats = append(chats, cn)
	}
	return co, parts, chats
}

func waitLine(t *testing.T, s *RoomSession, want string) {
	select {
	case line, ok := <-s.Lines:
		require.Equal(t, ok, true)
		assert.Equal(t, line, want)
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func TestJoinRequiresRegisteredUser(t *testing.T) {
	acc := NewAccessor("127.0.0.1:1")
	defer acc.Close()
	s := NewRoomSession(acc, "general")
	err := s.Join(network.ChatroomResponse{})
	assert.Equal(t, err, utils.ErrNotRegistered)
}

func TestSessionChatEndToEnd(t *testing.T) {
	_, parts, chats := spinWorld(t, 2, 1, 23000)
	defer chats[0].Close()

	alice := NewAccessor(configs.CoordinatorServerAddress)
	defer alice.Close()
	bob := NewAccessor(configs.CoordinatorServerAddress)
	defer bob.Close()
	resp, err := alice.RegisterUser("alice", "pw")
	require.NoError(t, err)
	require.Equal(t, resp.Status, configs.StatusOK)
	resp, err = bob.RegisterUser("bob", "pw2")
	require.NoError(t, err)
	require.Equal(t, resp.Status, configs.StatusOK)

	placement, err := alice.CreateChatroom("general")
	require.NoError(t, err)
	require.Equal(t, placement.Status, configs.StatusOK)

	sa := NewRoomSession(alice, "general")
	require.NoError(t, sa.Join(placement))
	waitLine(t, sa, "System >> alice has joined the chat")

	sb := NewRoomSession(bob, "general")
	require.NoError(t, sb.Join(placement))
	waitLine(t, sa, "System >> bob has joined the chat")
	waitLine(t, sb, "System >> bob has joined the chat")

	chatResp, err := sb.Chat("hello")
	require.NoError(t, err)
	assert.Equal(t, chatResp.Status, configs.StatusOK)
	waitLine(t, sa, "bob >> hello")
	waitLine(t, sb, "bob >> hello")

	// The published line is durable at every data node before Chat
	// returned.
	for _, p := range parts {
		lines, err := p.Manager.ReadChatLog("general")
		require.NoError(t, err)
		assert.Equal(t, lines, []string{"bob >> hello"})
	}

	sb.Leave()
	waitLine(t, sa, "System >> bob has left the chat")
	sa.Leave()
}

func TestSessionEndsWhenRoomDeleted(t *testing.T) {
	_, _, chats := spinWorld(t, 1, 1, 23100)
	defer chats[0].Close()

	alice := NewAccessor(configs.CoordinatorServerAddress)
	defer alice.Close()
	resp, err := alice.RegisterUser("alice", "pw")
	require.NoError(t, err)
	require.Equal(t, resp.Status, configs.StatusOK)
	placement, err := alice.CreateChatroom("general")
	require.NoError(t, err)
	require.Equal(t, placement.Status, configs.StatusOK)

	s := NewRoomSession(alice, "general")
	require.NoError(t, s.Join(placement))
	waitLine(t, s, "System >> alice has joined the chat")

	del, err := alice.DeleteChatroom("general")
	require.NoError(t, err)
	assert.Equal(t, del.Message, "Chatroom was successfully deleted")

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not close after room deletion")
	}
	assert.Equal(t, s.RoomDeleted, true)
}

func TestSessionReestablishesAfterNodeDeath(t *testing.T) {
	co, _, chats := spinWorld(t, 1, 2, 23200)

	alice := NewAccessor(configs.CoordinatorServerAddress)
	defer alice.Close()
	resp, err := alice.RegisterUser("alice", "pw")
	require.NoError(t, err)
	require.Equal(t, resp.Status, configs.StatusOK)
	placement, err := alice.CreateChatroom("general")
	require.NoError(t, err)
	require.Equal(t, placement.Status, configs.StatusOK)

	s := NewRoomSession(alice, "general")
	require.NoError(t, s.Join(placement))
	waitLine(t, s, "System >> alice has joined the chat")

	// Kill the hosting node; the session notices the dead stream, has the
	// room re-placed, and re-subscribes on the surviving node.
	host, survivor := chats[0], chats[1]
	if len(chats[1].Manager.RoomList().Names) == 1 {
		host, survivor = chats[1], chats[0]
	}
	defer survivor.Close()
	host.Kill()

	waitLine(t, s, "System >> alice has joined the chat")
	assert.Equal(t, co.Manager.RegisteredChatNodes(), 1)
	assert.Equal(t, survivor.Manager.RoomList().Names, []string{"general"})

	chatResp, err := s.Chat("still here")
	require.NoError(t, err)
	assert.Equal(t, chatResp.Status, configs.StatusOK)
	waitLine(t, s, "alice >> still here")
	s.Leave()
}
