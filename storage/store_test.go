package storage

import (
	"context"
	"testing"

	"RCS/configs"
	"github.com/magiconair/properties/assert"
	"github.com/stretchr/testify/require"
)

func testFileStore(t *testing.T) *FileStore {
	configs.StorageRoot = t.TempDir()
	s := NewStore(context.WithValue(context.Background(), "store", configs.FileStorage), "t1")
	return s.(*FileStore)
}

func TestUserRecordsSurviveReload(t *testing.T) {
	s := testFileStore(t)
	require.NoError(t, s.AppendUser("alice", "pw1"))
	require.NoError(t, s.AppendUser("bob", "pw2"))
	users, err := s.LoadUsers()
	require.NoError(t, err)
	assert.Equal(t, users, map[string]string{"alice": "pw1", "bob": "pw2"})

	reopened := newFileStore("t1")
	users, err = reopened.LoadUsers()
	require.NoError(t, err)
	assert.Equal(t, users, map[string]string{"alice": "pw1", "bob": "pw2"})
}

func TestRoomRewriteDropsDeleted(t *testing.T) {
	s := testFileStore(t)
	require.NoError(t, s.AppendRoom("general", "alice"))
	require.NoError(t, s.AppendRoom("random", "bob"))
	rooms, err := s.LoadRooms()
	require.NoError(t, err)
	delete(rooms, "general")
	require.NoError(t, s.RewriteRooms(rooms))

	rooms, err = s.LoadRooms()
	require.NoError(t, err)
	assert.Equal(t, rooms, map[string]string{"random": "bob"})
}

func TestChatLogAppendOrder(t *testing.T) {
	s := testFileStore(t)
	require.NoError(t, s.CreateChatLog("general"))
	require.NoError(t, s.AppendChatLog("general", "alice >> hi"))
	require.NoError(t, s.AppendChatLog("general", "bob >> hello"))
	lines, err := s.ReadChatLog("general")
	require.NoError(t, err)
	assert.Equal(t, lines, []string{"alice >> hi", "bob >> hello"})

	require.NoError(t, s.RemoveChatLog("general"))
	require.NoError(t, s.RemoveChatLog("general"))
	_, err = s.ReadChatLog("general")
	require.Error(t, err)
}

func TestEmptyTablesOnFreshNode(t *testing.T) {
	s := testFileStore(t)
	users, err := s.LoadUsers()
	require.NoError(t, err)
	assert.Equal(t, len(users), 0)
	rooms, err := s.LoadRooms()
	require.NoError(t, err)
	assert.Equal(t, len(rooms), 0)
}
