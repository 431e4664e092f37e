package participant

import (
	"testing"

	"RCS/configs"
	"RCS/network"
	"github.com/magiconair/properties/assert"
	"github.com/stretchr/testify/require"
)

func managerForTest(t *testing.T) *Context {
	configs.StorageRoot = t.TempDir()
	stmt := ManagerKit("p1")
	t.Cleanup(stmt.CloseKit)
	return stmt
}

func TestCommitLifecycle(t *testing.T) {
	stmt := managerForTest(t)
	m := stmt.Manager

	tu := network.NewTransaction(configs.CreateUser, "alice", "pw")
	assert.Equal(t, m.CanCommit(tu), configs.AckYes)
	m.DoCommit(tu)

	tr := network.NewTransaction(configs.CreateChatroom, "general", "alice")
	assert.Equal(t, m.CanCommit(tr), configs.AckYes)
	m.DoCommit(tr)
	CheckVal(t, m, map[string]string{"alice": "pw"}, map[string]string{"general": "alice"})

	tm := network.NewTransaction(configs.LogMessage, "general", "alice >> hi")
	assert.Equal(t, m.CanCommit(tm), configs.AckYes)
	m.DoCommit(tm)
	lines, err := m.store.ReadChatLog("general")
	require.NoError(t, err)
	assert.Equal(t, lines, []string{"alice >> hi"})

	td := network.NewTransaction(configs.DeleteChatroom, "general", "")
	assert.Equal(t, m.CanCommit(td), configs.AckYes)
	m.DoCommit(td)
	CheckVal(t, m, map[string]string{"alice": "pw"}, map[string]string{})
}

func TestVoteNoOnDuplicateUser(t *testing.T) {
	stmt := managerForTest(t)
	m := stmt.Manager

	tu := network.NewTransaction(configs.CreateUser, "alice", "pw")
	assert.Equal(t, m.CanCommit(tu), configs.AckYes)
	m.DoCommit(tu)

	dup := network.NewTransaction(configs.CreateUser, "alice", "other")
	assert.Equal(t, m.CanCommit(dup), configs.AckNo)
}

func TestPerKeyExclusion(t *testing.T) {
	stmt := managerForTest(t)
	m := stmt.Manager

	t1 := network.NewTransaction(configs.CreateChatroom, "general", "alice")
	assert.Equal(t, m.CanCommit(t1), configs.AckYes)

	t2 := network.NewTransaction(configs.CreateChatroom, "general", "bob")
	assert.Equal(t, m.CanCommit(t2), configs.AckNo)

	// A different key is not blocked.
	t3 := network.NewTransaction(configs.CreateChatroom, "random", "bob")
	assert.Equal(t, m.CanCommit(t3), configs.AckYes)

	m.DoAbort(t1)
	t4 := network.NewTransaction(configs.CreateChatroom, "general", "bob")
	assert.Equal(t, m.CanCommit(t4), configs.AckYes)
}

func TestDoCommitIsIdempotent(t *testing.T) {
	stmt := managerForTest(t)
	m := stmt.Manager

	tu := network.NewTransaction(configs.CreateUser, "alice", "pw")
	assert.Equal(t, m.CanCommit(tu), configs.AckYes)
	m.DoCommit(tu)
	m.DoCommit(tu)
	CheckVal(t, m, map[string]string{"alice": "pw"}, map[string]string{})

	users, err := m.store.LoadUsers()
	require.NoError(t, err)
	assert.Equal(t, users, map[string]string{"alice": "pw"})
}

func TestDoAbortIsIdempotent(t *testing.T) {
	stmt := managerForTest(t)
	m := stmt.Manager

	tr := network.NewTransaction(configs.CreateChatroom, "general", "alice")
	assert.Equal(t, m.CanCommit(tr), configs.AckYes)
	m.DoAbort(tr)
	m.DoAbort(tr)
	CheckVal(t, m, map[string]string{}, map[string]string{})
}

func TestVerifyUser(t *testing.T) {
	stmt := managerForTest(t)
	m := stmt.Manager

	resp := m.VerifyUser("alice", "pw")
	assert.Equal(t, resp.Message, "User does not exist")

	tu := network.NewTransaction(configs.CreateUser, "alice", "pw")
	m.CanCommit(tu)
	m.DoCommit(tu)

	resp = m.VerifyUser("alice", "wrong")
	assert.Equal(t, resp.Message, "User provided an invalid password")
	resp = m.VerifyUser("alice", "pw")
	assert.Equal(t, resp.Status, configs.StatusOK)
}

func TestVerifyOwnership(t *testing.T) {
	stmt := managerForTest(t)
	m := stmt.Manager

	resp := m.VerifyOwnership("general", "alice")
	assert.Equal(t, resp.Message, "Cannot verify ownership of non-existent chatroom")

	tr := network.NewTransaction(configs.CreateChatroom, "general", "alice")
	m.CanCommit(tr)
	m.DoCommit(tr)

	resp = m.VerifyOwnership("general", "bob")
	assert.Equal(t, resp.Message, "You are not the owner of this chatroom")
	resp = m.VerifyOwnership("general", "alice")
	assert.Equal(t, resp.Status, configs.StatusOK)
}

func TestTablesSurviveRestart(t *testing.T) {
	configs.StorageRoot = t.TempDir()
	stmt := ManagerKit("p1")
	m := stmt.Manager
	tu := network.NewTransaction(configs.CreateUser, "alice", "pw")
	m.CanCommit(tu)
	m.DoCommit(tu)
	tr := network.NewTransaction(configs.CreateChatroom, "general", "alice")
	m.CanCommit(tr)
	m.DoCommit(tr)
	stmt.CloseKit()

	stmt = ManagerKit("p1")
	defer stmt.CloseKit()
	CheckVal(t, stmt.Manager, map[string]string{"alice": "pw"}, map[string]string{"general": "alice"})
}
