package coordinator

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"RCS/configs"
	"RCS/network"
	"RCS/network/participant"
	"github.com/magiconair/properties/assert"
)

// spinCluster starts a central server and nData data nodes on loopback
// ports starting at base.
func spinCluster(t *testing.T, nData int, base int) (*Context, []*participant.Context) {
	configs.StorageRoot = t.TempDir()
	co := TestKit(fmt.Sprintf("127.0.0.1:%d", base))
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
	assert.Equal(t, co.Manager.RegisteredDataNodes(), nData)
	return co, parts
}

func TestGenericCommitReplicatesEverywhere(t *testing.T) {
	co, parts := spinCluster(t, 3, 21000)
	resp := co.Manager.RegisterUser("alice", "pw")
	assert.Equal(t, resp.Status, configs.StatusOK)
	for _, p := range parts {
		participant.CheckVal(t, p.Manager, map[string]string{"alice": "pw"}, map[string]string{})
	}
}

func TestGenericCommitAbortsOnAnyNoVote(t *testing.T) {
	co, parts := spinCluster(t, 3, 21010)
	// Seed a conflicting user at one node only, bypassing the coordinator.
	seed := network.NewTransaction(configs.CreateUser, "alice", "old")
	assert.Equal(t, parts[0].Manager.CanCommit(seed), configs.AckYes)
	parts[0].Manager.DoCommit(seed)

	t1 := network.NewTransaction(configs.CreateUser, "alice", "pw")
	assert.Equal(t, co.Manager.GenericCommit(t1), false)
	participant.CheckVal(t, parts[1].Manager, map[string]string{}, map[string]string{})
	participant.CheckVal(t, parts[2].Manager, map[string]string{}, map[string]string{})
}

func TestDecisionSurface(t *testing.T) {
	co, _ := spinCluster(t, 1, 21020)
	t1 := network.NewTransaction(configs.CreateUser, "alice", "pw")
	// Unknown transactions read NA and haveCommitted for them is ignored.
	assert.Equal(t, co.Manager.GetDecision(t1), configs.AckNA)
	co.Manager.HaveCommitted(t1, "nobody")

	co.Manager.setDecision(t1.Index, configs.AckYes)
	assert.Equal(t, co.Manager.GetDecision(t1), configs.AckYes)
	co.Manager.clearDecision(t1.Index)
	assert.Equal(t, co.Manager.GetDecision(t1), configs.AckNA)
}

func TestPollerCommitsOrphanedVote(t *testing.T) {
	old := configs.DecisionPollInterval
	configs.DecisionPollInterval = 50 * time.Millisecond
	defer func() { configs.DecisionPollInterval = old }()

	co, parts := spinCluster(t, 1, 21030)
	t1 := network.NewTransaction(configs.CreateUser, "alice", "pw")
	co.Manager.setDecision(t1.Index, configs.AckYes)
	// The participant voted but the doCommit fan-out never arrives; its
	// poller learns the verdict on its own.
	assert.Equal(t, parts[0].Manager.CanCommit(t1), configs.AckYes)
	time.Sleep(500 * time.Millisecond)
	participant.CheckVal(t, parts[0].Manager, map[string]string{"alice": "pw"}, map[string]string{})
	co.Manager.clearDecision(t1.Index)
}

func TestPollerAbortsOrphanedVote(t *testing.T) {
	old := configs.DecisionPollInterval
	configs.DecisionPollInterval = 50 * time.Millisecond
	defer func() { configs.DecisionPollInterval = old }()

	co, parts := spinCluster(t, 1, 21040)
	t1 := network.NewTransaction(configs.CreateChatroom, "general", "alice")
	co.Manager.setDecision(t1.Index, configs.AckNo)
	assert.Equal(t, parts[0].Manager.CanCommit(t1), configs.AckYes)
	time.Sleep(500 * time.Millisecond)
	participant.CheckVal(t, parts[0].Manager, map[string]string{}, map[string]string{})
	// The key is released after the abort.
	t2 := network.NewTransaction(configs.CreateChatroom, "general", "bob")
	assert.Equal(t, parts[0].Manager.CanCommit(t2), configs.AckYes)
	co.Manager.clearDecision(t1.Index)
}

func TestConcurrentRegisterSameUser(t *testing.T) {
	co, parts := spinCluster(t, 1, 21050)
	results := make([]network.Response, 5)
	wg := sync.WaitGroup{}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = co.Manager.RegisterUser("alice", "pw")
		}(i)
	}
	wg.Wait()
	successes := 0
	for _, r := range results {
		if r.Status == configs.StatusOK {
			successes++
		}
	}
	// With a single participant the first vote to take the key wins and
	// nothing can abort it afterwards; every other caller fails on the held
	// key or the duplicate check.
	assert.Equal(t, successes, 1)
	participant.CheckVal(t, parts[0].Manager, map[string]string{"alice": "pw"}, map[string]string{})
	// The key is released: a later attempt fails on the duplicate check,
	// not on a leaked transaction-map entry.
	resp := co.Manager.RegisterUser("alice", "pw")
	assert.Equal(t, resp.Message, "User already exists")
}

func TestRegisterUserValidation(t *testing.T) {
	co, _ := spinCluster(t, 1, 21060)
	resp := co.Manager.RegisterUser("a:b", "pw")
	assert.Equal(t, resp.Message, `You cannot have a username or password that contains ":"`)
	resp = co.Manager.RegisterUser("alice", "p:w")
	assert.Equal(t, resp.Message, `You cannot have a username or password that contains ":"`)
}

func TestOpsFailWithoutDataNodes(t *testing.T) {
	co := TestKit("127.0.0.1:21070")
	t.Cleanup(co.Close)
	resp := co.Manager.RegisterUser("alice", "pw")
	assert.Equal(t, resp.Message, "Unable to register user")
	resp = co.Manager.Login("alice", "pw")
	assert.Equal(t, resp.Message, "Unable to perform login")
}

func TestLogin(t *testing.T) {
	co, _ := spinCluster(t, 2, 21080)
	co.Manager.RegisterUser("alice", "pw")
	resp := co.Manager.Login("alice", "pw")
	assert.Equal(t, resp.Status, configs.StatusOK)
	resp = co.Manager.Login("alice", "wrong")
	assert.Equal(t, resp.Message, "Login failed")
	resp = co.Manager.Login("nobody", "pw")
	assert.Equal(t, resp.Message, "Login failed")
}

func TestLogChatMessageReplicates(t *testing.T) {
	co, parts := spinCluster(t, 2, 21090)
	resp := co.Manager.LogChatMessage("general", "alice >> hi")
	assert.Equal(t, resp.Status, configs.StatusOK)
	for _, p := range parts {
		lines, err := p.Manager.ReadChatLog("general")
		assert.Equal(t, err, nil)
		assert.Equal(t, lines, []string{"alice >> hi"})
	}
}
