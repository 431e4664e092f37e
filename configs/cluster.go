package configs

import (
	"os"
	"sync"

	"github.com/goccy/go-json"
)

// ClusterConfig describes a deployment. Only the coordinator address is
// required by running nodes (data and chat nodes register dynamically); the
// node lists exist so one invocation of the server binary can bootstrap a
// whole local cluster.
type ClusterConfig struct {
	Coordinator string         `json:"coordinator"`
	DataNodes   []DataNodeConf `json:"dataNodes"`
	ChatNodes   []ChatNodeConf `json:"chatNodes"`
}

type DataNodeConf struct {
	ID       string `json:"id"`
	OpsAddr  string `json:"opsAddr"`
	PartAddr string `json:"partAddr"`
}

type ChatNodeConf struct {
	ID         string `json:"id"`
	RPCAddr    string `json:"rpcAddr"`
	StreamAddr string `json:"streamAddr"`
}

var confLock = sync.Mutex{}

func LoadClusterConfig() (*ClusterConfig, error) {
	confLock.Lock()
	defer confLock.Unlock()
	raw, err := os.ReadFile(ConfigFileLocation)
	if err != nil {
		raw, err = os.ReadFile("." + ConfigFileLocation)
	}
	if err != nil {
		return nil, err
	}
	res := &ClusterConfig{}
	if err = json.Unmarshal(raw, res); err != nil {
		return nil, err
	}
	if res.Coordinator != "" {
		CoordinatorServerAddress = res.Coordinator
	}
	return res, nil
}
