package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"RCS/benchmark"
	"RCS/configs"
	"RCS/network"
	"RCS/network/chatnode"
	"RCS/network/coordinator"
	"RCS/network/participant"
)

var (
	node       string
	addr       string
	nodeID     string
	central    string
	opsAddr    string
	partAddr   string
	streamAddr string
	store      string
	root       string
	conf       string
	useWAL     bool
	local      bool
	debug      bool
	con        int
	rooms      int
	sk         float64
	chat       float64
	runFor     int
)

func usage() {
	flag.PrintDefaults()
}

func init() {
	flag.StringVar(&node, "node", "coordinator", "the node to start: coordinator, data, chat, or bench")
	flag.StringVar(&addr, "addr", "127.0.0.1:5001", "the serving address of this node (coordinator, or the rpc surface of a chat node)")
	flag.StringVar(&nodeID, "id", "node1", "the identifier of a data or chat node")
	flag.StringVar(&central, "central", "127.0.0.1:5001", "the address of the central server")
	flag.StringVar(&opsAddr, "ops_addr", "127.0.0.1:6001", "the query surface address of a data node")
	flag.StringVar(&partAddr, "part_addr", "127.0.0.1:6002", "the participant surface address of a data node")
	flag.StringVar(&streamAddr, "stream_addr", "127.0.0.1:7002", "the subscriber stream address of a chat node")
	flag.StringVar(&store, "store", configs.FileStorage, "the storage backend: file, sql, or mongo")
	flag.StringVar(&root, "root", ".", "the directory data nodes keep their files under")
	flag.StringVar(&conf, "config", "", "cluster config file")
	flag.BoolVar(&useWAL, "wal", true, "write ahead logging on data nodes")
	flag.BoolVar(&local, "local", false, "run local test")
	flag.BoolVar(&debug, "debug", false, "log debug info into debug file")
	flag.IntVar(&con, "c", 10, "the number of workload clients")
	flag.IntVar(&rooms, "rooms", 16, "the number of workload chatrooms")
	flag.Float64Var(&sk, "skew", 0.9, "the skew factor for workload room choice")
	flag.Float64Var(&chat, "chat", 0.8, "the fraction of workload operations that publish a message")
	flag.IntVar(&runFor, "t", 10, "the workload run time in seconds")

	flag.Usage = usage
}

func main() {
	flag.Parse()
	if debug {
		f, err := os.OpenFile(fmt.Sprintf("logs/logfiles_%v.log", time.Now().String()), os.O_RDWR|os.O_CREATE, 0666)
		defer f.Close()
		if err != nil {
			log.Fatalf("error opening file: %v", err)
		}
		log.SetOutput(io.Writer(f))
	}
	configs.ShowDebugInfo = debug
	configs.ShowWarnings = debug
	configs.ShowTestInfo = debug
	configs.StorageType = store
	configs.StorageRoot = root
	configs.UseWAL = useWAL
	configs.CoordinatorServerAddress = central
	configs.ClientRoutineNumber = con
	configs.NumberOfRooms = rooms
	configs.RoomSkewness = sk
	configs.ChatFraction = chat
	configs.WorkloadRunTime = time.Duration(runFor) * time.Second
	if local {
		configs.SetLocal()
	}
	if conf != "" {
		configs.ConfigFileLocation = conf
		if _, err := configs.LoadClusterConfig(); err != nil {
			log.Fatalf("error loading cluster config: %v", err)
		}
	}

	switch node {
	case "coordinator":
		coordinator.Main(addr)
	case "data":
		participant.Main(nodeID, opsAddr, partAddr)
	case "chat":
		chatnode.Main(nodeID, addr, streamAddr)
	case "cluster":
		runCluster()
	case "bench":
		benchmark.TestChat(central)
	default:
		panic("invalid parameter for node: use coordinator, data, chat, cluster, or bench")
	}
}

// runCluster bootstraps a whole deployment from the cluster config file in
// one process, mainly for local experiments.
func runCluster() {
	cc, err := configs.LoadClusterConfig()
	if err != nil {
		log.Fatalf("error loading cluster config: %v", err)
	}
	go coordinator.Main(cc.Coordinator)
	for !network.Probe(cc.Coordinator) {
		time.Sleep(50 * time.Millisecond)
	}
	for _, d := range cc.DataNodes {
		go participant.Main(d.ID, d.OpsAddr, d.PartAddr)
	}
	for _, c := range cc.ChatNodes {
		go chatnode.Main(c.ID, c.RPCAddr, c.StreamAddr)
	}
	select {}
}
