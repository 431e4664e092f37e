package utils

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"RCS/configs"
)

// Stat accumulates per-operation results from workload clients and prints
// one summary line per measurement window.
type Stat struct {
	mu        *sync.Mutex
	opInfos   []*Info
	beginTS   int
	beginTime time.Time
	endTime   time.Time
}

func NewStat() *Stat {
	res := &Stat{
		opInfos:   make([]*Info, 0),
		mu:        &sync.Mutex{},
		beginTS:   0,
		beginTime: time.Now(),
		endTime:   time.Now(),
	}
	return res
}

func (st *Stat) Append(info *Info) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.endTime = time.Now()
	st.opInfos = append(st.opInfos, info)
}

func (st *Stat) Log() {
	st.mu.Lock()
	defer st.mu.Unlock()
	opCnt, chatCnt, success, fail, retryCnt := 0, 0, 0, 0, 0
	latencySum := 0
	latencies := make([]int, 0)
	for i := st.beginTS; i < len(st.opInfos); i++ {
		tmp := st.opInfos[i]
		if tmp == nil {
			continue
		}
		opCnt++
		retryCnt += tmp.RetryCount
		if tmp.Op == configs.LogMessage {
			chatCnt++
		}
		if tmp.Failure {
			fail++
		}
		if tmp.IsCommit {
			success++
		}
		if tmp.Latency > 0 {
			latencySum += int(tmp.Latency)
			latencies = append(latencies, int(tmp.Latency))
		}
	}
	msg := "op_cnt:" + strconv.Itoa(opCnt) + ";"
	msg += "chat_cnt:" + strconv.Itoa(chatCnt) + ";"
	msg += "client:" + strconv.Itoa(configs.ClientRoutineNumber) + ";"
	msg += "success_op:" + strconv.Itoa(success) + ";"
	msg += "failed_op:" + strconv.Itoa(fail) + ";"
	msg += "retries:" + strconv.Itoa(retryCnt) + ";"
	sort.Ints(latencies)
	if len(latencies) > 0 {
		i := Min((len(latencies)*99+99)/100, len(latencies)-1)
		msg += "p99_latency:" + time.Duration(time.Duration(latencies[i]).Nanoseconds()).String() + ";"
		i = Min((len(latencies)*9+9)/10, len(latencies)-1)
		msg += "p90_latency:" + time.Duration(time.Duration(latencies[i]).Nanoseconds()).String() + ";"
		i = Min((len(latencies)+1)/2, len(latencies)-1)
		msg += "p50_latency:" + time.Duration(time.Duration(latencies[i]).Nanoseconds()).String() + ";"
		msg += "ave_latency:" + time.Duration(time.Duration(float64(latencySum)/float64(len(latencies))).Nanoseconds()).String() + ";"
	} else {
		msg += "p99_latency:nil;"
		msg += "p90_latency:nil;"
		msg += "p50_latency:nil;"
		msg += "ave_latency:nil;"
	}
	fmt.Println(msg)
}

func (st *Stat) Clear() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.beginTS = len(st.opInfos)
	st.beginTime = time.Now()
}

// Info records the outcome of one client operation.
type Info struct {
	Op         string
	Failure    bool
	RetryCount int
	IsCommit   bool
	Latency    time.Duration
}

func NewInfo(op string) *Info {
	res := &Info{
		Op:      op,
		Failure: false, IsCommit: false, Latency: 0, RetryCount: 0,
	}
	return res
}

func Max(x int, y int) int {
	if x > y {
		return x
	}
	return y
}

func Min(x int, y int) int {
	if x < y {
		return x
	}
	return y
}
