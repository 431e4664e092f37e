package configs

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

var LocalTest = false

func SetLocal() {
	LocalTest = true
	ConfigFileLocation = "./configs/local.json"
}

// logStamp renders debug timestamps on the coordinator's clock, so traces
// collected from different nodes line up.
func logStamp() string {
	return time.Unix(0, AdjustedNowMs()*int64(time.Millisecond)).Format("15:04:05.00")
}

func TxnPrint(tid uint64, format string, a ...interface{}) {
	if ShowDebugInfo {
		if !LogToFile {
			fmt.Printf(logStamp()+" <---> "+"TXN"+strconv.FormatUint(tid, 10)+":"+format+"\n", a...)
		} else {
			log.Printf(logStamp()+" <---> "+"TXN"+strconv.FormatUint(tid, 10)+":"+format+"\n", a...)
		}
	}
}

func DPrintf(format string, a ...interface{}) {
	if ShowDebugInfo {
		if !LogToFile {
			fmt.Printf(logStamp()+" <---> "+format+"\n", a...)
		} else {
			log.Printf(logStamp()+" <---> "+format+"\n", a...)
		}
	}
}

func TPrintf(format string, a ...interface{}) {
	if ShowTestInfo {
		if !LogToFile {
			fmt.Printf(logStamp()+" <---> "+format+"\n", a...)
		} else {
			log.Printf(logStamp()+" <---> "+format+"\n", a...)
		}
	}
}

func TimeTrack(start time.Time, name string, TID uint64) {
	TPrintf("TXN" + strconv.FormatUint(TID, 10) + ": Time cost for " + name + " : " + time.Since(start).String())
}

func JToString(v interface{}) string {
	byt, _ := json.Marshal(v)
	return string(byt)
}

func JPrint(v interface{}) {
	byt, _ := json.Marshal(v)
	fmt.Println(string(byt))
}

func Assert(cond bool, msg string) bool {
	if !cond {
		panic("[ERROR] Assert error at " + msg + "\n")
	}
	return cond
}

func Warn(cond bool, msg string) bool {
	if ShowWarnings && !cond {
		if !LogToFile {
			fmt.Printf("[WARNNING] :" + msg + "\n")
		} else {
			log.Printf("[WARNNING] :" + msg + "\n")
		}
	}
	return cond
}

func CheckError(err error) {
	if err != nil {
		panic(err.Error())
	}
}
