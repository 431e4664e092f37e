package benchmark

import (
	"RCS/configs"
)

// TestChat points the workload at a running central server and drives it.
func TestChat(addr string) {
	st := ChatStmt{}
	configs.CoordinatorServerAddress = addr
	st.ChatTest()
}
