package storage

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"RCS/configs"
)

// FileStore keeps the replica under files_<id>/: users.txt with
// username:password lines, chatrooms.txt with chatroom:owner lines, and one
// chatlogs/<room>.txt per chatroom. users.txt and the chat logs are
// append-only; chatrooms.txt is rewritten in full when a room is deleted. A
// single latch serializes all writers, the data node's doCommit path is the
// only one.
type FileStore struct {
	mu   sync.Mutex
	root string
}

func newFileStore(nodeID string) *FileStore {
	c := &FileStore{root: filepath.Join(configs.StorageRoot, "files_"+nodeID)}
	configs.CheckError(os.MkdirAll(filepath.Join(c.root, "chatlogs"), 0777))
	for _, name := range []string{"users.txt", "chatrooms.txt"} {
		f, err := os.OpenFile(filepath.Join(c.root, name), os.O_CREATE, 0666)
		configs.CheckError(err)
		configs.CheckError(f.Close())
	}
	return c
}

func (c *FileStore) loadPairs(name string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := os.Open(filepath.Join(c.root, name))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	res := make(map[string]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if !configs.Warn(len(parts) == 2, "malformed record skipped: "+line) {
			continue
		}
		res[parts[0]] = parts[1]
	}
	return res, sc.Err()
}

func (c *FileStore) appendLine(path string, line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	if _, err = f.WriteString(line + "\n"); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (c *FileStore) LoadUsers() (map[string]string, error) {
	return c.loadPairs("users.txt")
}

func (c *FileStore) AppendUser(name string, password string) error {
	return c.appendLine(filepath.Join(c.root, "users.txt"), name+":"+password)
}

func (c *FileStore) LoadRooms() (map[string]string, error) {
	return c.loadPairs("chatrooms.txt")
}

func (c *FileStore) AppendRoom(room string, owner string) error {
	return c.appendLine(filepath.Join(c.root, "chatrooms.txt"), room+":"+owner)
}

func (c *FileStore) RewriteRooms(rooms map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := os.OpenFile(filepath.Join(c.root, "chatrooms.txt"), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	for room, owner := range rooms {
		if _, err = f.WriteString(room + ":" + owner + "\n"); err != nil {
			_ = f.Close()
			return err
		}
	}
	return f.Close()
}

func (c *FileStore) chatLogPath(room string) string {
	return filepath.Join(c.root, "chatlogs", room+".txt")
}

func (c *FileStore) CreateChatLog(room string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := os.OpenFile(c.chatLogPath(room), os.O_CREATE, 0666)
	if err != nil {
		return err
	}
	return f.Close()
}

func (c *FileStore) AppendChatLog(room string, line string) error {
	return c.appendLine(c.chatLogPath(room), line)
}

func (c *FileStore) RemoveChatLog(room string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := os.Remove(c.chatLogPath(room))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (c *FileStore) ReadChatLog(room string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := os.Open(c.chatLogPath(room))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	res := make([]string, 0)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		res = append(res, sc.Text())
	}
	return res, sc.Err()
}

func (c *FileStore) Close() {}
