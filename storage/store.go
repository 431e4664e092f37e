package storage

import (
	"context"

	"RCS/configs"
)

// Store is the durable replica behind one data node: the user table, the
// chatroom ownership table, and one append-only chat log per room. The file
// backend is authoritative for the on-disk layout; the SQL and Mongo
// backends expose the same records through a database for deployments that
// want the replica queryable.
type Store interface {
	// LoadUsers returns username -> password.
	LoadUsers() (map[string]string, error)
	AppendUser(name string, password string) error

	// LoadRooms returns chatroom -> owner.
	LoadRooms() (map[string]string, error)
	AppendRoom(room string, owner string) error
	// RewriteRooms replaces the ownership table with the surviving records.
	RewriteRooms(rooms map[string]string) error

	CreateChatLog(room string) error
	AppendChatLog(room string, line string) error
	RemoveChatLog(room string) error
	ReadChatLog(room string) ([]string, error)

	Close()
}

// NewStore builds the backend selected by the "store" context value,
// falling back to configs.StorageType.
func NewStore(ctx context.Context, nodeID string) Store {
	storeType := configs.StorageType
	if v, ok := ctx.Value("store").(string); ok {
		storeType = v
	}
	switch storeType {
	case configs.MongoDB:
		return newMongoStore(nodeID)
	case configs.PostgreSQL:
		return newPGStore(nodeID)
	default:
		return newFileStore(nodeID)
	}
}
