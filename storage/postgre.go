package storage

import (
	"context"
	"log"

	"RCS/configs"
	"github.com/jackc/pgx/v4/pgxpool"
)

// PGStore keeps the replica in PostgreSQL. Tables are namespaced by node so
// several local data nodes can share one database.
type PGStore struct {
	ctx  context.Context
	pool *pgxpool.Pool
	node string
}

func (c *PGStore) tryExec(sql string, args ...interface{}) {
	_, _ = c.pool.Exec(c.ctx, sql, args...)
}

func (c *PGStore) mustExec(sql string, args ...interface{}) {
	_, err := c.pool.Exec(c.ctx, sql, args...)
	if err != nil {
		panic(err)
	}
}

func newPGStore(nodeID string) *PGStore {
	c := &PGStore{ctx: context.TODO(), node: nodeID}
	config, err := pgxpool.ParseConfig(configs.PostgreSQLLink)
	if err != nil {
		log.Fatalf("Unable to parse database config: %v\n", err)
	}
	config.MaxConns = 100
	c.pool, err = pgxpool.ConnectConfig(context.Background(), config)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	c.tryExec("CREATE TABLE IF NOT EXISTS rcs_users (node VARCHAR(64), name VARCHAR(255), password VARCHAR(255), PRIMARY KEY (node, name))")
	c.tryExec("CREATE TABLE IF NOT EXISTS rcs_rooms (node VARCHAR(64), room VARCHAR(255), owner VARCHAR(255), PRIMARY KEY (node, room))")
	c.tryExec("CREATE TABLE IF NOT EXISTS rcs_chatlog (node VARCHAR(64), room VARCHAR(255), seq BIGSERIAL, line TEXT)")
	return c
}

func (c *PGStore) loadPairs(sql string) (map[string]string, error) {
	rows, err := c.pool.Query(c.ctx, sql, c.node)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err = rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		res[k] = v
	}
	return res, rows.Err()
}

func (c *PGStore) LoadUsers() (map[string]string, error) {
	return c.loadPairs("SELECT name, password FROM rcs_users WHERE node = $1")
}

func (c *PGStore) AppendUser(name string, password string) error {
	_, err := c.pool.Exec(c.ctx, "INSERT INTO rcs_users (node, name, password) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING", c.node, name, password)
	return err
}

func (c *PGStore) LoadRooms() (map[string]string, error) {
	return c.loadPairs("SELECT room, owner FROM rcs_rooms WHERE node = $1")
}

func (c *PGStore) AppendRoom(room string, owner string) error {
	_, err := c.pool.Exec(c.ctx, "INSERT INTO rcs_rooms (node, room, owner) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING", c.node, room, owner)
	return err
}

func (c *PGStore) RewriteRooms(rooms map[string]string) error {
	tx, err := c.pool.Begin(c.ctx)
	if err != nil {
		return err
	}
	if _, err = tx.Exec(c.ctx, "DELETE FROM rcs_rooms WHERE node = $1", c.node); err != nil {
		_ = tx.Rollback(c.ctx)
		return err
	}
	for room, owner := range rooms {
		if _, err = tx.Exec(c.ctx, "INSERT INTO rcs_rooms (node, room, owner) VALUES ($1, $2, $3)", c.node, room, owner); err != nil {
			_ = tx.Rollback(c.ctx)
			return err
		}
	}
	return tx.Commit(c.ctx)
}

func (c *PGStore) CreateChatLog(room string) error {
	return nil
}

func (c *PGStore) AppendChatLog(room string, line string) error {
	_, err := c.pool.Exec(c.ctx, "INSERT INTO rcs_chatlog (node, room, line) VALUES ($1, $2, $3)", c.node, room, line)
	return err
}

func (c *PGStore) RemoveChatLog(room string) error {
	_, err := c.pool.Exec(c.ctx, "DELETE FROM rcs_chatlog WHERE node = $1 AND room = $2", c.node, room)
	return err
}

func (c *PGStore) ReadChatLog(room string) ([]string, error) {
	rows, err := c.pool.Query(c.ctx, "SELECT line FROM rcs_chatlog WHERE node = $1 AND room = $2 ORDER BY seq", c.node, room)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := make([]string, 0)
	for rows.Next() {
		var line string
		if err = rows.Scan(&line); err != nil {
			return nil, err
		}
		res = append(res, line)
	}
	return res, rows.Err()
}

func (c *PGStore) Close() {
	c.pool.Close()
}
