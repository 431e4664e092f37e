package storage

import (
	"context"

	"RCS/configs"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore keeps the replica in MongoDB, one database per data node with
// users, rooms, and chatlog collections.
type MongoStore struct {
	ctx     context.Context
	client  *mongo.Client
	users   *mongo.Collection
	rooms   *mongo.Collection
	chatlog *mongo.Collection
	seq     int64
}

type userDoc struct {
	Name     string `bson:"_id"`
	Password string `bson:"password"`
}

type roomDoc struct {
	Room  string `bson:"_id"`
	Owner string `bson:"owner"`
}

type chatLineDoc struct {
	Room string `bson:"room"`
	Seq  int64  `bson:"seq"`
	Line string `bson:"line"`
}

func newMongoStore(nodeID string) *MongoStore {
	c := &MongoStore{ctx: context.TODO()}
	var err error
	c.client, err = mongo.Connect(c.ctx, options.Client().ApplyURI(configs.MongoDBLink))
	if err != nil {
		panic(err)
	}
	err = c.client.Ping(c.ctx, readpref.Primary())
	if err != nil {
		panic(err)
	}
	db := c.client.Database("rcs_" + nodeID)
	c.users = db.Collection("users")
	c.rooms = db.Collection("rooms")
	c.chatlog = db.Collection("chatlog")
	return c
}

func (c *MongoStore) LoadUsers() (map[string]string, error) {
	cur, err := c.users.Find(c.ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(c.ctx)
	res := make(map[string]string)
	for cur.Next(c.ctx) {
		doc := userDoc{}
		if err = cur.Decode(&doc); err != nil {
			return nil, err
		}
		res[doc.Name] = doc.Password
	}
	return res, cur.Err()
}

func (c *MongoStore) AppendUser(name string, password string) error {
	_, err := c.users.InsertOne(c.ctx, userDoc{Name: name, Password: password})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

func (c *MongoStore) LoadRooms() (map[string]string, error) {
	cur, err := c.rooms.Find(c.ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(c.ctx)
	res := make(map[string]string)
	for cur.Next(c.ctx) {
		doc := roomDoc{}
		if err = cur.Decode(&doc); err != nil {
			return nil, err
		}
		res[doc.Room] = doc.Owner
	}
	return res, cur.Err()
}

func (c *MongoStore) AppendRoom(room string, owner string) error {
	_, err := c.rooms.InsertOne(c.ctx, roomDoc{Room: room, Owner: owner})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

func (c *MongoStore) RewriteRooms(rooms map[string]string) error {
	if _, err := c.rooms.DeleteMany(c.ctx, bson.D{}); err != nil {
		return err
	}
	for room, owner := range rooms {
		if err := c.AppendRoom(room, owner); err != nil {
			return err
		}
	}
	return nil
}

func (c *MongoStore) CreateChatLog(room string) error {
	return nil
}

func (c *MongoStore) AppendChatLog(room string, line string) error {
	c.seq++
	_, err := c.chatlog.InsertOne(c.ctx, chatLineDoc{Room: room, Seq: c.seq, Line: line})
	return err
}

func (c *MongoStore) RemoveChatLog(room string) error {
	_, err := c.chatlog.DeleteMany(c.ctx, bson.M{"room": room})
	return err
}

func (c *MongoStore) ReadChatLog(room string) ([]string, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cur, err := c.chatlog.Find(c.ctx, bson.M{"room": room}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(c.ctx)
	res := make([]string, 0)
	for cur.Next(c.ctx) {
		doc := chatLineDoc{}
		if err = cur.Decode(&doc); err != nil {
			return nil, err
		}
		res = append(res, doc.Line)
	}
	return res, cur.Err()
}

func (c *MongoStore) Close() {
	_ = c.client.Disconnect(c.ctx)
}
