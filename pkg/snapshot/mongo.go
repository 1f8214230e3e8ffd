package snapshot

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/topoview/pkg/errors"
	"github.com/matzehuels/topoview/pkg/topology"
)

// MongoLoader reads one document per node from a collection, ordered by
// an optional numeric "order" field and then by _id.
//
// Document shape:
//
//	{_id, id, name, category, status, connections: [..],
//	 metrics: {cpu, memory, ...}, details: {..}, order}
//
// When "id" is absent the string form of _id is used.
type MongoLoader struct {
	client *mongo.Client
	coll   *mongo.Collection
	owned  bool
}

// NewMongoLoader reads from an existing collection handle. Close leaves
// the client open.
func NewMongoLoader(coll *mongo.Collection) *MongoLoader {
	return &MongoLoader{client: coll.Database().Client(), coll: coll}
}

// OpenMongoLoader connects to uri and reads database.collection.
func OpenMongoLoader(ctx context.Context, uri, database, collection string) (*MongoLoader, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, err, "connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, err, "ping mongo")
	}
	return &MongoLoader{
		client: client,
		coll:   client.Database(database).Collection(collection),
		owned:  true,
	}, nil
}

// LoadTopology implements Loader.
func (l *MongoLoader) LoadTopology(ctx context.Context) (*topology.Snapshot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := l.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, err, "query %s", l.coll.Name())
	}
	defer cur.Close(ctx)

	var nodes []topology.Node
	for cur.Next(ctx) {
		n, err := nodeFromBSON(cur.Current)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidSnapshot, err, "document %d", len(nodes))
		}
		nodes = append(nodes, n)
	}
	if err := cur.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, err, "read %s", l.coll.Name())
	}
	if err := topology.Validate(nodes); err != nil {
		return nil, err
	}
	source := fmt.Sprintf("mongodb:%s.%s", l.coll.Database().Name(), l.coll.Name())
	return topology.New(nodes, topology.WithSource(source)), nil
}

// Close disconnects the client if the loader opened it.
func (l *MongoLoader) Close() error {
	if !l.owned {
		return nil
	}
	return l.client.Disconnect(context.Background())
}

type mongoNode struct {
	OID         any          `bson:"_id"`
	ID          string       `bson:"id"`
	Name        string       `bson:"name"`
	Category    string       `bson:"category"`
	Status      string       `bson:"status"`
	Connections []string     `bson:"connections"`
	Metrics     mongoMetrics `bson:"metrics"`
	Details     bson.D       `bson:"details"`
}

type mongoMetrics struct {
	CPU         *float64 `bson:"cpu"`
	Memory      *float64 `bson:"memory"`
	Disk        *float64 `bson:"disk"`
	Network     *float64 `bson:"network"`
	Temperature *float64 `bson:"temperature"`
	Battery     *float64 `bson:"battery"`
}

func nodeFromBSON(raw bson.Raw) (topology.Node, error) {
	var doc mongoNode
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return topology.Node{}, err
	}
	id := doc.ID
	if id == "" {
		id = idString(doc.OID)
	}
	n := topology.Node{
		ID:          id,
		Name:        doc.Name,
		Category:    topology.Category(doc.Category),
		Status:      topology.Status(doc.Status),
		Connections: doc.Connections,
		Metrics: topology.Metrics{
			CPU:         doc.Metrics.CPU,
			Memory:      doc.Metrics.Memory,
			Disk:        doc.Metrics.Disk,
			Network:     doc.Metrics.Network,
			Temperature: doc.Metrics.Temperature,
			Battery:     doc.Metrics.Battery,
		},
	}
	for _, e := range doc.Details {
		n.Details = append(n.Details, topology.Detail{Key: e.Key, Value: bsonScalar(e.Value)})
	}
	return n, nil
}

func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case primitive.ObjectID:
		return id.Hex()
	default:
		return fmt.Sprint(id)
	}
}

// bsonScalar narrows a decoded BSON value to the scalar kinds details
// carry. Anything structured becomes its extended-JSON text.
func bsonScalar(v any) any {
	switch x := v.(type) {
	case nil, string, bool, float64, int64:
		return x
	case int32:
		return int64(x)
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC().Format(time.RFC3339)
	case primitive.Decimal128:
		return x.String()
	default:
		data, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: x}}, false, false)
		if err != nil {
			return fmt.Sprint(x)
		}
		return extJSONValue(data)
	}
}

// extJSONValue strips the {"v":...} wrapper from a relaxed ext-JSON document.
func extJSONValue(doc []byte) string {
	const prefix = `{"v":`
	s := string(doc)
	if len(s) > len(prefix)+1 && s[:len(prefix)] == prefix {
		return s[len(prefix) : len(s)-1]
	}
	return s
}
