package triplestore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
	"github.com/matzehuels/ergraph/pkg/rdf"
)

// MongoCollection is the subset of *mongo.Collection the store uses.
type MongoCollection interface {
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

var _ MongoCollection = (*mongo.Collection)(nil)

// tripleDoc is one triple; seq orders the triples of a graph.
type tripleDoc struct {
	Graph  string `bson:"graph"`
	Seq    int64  `bson:"seq"`
	record `bson:",inline"`
}

type prefixDoc struct {
	Prefix    string `bson:"prefix"`
	Namespace string `bson:"namespace"`
}

// graphDoc holds a graph's prefix table, keyed by graph name.
type graphDoc struct {
	Graph    string      `bson:"_id"`
	Prefixes []prefixDoc `bson:"prefixes"`
}

// Mongo keeps one document per triple in one collection and one document
// per graph in a second.
type Mongo struct {
	client  *mongo.Client
	triples MongoCollection
	graphs  MongoCollection
}

// NewMongo connects to url and uses collection and collection+"_graphs" in
// database.
func NewMongo(ctx context.Context, url, database, collection string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeIO, err, "mongo: connect")
	}
	db := client.Database(database)
	m := NewMongoWithCollections(db.Collection(collection), db.Collection(collection+"_graphs"))
	m.client = client
	return m, nil
}

// NewMongoWithCollections builds a store over existing collections.
func NewMongoWithCollections(triples, graphs MongoCollection) *Mongo {
	return &Mongo{triples: triples, graphs: graphs}
}

func (m *Mongo) Insert(ctx context.Context, ts *rdf.TripleSet, graph string) error {
	if err := checkGraph(graph); err != nil {
		return err
	}

	var prefixes []prefixDoc
	for p, ns := range prefixTable(ts) {
		prefixes = append(prefixes, prefixDoc{Prefix: p, Namespace: ns})
	}
	_, err := m.graphs.UpdateOne(ctx,
		bson.M{"_id": graph},
		bson.M{"$set": bson.M{"prefixes": prefixes}},
		options.Update().SetUpsert(true))
	if err != nil {
		return ergerrors.Wrap(ergerrors.ErrCodeIO, err, "mongo: store prefixes of %s", graph)
	}

	if ts.Len() == 0 {
		return nil
	}
	base, err := m.triples.CountDocuments(ctx, bson.M{"graph": graph})
	if err != nil {
		return ergerrors.Wrap(ergerrors.ErrCodeIO, err, "mongo: count triples of %s", graph)
	}
	docs := make([]interface{}, 0, ts.Len())
	for i, t := range ts.Triples() {
		docs = append(docs, tripleDoc{Graph: graph, Seq: base + int64(i), record: toRecord(t)})
	}
	if _, err := m.triples.InsertMany(ctx, docs); err != nil {
		return ergerrors.Wrap(ergerrors.ErrCodeIO, err, "mongo: insert triples into %s", graph)
	}
	return nil
}

func (m *Mongo) Query(ctx context.Context, graph string) (*rdf.TripleSet, error) {
	cur, err := m.triples.Find(ctx, bson.M{"graph": graph}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeIO, err, "mongo: find triples of %s", graph)
	}
	var docs []tripleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeIO, err, "mongo: read triples of %s", graph)
	}
	if len(docs) == 0 {
		return nil, notFound(graph)
	}

	var gd graphDoc
	if err := m.graphs.FindOne(ctx, bson.M{"_id": graph}).Decode(&gd); err != nil && err != mongo.ErrNoDocuments {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeIO, err, "mongo: read prefixes of %s", graph)
	}
	table := make(map[string]string, len(gd.Prefixes))
	for _, p := range gd.Prefixes {
		table[p.Prefix] = p.Namespace
	}
	cfg, err := configuration(table)
	if err != nil {
		return nil, err
	}

	ts := rdf.NewTripleSet(cfg)
	for _, d := range docs {
		ts.Add(d.triple())
	}
	return ts, nil
}

// Close disconnects the client if the store opened it.
func (m *Mongo) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(context.Background())
}
