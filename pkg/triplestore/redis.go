package triplestore

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
	"github.com/matzehuels/ergraph/pkg/rdf"
)

// redisKeyPrefix namespaces every key the store writes.
const redisKeyPrefix = "ergraph:graph:"

// RedisClient is the subset of *redis.Client the store uses.
type RedisClient interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Close() error
}

// Redis keeps each graph as a list of JSON-encoded triples plus a hash of
// its prefixes.
type Redis struct {
	client RedisClient
}

// NewRedis connects to the server at url (redis://host:port/db).
func NewRedis(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeInvalidInput, err, "parse redis url")
	}
	return NewRedisWithClient(redis.NewClient(opts)), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client RedisClient) *Redis {
	return &Redis{client: client}
}

func triplesKey(graph string) string  { return redisKeyPrefix + graph + ":triples" }
func prefixesKey(graph string) string { return redisKeyPrefix + graph + ":prefixes" }

func (r *Redis) Insert(ctx context.Context, ts *rdf.TripleSet, graph string) error {
	if err := checkGraph(graph); err != nil {
		return err
	}

	table := prefixTable(ts)
	fields := make([]interface{}, 0, 2*len(table))
	for p, ns := range table {
		fields = append(fields, p, ns)
	}
	if err := r.client.HSet(ctx, prefixesKey(graph), fields...).Err(); err != nil {
		return ergerrors.Wrap(ergerrors.ErrCodeIO, err, "redis: store prefixes of %s", graph)
	}

	if ts.Len() == 0 {
		return nil
	}
	values := make([]interface{}, 0, ts.Len())
	for _, t := range ts.Triples() {
		data, err := json.Marshal(toRecord(t))
		if err != nil {
			return ergerrors.Wrap(ergerrors.ErrCodeInternal, err, "redis: encode triple")
		}
		values = append(values, string(data))
	}
	if err := r.client.RPush(ctx, triplesKey(graph), values...).Err(); err != nil {
		return ergerrors.Wrap(ergerrors.ErrCodeIO, err, "redis: append triples to %s", graph)
	}
	return nil
}

func (r *Redis) Query(ctx context.Context, graph string) (*rdf.TripleSet, error) {
	items, err := r.client.LRange(ctx, triplesKey(graph), 0, -1).Result()
	if err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeIO, err, "redis: read triples of %s", graph)
	}
	if len(items) == 0 {
		return nil, notFound(graph)
	}

	table, err := r.client.HGetAll(ctx, prefixesKey(graph)).Result()
	if err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeIO, err, "redis: read prefixes of %s", graph)
	}
	cfg, err := configuration(table)
	if err != nil {
		return nil, err
	}

	ts := rdf.NewTripleSet(cfg)
	for _, item := range items {
		var rec record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, ergerrors.Wrap(ergerrors.ErrCodeInvalidInput, err, "redis: decode triple of %s", graph)
		}
		ts.Add(rec.triple())
	}
	return ts, nil
}

func (r *Redis) Close() error { return r.client.Close() }
