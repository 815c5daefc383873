package triplestore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
	"github.com/matzehuels/ergraph/pkg/rdf"
)

// DBPool is the subset of *pgxpool.Pool the store uses.
type DBPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

var _ DBPool = (*pgxpool.Pool)(nil)

var tripleColumns = []string{"graph", "seq", "s", "p", "o", "o_type"}

// Postgres keeps triples in one table and prefix tables in a second,
// named table+"_prefixes".
type Postgres struct {
	pool     DBPool
	closer   func()
	table    pgx.Identifier
	prefixes pgx.Identifier
}

// NewPostgres opens a pool on url and creates the tables if missing.
func NewPostgres(ctx context.Context, url, table string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeIO, err, "postgres: open pool")
	}
	p, err := NewPostgresWithPool(ctx, pool, table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	p.closer = pool.Close
	return p, nil
}

// NewPostgresWithPool builds a store over an existing pool and creates the
// tables if missing.
func NewPostgresWithPool(ctx context.Context, pool DBPool, table string) (*Postgres, error) {
	p := &Postgres{
		pool:     pool,
		table:    pgx.Identifier{table},
		prefixes: pgx.Identifier{table + "_prefixes"},
	}
	if err := p.migrate(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	graph TEXT NOT NULL,
	seq BIGINT NOT NULL,
	s TEXT NOT NULL,
	p TEXT NOT NULL,
	o TEXT NOT NULL,
	o_type TEXT NOT NULL,
	PRIMARY KEY (graph, seq)
)`, p.table.Sanitize()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	graph TEXT NOT NULL,
	prefix TEXT NOT NULL,
	namespace TEXT NOT NULL,
	PRIMARY KEY (graph, prefix)
)`, p.prefixes.Sanitize()),
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return ergerrors.Wrap(ergerrors.ErrCodeIO, err, "postgres: create tables")
		}
	}
	return nil
}

func (p *Postgres) Insert(ctx context.Context, ts *rdf.TripleSet, graph string) error {
	if err := checkGraph(graph); err != nil {
		return err
	}

	upsert := fmt.Sprintf(`INSERT INTO %s (graph, prefix, namespace) VALUES ($1, $2, $3)
ON CONFLICT (graph, prefix) DO UPDATE SET namespace = EXCLUDED.namespace`, p.prefixes.Sanitize())
	for prefix, ns := range prefixTable(ts) {
		if _, err := p.pool.Exec(ctx, upsert, graph, prefix, ns); err != nil {
			return ergerrors.Wrap(ergerrors.ErrCodeIO, err, "postgres: store prefix %s of %s", prefix, graph)
		}
	}

	if ts.Len() == 0 {
		return nil
	}
	var base int64
	next := fmt.Sprintf(`SELECT COALESCE(MAX(seq) + 1, 0) FROM %s WHERE graph = $1`, p.table.Sanitize())
	if err := p.pool.QueryRow(ctx, next, graph).Scan(&base); err != nil {
		return ergerrors.Wrap(ergerrors.ErrCodeIO, err, "postgres: next sequence of %s", graph)
	}

	rows := make([][]any, 0, ts.Len())
	for i, t := range ts.Triples() {
		rec := toRecord(t)
		rows = append(rows, []any{graph, base + int64(i), rec.S, rec.P, rec.O, rec.OType})
	}
	if _, err := p.pool.CopyFrom(ctx, p.table, tripleColumns, pgx.CopyFromRows(rows)); err != nil {
		return ergerrors.Wrap(ergerrors.ErrCodeIO, err, "postgres: copy triples into %s", graph)
	}
	return nil
}

func (p *Postgres) Query(ctx context.Context, graph string) (*rdf.TripleSet, error) {
	q := fmt.Sprintf(`SELECT s, p, o, o_type FROM %s WHERE graph = $1 ORDER BY seq`, p.table.Sanitize())
	rows, err := p.pool.Query(ctx, q, graph)
	if err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeIO, err, "postgres: query triples of %s", graph)
	}
	var recs []record
	for rows.Next() {
		var rec record
		if err := rows.Scan(&rec.S, &rec.P, &rec.O, &rec.OType); err != nil {
			rows.Close()
			return nil, ergerrors.Wrap(ergerrors.ErrCodeIO, err, "postgres: scan triple")
		}
		recs = append(recs, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeIO, err, "postgres: read triples of %s", graph)
	}
	if len(recs) == 0 {
		return nil, notFound(graph)
	}

	table, err := p.prefixTable(ctx, graph)
	if err != nil {
		return nil, err
	}
	cfg, err := configuration(table)
	if err != nil {
		return nil, err
	}
	ts := rdf.NewTripleSet(cfg)
	for _, rec := range recs {
		ts.Add(rec.triple())
	}
	return ts, nil
}

func (p *Postgres) prefixTable(ctx context.Context, graph string) (map[string]string, error) {
	q := fmt.Sprintf(`SELECT prefix, namespace FROM %s WHERE graph = $1`, p.prefixes.Sanitize())
	rows, err := p.pool.Query(ctx, q, graph)
	if err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeIO, err, "postgres: query prefixes of %s", graph)
	}
	defer rows.Close()

	table := make(map[string]string)
	for rows.Next() {
		var prefix, ns string
		if err := rows.Scan(&prefix, &ns); err != nil {
			return nil, ergerrors.Wrap(ergerrors.ErrCodeIO, err, "postgres: scan prefix")
		}
		table[prefix] = ns
	}
	if err := rows.Err(); err != nil {
		return nil, ergerrors.Wrap(ergerrors.ErrCodeIO, err, "postgres: read prefixes of %s", graph)
	}
	return table, nil
}

// Close closes the pool if the store opened it.
func (p *Postgres) Close() error {
	if p.closer != nil {
		p.closer()
	}
	return nil
}
