package census

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/dshills/census-mcp/internal/storage"
	"github.com/dshills/census-mcp/pkg/manifold"
)

// Source identifies a census relation inside a catalog file.
type Source struct {
	Path     string
	Relation string
	Kind     Kind
}

// Table is a filtered, read-only view of one census relation. It is
// immutable: Configure returns a new Table.
//
// A Table holds two handles on its catalog. objects only runs queries whose
// rows are turned into manifolds; scalars runs schema introspection and
// counts. Keeping them apart means a materializing query is never mistaken
// for a plain tuple fetch.
type Table struct {
	src  Source
	opts options

	objects *sql.DB
	scalars *sql.DB

	schema map[string]string
	filter Filter
	where  string
	length int
}

// FindOptions orders and limits Find.
type FindOptions struct {
	OrderBy string // default "id"
	Limit   int    // 0 means no limit
}

// OpenTable opens a view of src narrowed by filter.
func OpenTable(ctx context.Context, src Source, filter Filter, opts ...Option) (*Table, error) {
	return openTable(ctx, src, filter, buildOptions(opts))
}

func openTable(ctx context.Context, src Source, filter Filter, o options) (*Table, error) {
	objects, err := storage.OpenReadOnly(src.Path)
	if err != nil {
		return nil, err
	}
	scalars, err := storage.OpenReadOnly(src.Path)
	if err != nil {
		_ = objects.Close()
		return nil, err
	}

	t := &Table{
		src:     src,
		opts:    o,
		objects: objects,
		scalars: scalars,
		filter:  filter,
		where:   filter.predicate(src.Kind),
	}

	if err := t.loadSchema(ctx); err != nil {
		_ = t.Close()
		return nil, err
	}
	if err := t.countRows(ctx); err != nil {
		_ = t.Close()
		return nil, err
	}

	t.opts.logger.DebugContext(ctx, "census table opened",
		"relation", src.Relation,
		"kind", src.Kind.String(),
		"filter", t.where,
		"length", t.length,
	)
	return t, nil
}

// Configure returns a new Table over the same relation with a different
// filter. The receiver is unchanged.
func (t *Table) Configure(ctx context.Context, filter Filter) (*Table, error) {
	return openTable(ctx, t.src, filter, t.opts)
}

// Close releases both handles.
func (t *Table) Close() error {
	return errors.Join(t.objects.Close(), t.scalars.Close())
}

func (t *Table) loadSchema(ctx context.Context) error {
	cacheKey := t.src.Path + "\x00" + t.src.Relation
	if t.opts.schemas != nil {
		if schema, ok := t.opts.schemas.Get(cacheKey); ok {
			t.schema = schema
			return nil
		}
	}

	query := fmt.Sprintf("PRAGMA table_info(%s)", quoteLiteral(t.src.Relation))
	rows, err := t.scalars.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to read schema of %s: %w", t.src.Relation, err)
	}
	defer func() { _ = rows.Close() }()

	schema := make(map[string]string)
	for rows.Next() {
		var (
			cid        int
			name, kind string
			notNull    int
			dflt       sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &kind, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("failed to read schema of %s: %w", t.src.Relation, err)
		}
		schema[name] = strings.ToLower(kind)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if schema["name"] != "text" || schema["triangulation"] != "blob" {
		return fmt.Errorf("%w: %s", ErrSchemaInvalid, t.src.Relation)
	}

	t.schema = schema
	if t.opts.schemas != nil {
		t.opts.schemas.Add(cacheKey, schema)
	}
	return nil
}

func (t *Table) countRows(ctx context.Context) error {
	query := "select count(*) from " + t.src.Relation
	if t.where != "" {
		query += " where " + t.where
	}
	if err := t.scalars.QueryRowContext(ctx, query).Scan(&t.length); err != nil {
		return fmt.Errorf("failed to count %s: %w", t.src.Relation, err)
	}
	return nil
}

// Relation returns the relation name.
func (t *Table) Relation() string { return t.src.Relation }

func (t *Table) Kind() Kind { return t.src.Kind }

// Filter returns the SQL predicate in effect, "" when unfiltered.
func (t *Table) Filter() string { return t.where }

// Len is the number of rows under the current filter.
func (t *Table) Len() int { return t.length }

// Keys returns the relation's column names, sorted.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.schema))
	for k := range t.schema {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (t *Table) String() string {
	if t.where == "" {
		return t.src.Relation + " without filters"
	}
	return t.src.Relation + " with filter: " + t.where
}

func (t *Table) selectClause() string {
	return fmt.Sprintf("select %s from %s ", t.src.Kind.columns(), t.src.Relation)
}

// withFilter joins extra conditions with the table filter.
func (t *Table) withFilter(conditions ...string) string {
	if t.where != "" {
		conditions = append(conditions, "("+t.where+")")
	}
	return strings.Join(conditions, " and ")
}

// materialize builds a manifold from the current row.
func (t *Table) materialize(rows *sql.Rows) (manifold.Manifold, error) {
	var r catalogRow
	if err := rows.Scan(t.src.Kind.scanTargets(&r)...); err != nil {
		return nil, err
	}
	return t.src.Kind.build(&r, t.opts.factory, t.opts.decoder)
}

// collect materializes rows after skipping the first skip of them.
func (t *Table) collect(ctx context.Context, skip int, query string, args ...any) ([]manifold.Manifold, error) {
	rows, err := t.objects.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query on %s failed: %w", t.src.Relation, err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]manifold.Manifold, 0)
	for rows.Next() {
		if skip > 0 {
			skip--
			continue
		}
		m, err := t.materialize(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// All iterates over the filtered rows in storage order. Every call issues a
// fresh query; iteration stops at the first error.
func (t *Table) All(ctx context.Context) iter.Seq2[manifold.Manifold, error] {
	return func(yield func(manifold.Manifold, error) bool) {
		query := t.selectClause()
		if t.where != "" {
			query += "where " + t.where
		}
		rows, err := t.objects.QueryContext(ctx, query)
		if err != nil {
			yield(nil, fmt.Errorf("query on %s failed: %w", t.src.Relation, err))
			return
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			m, err := t.materialize(rows)
			if !yield(m, err) || err != nil {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Find returns the manifolds satisfying where and the table filter. args
// bind the placeholders in where.
func (t *Table) Find(ctx context.Context, where string, opts FindOptions, args ...any) ([]manifold.Manifold, error) {
	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = "id"
	}
	query := t.selectClause() + "where " + t.withFilter("("+where+")") + " order by " + orderBy
	if opts.Limit > 0 {
		query += fmt.Sprintf(" limit %d", opts.Limit)
	}
	return t.collect(ctx, 0, query, args...)
}

// At returns the manifold with 0-based ordinal i, stored with id i+1.
func (t *Table) At(ctx context.Context, i int) (manifold.Manifold, error) {
	matches, err := t.Find(ctx, "id = ?", FindOptions{}, i+1)
	if err != nil {
		return nil, err
	}
	if len(matches) != 1 {
		return nil, fmt.Errorf("%w: index %d of %s", ErrNotFound, i, t.src.Relation)
	}
	return matches[0], nil
}

// ByName returns the manifold stored under name.
func (t *Table) ByName(ctx context.Context, name string) (manifold.Manifold, error) {
	matches, err := t.Find(ctx, "name = ?", FindOptions{}, name)
	if err != nil {
		return nil, err
	}
	if len(matches) != 1 {
		return nil, fmt.Errorf("%w: %s in %s", ErrKeyNotFound, name, t.src.Relation)
	}
	return matches[0], nil
}

// Slice returns the rows selected by r. Ordinal ranges follow the usual
// half-open convention with negative bounds counted from the end; empty and
// reversed ranges yield no rows. Volume ranges select start <= volume < stop
// in no particular order.
func (t *Table) Slice(ctx context.Context, r Range) ([]manifold.Manifold, error) {
	return t.SliceN(ctx, r, 0)
}

// SliceN is Slice returning at most n manifolds, the first n that Slice
// would return. Rows past the first n are never read. n <= 0 means no limit.
func (t *Table) SliceN(ctx context.Context, r Range, n int) ([]manifold.Manifold, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	if r.byOrdinal() {
		return t.sliceOrdinal(ctx, r, n)
	}
	return t.sliceVolume(ctx, r, n)
}

func (t *Table) sliceOrdinal(ctx context.Context, r Range, n int) ([]manifold.Manifold, error) {
	start := 0
	if r.Start.IsSet() {
		start = r.Start.ordinal
		if start < 0 {
			start += t.length
		}
		start = max(start, 0)
	}
	stop, bounded := 0, r.Stop.IsSet()
	if bounded {
		stop = r.Stop.ordinal
		if stop < 0 {
			stop += t.length
		}
		if stop <= start {
			return []manifold.Manifold{}, nil
		}
	}
	if n > 0 && (!bounded || start+n < stop) {
		stop, bounded = start+n, true
	}

	if t.where == "" {
		// Ids are gapless, so the range maps straight onto them.
		query := t.selectClause() + "where id >= ? order by id"
		args := []any{start + 1}
		if bounded {
			query += " limit ?"
			args = append(args, stop-start)
		}
		return t.collect(ctx, 0, query, args...)
	}

	// Filtered rows have no usable ordinal, so skip the first start rows.
	query := t.selectClause() + "where " + t.where + " order by id"
	if bounded {
		query += fmt.Sprintf(" limit %d", stop)
	}
	return t.collect(ctx, start, query)
}

func (t *Table) sliceVolume(ctx context.Context, r Range, n int) ([]manifold.Manifold, error) {
	var conditions []string
	var args []any
	if r.Start.IsSet() {
		conditions = append(conditions, "volume >= ?")
		args = append(args, r.Start.volume)
	}
	if r.Stop.IsSet() {
		conditions = append(conditions, "volume < ?")
		args = append(args, r.Stop.volume)
	}

	query := t.selectClause()
	if where := t.withFilter(conditions...); where != "" {
		query += "where " + where
	}
	if n > 0 {
		query += fmt.Sprintf(" limit %d", n)
	}
	return t.collect(ctx, 0, query, args...)
}

// Get dispatches on the key: an ordinal or a name yields one manifold, a
// range yields its slice.
func (t *Table) Get(ctx context.Context, key Key) ([]manifold.Manifold, error) {
	switch key.kind {
	case indexKey:
		m, err := t.At(ctx, key.index)
		if err != nil {
			return nil, err
		}
		return []manifold.Manifold{m}, nil
	case nameKey:
		m, err := t.ByName(ctx, key.name)
		if err != nil {
			return nil, err
		}
		return []manifold.Manifold{m}, nil
	case rangeKey:
		return t.Slice(ctx, key.rng)
	default:
		return nil, ErrInvalidIndexType
	}
}

// Random returns a uniformly chosen manifold from the filtered rows.
func (t *Table) Random(ctx context.Context) (manifold.Manifold, error) {
	if t.length == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNotFound, t)
	}
	i := rand.IntN(t.length)
	found, err := t.Slice(ctx, Range{Start: Ordinal(i), Stop: Ordinal(i + 1)})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: index %d of %s", ErrNotFound, i, t)
	}
	return found[0], nil
}

// Siblings returns the manifolds sharing m's hash, in id order.
func (t *Table) Siblings(ctx context.Context, m manifold.Manifold) ([]manifold.Manifold, error) {
	h, err := t.opts.hasher(m)
	if err != nil {
		return nil, fmt.Errorf("failed to hash manifold: %w", err)
	}
	return t.Find(ctx, "hash = ?", FindOptions{}, h)
}

// Identify searches the table for a manifold isometric to m.
func (t *Table) Identify(ctx context.Context, m manifold.Manifold, opts IdentifyOptions) (Identification, error) {
	return NewIdentifier(t.opts.hasher, WithLogger(t.opts.logger)).Identify(ctx, m, t, opts)
}

// Contains reports whether Identify finds a match for m. Lookup failures
// count as not contained.
func (t *Table) Contains(ctx context.Context, m manifold.Manifold) bool {
	id, err := t.Identify(ctx, m, IdentifyOptions{})
	return err == nil && id.Outcome == Match
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
