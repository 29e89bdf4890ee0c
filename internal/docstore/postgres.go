package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/fitnesstracker/internal/telemetry/tracing"
	"github.com/2beens/fitnesstracker/pkg"
)

// Postgres keeps every document as one row of the documents table, with the
// document body in a jsonb column. Merges are shallow (top-level keys).
type Postgres struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{
		db: db,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (p *Postgres) Get(ctx context.Context, path string) (_ *Snapshot, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "docstore.postgres.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("path", path))

	_, id, err := SplitDoc(path)
	if err != nil {
		return nil, err
	}

	var raw []byte
	err = p.db.QueryRow(ctx, `SELECT data FROM documents WHERE path = $1`, path).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &Snapshot{ID: id, Path: path}, nil
		}
		return nil, fmt.Errorf("select %s: %w", path, err)
	}

	data, err := decodeDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &Snapshot{ID: id, Path: path, Exists: true, Data: data}, nil
}

func (p *Postgres) Set(ctx context.Context, path string, data map[string]any, opts ...SetOption) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "docstore.postgres.set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	merge := applySetOptions(opts).merge
	span.SetAttributes(attribute.String("path", path), attribute.Bool("merge", merge))

	sql, args, err := p.setStatement(path, data, merge)
	if err != nil {
		return err
	}
	if _, err := p.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

func (p *Postgres) setStatement(path string, data map[string]any, merge bool) (string, []any, error) {
	collection, id, err := SplitDoc(path)
	if err != nil {
		return "", nil, err
	}
	body, err := json.Marshal(resolveServerTimestamps(data, p.now()))
	if err != nil {
		return "", nil, fmt.Errorf("encode %s: %w", path, err)
	}

	conflictUpdate := `data = EXCLUDED.data`
	if merge {
		conflictUpdate = `data = documents.data || EXCLUDED.data`
	}
	sql := `INSERT INTO documents (path, collection, doc_id, data)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (path) DO UPDATE SET ` + conflictUpdate + `, updated_at = now();`
	return sql, []any{path, collection, id, body}, nil
}

func (p *Postgres) Create(ctx context.Context, path string, data map[string]any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "docstore.postgres.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("path", path))

	collection, id, err := SplitDoc(path)
	if err != nil {
		return err
	}
	body, err := json.Marshal(resolveServerTimestamps(data, p.now()))
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	_, err = p.db.Exec(
		ctx,
		`INSERT INTO documents (path, collection, doc_id, data) VALUES ($1, $2, $3, $4);`,
		path, collection, id, body,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return fmt.Errorf("create %s: %w", path, ErrAlreadyExists)
		}
		return fmt.Errorf("create %s: %w", path, err)
	}
	return nil
}

func (p *Postgres) Update(ctx context.Context, path string, data map[string]any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "docstore.postgres.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("path", path))

	if _, _, err := SplitDoc(path); err != nil {
		return err
	}
	body, err := json.Marshal(resolveServerTimestamps(data, p.now()))
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	tag, err := p.db.Exec(
		ctx,
		`UPDATE documents SET data = data || $2::jsonb, updated_at = now() WHERE path = $1;`,
		path, body,
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update %s: %w", path, ErrNotFound)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, path string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "docstore.postgres.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("path", path))

	if _, _, err := SplitDoc(path); err != nil {
		return err
	}
	if _, err := p.db.Exec(ctx, `DELETE FROM documents WHERE path = $1;`, path); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (p *Postgres) Query(ctx context.Context, q Query) (_ []*Snapshot, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "docstore.postgres.query")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("collection", q.Collection))

	sql, args, err := buildQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := p.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var result []*Snapshot
	for rows.Next() {
		var (
			path string
			id   string
			raw  []byte
		)
		if err := rows.Scan(&path, &id, &raw); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		data, err := decodeDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		result = append(result, &Snapshot{ID: id, Path: path, Exists: true, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("results", len(result)))
	return result, nil
}

func buildQuery(q Query) (string, []any, error) {
	if err := ValidateCollection(q.Collection); err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	args := []any{q.Collection}
	sb.WriteString(`SELECT path, doc_id, data FROM documents WHERE collection = $1`)

	nextArg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, f := range q.Filters {
		var op string
		switch f.Op {
		case OpEqual:
			op = "="
		case OpGreaterOrEqual:
			op = ">="
		case OpLessOrEqual:
			op = "<="
		default:
			return "", nil, fmt.Errorf("unsupported filter operator %q", f.Op)
		}

		field := "(" + nextArg(f.Field) + "::text)"
		switch v := f.Value.(type) {
		case string:
			fmt.Fprintf(&sb, ` AND jsonb_typeof(data->%s) = 'string' AND data->>%s %s %s`, field, field, op, nextArg(v))
		case time.Time:
			fmt.Fprintf(&sb, ` AND data->>%s %s %s`, field, op, nextArg(v.UTC().Format(time.RFC3339Nano)))
		case float64, float32, int, int32, int64:
			fmt.Fprintf(&sb,
				` AND (CASE WHEN jsonb_typeof(data->%s) = 'number' THEN (data->>%s)::numeric END) %s %s`,
				field, field, op, nextArg(v),
			)
		default:
			if f.Op != OpEqual {
				return "", nil, fmt.Errorf("operator %q needs a string, number or time value", f.Op)
			}
			encoded, err := json.Marshal(v)
			if err != nil {
				return "", nil, fmt.Errorf("encode filter value: %w", err)
			}
			fmt.Fprintf(&sb, ` AND data->%s = %s::jsonb`, field, nextArg(json.RawMessage(encoded)))
		}
	}

	if q.OrderBy != "" {
		field := "(" + nextArg(q.OrderBy) + "::text)"
		direction := "ASC"
		if q.Descending {
			direction = "DESC"
		}
		fmt.Fprintf(&sb, ` AND data->%s IS NOT NULL ORDER BY data->%s %s, doc_id ASC`, field, field, direction)
	} else {
		sb.WriteString(` ORDER BY doc_id ASC`)
	}

	if q.Limit > 0 {
		fmt.Fprintf(&sb, ` LIMIT %d`, q.Limit)
	}

	return sb.String(), args, nil
}

func (p *Postgres) Batch(ctx context.Context, writes []Write) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "docstore.postgres.batch")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("writes", len(writes)))

	return pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		for _, w := range writes {
			if w.Delete {
				if _, _, err := SplitDoc(w.Path); err != nil {
					return err
				}
				if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE path = $1;`, w.Path); err != nil {
					return fmt.Errorf("batch delete %s: %w", w.Path, err)
				}
				continue
			}

			sql, args, err := p.setStatement(w.Path, w.Data, w.Merge)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, sql, args...); err != nil {
				return fmt.Errorf("batch set %s: %w", w.Path, err)
			}
		}
		return nil
	})
}

// Close is a no-op, the pool is owned by the caller.
func (p *Postgres) Close() error {
	return nil
}

func decodeDocument(raw []byte) (map[string]any, error) {
	data := map[string]any{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}
