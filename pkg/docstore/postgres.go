package docstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-tweet-go/pkg/utilities"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Postgres stores each collection as a table of JSONB documents:
//
//	CREATE TABLE <coll> (id varchar(32) PRIMARY KEY, doc jsonb NOT NULL)
//
// Fields other than id are matched through doc->>'field'.
type Postgres struct {
	db    *sqlx.DB
	newID func() string
}

func NewPostgres(db *sqlx.DB, newID func() string) *Postgres {
	if newID == nil {
		newID = utilities.NewSnowflakeID
	}
	return &Postgres{db: db, newID: newID}
}

// EnsureIndexes creates the collection table if not exists, plus a unique
// expression index per field (idempotent).
func (p *Postgres) EnsureIndexes(ctx context.Context, coll string, unique ...string) error {
	if err := checkIdent(coll); err != nil {
		return err
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  id varchar(32) PRIMARY KEY,
  doc jsonb NOT NULL DEFAULT '{}'::jsonb
)`, coll)
	if _, err := p.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", coll, err)
	}
	for _, field := range unique {
		if err := checkIdent(field); err != nil {
			return err
		}
		idx := fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_%s ON %s ((doc->>'%s'))`,
			coll, strings.ToLower(field), coll, field)
		if _, err := p.db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("create index on %s.%s: %w", coll, field, err)
		}
	}
	return nil
}

func (p *Postgres) FindOne(ctx context.Context, coll string, f Filter, out any) error {
	if err := checkIdent(coll); err != nil {
		return err
	}
	where, args, err := whereClause(f, 1)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`SELECT doc FROM %s%s LIMIT 1`, coll, where)
	var raw []byte
	if err := p.db.GetContext(ctx, &raw, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(raw, out)
}

func (p *Postgres) FindMany(ctx context.Context, coll string, f Filter, s *Sort, out any) error {
	if err := checkIdent(coll); err != nil {
		return err
	}
	where, args, err := whereClause(f, 1)
	if err != nil {
		return err
	}
	order, err := orderClause(s)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`SELECT doc FROM %s%s%s`, coll, where, order)
	var rows [][]byte
	if err := p.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return err
	}
	arr := append([]byte{'['}, bytes.Join(rows, []byte{','})...)
	arr = append(arr, ']')
	return json.Unmarshal(arr, out)
}

func (p *Postgres) InsertOne(ctx context.Context, coll string, rec Record) error {
	if err := checkIdent(coll); err != nil {
		return err
	}
	rec.SetID(p.newID())
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	q := fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2)`, coll)
	if _, err := p.db.ExecContext(ctx, q, rec.GetID(), doc); err != nil {
		return mapPQError(err)
	}
	return nil
}

func (p *Postgres) ReplaceOne(ctx context.Context, coll string, f Filter, doc any) (int64, error) {
	if err := checkIdent(coll); err != nil {
		return 0, err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("encode document: %w", err)
	}
	where, args, err := whereClause(f, 2)
	if err != nil {
		return 0, err
	}
	// id is copied from the row so a replacement can never move a document
	q := fmt.Sprintf(`UPDATE %[1]s SET doc = jsonb_set($1::jsonb, '{id}', to_jsonb(id))
		WHERE id = (SELECT id FROM %[1]s%[2]s LIMIT 1)`, coll, where)
	res, err := p.db.ExecContext(ctx, q, append([]any{raw}, args...)...)
	if err != nil {
		return 0, mapPQError(err)
	}
	return res.RowsAffected()
}

func (p *Postgres) DeleteOne(ctx context.Context, coll string, f Filter) (int64, error) {
	if err := checkIdent(coll); err != nil {
		return 0, err
	}
	where, args, err := whereClause(f, 1)
	if err != nil {
		return 0, err
	}
	q := fmt.Sprintf(`DELETE FROM %[1]s WHERE id = (SELECT id FROM %[1]s%[2]s LIMIT 1)`, coll, where)
	res, err := p.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (p *Postgres) Close(context.Context) error {
	return p.db.Close()
}

// whereClause renders f with positional parameters starting at $start.
func whereClause(f Filter, start int) (string, []any, error) {
	var (
		parts []string
		args  []any
		n     = start
	)
	render := func(c Cond) (string, error) {
		if err := checkIdent(c.Field); err != nil {
			return "", err
		}
		v, err := textValue(c.Value)
		if err != nil {
			return "", err
		}
		args = append(args, v)
		col := fmt.Sprintf("doc->>'%s'", c.Field)
		if c.Field == FieldID {
			col = "id"
		}
		s := fmt.Sprintf("%s = $%d", col, n)
		n++
		return s, nil
	}
	for _, c := range f.All {
		s, err := render(c)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, s)
	}
	if len(f.Any) > 0 {
		var alts []string
		for _, c := range f.Any {
			s, err := render(c)
			if err != nil {
				return "", nil, err
			}
			alts = append(alts, s)
		}
		parts = append(parts, "("+strings.Join(alts, " OR ")+")")
	}
	if len(parts) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func orderClause(s *Sort) (string, error) {
	if s == nil {
		return "", nil
	}
	if err := checkIdent(s.Field); err != nil {
		return "", err
	}
	expr := fmt.Sprintf("doc->>'%s'", s.Field)
	switch s.Kind {
	case SortTime:
		expr = "(" + expr + ")::timestamptz"
	case SortNumber:
		expr = "(" + expr + ")::numeric"
	}
	dir := " ASC"
	if s.Desc {
		dir = " DESC"
	}
	return " ORDER BY " + expr + dir, nil
}

// textValue renders v the way doc->>'field' renders the stored JSON value.
func textValue(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode filter value: %w", err)
	}
	return string(raw), nil
}

func checkIdent(s string) error {
	if !identRe.MatchString(s) {
		return fmt.Errorf("invalid identifier %q", s)
	}
	return nil
}

func mapPQError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}
