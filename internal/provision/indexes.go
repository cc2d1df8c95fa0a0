package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/sahaay-store/internal/errs"
	"github.com/and161185/sahaay-store/internal/schema"
)

// inspectIndexSQL looks up a relation by name in the current schema and, when it
// is an index, describes it. Expression columns have no attribute and are dropped
// from the column list, which makes such an index compare unequal.
const inspectIndexSQL = `
SELECT i.relkind::text,
       COALESCE(t.relname::text, ''),
       COALESCE(ix.indisunique, false),
       COALESCE(ix.indisvalid, false),
       COALESCE(ix.indpred IS NOT NULL, false),
       COALESCE(am.amname::text, ''),
       ARRAY(
           SELECT a.attname::text
           FROM unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord)
           JOIN pg_attribute a ON a.attrelid = ix.indrelid AND a.attnum = k.attnum
           ORDER BY k.ord
       )
FROM pg_class i
LEFT JOIN pg_index ix ON ix.indexrelid = i.oid
LEFT JOIN pg_class t ON t.oid = ix.indrelid
LEFT JOIN pg_am am ON am.oid = i.relam
WHERE i.relname = $1
  AND i.relnamespace = (SELECT oid FROM pg_namespace WHERE nspname = current_schema())`

// existingIndex is what the catalog tables say about a relation.
type existingIndex struct {
	kind    string
	def     schema.Index
	valid   bool
	partial bool
}

func (e existingIndex) String() string {
	switch {
	case e.kind != "i":
		return fmt.Sprintf("relation of kind %q", e.kind)
	case !e.valid:
		return e.def.String() + " (invalid)"
	case e.partial:
		return e.def.String() + " (partial)"
	default:
		return e.def.String()
	}
}

func inspectIndex(ctx context.Context, tx pgx.Tx, name string) (*existingIndex, error) {
	var e existingIndex
	e.def.Name = name
	err := tx.QueryRow(ctx, inspectIndexSQL, name).Scan(
		&e.kind, &e.def.Table, &e.def.Unique, &e.valid, &e.partial, &e.def.Method, &e.def.Columns,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("inspect index %s: %w", name, err)
	}
	return &e, nil
}

// ensureIndex creates want when absent, accepts an identical existing index and
// rejects anything else holding the name.
func ensureIndex(ctx context.Context, tx pgx.Tx, want schema.Index) (IndexOutcome, error) {
	found, err := inspectIndex(ctx, tx, want.Name)
	if err != nil {
		return "", err
	}
	if found != nil {
		if found.kind == "i" && found.valid && !found.partial && want.Equal(found.def) {
			return IndexExisting, nil
		}
		return "", fmt.Errorf("%w: %s: want %s, found %s", errs.ErrIndexConflict, want.Name, want, found)
	}
	if _, err := tx.Exec(ctx, want.DDL()); err != nil {
		return "", fmt.Errorf("create index %s: %w", want.Name, err)
	}
	return IndexCreated, nil
}
