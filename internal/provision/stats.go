package provision

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jackc/pgx/v5"
)

// CollectionStats is the row and index count of one collection.
type CollectionStats struct {
	Name    string
	Rows    int64
	Indexes int64 // primary key included
}

// Summary is the final statistics of a provisioning run.
type Summary struct {
	Database    string
	Collections []CollectionStats
}

// Stats reads row and index counts for every catalog collection.
func (p *Provisioner) Stats(ctx context.Context) (Summary, error) {
	var s Summary
	if err := p.db.Pool.QueryRow(ctx, `SELECT current_database()`).Scan(&s.Database); err != nil {
		return Summary{}, fmt.Errorf("current database: %w", err)
	}
	for _, c := range p.catalog {
		cs := CollectionStats{Name: c.Name}
		q := `SELECT count(*) FROM ` + pgx.Identifier{c.Name}.Sanitize()
		if err := p.db.Pool.QueryRow(ctx, q).Scan(&cs.Rows); err != nil {
			return Summary{}, fmt.Errorf("count %s: %w", c.Name, err)
		}
		const iq = `SELECT count(*) FROM pg_indexes WHERE schemaname = current_schema() AND tablename = $1`
		if err := p.db.Pool.QueryRow(ctx, iq, c.Name).Scan(&cs.Indexes); err != nil {
			return Summary{}, fmt.Errorf("count indexes of %s: %w", c.Name, err)
		}
		s.Collections = append(s.Collections, cs)
	}
	return s, nil
}

// WriteReport prints the operator-facing summary. seed may be nil when seeding was skipped.
func WriteReport(w io.Writer, rep Report, seed *SeedReport, sum Summary) error {
	var b strings.Builder
	line := strings.Repeat("=", 45)

	fmt.Fprintln(&b, "SAHAAY DATABASE SETUP COMPLETE")
	fmt.Fprintln(&b, line)
	fmt.Fprintf(&b, "Database: %s\n", sum.Database)
	fmt.Fprintf(&b, "Migrations applied: %d\n", len(rep.Migrations))
	fmt.Fprintf(&b, "Indexes created: %d, already present: %d\n", rep.Count(IndexCreated), rep.Count(IndexExisting))

	if seed != nil {
		fmt.Fprintln(&b, "Fixtures:")
		for _, e := range seed.Entries {
			state := "already present"
			if e.Inserted {
				state = "inserted"
			}
			fmt.Fprintf(&b, "  %s/%s: %s\n", e.Collection, e.ID, state)
		}
	}

	fmt.Fprintln(&b, "Collections:")
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for _, c := range sum.Collections {
		fmt.Fprintf(tw, "  %s\trows=%d\tindexes=%d\n", c.Name, c.Rows, c.Indexes)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(&b, line)

	_, err := io.WriteString(w, b.String())
	return err
}
