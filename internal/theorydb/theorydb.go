// Package theorydb persists a theory's definitional surface to SQLite:
// the declared constants and the registered facts, rendered as text. A
// snapshot is enough to browse past results and to resume a session; the
// facts of a resumed session are re-admitted as axioms, since derivations
// belong to the run that produced them.
package theorydb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/kernel"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/syntax"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/theory"
)

// DB wraps the SQLite handle. Open with Open; ":memory:" is accepted for
// tests and throwaway sessions.
type DB struct {
	db   *sql.DB
	path string
}

// Const is a persisted signature entry.
type Const struct {
	Name string
	Type string
}

// Fact is a persisted registration record. Prop is the rendered
// proposition; it parses back under the snapshot's own signature.
type Fact struct {
	QName string
	Index int
	Prop  string
	Tags  []string
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// modernc's driver opens one database per connection for ":memory:",
	// and a single writer avoids SQLITE_BUSY on files.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	d := &DB{db: db, path: path}
	if err := d.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// initialize creates the required tables.
func (d *DB) initialize() error {
	constantsTable := `
	CREATE TABLE IF NOT EXISTS constants (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL
	);
	`

	factsTable := `
	CREATE TABLE IF NOT EXISTS facts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		qname TEXT NOT NULL,
		idx INTEGER NOT NULL,
		prop TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '',
		UNIQUE(qname, idx)
	);
	CREATE INDEX IF NOT EXISTS idx_facts_qname ON facts(qname);
	`

	for _, table := range []string{constantsTable, factsTable} {
		if _, err := d.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path reports where the database lives.
func (d *DB) Path() string {
	return d.path
}

// Save replaces the stored snapshot with thy's signature and facts.
func (d *DB) Save(ctx context.Context, thy *theory.Context) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"constants", "facts"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, name := range thy.ConstNames() {
		ty, _ := thy.LookupConst(name)
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO constants (name, type) VALUES (?, ?)",
			name, ty.String(),
		); err != nil {
			return fmt.Errorf("failed to store constant %s: %w", name, err)
		}
	}

	for _, e := range thy.Entries() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO facts (qname, idx, prop, tags) VALUES (?, ?, ?, ?)",
			e.QName, e.Index, term.String(e.Thm.Prop()), joinTags(e.Tags),
		); err != nil {
			return fmt.Errorf("failed to store fact %s[%d]: %w", e.QName, e.Index, err)
		}
	}

	return tx.Commit()
}

// Constants lists the stored signature in declaration order.
func (d *DB) Constants(ctx context.Context) ([]Const, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT name, type FROM constants ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Const
	for rows.Next() {
		var c Const
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Facts lists every stored fact in registration order.
func (d *DB) Facts(ctx context.Context) ([]Fact, error) {
	return d.queryFacts(ctx,
		"SELECT qname, idx, prop, tags FROM facts ORDER BY id")
}

// FactsByName lists the stored group under a qualified name, in index
// order.
func (d *DB) FactsByName(ctx context.Context, qname string) ([]Fact, error) {
	return d.queryFacts(ctx,
		"SELECT qname, idx, prop, tags FROM facts WHERE qname = ? ORDER BY idx", qname)
}

func (d *DB) queryFacts(ctx context.Context, query string, args ...interface{}) ([]Fact, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Fact
	for rows.Next() {
		var f Fact
		var tags string
		if err := rows.Scan(&f.QName, &f.Index, &f.Prop, &tags); err != nil {
			return nil, err
		}
		f.Tags = splitTags(tags)
		out = append(out, f)
	}
	return out, rows.Err()
}

// QNames lists the stored qualified names, sorted.
func (d *DB) QNames(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT DISTINCT qname FROM facts ORDER BY qname")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Restore rebuilds a theory from the snapshot. Constants beyond the
// initial signature are re-declared; every stored fact is re-admitted as
// an axiom under its qualified name with its tags.
func (d *DB) Restore(ctx context.Context) (*theory.Context, error) {
	consts, err := d.Constants(ctx)
	if err != nil {
		return nil, err
	}
	facts, err := d.Facts(ctx)
	if err != nil {
		return nil, err
	}

	thy := theory.New()
	for _, c := range consts {
		if _, ok := thy.LookupConst(c.Name); ok {
			continue
		}
		ty, err := syntax.ParseType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("stored constant %s has unreadable type: %w", c.Name, err)
		}
		thy, err = thy.DeclareConst(c.Name, ty)
		if err != nil {
			return nil, err
		}
	}

	for _, f := range facts {
		prop, err := syntax.ParseTerm(f.Prop, thy)
		if err != nil {
			return nil, fmt.Errorf("stored fact %s[%d] is unreadable: %w", f.QName, f.Index, err)
		}
		th, err := kernel.Axiom(f.QName, prop)
		if err != nil {
			return nil, fmt.Errorf("stored fact %s[%d] rejected: %w", f.QName, f.Index, err)
		}
		thy = thy.Register(f.QName, []*kernel.Thm{th}, f.Tags...)
	}
	return thy, nil
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
