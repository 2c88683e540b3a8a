package metadata

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on relationships.intersect_entity
const currentSchemaVersion = 1

// Snapshot is a SQLite-backed offline copy of another provider's metadata.
// It lets the query tree validate without a live environment.
type Snapshot struct {
	db *sql.DB
}

// OpenSnapshot creates or opens a snapshot database at path.
// Applies required pragmas and migrations automatically.
func OpenSnapshot(path string) (*Snapshot, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to snapshot: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Snapshot{db: db}, nil
}

// Close closes the database connection.
func (s *Snapshot) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if _, err := db.Exec(`
			CREATE INDEX IF NOT EXISTS idx_relationships_intersect
			ON relationships(intersect_entity)
		`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// ImportStats counts the rows written by Import.
type ImportStats struct {
	Entities      int
	Attributes    int
	Options       int
	Relationships int
}

// Import replaces the snapshot contents with everything src exposes.
// The replacement is a single transaction: readers see either the old
// snapshot or the new one.
func (s *Snapshot) Import(ctx context.Context, src Provider, source string) (ImportStats, error) {
	var stats ImportStats

	entities, err := src.ListEntities(ctx)
	if err != nil {
		return stats, fmt.Errorf("import: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("import: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, table := range []string{"options", "relationships", "attributes", "entities", "snapshot_info"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return stats, fmt.Errorf("import: clear %s: %w", table, err)
		}
	}

	for _, e := range entities {
		ek := Key(e.LogicalName)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entities (entity_key, logical_name, display_name, entity_set_name, primary_id, primary_name)
			VALUES (?, ?, ?, ?, ?, ?)
		`, ek, e.LogicalName, e.DisplayName, e.EntitySetName, e.PrimaryIDAttribute, e.PrimaryNameAttribute); err != nil {
			return stats, fmt.Errorf("import entity %q: %w", e.LogicalName, err)
		}
		stats.Entities++

		attrs, err := src.ListAttributes(ctx, e.LogicalName)
		if err != nil && !IsNotFound(err) {
			return stats, fmt.Errorf("import: %w", err)
		}
		for i, a := range attrs {
			ak := Key(a.LogicalName)
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO attributes (entity_key, attribute_key, logical_name, display_name, type, targets, ordinal)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, ek, ak, a.LogicalName, a.DisplayName, string(a.Type), strings.Join(a.Targets, ","), i); err != nil {
				return stats, fmt.Errorf("import attribute %s.%s: %w", e.LogicalName, a.LogicalName, err)
			}
			stats.Attributes++

			kind := OptionSetKindFor(a.Type)
			if kind == "" {
				continue
			}
			opts, err := src.ListOptionSetValues(ctx, e.LogicalName, a.LogicalName, kind)
			if err != nil {
				return stats, fmt.Errorf("import: %w", err)
			}
			for j, o := range opts {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO options (entity_key, attribute_key, kind, value, label, ordinal)
					VALUES (?, ?, ?, ?, ?, ?)
				`, ek, ak, string(kind), o.Value, o.Label, j); err != nil {
					return stats, fmt.Errorf("import option %s.%s=%d: %w", e.LogicalName, a.LogicalName, o.Value, err)
				}
				stats.Options++
			}
		}

		rels, err := src.ListRelationships(ctx, e.LogicalName)
		if err != nil && !IsNotFound(err) {
			return stats, fmt.Errorf("import: %w", err)
		}
		for i, r := range rels {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO relationships
				(entity_key, schema_name, kind, referenced_entity, referenced_attribute,
				 referencing_entity, referencing_attribute, intersect_entity, ordinal)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, ek, r.SchemaName, string(r.Kind), r.ReferencedEntity, r.ReferencedAttribute,
				r.ReferencingEntity, r.ReferencingAttribute, r.IntersectEntity, i); err != nil {
				return stats, fmt.Errorf("import relationship %q: %w", r.SchemaName, err)
			}
			stats.Relationships++
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshot_info (id, source, imported_at) VALUES (1, ?, ?)
	`, source, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return stats, fmt.Errorf("import: record source: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("import: commit: %w", err)
	}
	return stats, nil
}

// Source returns where the snapshot was imported from, or "" if it is empty.
func (s *Snapshot) Source(ctx context.Context) (string, error) {
	var source string
	err := s.db.QueryRowContext(ctx, "SELECT source FROM snapshot_info WHERE id = 1").Scan(&source)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("snapshot source: %w", err)
	}
	return source, nil
}

// ListEntities implements Provider.
func (s *Snapshot) ListEntities(ctx context.Context) ([]Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT logical_name, display_name, entity_set_name, primary_id, primary_name
		FROM entities
		ORDER BY entity_key ASC
	`)
	if err != nil {
		return nil, &LookupError{Op: "entities", Err: err}
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.LogicalName, &e.DisplayName, &e.EntitySetName, &e.PrimaryIDAttribute, &e.PrimaryNameAttribute); err != nil {
			return nil, &LookupError{Op: "entities", Err: err}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &LookupError{Op: "entities", Err: err}
	}
	return out, nil
}

func (s *Snapshot) entityExists(ctx context.Context, entityKey string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entities WHERE entity_key = ?", entityKey).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListAttributes implements Provider.
func (s *Snapshot) ListAttributes(ctx context.Context, entityName string) ([]Attribute, error) {
	ek := Key(entityName)
	ok, err := s.entityExists(ctx, ek)
	if err != nil {
		return nil, &LookupError{Op: "attributes", Key: entityName, Err: err}
	}
	if !ok {
		return nil, &LookupError{Op: "attributes", Key: entityName, Err: ErrNotFound}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT logical_name, display_name, type, targets
		FROM attributes
		WHERE entity_key = ?
		ORDER BY ordinal ASC
	`, ek)
	if err != nil {
		return nil, &LookupError{Op: "attributes", Key: entityName, Err: err}
	}
	defer rows.Close()

	out := []Attribute{}
	for rows.Next() {
		var a Attribute
		var typ, targets string
		if err := rows.Scan(&a.LogicalName, &a.DisplayName, &typ, &targets); err != nil {
			return nil, &LookupError{Op: "attributes", Key: entityName, Err: err}
		}
		a.Type = AttributeType(typ)
		if targets != "" {
			a.Targets = strings.Split(targets, ",")
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &LookupError{Op: "attributes", Key: entityName, Err: err}
	}
	return out, nil
}

// ListOptionSetValues implements Provider.
func (s *Snapshot) ListOptionSetValues(ctx context.Context, entityName, attributeName string, kind OptionSetKind) ([]Option, error) {
	key := entityName + "." + attributeName
	ek, ak := Key(entityName), Key(attributeName)

	var n int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM attributes WHERE entity_key = ? AND attribute_key = ?", ek, ak,
	).Scan(&n); err != nil {
		return nil, &LookupError{Op: "options", Key: key, Err: err}
	}
	if n == 0 {
		return nil, &LookupError{Op: "options", Key: key, Err: ErrNotFound}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT value, label
		FROM options
		WHERE entity_key = ? AND attribute_key = ? AND (? = '' OR kind = ?)
		ORDER BY ordinal ASC
	`, ek, ak, string(kind), string(kind))
	if err != nil {
		return nil, &LookupError{Op: "options", Key: key, Err: err}
	}
	defer rows.Close()

	out := []Option{}
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.Value, &o.Label); err != nil {
			return nil, &LookupError{Op: "options", Key: key, Err: err}
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, &LookupError{Op: "options", Key: key, Err: err}
	}
	return out, nil
}

// ListRelationships implements Provider.
func (s *Snapshot) ListRelationships(ctx context.Context, entityName string) ([]Relationship, error) {
	ek := Key(entityName)
	ok, err := s.entityExists(ctx, ek)
	if err != nil {
		return nil, &LookupError{Op: "relationships", Key: entityName, Err: err}
	}
	if !ok {
		return nil, &LookupError{Op: "relationships", Key: entityName, Err: ErrNotFound}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT schema_name, kind, referenced_entity, referenced_attribute,
		       referencing_entity, referencing_attribute, intersect_entity
		FROM relationships
		WHERE entity_key = ?
		ORDER BY ordinal ASC
	`, ek)
	if err != nil {
		return nil, &LookupError{Op: "relationships", Key: entityName, Err: err}
	}
	defer rows.Close()

	out := []Relationship{}
	for rows.Next() {
		var r Relationship
		var kind string
		if err := rows.Scan(&r.SchemaName, &kind, &r.ReferencedEntity, &r.ReferencedAttribute,
			&r.ReferencingEntity, &r.ReferencingAttribute, &r.IntersectEntity); err != nil {
			return nil, &LookupError{Op: "relationships", Key: entityName, Err: err}
		}
		r.Kind = RelationshipKind(kind)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &LookupError{Op: "relationships", Key: entityName, Err: err}
	}
	return out, nil
}
