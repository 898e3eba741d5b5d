// Package sqlite provides a SQLite implementation of the AnnotationStore interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/infrastructure/config"
)

// generateUUID returns a new UUID string.
func generateUUID() string {
	return uuid.New().String()
}

// timeNow returns the current time (can be mocked in tests).
var timeNow = func() time.Time { return time.Now().UTC() }

// Repository implements ports.AnnotationStore using SQLite.
type Repository struct {
	db   *sql.DB
	path string
}

// NewRepository creates a new SQLite repository.
func NewRepository(cfg config.SQLiteConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// One connection: pragmas are per connection and ":memory:" databases
	// are private to the connection that opened them.
	db.SetMaxOpenConns(1)

	pragmas := []struct{ stmt, what string }{
		{"PRAGMA foreign_keys = ON", "enabling foreign keys"},
		{"PRAGMA journal_mode = WAL", "enabling WAL mode"},
		{"PRAGMA busy_timeout = 5000", "setting busy timeout"},
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p.stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p.what, err)
		}
	}

	return &Repository{
		db:   db,
		path: cfg.Path,
	}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS clinical_annotations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		original_text TEXT NOT NULL,
		mode TEXT NOT NULL,
		model TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_annotations_created ON clinical_annotations(created_at);

	CREATE TABLE IF NOT EXISTS extracted_entities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		annotation_id TEXT NOT NULL REFERENCES clinical_annotations(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		label TEXT NOT NULL,
		start_offset INTEGER NOT NULL,
		end_offset INTEGER NOT NULL,
		confidence REAL NOT NULL,
		UNIQUE(annotation_id, position)
	);
	CREATE INDEX IF NOT EXISTS idx_entities_annotation ON extracted_entities(annotation_id);

	CREATE TABLE IF NOT EXISTS snomed_mappings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		annotation_id TEXT NOT NULL REFERENCES clinical_annotations(id) ON DELETE CASCADE,
		entity_index INTEGER NOT NULL,
		entity_text TEXT NOT NULL,
		entity_label TEXT NOT NULL,
		code TEXT NOT NULL,
		display TEXT NOT NULL,
		system TEXT NOT NULL,
		synonyms TEXT,
		hierarchy TEXT,
		similarity_score REAL NOT NULL,
		embedding_distance REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snomed_annotation ON snomed_mappings(annotation_id);
	CREATE INDEX IF NOT EXISTS idx_snomed_code ON snomed_mappings(code);

	CREATE TABLE IF NOT EXISTS hl7_mappings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		annotation_id TEXT NOT NULL REFERENCES clinical_annotations(id) ON DELETE CASCADE,
		entity_index INTEGER NOT NULL,
		entity_text TEXT NOT NULL,
		entity_label TEXT NOT NULL,
		code TEXT NOT NULL,
		display TEXT NOT NULL,
		system TEXT NOT NULL,
		system_name TEXT,
		version TEXT,
		resource_type TEXT,
		synonyms TEXT,
		hierarchy TEXT,
		similarity_score REAL NOT NULL,
		embedding_distance REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_hl7_annotation ON hl7_mappings(annotation_id);

	-- Audit log (tracks all actions, survives deletes)
	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		annotation_id TEXT,
		details TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_audit_log_annotation ON audit_log(annotation_id);
	CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);
	`

	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	// Databases created before HL7 concept lists were stored.
	for _, column := range []string{"synonyms", "hierarchy"} {
		if err := r.ensureColumn(ctx, "hl7_mappings", column, "TEXT"); err != nil {
			return err
		}
	}
	return nil
}

// ensureColumn adds column to table when it is missing.
func (r *Repository) ensureColumn(ctx context.Context, table, column, kind string) error {
	rows, err := r.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scanning columns of %s: %w", table, err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading columns of %s: %w", table, err)
	}
	rows.Close()

	if _, err := r.db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, kind)); err != nil {
		return fmt.Errorf("adding column %s.%s: %w", table, column, err)
	}
	return nil
}

// SaveAnnotation stores an annotation with its entities and mappings in a
// single transaction. Saving an existing ID replaces its children.
func (r *Repository) SaveAnnotation(ctx context.Context, a *entities.Annotation) error {
	now := timeNow()
	if a.ID == "" {
		a.ID = generateUUID()
	}
	if a.Title == "" {
		a.Title = entities.DefaultAnnotationTitle
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO clinical_annotations (id, title, original_text, mode, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			original_text = excluded.original_text,
			mode = excluded.mode,
			model = excluded.model,
			updated_at = excluded.updated_at
	`, a.ID, a.Title, a.OriginalText, string(a.Mode), nullString(a.Model), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving annotation: %w", err)
	}

	if err := deleteChildren(ctx, tx, a.ID); err != nil {
		return err
	}
	if err := insertEntities(ctx, tx, a.ID, a.Entities); err != nil {
		return err
	}
	if err := insertSNOMEDMappings(ctx, tx, a.ID, a.SNOMEDMappings); err != nil {
		return err
	}
	if err := insertHL7Mappings(ctx, tx, a.ID, a.HL7Mappings); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing annotation: %w", err)
	}
	return nil
}

func deleteChildren(ctx context.Context, tx *sql.Tx, id string) error {
	for _, table := range []string{"extracted_entities", "snomed_mappings", "hl7_mappings"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE annotation_id = ?", id); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

func insertEntities(ctx context.Context, tx *sql.Tx, id string, ents []entities.Entity) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO extracted_entities (annotation_id, position, text, label, start_offset, end_offset, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing entity insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range ents {
		if _, err := stmt.ExecContext(ctx, id, i, e.Text, string(e.Label), e.Start, e.End, e.Confidence); err != nil {
			return fmt.Errorf("saving entity %d: %w", i, err)
		}
	}
	return nil
}

func insertSNOMEDMappings(ctx context.Context, tx *sql.Tx, id string, mappings []entities.Mapping) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snomed_mappings (annotation_id, entity_index, entity_text, entity_label, code, display, system,
			synonyms, hierarchy, similarity_score, embedding_distance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing SNOMED mapping insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range mappings {
		synonyms, err := marshalList(m.Concept.Synonyms)
		if err != nil {
			return err
		}
		hierarchy, err := marshalList(m.Concept.Hierarchy)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, id, m.EntityIndex, m.EntityText, string(m.EntityLabel),
			m.Concept.Code, m.Concept.Display, m.Concept.System, synonyms, hierarchy,
			m.SimilarityScore, m.EmbeddingDistance)
		if err != nil {
			return fmt.Errorf("saving SNOMED mapping for entity %d: %w", m.EntityIndex, err)
		}
	}
	return nil
}

// insertHL7Mappings skips mappings without code, system or display.
func insertHL7Mappings(ctx context.Context, tx *sql.Tx, id string, mappings []entities.Mapping) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO hl7_mappings (annotation_id, entity_index, entity_text, entity_label, code, display, system,
			system_name, version, resource_type, synonyms, hierarchy, similarity_score, embedding_distance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing HL7 mapping insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range mappings {
		c := m.Concept
		if c.Code == "" || c.System == "" || c.Display == "" {
			continue
		}
		synonyms, err := marshalList(c.Synonyms)
		if err != nil {
			return err
		}
		hierarchy, err := marshalList(c.Hierarchy)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, id, m.EntityIndex, m.EntityText, string(m.EntityLabel),
			c.Code, c.Display, c.System, nullString(c.SystemName), nullString(c.Version), nullString(c.ResourceType),
			synonyms, hierarchy, m.SimilarityScore, m.EmbeddingDistance)
		if err != nil {
			return fmt.Errorf("saving HL7 mapping for entity %d: %w", m.EntityIndex, err)
		}
	}
	return nil
}

// FindAnnotation loads an annotation by ID. Returns nil when not found.
func (r *Repository) FindAnnotation(ctx context.Context, id string) (*entities.Annotation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, original_text, mode, model, created_at, updated_at
		FROM clinical_annotations
		WHERE id = ?
	`, id)

	a, err := scanAnnotation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if a.Entities, err = r.findEntities(ctx, id); err != nil {
		return nil, err
	}
	if a.SNOMEDMappings, err = r.findSNOMEDMappings(ctx, id); err != nil {
		return nil, err
	}
	if a.HL7Mappings, err = r.findHL7Mappings(ctx, id); err != nil {
		return nil, err
	}
	return a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnnotation(row rowScanner) (*entities.Annotation, error) {
	var a entities.Annotation
	var mode string
	var model sql.NullString
	err := row.Scan(&a.ID, &a.Title, &a.OriginalText, &mode, &model, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning annotation: %w", err)
	}
	a.Mode = entities.RecognitionMode(mode)
	a.Model = model.String
	return &a, nil
}

func (r *Repository) findEntities(ctx context.Context, id string) ([]entities.Entity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT text, label, start_offset, end_offset, confidence
		FROM extracted_entities
		WHERE annotation_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	ents := []entities.Entity{}
	for rows.Next() {
		var e entities.Entity
		var label string
		if err := rows.Scan(&e.Text, &label, &e.Start, &e.End, &e.Confidence); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		e.Label = entities.Category(label)
		ents = append(ents, e)
	}
	return ents, rows.Err()
}

func (r *Repository) findSNOMEDMappings(ctx context.Context, id string) ([]entities.Mapping, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT entity_index, entity_text, entity_label, code, display, system, synonyms, hierarchy,
			similarity_score, embedding_distance
		FROM snomed_mappings
		WHERE annotation_id = ?
		ORDER BY entity_index
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying SNOMED mappings: %w", err)
	}
	defer rows.Close()

	mappings := []entities.Mapping{}
	for rows.Next() {
		var m entities.Mapping
		var label string
		var synonyms, hierarchy sql.NullString
		if err := rows.Scan(&m.EntityIndex, &m.EntityText, &label, &m.Concept.Code, &m.Concept.Display,
			&m.Concept.System, &synonyms, &hierarchy, &m.SimilarityScore, &m.EmbeddingDistance); err != nil {
			return nil, fmt.Errorf("scanning SNOMED mapping: %w", err)
		}
		m.EntityLabel = entities.Category(label)
		if m.Concept.Synonyms, err = unmarshalList(synonyms); err != nil {
			return nil, err
		}
		if m.Concept.Hierarchy, err = unmarshalList(hierarchy); err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

func (r *Repository) findHL7Mappings(ctx context.Context, id string) ([]entities.Mapping, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT entity_index, entity_text, entity_label, code, display, system, system_name, version,
			resource_type, synonyms, hierarchy, similarity_score, embedding_distance
		FROM hl7_mappings
		WHERE annotation_id = ?
		ORDER BY entity_index
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying HL7 mappings: %w", err)
	}
	defer rows.Close()

	mappings := []entities.Mapping{}
	for rows.Next() {
		var m entities.Mapping
		var label string
		var systemName, version, resourceType, synonyms, hierarchy sql.NullString
		if err := rows.Scan(&m.EntityIndex, &m.EntityText, &label, &m.Concept.Code, &m.Concept.Display,
			&m.Concept.System, &systemName, &version, &resourceType, &synonyms, &hierarchy,
			&m.SimilarityScore, &m.EmbeddingDistance); err != nil {
			return nil, fmt.Errorf("scanning HL7 mapping: %w", err)
		}
		if m.Concept.Synonyms, err = unmarshalList(synonyms); err != nil {
			return nil, err
		}
		if m.Concept.Hierarchy, err = unmarshalList(hierarchy); err != nil {
			return nil, err
		}
		m.EntityLabel = entities.Category(label)
		m.Concept.SystemName = systemName.String
		m.Concept.Version = version.String
		m.Concept.ResourceType = resourceType.String
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// ListAnnotations lists annotations newest first, without entities.
func (r *Repository) ListAnnotations(ctx context.Context, limit, offset int) ([]entities.Annotation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, original_text, mode, model, created_at, updated_at
		FROM clinical_annotations
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing annotations: %w", err)
	}
	defer rows.Close()

	list := make([]entities.Annotation, 0, limit)
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// CountAnnotations returns the number of stored annotations.
func (r *Repository) CountAnnotations(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clinical_annotations`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting annotations: %w", err)
	}
	return count, nil
}

// DeleteAnnotation removes an annotation and everything attached to it.
func (r *Repository) DeleteAnnotation(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := deleteChildren(ctx, tx, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM clinical_annotations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting annotation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	return nil
}

// LogAction logs an action to the audit log.
func (r *Repository) LogAction(ctx context.Context, action string, annotationID string, details map[string]any) error {
	var detailsJSON sql.NullString
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshaling details: %w", err)
		}
		detailsJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := `INSERT INTO audit_log (action, annotation_id, details, created_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, action, nullString(annotationID), detailsJSON, timeNow())
	if err != nil {
		return fmt.Errorf("logging action: %w", err)
	}
	return nil
}

// FindAuditLog finds audit log entries for an annotation, oldest first.
func (r *Repository) FindAuditLog(ctx context.Context, annotationID string) ([]entities.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, action, annotation_id, details, created_at
		FROM audit_log
		WHERE annotation_id = ?
		ORDER BY id
	`, annotationID)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var entries []entities.AuditEntry
	for rows.Next() {
		var entry entities.AuditEntry
		var annID, details sql.NullString

		if err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&annID,
			&details,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		entry.AnnotationID = annID.String

		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &entry.Details); err != nil {
				return nil, fmt.Errorf("unmarshaling details: %w", err)
			}
		}

		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func marshalList(items []string) (sql.NullString, error) {
	if len(items) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshaling list: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalList(s sql.NullString) ([]string, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		return nil, fmt.Errorf("unmarshaling list: %w", err)
	}
	return out, nil
}
