// Package postgres provides a PostgreSQL-backed snapshot store. Each entity
// is one row; a snapshot save replaces every row in a single transaction.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/fruitsalade/memfs/internal/logging"
	"github.com/fruitsalade/memfs/internal/metrics"
	"github.com/fruitsalade/memfs/pkg/models"
	"github.com/fruitsalade/memfs/pkg/namespace"
	"github.com/fruitsalade/memfs/pkg/snapshot"
	"github.com/fruitsalade/memfs/pkg/tree"
)

const schema = `
CREATE TABLE IF NOT EXISTS memfs_entities (
	id         TEXT PRIMARY KEY,
	parent_id  TEXT REFERENCES memfs_entities(id) ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED,
	name       TEXT NOT NULL,
	kind       TEXT NOT NULL CHECK (kind IN ('drive', 'folder', 'textfile', 'zipfile')),
	position   INTEGER NOT NULL,
	size       BIGINT NOT NULL DEFAULT 0,
	content    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS memfs_entities_parent_idx ON memfs_entities (parent_id, position);

CREATE TABLE IF NOT EXISTS memfs_snapshot (
	singleton BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
	version   INTEGER NOT NULL,
	saved_at  TIMESTAMPTZ NOT NULL
);
`

var _ namespace.Store = (*Store)(nil)

// Store is a PostgreSQL snapshot store.
type Store struct {
	db *sql.DB
}

// EntityRow maps to the memfs_entities table.
type EntityRow struct {
	ID        string
	ParentID  sql.NullString
	Name      string
	Kind      string
	Position  int
	Size      int64
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New opens and pings the database at databaseURL.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return nil, multierr.Append(fmt.Errorf("ping database: %w", err), db.Close())
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// String describes the store for logs.
func (s *Store) String() string { return "postgres:memfs_entities" }

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logging.Info("postgres schema ready")
	return nil
}

// Save replaces the stored snapshot with doc.
func (s *Store) Save(ctx context.Context, doc *snapshot.Document) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("save_snapshot", time.Since(start)) }()

	rows := Flatten(doc.Drives)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM memfs_entities`); err != nil {
		return fmt.Errorf("clear entities: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("memfs_entities",
		"id", "parent_id", "name", "kind", "position", "size", "content", "created_at", "updated_at"))
	if err != nil {
		return fmt.Errorf("prepare copy: %w", err)
	}
	for _, r := range rows {
		if _, err = stmt.ExecContext(ctx, r.ID, r.ParentID, r.Name, r.Kind, r.Position,
			r.Size, r.Content, r.CreatedAt, r.UpdatedAt); err != nil {
			return multierr.Append(fmt.Errorf("copy row %s: %w", r.ID, err), stmt.Close())
		}
	}
	if _, err = stmt.ExecContext(ctx); err != nil {
		return multierr.Append(fmt.Errorf("flush copy: %w", err), stmt.Close())
	}
	if err = stmt.Close(); err != nil {
		return fmt.Errorf("close copy: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO memfs_snapshot (singleton, version, saved_at) VALUES (TRUE, $1, $2)
		 ON CONFLICT (singleton) DO UPDATE SET version = EXCLUDED.version, saved_at = EXCLUDED.saved_at`,
		doc.Version, doc.SavedAt); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	logging.Debug("snapshot saved to postgres", zap.Int("rows", len(rows)))
	return nil
}

// Load reads the stored snapshot. It returns snapshot.ErrNoSnapshot when
// nothing has been saved.
func (s *Store) Load(ctx context.Context) (*snapshot.Document, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("load_snapshot", time.Since(start)) }()

	doc := &snapshot.Document{}
	err := s.db.QueryRowContext(ctx,
		`SELECT version, saved_at FROM memfs_snapshot WHERE singleton`).
		Scan(&doc.Version, &doc.SavedAt)
	if err == sql.ErrNoRows {
		return nil, snapshot.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot header: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, parent_id, name, kind, position, size, content, created_at, updated_at
		 FROM memfs_entities ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var all []EntityRow
	for rows.Next() {
		var r EntityRow
		if err := rows.Scan(&r.ID, &r.ParentID, &r.Name, &r.Kind, &r.Position,
			&r.Size, &r.Content, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		all = append(all, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	drives, err := BuildForest(all)
	if err != nil {
		return nil, err
	}
	doc.Drives = drives
	return doc, nil
}

// Flatten turns exported drives into rows. Position is the index among
// siblings; drives are positioned in registry order.
func Flatten(drives []*models.EntityNode) []EntityRow {
	var rows []EntityRow
	var visit func(n *models.EntityNode, parentID string, pos int)
	visit = func(n *models.EntityNode, parentID string, pos int) {
		rows = append(rows, EntityRow{
			ID:        n.ID,
			ParentID:  sql.NullString{String: parentID, Valid: parentID != ""},
			Name:      n.Name,
			Kind:      n.Kind,
			Position:  pos,
			Size:      n.Size,
			Content:   n.Content,
			CreatedAt: n.CreatedAt,
			UpdatedAt: n.UpdatedAt,
		})
		for i, c := range n.Children {
			if c != nil {
				visit(c, n.ID, i)
			}
		}
	}
	for i, d := range drives {
		if d != nil {
			visit(d, "", i)
		}
	}
	return rows
}

// BuildForest rebuilds exported drives from rows sorted by position.
// Rows whose parent is missing are reported as an error.
func BuildForest(rows []EntityRow) ([]*models.EntityNode, error) {
	nodes := make(map[string]*models.EntityNode, len(rows))
	for _, r := range rows {
		nodes[r.ID] = &models.EntityNode{
			ID:        r.ID,
			Name:      r.Name,
			Kind:      r.Kind,
			Size:      r.Size,
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		}
	}

	var drives []*models.EntityNode
	for _, r := range rows {
		node := nodes[r.ID]
		if !r.ParentID.Valid {
			drives = append(drives, node)
			continue
		}
		parent, ok := nodes[r.ParentID.String]
		if !ok {
			return nil, fmt.Errorf("entity %s (%s): parent %s not found", r.ID, r.Name, r.ParentID.String)
		}
		parent.Children = append(parent.Children, node)
	}

	for _, d := range drives {
		fillPaths(d, d.Name)
	}
	return drives, nil
}

func fillPaths(n *models.EntityNode, path string) {
	n.Path = path
	for _, c := range n.Children {
		fillPaths(c, tree.BuildChildPath(path, c.Name))
	}
}
