// Package snapshot persists collection state to a local SQLite database so a
// CLI session can pick up where the previous one stopped.
package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/rim/internal/paths"
	"github.com/mesh-intelligence/rim/pkg/record"
	"github.com/mesh-intelligence/rim/pkg/service"
	"github.com/mesh-intelligence/rim/pkg/types"
)

// Store errors.
var (
	ErrAlreadyAttached = errors.New("snapshot store already attached")
	ErrDetached        = errors.New("snapshot store is detached")
)

// Info describes the last snapshot of one collection.
type Info struct {
	Collection string
	SnapshotID string
	Records    int
	SavedAt    time.Time
}

// Store reads and writes snapshots. The zero value is not usable; call
// NewStore and Attach.
type Store struct {
	mu       sync.RWMutex
	attached bool
	db       *sql.DB
	path     string
	log      *zap.SugaredLogger
}

// NewStore creates a detached store. A nil logger disables logging.
func NewStore(log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{log: log}
}

// Attach opens (creating if needed) the snapshot database in dataDir.
func (s *Store) Attach(dataDir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return ErrAlreadyAttached
	}
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	path := paths.SnapshotFile(dataDir)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open snapshot db: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("create schema: %w", err)
		}
	}

	s.db = db
	s.path = path
	s.attached = true
	s.log.Debugw("Snapshot store attached", "path", path)
	return nil
}

// Detach closes the database. Detach is idempotent.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.attached = false
	return err
}

// Path returns the database file path, or "" when detached.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// Save replaces the stored snapshot of collection with the records in st.
// In-flight flags are not persisted.
func (s *Store) Save(ctx context.Context, collection string, st service.State) (Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return Info{}, ErrDetached
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Info{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, collection); err != nil {
		return Info{}, fmt.Errorf("clear %s: %w", collection, err)
	}
	records := st.Records()
	for _, r := range records {
		doc, err := json.Marshal(r.Data())
		if err != nil {
			return Info{}, fmt.Errorf("encode %s: %w", r, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO records (collection, record_id, document, dirty, is_new) VALUES (?, ?, ?, ?, ?)`,
			collection, r.Identity(), string(doc), boolInt(r.IsDirty()), boolInt(r.IsNew()))
		if err != nil {
			return Info{}, fmt.Errorf("insert %s: %w", r, err)
		}
	}

	info := Info{
		Collection: collection,
		SnapshotID: newSnapshotID(),
		Records:    len(records),
		SavedAt:    time.Now().UTC().Truncate(time.Second),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (collection, snapshot_id, record_count, saved_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(collection) DO UPDATE SET snapshot_id = excluded.snapshot_id,
		     record_count = excluded.record_count, saved_at = excluded.saved_at`,
		info.Collection, info.SnapshotID, info.Records, info.SavedAt.Format(time.RFC3339))
	if err != nil {
		return Info{}, fmt.Errorf("record snapshot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Info{}, fmt.Errorf("commit: %w", err)
	}
	s.log.Debugw("Snapshot saved", "collection", collection, "records", info.Records)
	return info, nil
}

// Load returns the stored records of collection as records of kind, ordered
// by identity.
func (s *Store) Load(ctx context.Context, collection string, kind *record.Kind) ([]*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return nil, ErrDetached
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT document, dirty, is_new FROM records WHERE collection = ? ORDER BY record_id`, collection)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []*record.Record
	for rows.Next() {
		var (
			raw          string
			dirty, isNew bool
		)
		if err := rows.Scan(&raw, &dirty, &isNew); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		var doc types.Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", collection, err)
		}
		out = append(out, kind.NewWithFlags(doc, dirty, false, isNew))
	}
	return out, rows.Err()
}

// Restore loads the snapshot of the service's collection into svc, replacing
// its records. The service's pointers and search slot start empty.
func (s *Store) Restore(ctx context.Context, svc *service.Service) (int, error) {
	rs, err := s.Load(ctx, svc.Name(), svc.Kind())
	if err != nil {
		return 0, err
	}
	st := svc.InitialState()
	for _, r := range rs {
		st = st.Set(r)
	}
	svc.SetState(st)
	return len(rs), nil
}

// Collections lists the stored snapshots ordered by collection name.
func (s *Store) Collections(ctx context.Context) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return nil, ErrDetached
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT collection, snapshot_id, record_count, saved_at FROM snapshots ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var (
			info    Info
			savedAt string
		)
		if err := rows.Scan(&info.Collection, &info.SnapshotID, &info.Records, &savedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if info.SavedAt, err = time.Parse(time.RFC3339, savedAt); err != nil {
			return nil, fmt.Errorf("parse saved_at: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Clear removes the snapshot of collection.
func (s *Store) Clear(ctx context.Context, collection string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return ErrDetached
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("clear %s: %w", collection, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("clear %s: %w", collection, err)
	}
	return nil
}

func newSnapshotID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
