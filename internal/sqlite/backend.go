package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/smartgrid/internal/notify"
	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// dbFile is the SQLite database inside the data directory. It is rebuilt
// from the JSONL files on every Attach.
const dbFile = "smartgrid.db"

// Backend implements types.Repository using SQLite as the query engine and
// JSONL files as the source of truth.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	dataDir  string
	db       *sql.DB

	notifier    notify.Notifier
	ownNotifier bool
	log         *zap.Logger
	now         func() time.Time
}

// Option configures a Backend.
type Option func(*Backend)

// WithNotifier makes the backend publish and subscribe through n instead of
// building one from the config. The caller keeps ownership of n.
func WithNotifier(n notify.Notifier) Option {
	return func(b *Backend) { b.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Backend) { b.log = l }
}

// WithClock overrides time.Now for timestamps the backend stamps itself.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{log: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach initializes the backend with the given configuration. It creates
// DataDir if needed, builds a fresh SQLite schema, loads the JSONL files and
// seeds the default layout on first run.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	config = config.WithDefaults()

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	// The database is a cache of the JSONL files; start from a fresh schema.
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)

	for _, ddl := range append(append([]string{}, schemaDDL...), indexDDL...) {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	if err := initJSONLFiles(dataDir); err != nil {
		db.Close()
		return err
	}
	if err := loadAllJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}
	if err := seedDefaultLayout(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("seed layout: %w", err)
	}

	if b.notifier == nil {
		n, err := notify.New(config.Notify, dataDir, b.log)
		if err != nil {
			db.Close()
			return err
		}
		b.notifier = n
		b.ownNotifier = true
	}

	b.db = db
	b.config = config
	b.dataDir = dataDir
	b.attached = true
	b.log.Debug("backend attached", zap.String("data_dir", dataDir))
	return nil
}

// Detach releases all resources held by the backend. After Detach, all
// operations return ErrDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false

	if b.ownNotifier && b.notifier != nil {
		if err := b.notifier.Close(); err != nil {
			b.log.Warn("closing notifier", zap.Error(err))
		}
		b.notifier = nil
		b.ownNotifier = false
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	return nil
}

// Config returns the configuration the backend was attached with.
func (b *Backend) Config() types.Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config
}

// generateUUID generates a new UUID v7 for entity IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// update runs fn in a transaction and rewrites the JSONL files of tables
// from inside it before committing, so the database and the files move to
// the new state together or not at all. The caller must hold b.mu. Errors
// from fn are returned unchanged; failures of the transaction or the files
// are TransportErrors. A change signal for id is published on success;
// publishing is best effort.
func (b *Backend) update(ctx context.Context, op, id string, tables []string, fn func(*sql.Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Transport(op, fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}

	files, err := stageTables(ctx, tx, b.dataDir, tables...)
	if err != nil {
		return types.Transport(op, err)
	}
	if err := files.swap(); err != nil {
		return types.Transport(op, err)
	}
	if err := tx.Commit(); err != nil {
		files.restore()
		return types.Transport(op, fmt.Errorf("committing transaction: %w", err))
	}
	files.discard()

	c := types.Change{Table: tables[0], ID: id, At: b.now()}
	if err := b.notifier.Publish(ctx, c); err != nil {
		b.log.Warn("publishing change", zap.String("table", c.Table), zap.Error(err))
	}
	return nil
}

// Subscribe returns change signals from the configured notifier.
func (b *Backend) Subscribe(ctx context.Context) (types.Subscription, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrDetached
	}
	sub, err := b.notifier.Subscribe(ctx)
	if err != nil {
		return nil, types.Transport("subscribe", err)
	}
	return sub, nil
}
