package sink

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Faultbox/geovox/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Dataset kinds.
const (
	kindTriangles = "triangles"
	kindSegments  = "segments"
	kindPoints    = "points"
)

// SQLite writes every run into one database file. Each Write call is a
// single transaction.
type SQLite struct {
	db    *sql.DB
	runID string

	mu       sync.Mutex
	closed   bool
	datasets map[string]int64 // kind/name -> datasets.id
}

// OpenSQLite opens (or creates) the database at path, brings its schema up
// to date and registers runID.
func OpenSQLite(path, runID string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc sqlite allows one writer; a single connection avoids
	// SQLITE_BUSY between our own transactions.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(`INSERT OR IGNORE INTO runs (id) VALUES (?)`, runID); err != nil {
		db.Close()
		return nil, fmt.Errorf("register run: %w", err)
	}

	return &SQLite{db: db, runID: runID, datasets: make(map[string]int64)}, nil
}

// migrateUp runs all pending migrations from the embedded set.
func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{log: logger.Named("migrate").Sugar()}

	// m is not closed: that would close db as well.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// migrateLogger implements migrate.Logger on top of zap.
type migrateLogger struct {
	log *zap.SugaredLogger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.log.Debugf(format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// DB exposes the underlying database for queries.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

func (s *SQLite) WriteTriangles(ctx context.Context, dataset string, tris []Triangle) error {
	return s.write(ctx, kindTriangles, dataset,
		`INSERT INTO triangles (dataset_id, idx, ax, ay, az, bx, by, bz, cx, cy, cz, attributes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(tris), func(stmt *sql.Stmt, id int64, n int) error {
			t := tris[n]
			attrs, err := attributesJSON(t.Attributes)
			if err != nil {
				return err
			}
			_, err = stmt.ExecContext(ctx, id, t.Index,
				t.A.X, t.A.Y, t.A.Z, t.B.X, t.B.Y, t.B.Z, t.C.X, t.C.Y, t.C.Z, attrs)
			return err
		})
}

func (s *SQLite) WriteSegments(ctx context.Context, dataset string, segs []Segment) error {
	return s.write(ctx, kindSegments, dataset,
		`INSERT INTO segments (dataset_id, name, label, x1, y1, z1, x2, y2, z2, attributes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(segs), func(stmt *sql.Stmt, id int64, n int) error {
			g := segs[n]
			attrs, err := attributesJSON(g.Attributes)
			if err != nil {
				return err
			}
			_, err = stmt.ExecContext(ctx, id, g.Name, g.Label,
				g.From.X, g.From.Y, g.From.Z, g.To.X, g.To.Y, g.To.Z, attrs)
			return err
		})
}

func (s *SQLite) WritePoints(ctx context.Context, dataset string, pts []Point) error {
	return s.write(ctx, kindPoints, dataset,
		`INSERT INTO points (dataset_id, x, y, z, i, j, k, label, type)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(pts), func(stmt *sql.Stmt, id int64, n int) error {
			p := pts[n]
			_, err := stmt.ExecContext(ctx, id, p.X, p.Y, p.Z, p.I, p.J, p.K, p.Label, p.Type)
			return err
		})
}

// attributesJSON encodes attrs as a JSON object, or NULL when empty.
func attributesJSON(attrs map[string]string) (any, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("encode attributes: %w", err)
	}
	return string(data), nil
}

// write inserts n rows into a dataset inside one transaction.
func (s *SQLite) write(ctx context.Context, kind, dataset, query string, n int,
	row func(stmt *sql.Stmt, datasetID int64, n int) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	id, err := s.datasetID(ctx, tx, kind, dataset)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare %s: %w", kind, err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if err := row(stmt, id, i); err != nil {
			return fmt.Errorf("insert %s %s[%d]: %w", kind, dataset, i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s %s: %w", kind, dataset, err)
	}
	s.datasets[kind+"/"+dataset] = id
	return nil
}

// datasetID returns the id of (run, kind, name), creating the row on first
// use. Caller holds s.mu and caches the id once tx commits.
func (s *SQLite) datasetID(ctx context.Context, tx *sql.Tx, kind, name string) (int64, error) {
	if id, ok := s.datasets[kind+"/"+name]; ok {
		return id, nil
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO datasets (run_id, name, kind) VALUES (?, ?, ?)`,
		s.runID, name, kind); err != nil {
		return 0, fmt.Errorf("create dataset %s/%s: %w", kind, name, err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM datasets WHERE run_id = ? AND name = ? AND kind = ?`,
		s.runID, name, kind).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup dataset %s/%s: %w", kind, name, err)
	}
	return id, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
