package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"time"

	_ "modernc.org/sqlite"

	"framekit/internal/config"
	"framekit/internal/resources"
)

// ErrUnknownKind is returned for records whose kind has no decoder.
var ErrUnknownKind = errors.New("unknown resource kind")

// Store is the SQLite-backed resource catalog.
type Store struct {
	db   *sql.DB
	path string
}

// Record is one persisted resource.
type Record struct {
	ID        resources.ID
	Kind      string
	Name      string
	Colour    color.NRGBA
	Path      string
	Online    bool
	UpdatedAt time.Time
}

type payload struct {
	Colour string `json:"colour,omitempty"`
	Path   string `json:"path,omitempty"`
}

// Open connects to the catalog at cfg.Paths.LibraryDB and applies
// migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.Paths.LibraryDB)
}

// OpenPath connects to the catalog at path.
func OpenPath(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	s := &Store{db: db, path: path}
	if err := s.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put inserts or replaces the record for item.
func (s *Store) Put(ctx context.Context, item resources.Item) error {
	return s.put(ctx, s.db, item, time.Now().UTC())
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) put(ctx context.Context, db execer, item resources.Item, now time.Time) error {
	body, err := encodePayload(item)
	if err != nil {
		return err
	}
	timestamp := now.Format(time.RFC3339Nano)
	_, err = db.ExecContext(ctx,
		`INSERT INTO resources (id, kind, name, payload_json, created_at, updated_at, last_online)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
            kind = excluded.kind,
            name = excluded.name,
            payload_json = excluded.payload_json,
            updated_at = excluded.updated_at,
            last_online = excluded.last_online`,
		int64(item.ID()), item.Kind(), item.Name(), body, timestamp, timestamp, boolToInt(item.Online()),
	)
	if err != nil {
		return fmt.Errorf("put resource %d: %w", item.ID(), err)
	}
	return nil
}

// Delete removes the record with id. Missing ids are not an error.
func (s *Store) Delete(ctx context.Context, id resources.ID) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM resources WHERE id = ?", int64(id)); err != nil {
		return fmt.Errorf("delete resource %d: %w", id, err)
	}
	return nil
}

// List returns every record ordered by id.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, kind, name, payload_json, updated_at, last_online FROM resources ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			id      int64
			body    string
			updated string
			online  int
			rec     Record
		)
		if err := rows.Scan(&id, &rec.Kind, &rec.Name, &body, &updated, &online); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		rec.ID = resources.ID(id)
		rec.Online = online != 0
		rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		if err := decodePayload(&rec, body); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Save replaces the catalog with the contents of lib in one transaction.
func (s *Store) Save(ctx context.Context, lib *resources.Library) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM resources"); err != nil {
		return fmt.Errorf("clear resources: %w", err)
	}
	now := time.Now().UTC()
	for _, item := range lib.Items() {
		if err := s.put(ctx, tx, item, now); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load inserts every record into lib under its stored id. Records of
// unknown kinds are skipped and reported in the joined error.
func (s *Store) Load(ctx context.Context, lib *resources.Library) error {
	records, err := s.List(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, rec := range records {
		item, err := rec.Item()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := lib.Insert(rec.ID, item); err != nil {
			errs = append(errs, err)
			continue
		}
		if rec.Kind == resources.KindColour && !rec.Online {
			if err := lib.SetOnline(rec.ID, false); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Item builds the in-memory resource for the record. Image resources
// re-check their file, so a moved file loads offline.
func (r Record) Item() (resources.Item, error) {
	switch r.Kind {
	case resources.KindColour:
		return resources.NewColour(r.Name, r.Colour), nil
	case resources.KindImage:
		return resources.NewImage(r.Name, r.Path), nil
	default:
		return nil, fmt.Errorf("resource %d kind %q: %w", r.ID, r.Kind, ErrUnknownKind)
	}
}

func encodePayload(item resources.Item) (string, error) {
	var p payload
	switch v := item.(type) {
	case *resources.Colour:
		c := v.Value()
		p.Colour = fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
	case *resources.Image:
		p.Path = v.Path()
	default:
		return "", fmt.Errorf("resource %d kind %q: %w", item.ID(), item.Kind(), ErrUnknownKind)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

func decodePayload(rec *Record, body string) error {
	var p payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return fmt.Errorf("resource %d payload: %w", rec.ID, err)
	}
	rec.Path = p.Path
	if p.Colour != "" {
		c, err := config.ParseColor(p.Colour)
		if err != nil {
			return fmt.Errorf("resource %d: %w", rec.ID, err)
		}
		rec.Colour = c
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
