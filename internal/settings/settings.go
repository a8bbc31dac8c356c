// Package settings persists the small subset of controller state that
// survives a restart: volume and mute. Everything else re-initializes to
// defaults on reload.
package settings

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName    = "cadence"
	dbFileName = "cadence.db"
)

// Values holds the persisted playback settings.
type Values struct {
	Volume int
	Muted  bool
}

// Store is a SQLite-backed settings store.
type Store struct {
	db *sql.DB
}

// Open opens the settings database at the standard data location.
func Open() (*Store, error) {
	dbPath, err := xdg.DataFile(filepath.Join(appName, dbFileName))
	if err != nil {
		return nil, err
	}
	return OpenAt(dbPath)
}

// OpenAt opens the settings database at a specific path.
func OpenAt(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the saved settings, or defaults (volume 50, unmuted) when
// nothing has been saved yet.
func (s *Store) Get() (Values, error) {
	var v Values
	row := s.db.QueryRow(`SELECT volume, muted FROM player_settings WHERE id = 1`)
	err := row.Scan(&v.Volume, &v.Muted)
	if err == sql.ErrNoRows {
		return Values{Volume: 50, Muted: false}, nil
	}
	if err != nil {
		return Values{}, err
	}
	return v, nil
}

// Save persists the volume level and mute flag.
func (s *Store) Save(volume int, muted bool) error {
	_, err := s.db.Exec(`
		INSERT INTO player_settings (id, volume, muted)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			volume = excluded.volume,
			muted = excluded.muted
	`, volume, muted)
	return err
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS player_settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			volume INTEGER NOT NULL DEFAULT 50,
			muted INTEGER NOT NULL DEFAULT 0
		);
	`)
	return err
}
