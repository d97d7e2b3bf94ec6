// Package identity keeps the signed-in user and the known user profiles in a
// local SQLite database.
package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/dyluth/boardsync/pkg/board"
)

// ErrUserNotFound is returned when no profile exists for an id.
var ErrUserNotFound = errors.New("user not found")

// SQLiteStore persists user profiles and the current session.
// The session user is cached in memory so CurrentUser never touches the database.
type SQLiteStore struct {
	db *sqlx.DB

	mu      sync.RWMutex
	current *board.User
}

type userRow struct {
	ID         string `db:"id"`
	FullName   string `db:"fullname"`
	Username   string `db:"username"`
	ImgURL     string `db:"img_url"`
	Activities string `db:"activities"`
}

const selectUser = "SELECT id, fullname, username, img_url, activities FROM users WHERE id = ?"

// NewSQLiteStore opens (or creates) the database at dbPath, applies pending
// migrations and restores any session left by a previous run.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to :memory: gets its own database
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	if err := s.restoreSession(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
		log.WithField("version", m.version).Debug("applied identity migration")
	}

	return nil
}

func (s *SQLiteStore) restoreSession(ctx context.Context) error {
	var userID string
	err := s.db.GetContext(ctx, &userID, "SELECT user_id FROM session WHERE slot = 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}

	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("restoring session for %s: %w", userID, err)
	}
	s.setCurrent(&u)
	return nil
}

// Update inserts or replaces the profile for u.ID and returns the stored
// profile. The session user is refreshed when it is the one being updated.
func (s *SQLiteStore) Update(ctx context.Context, u board.User) (board.User, error) {
	if strings.TrimSpace(u.ID) == "" {
		return board.User{}, fmt.Errorf("user id must not be empty")
	}

	activities := u.Activities
	if activities == nil {
		activities = []board.Activity{}
	}
	activitiesJSON, err := json.Marshal(activities)
	if err != nil {
		return board.User{}, fmt.Errorf("marshaling activities for user %s: %w", u.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, fullname, username, img_url, activities, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			fullname = excluded.fullname,
			username = excluded.username,
			img_url = excluded.img_url,
			activities = excluded.activities,
			updated_at = excluded.updated_at`,
		u.ID, u.FullName, u.Username, u.ImgURL, string(activitiesJSON), time.Now().UTC(),
	)
	if err != nil {
		return board.User{}, fmt.Errorf("upserting user %s: %w", u.ID, err)
	}

	stored, err := s.GetByID(ctx, u.ID)
	if err != nil {
		return board.User{}, err
	}

	s.mu.Lock()
	if s.current != nil && s.current.ID == stored.ID {
		c := stored.Clone()
		s.current = &c
	}
	s.mu.Unlock()

	return stored, nil
}

// GetByID loads a profile. Missing profiles return ErrUserNotFound.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (board.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, selectUser, id)
	if errors.Is(err, sql.ErrNoRows) {
		return board.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	if err != nil {
		return board.User{}, fmt.Errorf("getting user %s: %w", id, err)
	}
	return row.toUser()
}

// Login makes id the session user. The profile must already exist.
func (s *SQLiteStore) Login(ctx context.Context, id string) (board.User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return board.User{}, err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO session (slot, user_id, started_at) VALUES (1, ?, ?)",
		id, time.Now().UTC(),
	)
	if err != nil {
		return board.User{}, fmt.Errorf("starting session for %s: %w", id, err)
	}

	s.setCurrent(&u)
	log.WithField("user", id).Info("logged in")
	return u, nil
}

// Logout clears the session user.
func (s *SQLiteStore) Logout(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM session"); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	s.setCurrent(nil)
	return nil
}

// CurrentUser returns a copy of the session user.
func (s *SQLiteStore) CurrentUser() (board.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return board.User{}, false
	}
	return s.current.Clone(), true
}

func (s *SQLiteStore) setCurrent(u *board.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u == nil {
		s.current = nil
		return
	}
	c := u.Clone()
	s.current = &c
}

func (r userRow) toUser() (board.User, error) {
	u := board.User{
		ID:       r.ID,
		FullName: r.FullName,
		Username: r.Username,
		ImgURL:   r.ImgURL,
	}
	if r.Activities != "" {
		if err := json.Unmarshal([]byte(r.Activities), &u.Activities); err != nil {
			return board.User{}, fmt.Errorf("unmarshaling activities for user %s: %w", r.ID, err)
		}
	}
	if len(u.Activities) == 0 {
		u.Activities = nil
	}
	return u, nil
}
