// Package session persists the conversation and dashboard between CLI
// invocations. Each chat turn loads the snapshot, merges the backend's
// panels, and writes it back, so `sherpa chat` behaves like one ongoing
// conversation across processes.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/bryfeng/sherpa-front-sub002/internal/model"
	"github.com/bryfeng/sherpa-front-sub002/internal/panel"
)

const defaultName = "default"

// Snapshot is everything a chat turn needs to resume: the backend
// conversation handle, the transcript sent on each request, and the board
// with its highlight set.
type Snapshot struct {
	ConversationID string              `json:"conversation_id"`
	Messages       []model.ChatMessage `json:"messages,omitempty"`
	Widgets        []panel.Widget      `json:"widgets,omitempty"`
	Highlighted    []string            `json:"highlighted,omitempty"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

func Open(path, lockPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create session lock directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session sqlite: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS sessions (
			name TEXT PRIMARY KEY,
			updated_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init session schema: %w", err)
		}
	}
	return &Store{db: db, lock: flock.New(lockPath)}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Save(snap Snapshot) error {
	locked, err := s.lock.TryLockContext(context.Background(), 5*time.Second)
	if err != nil {
		return fmt.Errorf("lock session store: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock session store: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()

	snap.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (name, updated_at, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			updated_at=excluded.updated_at,
			payload=excluded.payload
	`, defaultName, snap.UpdatedAt.Unix(), payload)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load returns the saved snapshot, or ok=false when no session exists yet.
func (s *Store) Load() (Snapshot, bool, error) {
	var payload []byte
	err := s.db.QueryRow("SELECT payload FROM sessions WHERE name = ?", defaultName).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("read session: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode session payload: %w", err)
	}
	return snap, true, nil
}

// Reset drops the saved session. The next chat turn starts a fresh
// conversation with an empty board.
func (s *Store) Reset() error {
	locked, err := s.lock.TryLockContext(context.Background(), 5*time.Second)
	if err != nil {
		return fmt.Errorf("lock session store: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock session store: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()

	if _, err := s.db.Exec("DELETE FROM sessions WHERE name = ?", defaultName); err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	return nil
}
