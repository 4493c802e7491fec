// Package store persists the client's credentials: the bearer token and the
// serialized user profile. It is the durable counterpart of the in-memory
// session state and survives restarts.
package store

import (
	"database/sql"
	"fmt"
)

const (
	keyToken = "token"
	keyUser  = "user"
)

// CredentialStore reads and writes the two credential keys in the local
// database. A missing key reads as empty, never as an error.
type CredentialStore struct {
	db *sql.DB
}

func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// Token returns the stored bearer token, or "" if none is stored.
func (s *CredentialStore) Token() (string, error) {
	return s.get(keyToken)
}

// SetToken stores the bearer token, replacing any previous value.
func (s *CredentialStore) SetToken(token string) error {
	return s.set(keyToken, token)
}

// User returns the stored serialized profile, or nil if none is stored.
func (s *CredentialStore) User() ([]byte, error) {
	v, err := s.get(keyUser)
	if err != nil {
		return nil, err
	}
	if v == "" {
		return nil, nil
	}
	return []byte(v), nil
}

// SetUser stores the serialized profile. A nil or empty value deletes it.
func (s *CredentialStore) SetUser(profile []byte) error {
	if len(profile) == 0 {
		return s.delete(keyUser)
	}
	return s.set(keyUser, string(profile))
}

// Clear removes both token and profile in one transaction, so a crash cannot
// leave one behind without the other.
func (s *CredentialStore) Clear() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM credentials WHERE key IN (?, ?)`, keyToken, keyUser); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	return nil
}

func (s *CredentialStore) get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM credentials WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (s *CredentialStore) set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *CredentialStore) delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM credentials WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
