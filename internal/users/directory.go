package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-quiz/internal/storage"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

var validRoles = map[string]bool{"student": true, "teacher": true, "admin": true}

type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role"`
	Password    string `json:"password,omitempty"` // plaintext, only on upsert
}

// Directory reads and maintains the users table.
type Directory struct {
	db   *sql.DB
	cost int
}

func NewDirectory(db *sql.DB) *Directory { return &Directory{db: db, cost: 12} }

// WithCost sets the bcrypt cost used when hashing new passwords.
func (d *Directory) WithCost(cost int) *Directory {
	d.cost = cost
	return d
}

// DisplayName prefers display_name, then username. An unknown id is reported
// as ErrNotFound.
func (d *Directory) DisplayName(ctx context.Context, userID string) (string, error) {
	var name, username string
	err := d.db.QueryRowContext(ctx, `SELECT display_name, username FROM users WHERE id=$1`, userID).
		Scan(&name, &username)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("display name: %w", err)
	}
	if strings.TrimSpace(name) != "" {
		return name, nil
	}
	if username != "" {
		return username, nil
	}
	return userID, nil
}

// Authenticate checks a username/password pair and returns the user without
// its password.
func (d *Directory) Authenticate(ctx context.Context, username, password string) (User, error) {
	var u User
	var hash string
	err := d.db.QueryRowContext(ctx,
		`SELECT id, username, display_name, role, password_hash FROM users WHERE username=$1`, username).
		Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("authenticate: %w", err)
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Upsert inserts or updates users by id. New users need a password; existing
// users keep their hash when none is given.
func (d *Directory) Upsert(ctx context.Context, list []User) (inserted, updated int, err error) {
	err = storage.WithTx(ctx, d.db, nil, func(tx *sql.Tx) error {
		inserted, updated = 0, 0
		for _, u := range list {
			if u.Role == "" {
				u.Role = "student"
			}
			u.Role = strings.ToLower(u.Role)
			if !validRoles[u.Role] {
				return errors.New("invalid role: " + u.Role)
			}
			var hash string
			if u.Password != "" {
				b, err := bcrypt.GenerateFromPassword([]byte(u.Password), d.cost)
				if err != nil {
					return err
				}
				hash = string(b)
			}

			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id=$1`, u.ID).Scan(new(int)); err == nil {
				exists = true
			} else if !errors.Is(err, sql.ErrNoRows) {
				return err
			}

			if exists {
				q := `UPDATE users SET username=$1, display_name=$2, role=$3 WHERE id=$4`
				args := []any{u.Username, u.DisplayName, u.Role, u.ID}
				if hash != "" {
					q = `UPDATE users SET username=$1, display_name=$2, role=$3, password_hash=$4 WHERE id=$5`
					args = []any{u.Username, u.DisplayName, u.Role, hash, u.ID}
				}
				if _, err := tx.ExecContext(ctx, q, args...); err != nil {
					return fmt.Errorf("update user %s: %w", u.ID, err)
				}
				updated++
				continue
			}
			if hash == "" {
				return errors.New("password required for new user: " + u.Username)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO users (id, username, display_name, role, password_hash) VALUES ($1,$2,$3,$4,$5)`,
				u.ID, u.Username, u.DisplayName, u.Role, hash); err != nil {
				return fmt.Errorf("insert user %s: %w", u.ID, err)
			}
			inserted++
		}
		return nil
	})
	return inserted, updated, err
}
