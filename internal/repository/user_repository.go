package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jengzang/streetscore-go/internal/models"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

// Save inserts a user, or updates the name and access token of an existing one
func (r *UserRepository) Save(ctx context.Context, u *models.User) error {
	now := r.now().UTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, name, access_token, score, created_at, updated_at)
VALUES (?, ?, ?, 0, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	access_token = excluded.access_token,
	updated_at = excluded.updated_at
`, u.ID, u.Name, u.AccessToken, now.UnixNano(), now.UnixNano())
	if err != nil {
		return persistErr("save user", err)
	}
	return nil
}

// Create inserts a new user. It reports false when the id is already taken.
func (r *UserRepository) Create(ctx context.Context, u *models.User) (bool, error) {
	now := r.now().UTC()
	result, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, name, access_token, score, created_at, updated_at)
VALUES (?, ?, ?, 0, ?, ?)
ON CONFLICT(id) DO NOTHING
`, u.ID, u.Name, u.AccessToken, now.UnixNano(), now.UnixNano())
	if err != nil {
		return false, persistErr("create user", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, persistErr("create user", err)
	}
	return n == 1, nil
}

// Get retrieves a user by id
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	var created, updated int64
	err := r.db.QueryRowContext(ctx, `
SELECT id, name, access_token, score, created_at, updated_at
FROM users WHERE id = ?
`, id).Scan(&u.ID, &u.Name, &u.AccessToken, &u.Score, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("get user", err)
	}
	u.CreatedAt = fromNanos(created)
	u.UpdatedAt = fromNanos(updated)
	return &u, nil
}

// AccessToken returns the ingestion token stored for a user
func (r *UserRepository) AccessToken(ctx context.Context, userID string) (string, error) {
	u, err := r.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.AccessToken, nil
}

// SetScore persists a user's derived score
func (r *UserRepository) SetScore(ctx context.Context, userID string, score int64) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users SET score = ?, updated_at = ? WHERE id = ?
`, score, r.now().UTC().UnixNano(), userID)
	if err != nil {
		return persistErr("set user score", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("set user score", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListScores returns every user ordered by score, highest first. Ties keep
// account creation order.
func (r *UserRepository) ListScores(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, score, created_at, updated_at
FROM users
ORDER BY score DESC, created_at ASC, rowid ASC
`)
	if err != nil {
		return nil, persistErr("query scores", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		var created, updated int64
		if err := rows.Scan(&u.ID, &u.Name, &u.Score, &created, &updated); err != nil {
			return nil, persistErr("scan score", err)
		}
		u.CreatedAt = fromNanos(created)
		u.UpdatedAt = fromNanos(updated)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate scores", err)
	}
	return users, nil
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
