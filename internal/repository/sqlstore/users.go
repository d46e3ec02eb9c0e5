package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/Thcamm/personal-diary/internal/apperror"
	"github.com/Thcamm/personal-diary/internal/model"
	"github.com/Thcamm/personal-diary/internal/repository"
)

var _ repository.UserRepository = (*UserStore)(nil)

// UserStore handles the users table.
type UserStore struct {
	db *DB
}

const userColumns = `id, username, email, password_hash, github_id, avatar, created_at`

// Create inserts user, assigning its ID and CreatedAt.
//
// A duplicate username, email or GitHub id is reported as a conflict.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now()
	}

	_, err := s.db.conn.ExecContext(ctx, s.db.q(
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.GitHubID,
		user.Avatar,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username)
		}
		return fmt.Errorf("sqlstore: creating user %q: %w", user.Username, err)
	}
	return nil
}

func (s *UserStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.getBy(ctx, "id", id, id)
}

func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getBy(ctx, "username", username, username)
}

func (s *UserStore) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return s.getBy(ctx, "github_id", githubID, fmt.Sprint(githubID))
}

// getBy loads one user by a unique column. column is never user input.
func (s *UserStore) getBy(ctx context.Context, column string, value any, label string) (*model.User, error) {
	var u model.User
	err := s.db.conn.GetContext(ctx, &u, s.db.q(
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`), value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", label)
		}
		return nil, fmt.Errorf("sqlstore: getting user by %s %s: %w", column, label, err)
	}
	return &u, nil
}

func (s *UserStore) ExistsUsername(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, "username", username)
}

func (s *UserStore) ExistsEmail(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, "email", email)
}

func (s *UserStore) exists(ctx context.Context, column, value string) (bool, error) {
	var n int
	err := s.db.conn.GetContext(ctx, &n, s.db.q(
		`SELECT COUNT(*) FROM users WHERE `+column+` = ?`), value)
	if err != nil {
		return false, fmt.Errorf("sqlstore: checking %s: %w", column, err)
	}
	return n > 0, nil
}

// LinkGitHub attaches a GitHub account id to an existing user.
func (s *UserStore) LinkGitHub(ctx context.Context, userID string, githubID int64) error {
	res, err := s.db.conn.ExecContext(ctx, s.db.q(
		`UPDATE users SET github_id = ? WHERE id = ?`), githubID, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("github account", fmt.Sprint(githubID))
		}
		return fmt.Errorf("sqlstore: linking github account to user %s: %w", userID, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}
