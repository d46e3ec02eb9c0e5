package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/Thcamm/personal-diary/internal/apperror"
	"github.com/Thcamm/personal-diary/internal/model"
	"github.com/Thcamm/personal-diary/internal/repository"
)

var _ repository.CommentRepository = (*CommentStore)(nil)

// CommentStore handles the comments table.
type CommentStore struct {
	db *DB
}

const commentColumns = `id, diary_id, user_id, guest_name, content, created_at`

// Create inserts comment. A missing parent diary is reported as NotFound.
func (s *CommentStore) Create(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = now()
	}

	return s.db.inTx(ctx, func(tx *sqlx.Tx) error {
		var exists int
		err := tx.GetContext(ctx, &exists, s.db.q(
			`SELECT COUNT(*) FROM diaries WHERE id = ?`), comment.DiaryID)
		if err != nil {
			return fmt.Errorf("sqlstore: checking diary %s: %w", comment.DiaryID, err)
		}
		if exists == 0 {
			return apperror.NotFound("diary", comment.DiaryID)
		}

		_, err = tx.ExecContext(ctx, s.db.q(
			`INSERT INTO comments (`+commentColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?)`),
			comment.ID,
			comment.DiaryID,
			comment.UserID,
			comment.GuestName,
			comment.Content,
			comment.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlstore: creating comment on diary %s: %w", comment.DiaryID, err)
		}
		return nil
	})
}

func (s *CommentStore) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	var c model.Comment
	err := s.db.conn.GetContext(ctx, &c, s.db.q(
		`SELECT `+commentColumns+` FROM comments WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqlstore: getting comment %s: %w", id, err)
	}
	return &c, nil
}

// ListByDiary returns the diary's comments by created_at. Newest first
// unless order is Asc.
func (s *CommentStore) ListByDiary(ctx context.Context, diaryID string, order repository.SortOrder) ([]model.Comment, error) {
	dir := "DESC"
	if order == repository.Asc {
		dir = "ASC"
	}
	comments := []model.Comment{}
	err := s.db.conn.SelectContext(ctx, &comments, s.db.q(
		`SELECT `+commentColumns+` FROM comments
		 WHERE diary_id = ?
		 ORDER BY created_at `+dir+`, id `+dir), diaryID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing comments of diary %s: %w", diaryID, err)
	}
	return comments, nil
}

func (s *CommentStore) CountByDiary(ctx context.Context, diaryID string) (int, error) {
	var n int
	err := s.db.conn.GetContext(ctx, &n, s.db.q(
		`SELECT COUNT(*) FROM comments WHERE diary_id = ?`), diaryID)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: counting comments of diary %s: %w", diaryID, err)
	}
	return n, nil
}

func (s *CommentStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.conn.ExecContext(ctx, s.db.q(`DELETE FROM comments WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting comment %s: %w", id, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("comment", id)
	}
	return nil
}
