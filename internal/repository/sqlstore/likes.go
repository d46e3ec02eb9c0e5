package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Thcamm/personal-diary/internal/apperror"
	"github.com/Thcamm/personal-diary/internal/model"
	"github.com/Thcamm/personal-diary/internal/repository"
)

var _ repository.LikeRepository = (*LikeStore)(nil)

// LikeStore handles the likes table and the diaries.likes counter.
//
// The counter is never read, incremented in Go and written back. Both
// directions change the membership row first and then move the counter in
// SQL by one, in the same transaction, only when the membership actually
// changed. Concurrent likers therefore never lose an increment, and a
// repeated like or unlike is a no-op.
type LikeStore struct {
	db *DB
}

// AddLike records userID's like on diaryID.
func (s *LikeStore) AddLike(ctx context.Context, diaryID, userID string) (model.LikeResult, error) {
	result := model.LikeResult{DiaryID: diaryID, Liked: true}

	err := s.db.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.readCount(ctx, tx, diaryID, &result.Likes); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, s.db.q(
			`INSERT INTO likes (diary_id, user_id, created_at)
			 VALUES (?, ?, ?)
			 ON CONFLICT (diary_id, user_id) DO NOTHING`),
			diaryID, userID, now())
		if err != nil {
			return fmt.Errorf("sqlstore: liking diary %s: %w", diaryID, err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if n == 1 {
			result.Changed = true
			if _, err := tx.ExecContext(ctx, s.db.q(
				`UPDATE diaries SET likes = likes + 1 WHERE id = ?`), diaryID); err != nil {
				return fmt.Errorf("sqlstore: incrementing likes of diary %s: %w", diaryID, err)
			}
		}
		return s.readCount(ctx, tx, diaryID, &result.Likes)
	})
	if err != nil {
		return model.LikeResult{}, err
	}
	return result, nil
}

// RemoveLike withdraws userID's like on diaryID.
func (s *LikeStore) RemoveLike(ctx context.Context, diaryID, userID string) (model.LikeResult, error) {
	result := model.LikeResult{DiaryID: diaryID, Liked: false}

	err := s.db.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, s.db.q(
			`DELETE FROM likes WHERE diary_id = ? AND user_id = ?`), diaryID, userID)
		if err != nil {
			return fmt.Errorf("sqlstore: unliking diary %s: %w", diaryID, err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if n == 1 {
			result.Changed = true
			if _, err := tx.ExecContext(ctx, s.db.q(
				`UPDATE diaries SET likes = likes - 1 WHERE id = ? AND likes > 0`), diaryID); err != nil {
				return fmt.Errorf("sqlstore: decrementing likes of diary %s: %w", diaryID, err)
			}
		}
		return s.readCount(ctx, tx, diaryID, &result.Likes)
	})
	if err != nil {
		return model.LikeResult{}, err
	}
	return result, nil
}

func (s *LikeStore) readCount(ctx context.Context, tx *sqlx.Tx, diaryID string, dst *int) error {
	err := tx.GetContext(ctx, dst, s.db.q(`SELECT likes FROM diaries WHERE id = ?`), diaryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("diary", diaryID)
		}
		return fmt.Errorf("sqlstore: reading likes of diary %s: %w", diaryID, err)
	}
	return nil
}

func (s *LikeStore) HasLiked(ctx context.Context, diaryID, userID string) (bool, error) {
	var n int
	err := s.db.conn.GetContext(ctx, &n, s.db.q(
		`SELECT COUNT(*) FROM likes WHERE diary_id = ? AND user_id = ?`), diaryID, userID)
	if err != nil {
		return false, fmt.Errorf("sqlstore: checking like on diary %s: %w", diaryID, err)
	}
	return n > 0, nil
}

// LikedDiaryIDs reports which of diaryIDs userID has liked. Only liked ids
// appear in the map.
func (s *LikeStore) LikedDiaryIDs(ctx context.Context, userID string, diaryIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool)
	if len(diaryIDs) == 0 {
		return liked, nil
	}

	query, args, err := sqlx.In(
		`SELECT diary_id FROM likes WHERE user_id = ? AND diary_id IN (?)`, userID, diaryIDs)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: building liked lookup: %w", err)
	}
	var ids []string
	if err := s.db.conn.SelectContext(ctx, &ids, s.db.q(query), args...); err != nil {
		return nil, fmt.Errorf("sqlstore: loading likes of user %s: %w", userID, err)
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}
