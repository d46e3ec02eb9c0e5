package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/Thcamm/personal-diary/internal/apperror"
	"github.com/Thcamm/personal-diary/internal/model"
	"github.com/Thcamm/personal-diary/internal/repository"
)

var _ repository.DiaryRepository = (*DiaryStore)(nil)

// DiaryStore handles the diaries table.
type DiaryStore struct {
	db *DB
}

const diaryColumns = `id, user_id, title, content, is_public, likes, created_at, updated_at`

// Create inserts diary with a fresh ID and a zero like counter.
func (s *DiaryStore) Create(ctx context.Context, diary *model.Diary) error {
	diary.ID = xid.New().String()
	diary.Likes = 0
	if diary.CreatedAt.IsZero() {
		diary.CreatedAt = now()
	}
	diary.UpdatedAt = diary.CreatedAt

	_, err := s.db.conn.ExecContext(ctx, s.db.q(
		`INSERT INTO diaries (`+diaryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		diary.ID,
		diary.UserID,
		diary.Title,
		diary.Content,
		diary.IsPublic,
		diary.Likes,
		diary.CreatedAt,
		diary.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: creating diary for user %s: %w", diary.UserID, err)
	}
	return nil
}

func (s *DiaryStore) GetByID(ctx context.Context, id string) (*model.Diary, error) {
	return getDiary(ctx, s.db.conn, s.db.q, id)
}

// getDiary works on the pool or inside a transaction.
func getDiary(ctx context.Context, q sqlx.QueryerContext, rebind func(string) string, id string) (*model.Diary, error) {
	var d model.Diary
	err := sqlx.GetContext(ctx, q, &d, rebind(`SELECT `+diaryColumns+` FROM diaries WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("diary", id)
		}
		return nil, fmt.Errorf("sqlstore: getting diary %s: %w", id, err)
	}
	return &d, nil
}

// List returns the diaries matching filter.
//
// Sort defaults to created_at, Order to desc. Ties are broken by id so the
// order is stable across calls. A zero Limit returns every match.
func (s *DiaryStore) List(ctx context.Context, filter repository.DiaryFilter) ([]model.Diary, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Public != nil {
		where = append(where, "is_public = ?")
		args = append(args, *filter.Public)
	}
	if filter.VisibleTo != nil {
		where = append(where, "(is_public = ? OR user_id = ?)")
		args = append(args, true, *filter.VisibleTo)
	}

	sortCol := filter.Sort
	if !sortCol.Valid() {
		sortCol = repository.SortCreatedAt
	}
	order := "DESC"
	if filter.Order == repository.Asc {
		order = "ASC"
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + diaryColumns + ` FROM diaries`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	fmt.Fprintf(&b, " ORDER BY %s %s, id %s", sortCol, order, order)
	if filter.Limit > 0 {
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, filter.Limit, max(filter.Offset, 0))
	}

	diaries := []model.Diary{}
	if err := s.db.conn.SelectContext(ctx, &diaries, s.db.q(b.String()), args...); err != nil {
		return nil, fmt.Errorf("sqlstore: listing diaries: %w", err)
	}
	return diaries, nil
}

// Update applies patch and bumps updated_at. The like counter and the
// owner are never touched. An empty patch only reloads the diary.
func (s *DiaryStore) Update(ctx context.Context, id string, patch repository.DiaryPatch) (*model.Diary, error) {
	if patch.Empty() {
		return s.GetByID(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *patch.Content)
	}
	if patch.IsPublic != nil {
		sets = append(sets, "is_public = ?")
		args = append(args, *patch.IsPublic)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, now(), id)

	var updated *model.Diary
	err := s.db.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, s.db.q(
			`UPDATE diaries SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
		if err != nil {
			return fmt.Errorf("sqlstore: updating diary %s: %w", id, err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperror.NotFound("diary", id)
		}
		updated, err = getDiary(ctx, tx, s.db.q, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the diary. Its comments and likes go with it through
// ON DELETE CASCADE.
func (s *DiaryStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.conn.ExecContext(ctx, s.db.q(`DELETE FROM diaries WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting diary %s: %w", id, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("diary", id)
	}
	return nil
}
