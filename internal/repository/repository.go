// Package repository declares the storage contracts of the application.
//
// The services only see these interfaces; internal/repository/sqlstore
// implements them on SQLite or PostgreSQL, and tests use in-memory fakes.
package repository

import (
	"context"

	"github.com/Thcamm/personal-diary/internal/model"
)

// SortOrder is the direction of a list query.
type SortOrder string

const (
	Desc SortOrder = "desc"
	Asc  SortOrder = "asc"
)

// DiarySort is a sortable diary column.
type DiarySort string

const (
	SortCreatedAt DiarySort = "created_at"
	SortUpdatedAt DiarySort = "updated_at"
	SortLikes     DiarySort = "likes"
	SortTitle     DiarySort = "title"
)

// Valid reports whether s names a sortable column.
func (s DiarySort) Valid() bool {
	switch s {
	case SortCreatedAt, SortUpdatedAt, SortLikes, SortTitle:
		return true
	}
	return false
}

type ListOptions struct {
	Limit  int
	Offset int
}

// DiaryFilter narrows a diary list query. Zero values mean "no filter".
//
// VisibleTo keeps diaries that are public or owned by that user id; it is
// the feed's visibility rule pushed down into the query.
type DiaryFilter struct {
	UserID    string
	Public    *bool
	VisibleTo *string
	Sort      DiarySort
	Order     SortOrder
	ListOptions
}

// DiaryPatch is a partial update. Nil fields are left unchanged.
type DiaryPatch struct {
	Title    *string `json:"title,omitempty"`
	Content  *string `json:"content,omitempty"`
	IsPublic *bool   `json:"isPublic,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p DiaryPatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.IsPublic == nil
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	ExistsUsername(ctx context.Context, username string) (bool, error)
	ExistsEmail(ctx context.Context, email string) (bool, error)
	LinkGitHub(ctx context.Context, userID string, githubID int64) error
}

type DiaryRepository interface {
	Create(ctx context.Context, diary *model.Diary) error
	GetByID(ctx context.Context, id string) (*model.Diary, error)
	List(ctx context.Context, filter DiaryFilter) ([]model.Diary, error)
	Update(ctx context.Context, id string, patch DiaryPatch) (*model.Diary, error)
	Delete(ctx context.Context, id string) error
}

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	GetByID(ctx context.Context, id string) (*model.Comment, error)
	ListByDiary(ctx context.Context, diaryID string, order SortOrder) ([]model.Comment, error)
	CountByDiary(ctx context.Context, diaryID string) (int, error)
	Delete(ctx context.Context, id string) error
}

// LikeRepository stores like membership. AddLike and RemoveLike change the
// membership set and the diary's counter in one transaction.
type LikeRepository interface {
	AddLike(ctx context.Context, diaryID, userID string) (model.LikeResult, error)
	RemoveLike(ctx context.Context, diaryID, userID string) (model.LikeResult, error)
	HasLiked(ctx context.Context, diaryID, userID string) (bool, error)
	LikedDiaryIDs(ctx context.Context, userID string, diaryIDs []string) (map[string]bool, error)
}
