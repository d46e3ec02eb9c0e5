// Package feed assembles the home feed and the "my diaries" listing.
//
// Each call is one finite snapshot: diaries are listed once, then authors,
// comments and like flags are resolved with bounded concurrency and joined
// before returning.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Thcamm/personal-diary/internal/apperror"
	"github.com/Thcamm/personal-diary/internal/model"
	"github.com/Thcamm/personal-diary/internal/policy"
	"github.com/Thcamm/personal-diary/internal/repository"
)

// DefaultConcurrency bounds the lookups in flight for one call.
const DefaultConcurrency = 8

// Entry is one diary as shown in a listing.
//
// Comments is only filled for public diaries in the home feed. Author is
// nil if the account could not be found.
type Entry struct {
	Diary         model.Diary       `json:"diary"`
	Author        *model.PublicUser `json:"author,omitempty"`
	Comments      []model.Comment   `json:"comments,omitempty"`
	CommentCount  int               `json:"commentCount"`
	LikedByViewer bool              `json:"likedByViewer"`
}

// Owned is the requester's own listing plus stats over all their diaries.
type Owned struct {
	Entries []Entry          `json:"entries"`
	Stats   model.DiaryStats `json:"stats"`
}

// Visibility filters the owner's listing.
type Visibility string

const (
	All     Visibility = "all"
	Public  Visibility = "public"
	Private Visibility = "private"
)

// ParseVisibility accepts "", "all", "public" or "private".
func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(s); v {
	case "":
		return All, nil
	case All, Public, Private:
		return v, nil
	}
	return "", apperror.ValidationFailed("visibility", "visibility must be all, public or private")
}

// Options pages the home feed. A zero Limit returns everything.
type Options struct {
	Limit  int
	Offset int
}

type Assembler struct {
	diaries     repository.DiaryRepository
	users       repository.UserRepository
	comments    repository.CommentRepository
	likes       repository.LikeRepository
	logger      *slog.Logger
	concurrency int
}

func NewAssembler(
	diaries repository.DiaryRepository,
	users repository.UserRepository,
	comments repository.CommentRepository,
	likes repository.LikeRepository,
	logger *slog.Logger,
) *Assembler {
	return &Assembler{
		diaries:     diaries,
		users:       users,
		comments:    comments,
		likes:       likes,
		logger:      logger,
		concurrency: DefaultConcurrency,
	}
}

// ListVisible returns the diaries req may view, newest first.
//
// The visibility rule is pushed into the query and each row is checked
// again with the policy engine before it is kept. Comments are fetched
// only for public diaries.
func (a *Assembler) ListVisible(ctx context.Context, req *model.Requester, opts Options) ([]Entry, error) {
	filter := repository.DiaryFilter{
		Sort:        repository.SortCreatedAt,
		Order:       repository.Desc,
		ListOptions: repository.ListOptions{Limit: opts.Limit, Offset: opts.Offset},
	}
	if req == nil {
		public := true
		filter.Public = &public
	} else {
		id := req.ID
		filter.VisibleTo = &id
	}

	diaries, err := a.diaries.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("feed: listing diaries: %w", err)
	}

	entries := make([]Entry, 0, len(diaries))
	for _, d := range diaries {
		if !policy.CanView(&d, req) {
			continue
		}
		entries = append(entries, Entry{Diary: d})
	}

	if err := a.resolve(ctx, req, entries, true); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListOwned returns req's own diaries, newest first, filtered by v. Stats
// always cover every diary req owns.
func (a *Assembler) ListOwned(ctx context.Context, req *model.Requester, v Visibility) (*Owned, error) {
	if req == nil {
		return nil, apperror.Unauthorized("you need to log in to see your diaries")
	}

	diaries, err := a.diaries.List(ctx, repository.DiaryFilter{
		UserID: req.ID,
		Sort:   repository.SortCreatedAt,
		Order:  repository.Desc,
	})
	if err != nil {
		return nil, fmt.Errorf("feed: listing diaries of %s: %w", req.ID, err)
	}

	owned := &Owned{Entries: []Entry{}, Stats: model.StatsOf(diaries)}
	for _, d := range diaries {
		if (v == Public && !d.IsPublic) || (v == Private && d.IsPublic) {
			continue
		}
		owned.Entries = append(owned.Entries, Entry{Diary: d})
	}

	if err := a.resolve(ctx, req, owned.Entries, false); err != nil {
		return nil, err
	}
	return owned, nil
}

// resolve fills authors, comment counts, comments (when withComments and
// the diary is public) and like flags in place.
func (a *Assembler) resolve(ctx context.Context, req *model.Requester, entries []Entry, withComments bool) error {
	if len(entries) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	// One lookup per distinct author.
	authorIDs := make([]string, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !seen[e.Diary.UserID] {
			seen[e.Diary.UserID] = true
			authorIDs = append(authorIDs, e.Diary.UserID)
		}
	}
	authors := make([]*model.PublicUser, len(authorIDs))
	for i, id := range authorIDs {
		g.Go(func() error {
			u, err := a.users.GetUserByID(gctx, id)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					a.logger.Warn("diary author not found", slog.String("userID", id))
					return nil
				}
				return fmt.Errorf("feed: loading author %s: %w", id, err)
			}
			pub := u.Public()
			authors[i] = &pub
			return nil
		})
	}

	for i := range entries {
		e := &entries[i]
		g.Go(func() error {
			if withComments && e.Diary.IsPublic {
				comments, err := a.comments.ListByDiary(gctx, e.Diary.ID, repository.Desc)
				if err != nil {
					return fmt.Errorf("feed: loading comments of %s: %w", e.Diary.ID, err)
				}
				e.Comments = comments
				e.CommentCount = len(comments)
				return nil
			}
			n, err := a.comments.CountByDiary(gctx, e.Diary.ID)
			if err != nil {
				return fmt.Errorf("feed: counting comments of %s: %w", e.Diary.ID, err)
			}
			e.CommentCount = n
			return nil
		})
	}

	var liked map[string]bool
	if req != nil {
		ids := make([]string, len(entries))
		for i, e := range entries {
			ids[i] = e.Diary.ID
		}
		g.Go(func() error {
			m, err := a.likes.LikedDiaryIDs(gctx, req.ID, ids)
			if err != nil {
				return fmt.Errorf("feed: loading likes of %s: %w", req.ID, err)
			}
			liked = m
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	byID := make(map[string]*model.PublicUser, len(authorIDs))
	for i, id := range authorIDs {
		byID[id] = authors[i]
	}
	for i := range entries {
		entries[i].Author = byID[entries[i].Diary.UserID]
		entries[i].LikedByViewer = liked[entries[i].Diary.ID]
	}
	return nil
}
