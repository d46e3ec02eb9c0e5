package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Thcamm/personal-diary/internal/apperror"
	"github.com/Thcamm/personal-diary/internal/model"
	"github.com/Thcamm/personal-diary/internal/repository"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================
//
// In-memory stand-ins for the repository interfaces. They keep just enough
// behaviour (not-found, conflicts, counters) for the service rules to be
// observable without a database.

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	mu       sync.Mutex
	seq      int
	users    map[string]*model.User
	diaries  map[string]*model.Diary
	comments map[string]*model.Comment
	likes    map[[2]string]bool

	failWith error // returned by every call when set
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[string]*model.User{},
		diaries:  map[string]*model.Diary{},
		comments: map[string]*model.Comment{},
		likes:    map[[2]string]bool{},
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return prefix + strconv.Itoa(f.seq)
}

// users

type fakeUsers struct{ *fakeStore }

func (f fakeUsers) Create(ctx context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	for _, existing := range f.users {
		if existing.Username == u.Username || existing.Email == u.Email ||
			(u.GitHubID != nil && existing.GitHubID != nil && *existing.GitHubID == *u.GitHubID) {
			return apperror.Conflict("user", u.Username)
		}
	}
	u.ID = f.nextID("u")
	u.CreatedAt = time.Now()
	copied := *u
	f.users[u.ID] = &copied
	return nil
}

func (f fakeUsers) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, apperror.NotFound("user", id)
}

func (f fakeUsers) find(match func(*model.User) bool) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			copied := *u
			return &copied
		}
	}
	return nil
}

func (f fakeUsers) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	if u := f.find(func(u *model.User) bool { return u.Username == username }); u != nil {
		return u, nil
	}
	return nil, apperror.NotFound("user", username)
}

func (f fakeUsers) GetUserByGitHubID(ctx context.Context, id int64) (*model.User, error) {
	if u := f.find(func(u *model.User) bool { return u.GitHubID != nil && *u.GitHubID == id }); u != nil {
		return u, nil
	}
	return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
}

func (f fakeUsers) ExistsUsername(ctx context.Context, username string) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	return f.find(func(u *model.User) bool { return u.Username == username }) != nil, nil
}

func (f fakeUsers) ExistsEmail(ctx context.Context, email string) (bool, error) {
	return f.find(func(u *model.User) bool { return u.Email == email }) != nil, nil
}

func (f fakeUsers) LinkGitHub(ctx context.Context, userID string, githubID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.GitHubID = &githubID
	return nil
}

// diaries

type fakeDiaries struct{ *fakeStore }

func (f fakeDiaries) Create(ctx context.Context, d *model.Diary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	d.ID = f.nextID("d")
	d.Likes = 0
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	d.UpdatedAt = d.CreatedAt
	copied := *d
	f.diaries[d.ID] = &copied
	return nil
}

func (f fakeDiaries) GetByID(ctx context.Context, id string) (*model.Diary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.diaries[id]; ok {
		copied := *d
		return &copied, nil
	}
	return nil, apperror.NotFound("diary", id)
}

func (f fakeDiaries) List(ctx context.Context, filter repository.DiaryFilter) ([]model.Diary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []model.Diary{}
	for _, d := range f.diaries {
		if filter.UserID != "" && d.UserID != filter.UserID {
			continue
		}
		if filter.Public != nil && d.IsPublic != *filter.Public {
			continue
		}
		if filter.VisibleTo != nil && !d.IsPublic && d.UserID != *filter.VisibleTo {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.Order == repository.Asc {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f fakeDiaries) Update(ctx context.Context, id string, p repository.DiaryPatch) (*model.Diary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.diaries[id]
	if !ok {
		return nil, apperror.NotFound("diary", id)
	}
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Content != nil {
		d.Content = *p.Content
	}
	if p.IsPublic != nil {
		d.IsPublic = *p.IsPublic
	}
	d.UpdatedAt = time.Now()
	copied := *d
	return &copied, nil
}

func (f fakeDiaries) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.diaries[id]; !ok {
		return apperror.NotFound("diary", id)
	}
	delete(f.diaries, id)
	for cid, c := range f.comments {
		if c.DiaryID == id {
			delete(f.comments, cid)
		}
	}
	return nil
}

// comments

type fakeComments struct{ *fakeStore }

func (f fakeComments) Create(ctx context.Context, c *model.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.diaries[c.DiaryID]; !ok {
		return apperror.NotFound("diary", c.DiaryID)
	}
	c.ID = f.nextID("c")
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	copied := *c
	f.comments[c.ID] = &copied
	return nil
}

func (f fakeComments) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.comments[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, apperror.NotFound("comment", id)
}

func (f fakeComments) ListByDiary(ctx context.Context, diaryID string, order repository.SortOrder) ([]model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Comment{}
	for _, c := range f.comments {
		if c.DiaryID == diaryID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if order == repository.Asc {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f fakeComments) CountByDiary(ctx context.Context, diaryID string) (int, error) {
	list, err := f.ListByDiary(ctx, diaryID, repository.Desc)
	return len(list), err
}

func (f fakeComments) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.comments[id]; !ok {
		return apperror.NotFound("comment", id)
	}
	delete(f.comments, id)
	return nil
}

// likes

type fakeLikes struct{ *fakeStore }

func (f fakeLikes) AddLike(ctx context.Context, diaryID, userID string) (model.LikeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return model.LikeResult{}, f.failWith
	}
	d, ok := f.diaries[diaryID]
	if !ok {
		return model.LikeResult{}, apperror.NotFound("diary", diaryID)
	}
	key := [2]string{diaryID, userID}
	res := model.LikeResult{DiaryID: diaryID, Liked: true}
	if !f.likes[key] {
		f.likes[key] = true
		d.Likes++
		res.Changed = true
	}
	res.Likes = d.Likes
	return res, nil
}

func (f fakeLikes) RemoveLike(ctx context.Context, diaryID, userID string) (model.LikeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.diaries[diaryID]
	if !ok {
		return model.LikeResult{}, apperror.NotFound("diary", diaryID)
	}
	key := [2]string{diaryID, userID}
	res := model.LikeResult{DiaryID: diaryID}
	if f.likes[key] {
		delete(f.likes, key)
		if d.Likes > 0 {
			d.Likes--
		}
		res.Changed = true
	}
	res.Likes = d.Likes
	return res, nil
}

func (f fakeLikes) HasLiked(ctx context.Context, diaryID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.likes[[2]string{diaryID, userID}], nil
}

func (f fakeLikes) LikedDiaryIDs(ctx context.Context, userID string, ids []string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]bool{}
	for _, id := range ids {
		if f.likes[[2]string{id, userID}] {
			out[id] = true
		}
	}
	return out, nil
}

// seedDiary stores a diary directly, bypassing validation.
func (f *fakeStore) seedDiary(ownerID, title string, public bool) *model.Diary {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := &model.Diary{
		ID:        f.nextID("d"),
		UserID:    ownerID,
		Title:     title,
		Content:   "secret content of " + title,
		IsPublic:  public,
		CreatedAt: time.Now(),
	}
	f.diaries[d.ID] = d
	copied := *d
	return &copied
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

var (
	owner    = &model.Requester{ID: "owner-1", Username: "owner"}
	stranger = &model.Requester{ID: "stranger-2", Username: "stranger"}
)
