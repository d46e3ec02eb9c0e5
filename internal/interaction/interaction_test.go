package interaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thcamm/personal-diary/internal/apperror"
	"github.com/Thcamm/personal-diary/internal/model"
	"github.com/Thcamm/personal-diary/internal/repository/sqlstore"
	"github.com/Thcamm/personal-diary/internal/service"
)

var (
	u1 = &model.Requester{ID: "u1", Username: "owner"}
	u2 = &model.Requester{ID: "u2", Username: "reader"}
	u3 = &model.Requester{ID: "u3", Username: "other"}
)

// fakeStore answers like a consistent server: each viewer's membership is
// a set and the count follows it.
type fakeStore struct {
	viewer *model.Requester

	mu      sync.Mutex
	members map[string]bool
	likes   map[string]int
	nextID  int

	failLike    error
	failComment error
	failDelete  error
	creates     int
	deletes     int

	// When block is set, Like and Unlike signal entered and wait for it.
	block   chan struct{}
	entered chan struct{}
}

func newFakeStore(viewer *model.Requester) *fakeStore {
	return &fakeStore{viewer: viewer, members: map[string]bool{}, likes: map[string]int{}}
}

func (f *fakeStore) toggle(ctx context.Context, diaryID string, like bool) (model.LikeResult, error) {
	if f.block != nil {
		f.entered <- struct{}{}
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLike != nil {
		return model.LikeResult{}, f.failLike
	}
	res := model.LikeResult{DiaryID: diaryID, Liked: like}
	if f.members[diaryID] != like {
		f.members[diaryID] = like
		if like {
			f.likes[diaryID]++
		} else {
			f.likes[diaryID]--
		}
		res.Changed = true
	}
	res.Likes = f.likes[diaryID]
	return res, nil
}

func (f *fakeStore) Like(ctx context.Context, id string) (model.LikeResult, error) {
	return f.toggle(ctx, id, true)
}

func (f *fakeStore) Unlike(ctx context.Context, id string) (model.LikeResult, error) {
	return f.toggle(ctx, id, false)
}

func (f *fakeStore) CreateComment(ctx context.Context, diaryID string, in service.CreateCommentInput) (*model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.failComment != nil {
		return nil, f.failComment
	}
	f.nextID++
	c := &model.Comment{
		ID:        fmt.Sprintf("c%d", f.nextID),
		DiaryID:   diaryID,
		GuestName: f.viewer.Username,
		Content:   in.Content,
		CreatedAt: time.Now(),
	}
	if in.Anonymous {
		c.GuestName = model.AnonymousName
	} else {
		id := f.viewer.ID
		c.UserID = &id
	}
	return c, nil
}

func (f *fakeStore) DeleteComment(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	return f.failDelete
}

func diary(id, owner string, public bool, likes int) model.Diary {
	return model.Diary{ID: id, UserID: owner, IsPublic: public, Likes: likes}
}

func TestToggleLike_LikeThenUnlike(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newFakeStore(u2))
	m.Track(diary("1", "u1", true, 0), false, nil)

	st, err := m.ToggleLike(ctx, "1", u2)
	require.NoError(t, err)
	assert.True(t, st.Liked)
	assert.Equal(t, 1, st.Likes)
	assert.Equal(t, Committed, st.LikePhase)

	st, err = m.ToggleLike(ctx, "1", u2)
	require.NoError(t, err)
	assert.False(t, st.Liked)
	assert.Equal(t, 0, st.Likes)
	assert.Equal(t, Committed, st.LikePhase)
}

func TestToggleLike_OptimisticWhilePending(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(u2)
	store.block = make(chan struct{})
	store.entered = make(chan struct{})
	m := NewManager(store)
	m.Track(diary("1", "u1", true, 4), false, nil)

	done := make(chan error, 1)
	go func() {
		_, err := m.ToggleLike(ctx, "1", u2)
		done <- err
	}()
	<-store.entered

	st, ok := m.State("1")
	require.True(t, ok)
	assert.True(t, st.Liked, "flag flips before the store answers")
	assert.Equal(t, 5, st.Likes)
	assert.Equal(t, Pending, st.LikePhase)

	_, err := m.ToggleLike(ctx, "1", u2)
	assert.True(t, errors.Is(err, apperror.ErrConflict), "second toggle while pending")

	close(store.block)
	require.NoError(t, <-done)

	st, _ = m.State("1")
	assert.Equal(t, Committed, st.LikePhase)
	assert.Equal(t, 1, st.Likes, "the store's count replaces the local estimate")
}

func TestToggleLike_RollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(u2)
	store.failLike = apperror.NetworkFailure("PUT /api/diaries/1/like", errors.New("connection refused"))
	m := NewManager(store)

	m.Track(diary("1", "u1", true, 3), false, nil)
	st, err := m.ToggleLike(ctx, "1", u2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrNetwork))
	assert.False(t, st.Liked)
	assert.Equal(t, 3, st.Likes)
	assert.Equal(t, RolledBack, st.LikePhase)

	m.Track(diary("2", "u1", true, 5), true, nil)
	st, err = m.ToggleLike(ctx, "2", u2)
	require.Error(t, err)
	assert.True(t, st.Liked)
	assert.Equal(t, 5, st.Likes)
	assert.Equal(t, RolledBack, st.LikePhase)

	// A rolled-back toggle can be retried by hand.
	store.mu.Lock()
	store.failLike = nil
	store.mu.Unlock()
	st, err = m.ToggleLike(ctx, "1", u2)
	require.NoError(t, err)
	assert.Equal(t, Committed, st.LikePhase)
}

func TestToggleLike_CountNeverNegative(t *testing.T) {
	store := newFakeStore(u2)
	store.block = make(chan struct{})
	store.entered = make(chan struct{})
	m := NewManager(store)
	m.Track(diary("1", "u1", true, 0), true, nil)

	go m.ToggleLike(context.Background(), "1", u2)
	<-store.entered

	st, _ := m.State("1")
	assert.Equal(t, 0, st.Likes)
	close(store.block)
}

func TestToggleLike_Denied(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(u2)
	m := NewManager(store)
	m.Track(diary("1", "u1", true, 0), false, nil)
	m.Track(diary("2", "u1", false, 0), false, nil)

	_, err := m.ToggleLike(ctx, "1", nil)
	assert.True(t, errors.Is(err, apperror.ErrUnauthorized))

	_, err = m.ToggleLike(ctx, "2", u2)
	assert.True(t, errors.Is(err, apperror.ErrForbidden))

	_, err = m.ToggleLike(ctx, "9", u2)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	st, _ := m.State("1")
	assert.Equal(t, Idle, st.LikePhase)
	assert.Empty(t, store.members, "denied toggles never reach the store")

	_, err = m.ToggleLike(ctx, "2", u1)
	assert.NoError(t, err, "owner may like their own private diary")
}

func TestTrack_SortsCommentsNewestFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManager(newFakeStore(u2))
	m.Track(diary("1", "u1", true, 0), false, []model.Comment{
		{ID: "old", CreatedAt: base},
		{ID: "new", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "mid", CreatedAt: base.Add(time.Hour)},
	})

	st, _ := m.State("1")
	var ids []string
	for _, c := range st.Comments {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"new", "mid", "old"}, ids)
}

func TestAddComment(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(u2)
	m := NewManager(store)
	m.Track(diary("1", "u1", true, 0), false, []model.Comment{{ID: "c0"}})
	m.Track(diary("2", "u1", false, 0), false, nil)

	c, err := m.AddComment(ctx, "1", u2, "  nice post ", false)
	require.NoError(t, err)
	assert.Equal(t, "nice post", c.Content)
	assert.Equal(t, "reader", c.GuestName)
	require.NotNil(t, c.UserID)
	assert.Equal(t, "u2", *c.UserID)

	anon, err := m.AddComment(ctx, "1", u2, "psst", true)
	require.NoError(t, err)
	assert.Equal(t, model.AnonymousName, anon.GuestName)
	assert.Nil(t, anon.UserID)

	st, _ := m.State("1")
	require.Len(t, st.Comments, 3)
	assert.Equal(t, anon.ID, st.Comments[0].ID, "new comments are prepended")
	assert.Equal(t, c.ID, st.Comments[1].ID)

	t.Run("denials and validation never reach the store", func(t *testing.T) {
		before := store.creates

		_, err := m.AddComment(ctx, "1", nil, "hi", false)
		assert.True(t, errors.Is(err, apperror.ErrUnauthorized))

		_, err = m.AddComment(ctx, "2", u1, "note to self", false)
		assert.True(t, errors.Is(err, apperror.ErrForbidden), "owner cannot comment on own private diary")

		_, err = m.AddComment(ctx, "1", u2, "   ", false)
		assert.True(t, errors.Is(err, apperror.ErrValidation))

		assert.Equal(t, before, store.creates)
	})

	t.Run("store failure leaves the list alone", func(t *testing.T) {
		store.mu.Lock()
		store.failComment = apperror.NetworkFailure("POST", errors.New("timeout"))
		store.mu.Unlock()

		_, err := m.AddComment(ctx, "1", u2, "lost", false)
		assert.True(t, errors.Is(err, apperror.ErrNetwork))
		st, _ := m.State("1")
		assert.Len(t, st.Comments, 3)
	})
}

func TestDeleteComment(t *testing.T) {
	ctx := context.Background()
	u3id := "u3"
	comments := []model.Comment{
		{ID: "c1", GuestName: "other", UserID: &u3id, CreatedAt: time.Unix(300, 0)},
		{ID: "5", GuestName: model.AnonymousName, CreatedAt: time.Unix(200, 0)},
		{ID: "c3", GuestName: "other", UserID: &u3id, CreatedAt: time.Unix(100, 0)},
	}

	t.Run("owner deletes anonymous comment on private diary", func(t *testing.T) {
		store := newFakeStore(u1)
		m := NewManager(store)
		m.Track(diary("2", "u1", false, 0), false, comments)

		require.NoError(t, m.DeleteComment(ctx, "2", "5", u1))
		st, _ := m.State("2")
		assert.Len(t, st.Comments, 2)
		assert.Equal(t, 1, store.deletes)
	})

	t.Run("nobody else can delete an anonymous comment", func(t *testing.T) {
		store := newFakeStore(u3)
		m := NewManager(store)
		m.Track(diary("1", "u1", true, 0), false, comments)

		err := m.DeleteComment(ctx, "1", "5", u3)
		assert.True(t, errors.Is(err, apperror.ErrForbidden))
		assert.NoError(t, m.DeleteComment(ctx, "1", "c1", u3), "author deletes own comment")
		assert.Equal(t, 1, store.deletes)
	})

	t.Run("failure restores the comment in place", func(t *testing.T) {
		store := newFakeStore(u1)
		store.failDelete = apperror.NetworkFailure("DELETE", errors.New("reset"))
		m := NewManager(store)
		m.Track(diary("1", "u1", true, 0), false, comments)

		err := m.DeleteComment(ctx, "1", "5", u1)
		assert.True(t, errors.Is(err, apperror.ErrNetwork))

		st, _ := m.State("1")
		require.Len(t, st.Comments, 3)
		assert.Equal(t, "5", st.Comments[1].ID)
	})

	t.Run("unknown comment", func(t *testing.T) {
		m := NewManager(newFakeStore(u1))
		m.Track(diary("1", "u1", true, 0), false, comments)
		err := m.DeleteComment(ctx, "1", "nope", u1)
		assert.True(t, errors.Is(err, apperror.ErrNotFound))
	})
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "rolled back", RolledBack.String())
	assert.Equal(t, "Phase(9)", Phase(9).String())
}

// naiveCounter persists likes the way a plain counter field would: read
// the count, add one, write it back. The barrier makes both viewers read
// before either writes.
type naiveCounter struct {
	mu      sync.Mutex
	likes   int
	barrier sync.WaitGroup
}

type naivePersister struct {
	Persister
	c *naiveCounter
}

func (p naivePersister) Like(ctx context.Context, diaryID string) (model.LikeResult, error) {
	p.c.mu.Lock()
	read := p.c.likes
	p.c.mu.Unlock()

	p.c.barrier.Done()
	p.c.barrier.Wait()

	p.c.mu.Lock()
	p.c.likes = read + 1
	p.c.mu.Unlock()
	return model.LikeResult{DiaryID: diaryID, Liked: true, Likes: read + 1, Changed: true}, nil
}

// storePersister likes through the SQL store on behalf of one user.
type storePersister struct {
	Persister
	likes   *sqlstore.LikeStore
	userID  string
	barrier *sync.WaitGroup
}

func (p storePersister) Like(ctx context.Context, diaryID string) (model.LikeResult, error) {
	p.barrier.Done()
	p.barrier.Wait()
	return p.likes.AddLike(ctx, diaryID, p.userID)
}

func likeConcurrently(t *testing.T, d model.Diary, a, b *Manager) {
	t.Helper()
	var wg sync.WaitGroup
	for _, pair := range []struct {
		m   *Manager
		req *model.Requester
	}{{a, u2}, {b, u3}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pair.m.ToggleLike(context.Background(), d.ID, pair.req)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestConcurrentLikes_ReadModifyWriteLosesUpdate(t *testing.T) {
	d := diary("3", "u1", true, 0)
	counter := &naiveCounter{}
	counter.barrier.Add(2)

	a := NewManager(naivePersister{c: counter})
	b := NewManager(naivePersister{c: counter})
	a.Track(d, false, nil)
	b.Track(d, false, nil)

	likeConcurrently(t, d, a, b)

	assert.Equal(t, 1, counter.likes, "two likes, one increment survives")
}

func TestConcurrentLikes_AtomicStoreKeepsBoth(t *testing.T) {
	ctx := context.Background()
	db, err := sqlstore.New("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var ids []string
	for _, name := range []string{"owner", "reader", "other"} {
		u := &model.User{Username: name, Email: name + "@example.com"}
		require.NoError(t, db.Users().Create(ctx, u))
		ids = append(ids, u.ID)
	}
	d := model.Diary{UserID: ids[0], Title: "three", IsPublic: true}
	require.NoError(t, db.Diaries().Create(ctx, &d))

	var barrier sync.WaitGroup
	barrier.Add(2)
	a := NewManager(storePersister{likes: db.Likes(), userID: ids[1], barrier: &barrier})
	b := NewManager(storePersister{likes: db.Likes(), userID: ids[2], barrier: &barrier})
	a.Track(d, false, nil)
	b.Track(d, false, nil)

	likeConcurrently(t, d, a, b)

	stored, err := db.Diaries().GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Likes)
}
