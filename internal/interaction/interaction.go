// Package interaction keeps the client-side state of the diaries a viewer
// is looking at: whether the viewer likes each one, its live like count,
// and its comments, newest first.
//
// Likes are optimistic. ToggleLike applies the change locally, persists it,
// and either commits the server's answer or rolls the local change back:
//
//	Idle -> Pending -> Committed
//	               \-> RolledBack
//
// Every action is checked with the policy engine before anything changes,
// so a denial never reaches the network.
package interaction

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/Thcamm/personal-diary/internal/apperror"
	"github.com/Thcamm/personal-diary/internal/model"
	"github.com/Thcamm/personal-diary/internal/policy"
	"github.com/Thcamm/personal-diary/internal/service"
)

// Phase is the state of a diary's last like toggle.
type Phase int

const (
	Idle Phase = iota
	Pending
	Committed
	RolledBack
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled back"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Persister carries interactions to the store on behalf of one signed-in
// viewer. *client.Client implements it.
type Persister interface {
	Like(ctx context.Context, diaryID string) (model.LikeResult, error)
	Unlike(ctx context.Context, diaryID string) (model.LikeResult, error)
	CreateComment(ctx context.Context, diaryID string, in service.CreateCommentInput) (*model.Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
}

// State is a copy of one tracked diary's interaction state.
type State struct {
	Diary     model.Diary
	Liked     bool
	Likes     int
	Comments  []model.Comment
	LikePhase Phase
}

type tracked struct {
	diary     model.Diary
	liked     bool
	likes     int
	comments  []model.Comment
	likePhase Phase
}

func (t *tracked) snapshot() State {
	return State{
		Diary:     t.diary,
		Liked:     t.liked,
		Likes:     t.likes,
		Comments:  slices.Clone(t.comments),
		LikePhase: t.likePhase,
	}
}

// Manager is safe for concurrent use. Persist calls are made without the
// lock held.
type Manager struct {
	persist Persister

	mu      sync.Mutex
	diaries map[string]*tracked
}

func NewManager(p Persister) *Manager {
	return &Manager{
		persist: p,
		diaries: make(map[string]*tracked),
	}
}

// Track starts (or restarts) tracking d. liked is the viewer's current
// membership; comments may be in any order.
func (m *Manager) Track(d model.Diary, liked bool, comments []model.Comment) {
	sorted := slices.Clone(comments)
	slices.SortStableFunc(sorted, func(a, b model.Comment) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	m.diaries[d.ID] = &tracked{
		diary:    d,
		liked:    liked,
		likes:    d.Likes,
		comments: sorted,
	}
}

// State returns the state of a tracked diary.
func (m *Manager) State(diaryID string) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.diaries[diaryID]
	if !ok {
		return State{}, false
	}
	return t.snapshot(), true
}

func (m *Manager) get(diaryID string) (*tracked, error) {
	t, ok := m.diaries[diaryID]
	if !ok {
		return nil, apperror.NotFound("tracked diary", diaryID)
	}
	return t, nil
}

// ToggleLike flips req's like on a tracked diary.
//
// The count moves by one immediately and the phase is Pending until the
// store answers. On success the store's count replaces the local one; on
// failure the previous flag and count are restored, the phase becomes
// RolledBack and the store's error is returned. A toggle while another is
// pending fails with apperror.ErrConflict.
func (m *Manager) ToggleLike(ctx context.Context, diaryID string, req *model.Requester) (State, error) {
	m.mu.Lock()
	t, err := m.get(diaryID)
	if err != nil {
		m.mu.Unlock()
		return State{}, err
	}
	if err := policy.Check(&t.diary, req, policy.Like).Err(policy.Like); err != nil {
		m.mu.Unlock()
		return State{}, err
	}
	if t.likePhase == Pending {
		m.mu.Unlock()
		return State{}, apperror.Conflict("like", "a pending change to diary "+diaryID)
	}

	prevLiked, prevLikes := t.liked, t.likes
	t.liked = !prevLiked
	if t.liked {
		t.likes++
	} else {
		t.likes = max(t.likes-1, 0)
	}
	t.likePhase = Pending
	m.mu.Unlock()

	var res model.LikeResult
	if prevLiked {
		res, err = m.persist.Unlike(ctx, diaryID)
	} else {
		res, err = m.persist.Like(ctx, diaryID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		t.liked, t.likes = prevLiked, prevLikes
		t.likePhase = RolledBack
		return t.snapshot(), err
	}
	t.liked = res.Liked
	t.likes = res.Likes
	t.diary.Likes = res.Likes
	t.likePhase = Committed
	return t.snapshot(), nil
}

// AddComment posts a comment on a tracked diary and prepends the stored
// comment, with its server-assigned id, to the local list.
//
// With anonymous set, the comment is shown as model.AnonymousName and
// records no author.
func (m *Manager) AddComment(ctx context.Context, diaryID string, req *model.Requester, content string, anonymous bool) (*model.Comment, error) {
	m.mu.Lock()
	t, err := m.get(diaryID)
	if err == nil {
		err = policy.Check(&t.diary, req, policy.Comment).Err(policy.Comment)
	}
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if err := service.ValidateComment(content); err != nil {
		return nil, err
	}

	created, err := m.persist.CreateComment(ctx, diaryID, service.CreateCommentInput{
		Content:   content,
		Anonymous: anonymous,
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.diaries[diaryID]; ok {
		t.comments = slices.Insert(t.comments, 0, *created)
	}
	return created, nil
}

// DeleteComment removes a comment from a tracked diary, locally first. If
// the store refuses, the comment is put back where it was.
func (m *Manager) DeleteComment(ctx context.Context, diaryID, commentID string, req *model.Requester) error {
	m.mu.Lock()
	t, err := m.get(diaryID)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	idx := slices.IndexFunc(t.comments, func(c model.Comment) bool { return c.ID == commentID })
	if idx < 0 {
		m.mu.Unlock()
		return apperror.NotFound("comment", commentID)
	}
	removed := t.comments[idx]
	if err := policy.CheckComment(&removed, &t.diary, req).Err(policy.DeleteComment); err != nil {
		m.mu.Unlock()
		return err
	}
	t.comments = slices.Delete(t.comments, idx, idx+1)
	remaining := len(t.comments)
	m.mu.Unlock()

	if err := m.persist.DeleteComment(ctx, commentID); err != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		// Comments prepended while the call was in flight shift the slot.
		pos := min(max(idx+len(t.comments)-remaining, 0), len(t.comments))
		t.comments = slices.Insert(t.comments, pos, removed)
		return err
	}
	return nil
}
