package model

import "time"

// AnonymousName is the display name of a comment posted under the alias.
const AnonymousName = "Anonymous"

// Comment belongs to one diary.
//
// UserID is nil only when the author chose to post as Anonymous. GuestName
// is fixed at creation time.
type Comment struct {
	ID        string    `json:"id"        db:"id"`
	DiaryID   string    `json:"diaryId"   db:"diary_id"`
	UserID    *string   `json:"userId"    db:"user_id"`
	GuestName string    `json:"guestName" db:"guest_name"`
	Content   string    `json:"content"   db:"content"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// IsAnonymous reports whether the comment has no recorded author.
func (c *Comment) IsAnonymous() bool {
	return c.UserID == nil
}

// WrittenBy reports whether userID is the recorded author of c.
func (c *Comment) WrittenBy(userID string) bool {
	return c.UserID != nil && *c.UserID == userID
}
