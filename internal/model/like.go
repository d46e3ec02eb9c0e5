package model

import "time"

// Like is one user's membership in a diary's like set.
type Like struct {
	DiaryID   string    `json:"diaryId"   db:"diary_id"`
	UserID    string    `json:"userId"    db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// LikeResult reports the outcome of a like or unlike.
//
// Changed is false when the call was a no-op (already liked, or not liked).
type LikeResult struct {
	DiaryID string `json:"diaryId"`
	Liked   bool   `json:"liked"`
	Likes   int    `json:"likes"`
	Changed bool   `json:"changed"`
}
