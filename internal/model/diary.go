package model

import "time"

// Diary is a user-authored entry with public/private visibility.
//
// UserID never changes after creation. Likes is a non-negative counter that
// moves by exactly one per like or unlike.
type Diary struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Title     string    `json:"title"     db:"title"`
	Content   string    `json:"content"   db:"content"`
	IsPublic  bool      `json:"isPublic"  db:"is_public"`
	Likes     int       `json:"likes"     db:"likes"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// DiaryStats summarises one owner's diaries.
type DiaryStats struct {
	Total      int `json:"total"`
	Public     int `json:"public"`
	Private    int `json:"private"`
	TotalLikes int `json:"totalLikes"`
}

// StatsOf computes stats over diaries.
func StatsOf(diaries []Diary) DiaryStats {
	var s DiaryStats
	for _, d := range diaries {
		s.Total++
		if d.IsPublic {
			s.Public++
		} else {
			s.Private++
		}
		s.TotalLikes += d.Likes
	}
	return s
}
