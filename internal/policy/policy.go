// Package policy decides who may do what to a diary.
//
// Every function here is pure: the result depends only on the diary
// snapshot, the requester and the action. A nil requester is an anonymous
// visitor. Denials are values, not errors; callers turn them into
// apperror values with Decision.Err when they need to.
package policy

import (
	"github.com/Thcamm/personal-diary/internal/apperror"
	"github.com/Thcamm/personal-diary/internal/model"
)

// Action is something a requester wants to do to a diary.
type Action int

const (
	View Action = iota
	Edit
	Delete
	Like
	Comment
	DeleteComment
)

var actionNames = map[Action]string{
	View:          "view",
	Edit:          "edit",
	Delete:        "delete",
	Like:          "like",
	Comment:       "comment on",
	DeleteComment: "delete a comment on",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return "unknown"
}

// Decision is the ternary outcome of a check.
type Decision int

const (
	Allowed Decision = iota
	// DeniedNeedsAuth means the requester is anonymous; prompt for login.
	DeniedNeedsAuth
	// DeniedForbidden means the requester is known but lacks rights.
	DeniedForbidden
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case DeniedNeedsAuth:
		return "denied_needs_auth"
	case DeniedForbidden:
		return "denied_forbidden"
	}
	return "unknown"
}

// Allowed reports whether d permits the action.
func (d Decision) Allowed() bool {
	return d == Allowed
}

// Err converts a denial into an apperror. It returns nil for Allowed.
func (d Decision) Err(a Action) error {
	switch d {
	case DeniedNeedsAuth:
		return apperror.Unauthorized("you need to log in to " + a.String() + " this diary")
	case DeniedForbidden:
		return apperror.Forbidden("you are not allowed to " + a.String() + " this diary")
	}
	return nil
}

// Check evaluates action a on diary d for requester r.
//
// DeleteComment needs the comment as well; use CheckComment.
func Check(d *model.Diary, r *model.Requester, a Action) Decision {
	if d == nil {
		return DeniedForbidden
	}
	owner := r.IsOwner(d.UserID)

	var ok bool
	switch a {
	case View:
		ok = d.IsPublic || owner
	case Edit, Delete:
		ok = owner
	case Like:
		ok = r != nil && (d.IsPublic || owner)
	case Comment:
		// Private diaries take no comments, not even from their owner.
		ok = r != nil && d.IsPublic
	default:
		ok = false
	}
	return decide(ok, r)
}

// CheckComment evaluates DeleteComment for comment c on diary d.
//
// The comment's author and the diary's owner may delete it. A comment posted
// as Anonymous has no author on record, so only the owner can remove it.
func CheckComment(c *model.Comment, d *model.Diary, r *model.Requester) Decision {
	if c == nil || d == nil {
		return DeniedForbidden
	}
	ok := r != nil && (c.WrittenBy(r.ID) || r.ID == d.UserID)
	return decide(ok, r)
}

// CanView is shorthand for Check(d, r, View).Allowed().
func CanView(d *model.Diary, r *model.Requester) bool {
	return Check(d, r, View).Allowed()
}

func decide(ok bool, r *model.Requester) Decision {
	switch {
	case ok:
		return Allowed
	case r == nil:
		return DeniedNeedsAuth
	default:
		return DeniedForbidden
	}
}
