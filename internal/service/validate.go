package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/Thcamm/personal-diary/internal/apperror"
)

const (
	MinPasswordLength = 6
	MaxTitleLength    = 200
	MaxContentLength  = 50000
	MaxCommentLength  = 2000
)

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	digitsRe   = regexp.MustCompile(`^\d+$`)
)

// ValidateUsername: 3 to 20 letters, digits, underscores or hyphens.
func ValidateUsername(username string) error {
	if !usernameRe.MatchString(username) {
		return apperror.ValidationFailed("username",
			"username must be 3-20 characters of letters, digits, _ or -")
	}
	return nil
}

// ValidateEmail applies a basic pattern plus structural checks: a local
// part of at least two characters, a dotted domain whose first label and
// extension are at least two characters, and an extension that is not all
// digits.
func ValidateEmail(email string) error {
	invalid := apperror.ValidationFailed("email", "invalid email format")
	if !emailRe.MatchString(email) {
		return invalid
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") || len(local) < 2 {
		return invalid
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return invalid
	}
	name, ext := labels[0], labels[len(labels)-1]
	if len(name) < 2 || len(ext) < 2 || digitsRe.MatchString(ext) {
		return invalid
	}
	return nil
}

// ValidatePassword: at least six characters, not all whitespace.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength || strings.TrimSpace(password) == "" {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters and not blank", MinPasswordLength))
	}
	return nil
}

// normalizeText trims surrounding space and converts to NFC, so that
// visually identical input is stored and measured the same way.
func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func validateTitle(title string) error {
	if title == "" {
		return apperror.ValidationFailed("title", "title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	return nil
}

func validateContent(content string) error {
	if utf8.RuneCountInString(content) > MaxContentLength {
		return apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxContentLength))
	}
	return nil
}

// ValidateComment is exported for the client, which rejects an empty
// comment before any network call.
func ValidateComment(content string) error {
	if content == "" {
		return apperror.ValidationFailed("content", "comment must not be empty")
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return apperror.ValidationFailed("content",
			fmt.Sprintf("comment must be %d characters or less", MaxCommentLength))
	}
	return nil
}
