package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Thcamm/personal-diary/internal/apperror"
	"github.com/Thcamm/personal-diary/internal/auth"
	"github.com/Thcamm/personal-diary/internal/model"
	"github.com/Thcamm/personal-diary/internal/repository"
)

// AuthService handles registration, password and GitHub sign-in, and
// session tokens.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// AuthResult is a signed-in user and their session token.
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// errBadCredentials is returned for an unknown user and a wrong password
// alike.
func errBadCredentials() error {
	return apperror.Unauthorized("invalid username or password")
}

// Register validates in, rejects a taken username or email and stores the
// new account with a bcrypt hash and the default avatar. It does not sign
// the user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	if in.Password != in.ConfirmPassword {
		return nil, apperror.ValidationFailed("confirmPassword", "passwords do not match")
	}

	taken, err := s.users.ExistsUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("service/auth: checking username: %w", err)
	}
	if taken {
		return nil, apperror.Conflict("username", username)
	}
	taken, err = s.users.ExistsEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}
	if taken {
		return nil, apperror.Conflict("email", email)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", err.Error())
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Avatar:       model.DefaultAvatar(username),
	}
	// The store's unique constraints still catch a concurrent registration.
	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to create user",
				slog.String("username", username),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login checks username and password and issues a session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errBadCredentials()
		}
		return nil, fmt.Errorf("service/auth: loading user %q: %w", username, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Info("login failed", slog.String("username", username))
			return nil, errBadCredentials()
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	return s.issue(user)
}

// LoginOrRegisterGitHub signs in the account linked to ghUser.
//
// When no account is linked yet and current is signed in, the GitHub
// account is linked to current. Otherwise a new account is created with a
// username derived from the GitHub login; if the login is taken a numeric
// suffix is added. When GitHub hides the email, or the email belongs to
// another account, GitHub's noreply address is used.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser, current *model.Requester) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user, err := s.users.GetUserByGitHubID(ctx, ghUser.ID)
	switch {
	case err == nil:
		return s.issue(user)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: looking up githubID=%d: %w", ghUser.ID, err)
	}

	if current != nil {
		if err := s.users.LinkGitHub(ctx, current.ID, ghUser.ID); err != nil {
			return nil, fmt.Errorf("service/auth: linking github account: %w", err)
		}
		user, err := s.users.GetUserByID(ctx, current.ID)
		if err != nil {
			return nil, fmt.Errorf("service/auth: reloading user %s: %w", current.ID, err)
		}
		s.logger.Info("github account linked",
			slog.String("userID", user.ID),
			slog.Int64("githubID", ghUser.ID),
		)
		return s.issue(user)
	}

	user, err = s.createGitHubUser(ctx, ghUser)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return s.issue(user)
}

var unsafeUsernameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func (s *AuthService) createGitHubUser(ctx context.Context, gh *auth.GitHubUser) (*model.User, error) {
	base := unsafeUsernameChars.ReplaceAllString(gh.Login, "")
	if len(base) > 16 {
		base = base[:16]
	}
	for len(base) < 3 {
		base += "_"
	}

	username := base
	for i := 2; ; i++ {
		taken, err := s.users.ExistsUsername(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("service/auth: checking username: %w", err)
		}
		if !taken {
			break
		}
		if i > 99 {
			return nil, apperror.Conflict("username", base)
		}
		username = base + strconv.Itoa(i)
	}

	email := gh.Email
	if email != "" {
		taken, err := s.users.ExistsEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("service/auth: checking email: %w", err)
		}
		if taken {
			email = ""
		}
	}
	if email == "" {
		email = fmt.Sprintf("%d+%s@users.noreply.github.com", gh.ID, gh.Login)
	}

	avatar := gh.AvatarURL
	if avatar == "" {
		avatar = model.DefaultAvatar(username)
	}

	id := gh.ID
	user := &model.User{
		Username: username,
		Email:    email,
		GitHubID: &id,
		Avatar:   avatar,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating GitHub user (githubID=%d): %w", gh.ID, err)
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// ValidateToken returns the requester a token was issued to.
func (s *AuthService) ValidateToken(token string) (*model.Requester, error) {
	req, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperror.Unauthorized("invalid or expired session")
	}
	return req, nil
}

// TokenTTL is the lifetime of issued tokens, for cookie expiry.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}
