package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Thcamm/personal-diary/internal/apperror"
	"github.com/Thcamm/personal-diary/internal/auth"
	"github.com/Thcamm/personal-diary/internal/model"
)

func newTestAuthService(t *testing.T) (*AuthService, *fakeStore) {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	require.NoError(t, err)

	store := newFakeStore()
	return NewAuthService(fakeUsers{store}, ts, auth.NewPasswordService(bcrypt.MinCost), quietLogger()), store
}

func validRegistration() RegisterInput {
	return RegisterInput{
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        "s3cret!",
		ConfirmPassword: "s3cret!",
	}
}

// =========================================================================
// REGISTER
// =========================================================================

func TestRegister(t *testing.T) {
	svc, _ := newTestAuthService(t)

	user, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "s3cret!", user.PasswordHash, "password must be hashed")
	assert.True(t, strings.HasPrefix(user.PasswordHash, "$2"))
	assert.Equal(t, model.DefaultAvatar("alice"), user.Avatar)
}

func TestRegister_TrimsUsername(t *testing.T) {
	svc, _ := newTestAuthService(t)
	in := validRegistration()
	in.Username = "  alice "

	user, err := svc.Register(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*RegisterInput)
		wantField string
	}{
		{"username too short", func(in *RegisterInput) { in.Username = "al" }, "username"},
		{"username with space", func(in *RegisterInput) { in.Username = "al ice" }, "username"},
		{"bad email", func(in *RegisterInput) { in.Email = "alice@example" }, "email"},
		{"short password", func(in *RegisterInput) { in.Password, in.ConfirmPassword = "12345", "12345" }, "password"},
		{"blank password", func(in *RegisterInput) { in.Password, in.ConfirmPassword = "       ", "       " }, "password"},
		{"mismatch", func(in *RegisterInput) { in.ConfirmPassword = "different" }, "confirmPassword"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestAuthService(t)
			in := validRegistration()
			tt.mutate(&in)

			_, err := svc.Register(context.Background(), in)
			require.ErrorIs(t, err, apperror.ErrValidation)
			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantField, appErr.Field)
		})
	}
}

func TestRegister_Duplicates(t *testing.T) {
	svc, _ := newTestAuthService(t)
	_, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	sameName := validRegistration()
	sameName.Email = "other@example.com"
	_, err = svc.Register(context.Background(), sameName)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Contains(t, err.Error(), "username")

	sameEmail := validRegistration()
	sameEmail.Username = "bob"
	_, err = svc.Register(context.Background(), sameEmail)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Contains(t, err.Error(), "email")
}

func TestRegister_StoreFailure(t *testing.T) {
	svc, store := newTestAuthService(t)
	store.failWith = errors.New("disk on fire")

	_, err := svc.Register(context.Background(), validRegistration())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

// =========================================================================
// LOGIN
// =========================================================================

func TestLogin(t *testing.T) {
	svc, _ := newTestAuthService(t)
	registered, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	result, err := svc.Login(context.Background(), "alice", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, result.User.ID)
	assert.NotEmpty(t, result.Token)

	req, err := svc.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, &model.Requester{ID: registered.ID, Username: "alice"}, req)
}

func TestLogin_BadCredentials(t *testing.T) {
	svc, _ := newTestAuthService(t)
	_, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "alice", "wrong-password")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = svc.Login(context.Background(), "nobody", "s3cret!")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestLogin_MalformedInputIsValidationError(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), "a!", "s3cret!")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.Login(context.Background(), "alice", "123")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestValidateToken_Garbage(t *testing.T) {
	svc, _ := newTestAuthService(t)
	_, err := svc.ValidateToken("garbage")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

// =========================================================================
// GITHUB
// =========================================================================

func TestLoginOrRegisterGitHub_NewUser(t *testing.T) {
	svc, _ := newTestAuthService(t)
	gh := &auth.GitHubUser{ID: 42, Login: "octo.cat", AvatarURL: "https://avatars.example/42"}

	result, err := svc.LoginOrRegisterGitHub(context.Background(), gh, nil)
	require.NoError(t, err)

	assert.Equal(t, "octocat", result.User.Username)
	assert.Equal(t, "42+octo.cat@users.noreply.github.com", result.User.Email)
	assert.Equal(t, "https://avatars.example/42", result.User.Avatar)
	require.NotNil(t, result.User.GitHubID)
	assert.Equal(t, int64(42), *result.User.GitHubID)
	assert.Empty(t, result.User.PasswordHash)
	assert.NotEmpty(t, result.Token)
}

func TestLoginOrRegisterGitHub_ReturningUser(t *testing.T) {
	svc, _ := newTestAuthService(t)
	gh := &auth.GitHubUser{ID: 42, Login: "octocat", Email: "octo@example.com"}

	first, err := svc.LoginOrRegisterGitHub(context.Background(), gh, nil)
	require.NoError(t, err)
	second, err := svc.LoginOrRegisterGitHub(context.Background(), gh, nil)
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
}

func TestLoginOrRegisterGitHub_UsernameTaken(t *testing.T) {
	svc, _ := newTestAuthService(t)
	in := validRegistration()
	in.Username = "octocat"
	in.Email = "octo@example.com"
	_, err := svc.Register(context.Background(), in)
	require.NoError(t, err)

	gh := &auth.GitHubUser{ID: 7, Login: "octocat", Email: "octo@example.com"}
	result, err := svc.LoginOrRegisterGitHub(context.Background(), gh, nil)
	require.NoError(t, err)

	assert.Equal(t, "octocat2", result.User.Username)
	assert.Equal(t, "7+octocat@users.noreply.github.com", result.User.Email, "a taken email is not reused")
}

func TestLoginOrRegisterGitHub_LinksSignedInUser(t *testing.T) {
	svc, _ := newTestAuthService(t)
	alice, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	current := &model.Requester{ID: alice.ID, Username: alice.Username}
	result, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 9, Login: "al"}, current)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, result.User.ID)

	// Next time the GitHub account alone signs in as alice.
	again, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 9, Login: "al"}, nil)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, again.User.ID)

	// Password login still works.
	_, err = svc.Login(context.Background(), "alice", "s3cret!")
	assert.NoError(t, err)
}

func TestLoginOrRegisterGitHub_ShortLoginIsPadded(t *testing.T) {
	svc, _ := newTestAuthService(t)
	result, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 1, Login: "x"}, nil)
	require.NoError(t, err)
	assert.NoError(t, ValidateUsername(result.User.Username))
}

func TestLoginOrRegisterGitHub_Nil(t *testing.T) {
	svc, _ := newTestAuthService(t)
	_, err := svc.LoginOrRegisterGitHub(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestGetUserByID(t *testing.T) {
	svc, _ := newTestAuthService(t)
	alice, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	got, err := svc.GetUserByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = svc.GetUserByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.GetUserByID(context.Background(), "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
