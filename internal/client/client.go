// Package client is the HTTP client of the diary service, used by diaryctl.
//
// Every call takes a context and is additionally bounded by the client's
// per-request timeout. Failures come back in the apperror taxonomy: a reply
// of 400, 401, 403, 404 or 409 is mapped to the matching sentinel, and a
// transport failure or a 5xx reply to apperror.ErrNetwork. Nothing is
// retried.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Thcamm/personal-diary/internal/apperror"
	"github.com/Thcamm/personal-diary/internal/feed"
	"github.com/Thcamm/personal-diary/internal/handler"
	"github.com/Thcamm/personal-diary/internal/model"
	"github.com/Thcamm/personal-diary/internal/repository"
	"github.com/Thcamm/personal-diary/internal/service"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 10 * time.Second

type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
}

type Option func(*Client)

// WithToken authenticates every request with a session token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout sets the per-request timeout. Non-positive values are
// ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for the server at baseURL, e.g.
// "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the session token, e.g. after Login.
func (c *Client) SetToken(token string) {
	c.token = token
}

// StatusError is an error reply with no sentinel of its own, such as 429.
type StatusError struct {
	Status  int
	Kind    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server replied %d", e.Status)
	}
	return fmt.Sprintf("server replied %d: %s", e.Status, e.Message)
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *Client) Register(ctx context.Context, in service.RegisterInput) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodPost, "/auth/register", in, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login signs in and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (*service.AuthResult, error) {
	body := map[string]string{"username": username, "password": password}
	var res service.AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &res); err != nil {
		return nil, err
	}
	c.token = res.Token
	return &res, nil
}

// Logout forgets the token. Tokens are stateless, so the server call only
// clears the browser cookie; it is made for symmetry and its failure is
// reported but harmless.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	c.token = ""
	return err
}

func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Feed returns the home feed. A zero limit returns every visible diary.
func (c *Client) Feed(ctx context.Context, limit, offset int) ([]feed.Entry, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/api/feed"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var entries []feed.Entry
	if err := c.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) MyDiaries(ctx context.Context, v feed.Visibility) (*feed.Owned, error) {
	path := "/api/me/diaries"
	if v != "" {
		path += "?visibility=" + url.QueryEscape(string(v))
	}
	var owned feed.Owned
	if err := c.do(ctx, http.MethodGet, path, nil, &owned); err != nil {
		return nil, err
	}
	return &owned, nil
}

func (c *Client) GetDiary(ctx context.Context, id string) (*handler.DiaryDetail, error) {
	var detail handler.DiaryDetail
	if err := c.do(ctx, http.MethodGet, "/api/diaries/"+url.PathEscape(id), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) CreateDiary(ctx context.Context, in service.CreateDiaryInput) (*model.Diary, error) {
	var d model.Diary
	if err := c.do(ctx, http.MethodPost, "/api/diaries", in, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) UpdateDiary(ctx context.Context, id string, patch repository.DiaryPatch) (*model.Diary, error) {
	var d model.Diary
	if err := c.do(ctx, http.MethodPatch, "/api/diaries/"+url.PathEscape(id), patch, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) DeleteDiary(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/diaries/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Like(ctx context.Context, diaryID string) (model.LikeResult, error) {
	var res model.LikeResult
	err := c.do(ctx, http.MethodPut, "/api/diaries/"+url.PathEscape(diaryID)+"/like", nil, &res)
	return res, err
}

func (c *Client) Unlike(ctx context.Context, diaryID string) (model.LikeResult, error) {
	var res model.LikeResult
	err := c.do(ctx, http.MethodDelete, "/api/diaries/"+url.PathEscape(diaryID)+"/like", nil, &res)
	return res, err
}

func (c *Client) ListComments(ctx context.Context, diaryID string) ([]model.Comment, error) {
	var list []model.Comment
	if err := c.do(ctx, http.MethodGet, "/api/diaries/"+url.PathEscape(diaryID)+"/comments", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) CreateComment(ctx context.Context, diaryID string, in service.CreateCommentInput) (*model.Comment, error) {
	var comment model.Comment
	if err := c.do(ctx, http.MethodPost, "/api/diaries/"+url.PathEscape(diaryID)+"/comments", in, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	return c.do(ctx, http.MethodDelete, "/api/comments/"+url.PathEscape(commentID), nil, nil)
}

func (c *Client) GetUser(ctx context.Context, id string) (*model.PublicUser, error) {
	var user model.PublicUser
	if err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(id), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	op := method + " " + path

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encoding %s request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: building %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperror.NetworkFailure(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return decodeError(op, resp, errBody)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return apperror.NetworkFailure(op, ctx.Err())
		}
		return fmt.Errorf("client: decoding %s response: %w", op, err)
	}
	return nil
}

// decodeError maps an error reply onto the taxonomy.
func decodeError(op string, resp *http.Response, body []byte) error {
	var er handler.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Message == "" {
		er.Message = strings.TrimSpace(string(body))
	}

	var sentinel error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		sentinel = apperror.ErrValidation
	case http.StatusUnauthorized:
		sentinel = apperror.ErrUnauthorized
	case http.StatusForbidden:
		sentinel = apperror.ErrForbidden
	case http.StatusNotFound:
		sentinel = apperror.ErrNotFound
	case http.StatusConflict:
		sentinel = apperror.ErrConflict
	}
	if sentinel != nil {
		return &apperror.AppError{Err: sentinel, Message: er.Message, Field: er.Field}
	}

	statusErr := &StatusError{Status: resp.StatusCode, Kind: er.Error, Message: er.Message}
	if resp.StatusCode >= 500 {
		return apperror.NetworkFailure(op, statusErr)
	}
	return statusErr
}

// IsRateLimited reports whether err is a 429 reply.
func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusTooManyRequests
}
