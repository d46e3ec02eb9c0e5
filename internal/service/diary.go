package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Thcamm/personal-diary/internal/apperror"
	"github.com/Thcamm/personal-diary/internal/model"
	"github.com/Thcamm/personal-diary/internal/policy"
	"github.com/Thcamm/personal-diary/internal/repository"
)

// DiaryService is the business layer for diaries. Every operation takes the
// requester explicitly and runs the policy check before touching the store.
type DiaryService struct {
	diaries repository.DiaryRepository
	logger  *slog.Logger
}

func NewDiaryService(diaries repository.DiaryRepository, logger *slog.Logger) *DiaryService {
	return &DiaryService{diaries: diaries, logger: logger}
}

// CreateDiaryInput is the body of a new diary.
type CreateDiaryInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	IsPublic bool   `json:"isPublic"`
}

// Create stores a new diary owned by req.
func (s *DiaryService) Create(ctx context.Context, req *model.Requester, in CreateDiaryInput) (*model.Diary, error) {
	if req == nil {
		return nil, apperror.Unauthorized("you need to log in to write a diary")
	}

	title := normalizeText(in.Title)
	content := normalizeText(in.Content)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateContent(content); err != nil {
		return nil, err
	}

	diary := &model.Diary{
		UserID:   req.ID,
		Title:    title,
		Content:  content,
		IsPublic: in.IsPublic,
	}
	if err := s.diaries.Create(ctx, diary); err != nil {
		s.logger.Error("failed to create diary",
			slog.String("userID", req.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating diary: %w", err)
	}

	s.logger.Info("diary created",
		slog.String("id", diary.ID),
		slog.String("userID", diary.UserID),
		slog.Bool("public", diary.IsPublic),
	)
	return diary, nil
}

// Get returns the diary if req may view it. A denied view returns only the
// error, never the record.
func (s *DiaryService) Get(ctx context.Context, req *model.Requester, id string) (*model.Diary, error) {
	return loadDiary(ctx, s.diaries, req, id, policy.View)
}

// Update applies patch if req owns the diary. Only the fields set in patch
// change; the like counter is never touched.
func (s *DiaryService) Update(ctx context.Context, req *model.Requester, id string, patch repository.DiaryPatch) (*model.Diary, error) {
	if _, err := loadDiary(ctx, s.diaries, req, id, policy.Edit); err != nil {
		return nil, err
	}

	if patch.Empty() {
		return nil, apperror.ValidationFailed("patch", "nothing to update")
	}
	if patch.Title != nil {
		title := normalizeText(*patch.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		patch.Title = &title
	}
	if patch.Content != nil {
		content := normalizeText(*patch.Content)
		if err := validateContent(content); err != nil {
			return nil, err
		}
		patch.Content = &content
	}

	updated, err := s.diaries.Update(ctx, id, patch)
	if err != nil {
		return nil, logStoreError(s.logger, "failed to update diary", id, err)
	}

	s.logger.Info("diary updated", slog.String("id", id))
	return updated, nil
}

// Delete removes the diary, with its comments and likes, if req owns it.
func (s *DiaryService) Delete(ctx context.Context, req *model.Requester, id string) error {
	if _, err := loadDiary(ctx, s.diaries, req, id, policy.Delete); err != nil {
		return err
	}
	if err := s.diaries.Delete(ctx, id); err != nil {
		return logStoreError(s.logger, "failed to delete diary", id, err)
	}
	s.logger.Info("diary deleted", slog.String("id", id), slog.String("userID", req.ID))
	return nil
}

// loadDiary fetches the diary and checks action a on it.
func loadDiary(ctx context.Context, diaries repository.DiaryRepository, req *model.Requester, id string, a policy.Action) (*model.Diary, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "diary ID is required")
	}
	diary, err := diaries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(diary, req, a).Err(a); err != nil {
		return nil, err
	}
	return diary, nil
}

// logStoreError logs unexpected store failures. NotFound and other
// application errors pass through quietly.
func logStoreError(logger *slog.Logger, msg, id string, err error) error {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error(msg, slog.String("id", id), slog.String("error", err.Error()))
	}
	return err
}
