package service

import (
	"context"
	"log/slog"

	"github.com/Thcamm/personal-diary/internal/apperror"
	"github.com/Thcamm/personal-diary/internal/model"
	"github.com/Thcamm/personal-diary/internal/policy"
	"github.com/Thcamm/personal-diary/internal/repository"
)

type CommentService struct {
	comments repository.CommentRepository
	diaries  repository.DiaryRepository
	logger   *slog.Logger
}

func NewCommentService(comments repository.CommentRepository, diaries repository.DiaryRepository, logger *slog.Logger) *CommentService {
	return &CommentService{comments: comments, diaries: diaries, logger: logger}
}

// CreateCommentInput is the body of a new comment.
type CreateCommentInput struct {
	Content   string `json:"content"`
	Anonymous bool   `json:"anonymous"`
}

// List returns the diary's comments, newest first, if req may view it.
func (s *CommentService) List(ctx context.Context, req *model.Requester, diaryID string) ([]model.Comment, error) {
	if _, err := loadDiary(ctx, s.diaries, req, diaryID, policy.View); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByDiary(ctx, diaryID, repository.Desc)
	if err != nil {
		return nil, logStoreError(s.logger, "failed to list comments", diaryID, err)
	}
	return comments, nil
}

// Create posts a comment on a public diary. With Anonymous set the comment
// is shown as "Anonymous" and records no author, which means only the
// diary's owner can ever delete it.
func (s *CommentService) Create(ctx context.Context, req *model.Requester, diaryID string, in CreateCommentInput) (*model.Comment, error) {
	if _, err := loadDiary(ctx, s.diaries, req, diaryID, policy.Comment); err != nil {
		return nil, err
	}

	content := normalizeText(in.Content)
	if err := ValidateComment(content); err != nil {
		return nil, err
	}

	comment := &model.Comment{
		DiaryID:   diaryID,
		GuestName: req.Username,
		Content:   content,
	}
	if in.Anonymous {
		comment.GuestName = model.AnonymousName
	} else {
		id := req.ID
		comment.UserID = &id
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, logStoreError(s.logger, "failed to create comment", diaryID, err)
	}

	s.logger.Info("comment created",
		slog.String("id", comment.ID),
		slog.String("diaryID", diaryID),
		slog.Bool("anonymous", in.Anonymous),
	)
	return comment, nil
}

// Delete removes a comment if req wrote it or owns the diary.
func (s *CommentService) Delete(ctx context.Context, req *model.Requester, commentID string) error {
	if commentID == "" {
		return apperror.ValidationFailed("id", "comment ID is required")
	}
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	diary, err := s.diaries.GetByID(ctx, comment.DiaryID)
	if err != nil {
		return err
	}
	if err := policy.CheckComment(comment, diary, req).Err(policy.DeleteComment); err != nil {
		return err
	}

	if err := s.comments.Delete(ctx, commentID); err != nil {
		return logStoreError(s.logger, "failed to delete comment", commentID, err)
	}
	s.logger.Info("comment deleted",
		slog.String("id", commentID),
		slog.String("diaryID", diary.ID),
		slog.String("by", req.ID),
	)
	return nil
}
