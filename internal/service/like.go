package service

import (
	"context"
	"log/slog"

	"github.com/Thcamm/personal-diary/internal/model"
	"github.com/Thcamm/personal-diary/internal/policy"
	"github.com/Thcamm/personal-diary/internal/repository"
)

type LikeService struct {
	likes   repository.LikeRepository
	diaries repository.DiaryRepository
	logger  *slog.Logger
}

func NewLikeService(likes repository.LikeRepository, diaries repository.DiaryRepository, logger *slog.Logger) *LikeService {
	return &LikeService{likes: likes, diaries: diaries, logger: logger}
}

// Like adds req's like. Liking twice is a no-op that reports the current
// count with Changed false.
func (s *LikeService) Like(ctx context.Context, req *model.Requester, diaryID string) (model.LikeResult, error) {
	if _, err := loadDiary(ctx, s.diaries, req, diaryID, policy.Like); err != nil {
		return model.LikeResult{}, err
	}
	res, err := s.likes.AddLike(ctx, diaryID, req.ID)
	if err != nil {
		return model.LikeResult{}, logStoreError(s.logger, "failed to like diary", diaryID, err)
	}
	return res, nil
}

// Unlike withdraws req's like.
func (s *LikeService) Unlike(ctx context.Context, req *model.Requester, diaryID string) (model.LikeResult, error) {
	if _, err := loadDiary(ctx, s.diaries, req, diaryID, policy.Like); err != nil {
		return model.LikeResult{}, err
	}
	res, err := s.likes.RemoveLike(ctx, diaryID, req.ID)
	if err != nil {
		return model.LikeResult{}, logStoreError(s.logger, "failed to unlike diary", diaryID, err)
	}
	return res, nil
}

// Liked reports whether req has liked the diary. Anonymous requesters never
// have.
func (s *LikeService) Liked(ctx context.Context, req *model.Requester, diaryID string) (bool, error) {
	if req == nil {
		return false, nil
	}
	return s.likes.HasLiked(ctx, diaryID, req.ID)
}
