package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Thcamm/personal-diary/internal/auth"
	"github.com/Thcamm/personal-diary/internal/model"
	"github.com/Thcamm/personal-diary/internal/repository"
	"github.com/Thcamm/personal-diary/internal/service"
)

type DiaryHandler struct {
	diaries *service.DiaryService
	likes   *service.LikeService
	logger  *slog.Logger
}

func NewDiaryHandler(diaries *service.DiaryService, likes *service.LikeService, logger *slog.Logger) *DiaryHandler {
	return &DiaryHandler{diaries: diaries, likes: likes, logger: logger}
}

// DiaryDetail is a single diary with the viewer's like flag.
type DiaryDetail struct {
	Diary         *model.Diary `json:"diary"`
	LikedByViewer bool         `json:"likedByViewer"`
}

func (h *DiaryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateDiaryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	d, err := h.diaries.Create(r.Context(), auth.RequesterFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *DiaryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	req := auth.RequesterFromContext(r.Context())
	id := chi.URLParam(r, "id")

	d, err := h.diaries.Get(r.Context(), req, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	liked, err := h.likes.Liked(r.Context(), req, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, DiaryDetail{Diary: d, LikedByViewer: liked})
}

func (h *DiaryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch repository.DiaryPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	d, err := h.diaries.Update(r.Context(), auth.RequesterFromContext(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DiaryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.diaries.Delete(r.Context(), auth.RequesterFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLike is idempotent: PUT adds the caller's like.
func (h *DiaryHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	res, err := h.likes.Like(r.Context(), auth.RequesterFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *DiaryHandler) HandleUnlike(w http.ResponseWriter, r *http.Request) {
	res, err := h.likes.Unlike(r.Context(), auth.RequesterFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
