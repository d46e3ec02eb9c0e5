package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Thcamm/personal-diary/internal/auth"
	"github.com/Thcamm/personal-diary/internal/service"
)

type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

func (h *CommentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.comments.List(r.Context(), auth.RequesterFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateCommentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	c, err := h.comments.Create(r.Context(), auth.RequesterFromContext(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.comments.Delete(r.Context(), auth.RequesterFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
