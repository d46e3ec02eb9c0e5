package handler

import (
	"log/slog"
	"net/http"

	"github.com/Thcamm/personal-diary/internal/auth"
	"github.com/Thcamm/personal-diary/internal/feed"
)

// MaxFeedLimit caps ?limit on the home feed.
const MaxFeedLimit = 200

type FeedHandler struct {
	feed   *feed.Assembler
	logger *slog.Logger
}

func NewFeedHandler(asm *feed.Assembler, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{feed: asm, logger: logger}
}

// HandleFeed serves the home feed. ?limit and ?offset page it; without a
// limit every visible diary is returned.
func (h *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	limit = min(limit, MaxFeedLimit)

	entries, err := h.feed.ListVisible(r.Context(), auth.RequesterFromContext(r.Context()), feed.Options{Limit: limit, Offset: offset})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleMine serves the caller's own diaries. ?visibility is all, public or
// private.
func (h *FeedHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	v, err := feed.ParseVisibility(r.URL.Query().Get("visibility"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	owned, err := h.feed.ListOwned(r.Context(), auth.RequesterFromContext(r.Context()), v)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, owned)
}
