package handlers

import (
	"context"

	"github.com/vdb2/vdb2/internal/history"
	"github.com/vdb2/vdb2/internal/server/dto"
)

// HistoryHandler serves the change history of the data directory.
type HistoryHandler struct {
	rec *history.Recorder
}

// NewHistoryHandler creates a new history handler. rec may be nil when
// history is disabled.
func NewHistoryHandler(rec *history.Recorder) *HistoryHandler {
	return &HistoryHandler{rec: rec}
}

// ListHistory returns the most recent commits.
func (h *HistoryHandler) ListHistory(ctx context.Context, req *dto.ListHistoryRequest) (*dto.HistoryResponse, error) {
	if h.rec == nil {
		return nil, dto.NotFound("history")
	}
	commits, err := h.rec.Log(req.Limit)
	if err != nil {
		return nil, dto.InternalWithError("Failed to read history", err)
	}
	return &dto.HistoryResponse{Commits: commits}, nil
}
