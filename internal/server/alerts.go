package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/miiguelriios/WasteLessApp/pkg/model"
	"github.com/miiguelriios/WasteLessApp/pkg/reconciler"
)

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	list, err := s.inventory.ListAlerts(ctx)
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch alerts")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type createAlertRequest struct {
	ItemID  int64           `json:"item_id"`
	Type    model.AlertType `json:"alert_type"`
	Message string          `json:"message"`
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req createAlertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	a := &model.Alert{ItemID: req.ItemID, Type: req.Type, Message: req.Message}
	if err := s.inventory.CreateAlert(ctx, a); err != nil {
		s.writeError(w, r, err, "Error adding alert")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

type runResponse struct {
	OK bool `json:"ok"`
	*model.RunSummary
	Error string `json:"error,omitempty"`
}

// handleRunAlerts runs one reconciliation pass. The pass is not bound to the request
// timeout; it runs to completion or fails on a store error.
func (s *Server) handleRunAlerts(w http.ResponseWriter, r *http.Request) {
	window, err := reconciler.ParseWindow(r.URL.Query().Get("window_days"), s.opts.WindowDays)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, runResponse{Error: err.Error()})
		return
	}

	summary, err := s.runner.Run(context.WithoutCancel(r.Context()), window)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, reconciler.ErrInvalidWindow) {
			status = http.StatusBadRequest
		}
		s.logger.Error("manual alert run failed", "window_days", window, "error", err)
		writeJSON(w, status, runResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, runResponse{OK: true, RunSummary: summary})
}
