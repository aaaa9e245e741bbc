package http

import (
	"errors"
	"net/http"
	"time"

	"fintrack/internal/core"
)

type reportStatus struct {
	Month       *string    `json:"month"`
	Delivered   bool       `json:"delivered"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
}

// handleReport returns the month summary with YYYY-MM as its month.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	month, err := s.monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := s.summary(r.Context(), currentUser(r), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view := sum.View()
	view.Month = month.Format(core.MonthLayout)
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	month, err := s.monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	count := 1
	if err := s.ledger.DeleteReport(r.Context(), currentUser(r), month); err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			writeError(w, r, err)
			return
		}
		count = 0
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted": count > 0,
		"count":   count,
		"month":   month.Format(core.MonthLayout),
	})
}

func (s *Server) handleReportStatus(w http.ResponseWriter, r *http.Request) {
	rep, err := s.ledger.LatestReport(r.Context(), currentUser(r))
	if errors.Is(err, core.ErrNotFound) {
		writeJSON(w, http.StatusOK, reportStatus{})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	month := rep.Month.Format(core.MonthLayout)
	generated := rep.UpdatedAt.UTC()
	writeJSON(w, http.StatusOK, reportStatus{Month: &month, Delivered: rep.Delivered, GeneratedAt: &generated})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	month, err := s.monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := s.summary(r.Context(), currentUser(r), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"insights": s.insights.Build(sum)})
}

// handleClearMonth deletes every entry of the month.
func (s *Server) handleClearMonth(w http.ResponseWriter, r *http.Request) {
	month, err := s.monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID := currentUser(r)
	res, err := s.ledger.ClearMonth(r.Context(), userID, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate(userID)
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted":       res.Income+res.Expense > 0,
		"expense_count": res.Expense,
		"income_count":  res.Income,
		"month":         month.Format(core.MonthLayout),
	})
}
