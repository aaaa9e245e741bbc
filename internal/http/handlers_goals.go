package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
)

type goalDetail struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Month      string  `json:"month"`
	Target     float64 `json:"target"`
	Progress   float64 `json:"progress"`
	Percentage float64 `json:"percentage"`
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, map[string]any{"goals": sum.View().Goals})
}

func (s *Server) handleUpsertGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}

	userID := currentUser(r)
	g, created, err := s.ledger.UpsertGoal(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate(userID)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]string{"name": g.Name, "month": g.Month.Format(core.MonthLayout)})
}

func (s *Server) handleGoalProgress(w http.ResponseWriter, r *http.Request) {
	var kind *core.Kind
	if t := strings.TrimSpace(r.URL.Query().Get("type")); t != "" {
		k, err := core.ParseKind(t)
		if err != nil {
			writeError(w, r, err)
			return
		}
		kind = &k
	}
	month, err := optionalMonthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	st, err := s.ledger.GoalProgress(r.Context(), currentUser(r), strings.TrimSpace(r.PathValue("name")), kind, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goalDetail{
		Name:       st.Goal.Name,
		Type:       st.Goal.Type.String(),
		Month:      st.Goal.Month.Format(core.MonthLayout),
		Target:     st.Progress.Target.InexactFloat64(),
		Progress:   st.Progress.Progress.InexactFloat64(),
		Percentage: st.Progress.Percentage.InexactFloat64(),
	})
}
