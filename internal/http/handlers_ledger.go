package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

type (
	categoryView struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}

	entryResult struct {
		ID      int64  `json:"id"`
		Warning string `json:"warning,omitempty"`
	}

	ledgerItem struct {
		ID     int64   `json:"id"`
		Kind   string  `json:"kind"`
		Type   string  `json:"type"`
		Amount float64 `json:"amount"`
		Date   string  `json:"date"`
		Note   string  `json:"note"`
	}

	ledgerResponse struct {
		Items    []ledgerItem `json:"items"`
		Page     int          `json:"page"`
		PageSize int          `json:"page_size"`
		Total    int          `json:"total"`
	}
)

func (s *Server) handleListCategories(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, err := s.ledger.ListCategories(r.Context(), currentUser(r), kind)
		if err != nil {
			writeError(w, r, err)
			return
		}
		types := make([]categoryView, 0, len(cats))
		for _, c := range cats {
			types = append(types, categoryView{Name: c.Name, Description: c.Description})
		}
		writeJSON(w, http.StatusOK, map[string]any{"types": types})
	}
}

func (s *Server) handleCreateCategory(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req categoryRequest
		if err := s.decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		c, created, err := s.ledger.EnsureCategory(r.Context(), currentUser(r), kind, req.Name, req.Description)
		if err != nil {
			writeError(w, r, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, map[string]string{"name": c.Name})
	}
}

func (s *Server) handleCategoryTotal(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(r.PathValue("name"))
		total, err := s.ledger.CategoryTotal(r.Context(), currentUser(r), kind, name)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"name": name, "total": total.InexactFloat64()})
	}
}

func (s *Server) handleKindTotal(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		total, err := s.ledger.KindTotal(r.Context(), currentUser(r), kind)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"total": total.InexactFloat64()})
	}
}

func (s *Server) handleCreateEntry(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req entryRequest
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
		e, warning, err := s.ledger.CreateEntry(r.Context(), userID, kind, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.invalidate(userID)

		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogEntryCreated(r.Context(), userID, e.ID, kind.String(), e.Category, core.FormatAmount(e.Amount))
		writeJSON(w, http.StatusCreated, entryResult{ID: e.ID, Warning: warning})
	}
}

func (s *Server) handleUpdateEntry(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req entryPatchRequest
		if err := s.decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		patch, err := req.patch()
		if err != nil {
			writeError(w, r, err)
			return
		}

		userID := currentUser(r)
		e, warning, err := s.ledger.UpdateEntry(r.Context(), userID, kind, id, patch)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.invalidate(userID)
		writeJSON(w, http.StatusOK, entryResult{ID: e.ID, Warning: warning})
	}
}

func (s *Server) handleDeleteEntry(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		userID := currentUser(r)
		if err := s.ledger.DeleteEntry(r.Context(), userID, kind, id); err != nil {
			writeError(w, r, err)
			return
		}
		s.invalidate(userID)
		writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	}
}

// handleLedger pages entries of both kinds, newest first.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f services.LedgerFilter

	if k := strings.TrimSpace(q.Get("kind")); k != "" && k != "all" {
		kind, err := core.ParseKind(k)
		if err != nil {
			writeError(w, r, &core.ValidationError{Field: "kind", Reason: "must be 'all', 'income' or 'expense'"})
			return
		}
		f.Kind = &kind
	}
	f.Category = strings.TrimSpace(q.Get("type"))

	month, err := optionalMonthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f.Month = month
	if f.Page, err = intParam(r, "page"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.PageSize, err = intParam(r, "page_size"); err != nil {
		writeError(w, r, err)
		return
	}

	page, err := s.ledger.ListEntries(r.Context(), currentUser(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items := make([]ledgerItem, 0, len(page.Items))
	for _, e := range page.Items {
		items = append(items, ledgerItem{
			ID:     e.ID,
			Kind:   e.Kind.String(),
			Type:   e.Category,
			Amount: e.Amount.InexactFloat64(),
			Date:   e.EntryDate.Format(core.DateLayout),
			Note:   e.Note,
		})
	}
	writeJSON(w, http.StatusOK, ledgerResponse{Items: items, Page: page.Page, PageSize: page.PageSize, Total: page.Total})
}
