package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"

	"github.com/shopspring/decimal"
)

type (
	categoryRequest struct {
		Name        string `json:"name" validate:"required,max=50"`
		Description string `json:"description" validate:"max=255"`
	}

	entryRequest struct {
		Type      string      `json:"type" validate:"required"`
		Amount    json.Number `json:"amount" validate:"required"`
		EntryDate string      `json:"entry_date" validate:"omitempty,datetime=2006-01-02"`
		Note      string      `json:"note" validate:"max=255"`
	}

	// entryPatchRequest leaves absent fields nil so they are kept.
	entryPatchRequest struct {
		Type      *string      `json:"type" validate:"omitempty,min=1"`
		Amount    *json.Number `json:"amount"`
		EntryDate *string      `json:"entry_date" validate:"omitempty,datetime=2006-01-02"`
		Note      *string      `json:"note" validate:"omitempty,max=255"`
	}

	goalRequest struct {
		Name         string      `json:"name" validate:"required,max=60"`
		Type         string      `json:"type" validate:"omitempty,oneof=income expense"`
		TargetAmount json.Number `json:"target_amount" validate:"required"`
		TargetMonth  string      `json:"target_month"`
	}
)

func (req entryRequest) input() (services.EntryInput, error) {
	amount, err := core.ParseAmount(req.Amount.String())
	if err != nil {
		return services.EntryInput{}, err
	}
	in := services.EntryInput{Category: req.Type, Amount: amount, Note: req.Note}
	if req.EntryDate != "" {
		if in.EntryDate, err = core.ParseDate(req.EntryDate); err != nil {
			return services.EntryInput{}, err
		}
	}
	return in, nil
}

func (req entryPatchRequest) patch() (services.EntryPatch, error) {
	p := services.EntryPatch{Category: req.Type, Note: req.Note}
	if req.Amount != nil {
		amount, err := core.ParseAmount(req.Amount.String())
		if err != nil {
			return services.EntryPatch{}, err
		}
		p.Amount = &amount
	}
	if req.EntryDate != nil {
		d, err := core.ParseDate(*req.EntryDate)
		if err != nil {
			return services.EntryPatch{}, err
		}
		p.EntryDate = &d
	}
	return p, nil
}

func (req goalRequest) input() (services.GoalInput, error) {
	kind := core.KindIncome
	if req.Type != "" {
		kind = core.Kind(req.Type)
	}
	target, err := parseTarget(req.TargetAmount.String())
	if err != nil {
		return services.GoalInput{}, err
	}
	in := services.GoalInput{Name: req.Name, Type: kind, Target: target}
	if req.TargetMonth != "" {
		m, err := core.ParseMonth(req.TargetMonth)
		if err != nil {
			return services.GoalInput{}, &core.ValidationError{Field: "target_month", Reason: "must be YYYY-MM or YYYY-MM-DD"}
		}
		in.Month = m
	}
	return in, nil
}

func parseTarget(s string) (decimal.Decimal, error) {
	d, err := core.ParseAmount(s)
	if err != nil {
		return decimal.Zero, &core.ValidationError{Field: "target_amount", Reason: "must be positive with at most 2 decimal places"}
	}
	return d, nil
}

// monthParam reads ?month= (YYYY-MM or YYYY-MM-DD), defaulting to the
// current month.
func (s *Server) monthParam(r *http.Request) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return core.MonthStart(s.now()), nil
	}
	return core.ParseMonth(v)
}

// optionalMonthParam is monthParam without a default.
func optionalMonthParam(r *http.Request) (*time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return nil, nil
	}
	m, err := core.ParseMonth(v)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func intParam(r *http.Request, name string) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &core.ValidationError{Field: name, Reason: "must be an integer"}
	}
	return n, nil
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &core.ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	return id, nil
}
