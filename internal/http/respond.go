package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"fintrack/internal/core"
	applog "fintrack/internal/log"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var errRateLimited = errors.New("rate limit exceeded, please try again later")

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var verr validator.ValidationErrors
	switch {
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalid), errors.Is(err, core.ErrLimitReached), errors.As(err, &verr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends {"error": ...}. Internal errors are logged and hidden.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(), "Request failed", err,
			applog.ComponentHTTP, r.Method, applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()))
		msg = "internal server error"
	case http.StatusUnauthorized:
		msg = errUnauthenticated.Error()
	case http.StatusNotFound:
		msg = notFoundMessage(err)
	}
	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		msg = validationMessage(verr)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func notFoundMessage(err error) string {
	msg := err.Error()
	if msg == core.ErrNotFound.Error() {
		return "not found"
	}
	return msg
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationMessage(errs validator.ValidationErrors) string {
	fe := errs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("'%s' is required", fe.Field())
	case "max":
		return fmt.Sprintf("'%s' must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("'%s' must not be empty", fe.Field())
	case "oneof":
		return fmt.Sprintf("'%s' must be one of: %s", fe.Field(), fe.Param())
	case "datetime":
		return fmt.Sprintf("'%s' must be YYYY-MM-DD", fe.Field())
	default:
		return fmt.Sprintf("'%s' is invalid", fe.Field())
	}
}

// decodeJSON reads a JSON object body into dst and validates it.
func (s *Server) decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &core.ValidationError{Field: "body", Reason: "must not be empty"}
		}
		return &core.ValidationError{Field: "body", Reason: "must be a valid JSON object"}
	}
	return s.validate.Struct(dst)
}
