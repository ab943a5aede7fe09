// Package httpx holds the JSON helpers shared by the user and tweet handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/apperr"
)

var validate = validator.New()

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

type BadRequestResponse struct {
	Message string            `json:"message"`
	Details []ValidationError `json:"details,omitempty"`
}

// Validate runs struct tag validation and returns one entry per failing field.
func Validate(obj any) []ValidationError {
	err := validate.Struct(obj)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ValidationError{{Message: err.Error(), Type: "invalid"}}
	}
	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: errorMsg(fe),
			Type:    fe.Tag(),
		})
	}
	return out
}

func errorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	default:
		return "Invalid value"
	}
}

// Decode reads a JSON body into dst and validates it. On failure it writes a
// 400 response and returns false.
func Decode(w http.ResponseWriter, r *http.Request, logger *zap.SugaredLogger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Debugw("invalid payload", "path", r.URL.Path, "err", err)
		WriteJSON(w, http.StatusBadRequest, BadRequestResponse{Message: "invalid payload"})
		return false
	}
	if verrs := Validate(dst); len(verrs) > 0 {
		WriteJSON(w, http.StatusBadRequest, BadRequestResponse{Message: "Invalid request data", Details: verrs})
		return false
	}
	return true
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err onto a status code. Store and internal failures are
// logged with their cause and answered with a generic body.
func WriteError(w http.ResponseWriter, r *http.Request, logger *zap.SugaredLogger, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		logger.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "kind", kind.String(), "err", err)
	} else {
		logger.Debugw("request rejected", "method", r.Method, "path", r.URL.Path, "kind", kind.String(), "err", err)
	}
	WriteJSON(w, status, map[string]string{"error": apperr.PublicMessage(err)})
}
