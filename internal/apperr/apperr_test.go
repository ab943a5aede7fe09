package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOfAndStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   Kind
		wantStatus int
		wantMsg    string
	}{
		{"not found", NotFound("user not found"), KindNotFound, http.StatusNotFound, "user not found"},
		{"validation", Validation("Email already exists"), KindValidation, http.StatusBadRequest, "Email already exists"},
		{"unauthorized", Unauthorized("invalid credentials"), KindUnauthorized, http.StatusUnauthorized, "invalid credentials"},
		{"store hides cause", Store("find user", errors.New("conn refused")), KindStore, http.StatusInternalServerError, "internal error"},
		{"plain error is internal", errors.New("boom"), KindInternal, http.StatusInternalServerError, "internal error"},
		{"wrapped keeps kind", fmt.Errorf("ctx: %w", NotFound("post not found")), KindNotFound, http.StatusNotFound, "post not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.wantKind {
				t.Errorf("KindOf = %v, want %v", got, tt.wantKind)
			}
			if got := HTTPStatus(KindOf(tt.err)); got != tt.wantStatus {
				t.Errorf("HTTPStatus = %d, want %d", got, tt.wantStatus)
			}
			if got := PublicMessage(tt.err); got != tt.wantMsg {
				t.Errorf("PublicMessage = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestSentinelMatching(t *testing.T) {
	sentinel := Validation("Login Id already exists")
	err := fmt.Errorf("register: %w", Validation("Login Id already exists"))
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected errors.Is to match equal kind and message")
	}
	if errors.Is(err, Validation("Email already exists")) {
		t.Fatalf("different messages must not match")
	}
	cause := errors.New("disk full")
	if !errors.Is(Store("insert", cause), cause) {
		t.Fatalf("store error should unwrap to its cause")
	}
}
