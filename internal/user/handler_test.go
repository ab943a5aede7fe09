package user

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	svc, _ := newTestService(t)
	h := NewHandler(svc, zap.NewNop().Sugar())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/all", h.ListAll)
	mux.HandleFunc("GET /users/search/{handle}", h.Search)
	mux.HandleFunc("POST /users/register", h.Register)
	mux.HandleFunc("PUT /users/{loginId}/forgot", h.Forgot)
	mux.HandleFunc("POST /users/login", h.Login)
	mux.HandleFunc("POST /users/logout", h.Logout)
	return mux
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandlerFlow(t *testing.T) {
	mux := newTestMux(t)

	steps := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		check  func(t *testing.T, body []byte)
	}{
		{
			name: "register", method: http.MethodPost, path: "/users/register",
			body:   `{"firstName":"Alice","loginId":"alice","email":"a@x.com","password":"p1"}`,
			status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var got map[string]any
				_ = json.Unmarshal(body, &got)
				if got["loginId"] != "alice" || got["id"] == "" {
					t.Fatalf("unexpected body: %s", body)
				}
				if _, ok := got["password"]; ok {
					t.Fatalf("password must not be returned")
				}
			},
		},
		{
			name: "register duplicate loginId", method: http.MethodPost, path: "/users/register",
			body:   `{"loginId":"alice","email":"b@x.com","password":"p1"}`,
			status: http.StatusBadRequest,
			check: func(t *testing.T, body []byte) {
				if !strings.Contains(string(body), "Login Id already exists") {
					t.Fatalf("unexpected body: %s", body)
				}
			},
		},
		{
			name: "register missing email", method: http.MethodPost, path: "/users/register",
			body: `{"loginId":"bob","password":"p1"}`, status: http.StatusBadRequest,
		},
		{
			name: "login unknown", method: http.MethodPost, path: "/users/login",
			body: `{"email":"z@x.com","password":"p1"}`, status: http.StatusNotFound,
		},
		{
			name: "login wrong password", method: http.MethodPost, path: "/users/login",
			body: `{"email":"a@x.com","password":"bad"}`, status: http.StatusUnauthorized,
		},
		{
			name: "login", method: http.MethodPost, path: "/users/login",
			body: `{"email":"a@x.com","password":"p1"}`, status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var got LoginResponse
				if err := json.Unmarshal(body, &got); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if got.Token == "" || got.UserDetails.LoginID != "alice" || !got.UserDetails.LoginStatus {
					t.Fatalf("unexpected login response: %+v", got)
				}
			},
		},
		{name: "search", method: http.MethodGet, path: "/users/search/a@x.com", status: http.StatusOK},
		{name: "search missing", method: http.MethodGet, path: "/users/search/ghost", status: http.StatusNotFound},
		{
			name: "list", method: http.MethodGet, path: "/users/all", status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var got []map[string]any
				_ = json.Unmarshal(body, &got)
				if len(got) != 1 {
					t.Fatalf("len = %d, want 1", len(got))
				}
			},
		},
		{
			name: "register free-form email", method: http.MethodPost, path: "/users/register",
			body: `{"loginId":"carol","email":"carol-at-home","password":"p1"}`, status: http.StatusOK,
		},
		{
			name: "forgot body loginId disagrees", method: http.MethodPut, path: "/users/alice/forgot",
			body: `{"loginId":"carol","password":"p2"}`, status: http.StatusBadRequest,
			check: func(t *testing.T, body []byte) {
				if !strings.Contains(string(body), "loginId does not match the path") {
					t.Fatalf("unexpected body: %s", body)
				}
			},
		},
		{name: "forgot missing user", method: http.MethodPut, path: "/users/ghost/forgot", body: `{"password":"p2"}`, status: http.StatusNotFound},
		{name: "forgot same password", method: http.MethodPut, path: "/users/alice/forgot", body: `{"password":"p1"}`, status: http.StatusBadRequest},
		{name: "forgot", method: http.MethodPut, path: "/users/alice/forgot", body: `{"loginId":"alice","password":"p2"}`, status: http.StatusNoContent},
		{name: "login new password", method: http.MethodPost, path: "/users/login", body: `{"email":"alice","password":"p2"}`, status: http.StatusOK},
		{name: "logout", method: http.MethodPost, path: "/users/logout", body: `{"email":"a@x.com"}`, status: http.StatusOK},
		{name: "logout unknown", method: http.MethodPost, path: "/users/logout", body: `{"email":"ghost@x.com"}`, status: http.StatusOK},
	}
	for _, st := range steps {
		rec := do(mux, st.method, st.path, st.body)
		if rec.Code != st.status {
			t.Fatalf("%s: status = %d, want %d (body %s)", st.name, rec.Code, st.status, rec.Body.String())
		}
		if st.check != nil {
			st.check(t, rec.Body.Bytes())
		}
	}
}
