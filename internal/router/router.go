package router

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/post"
	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/user"
)

const apiPrefix = "/api/v1.0"

// Deps are the handlers and collaborators mounted by RegisterRoutes.
type Deps struct {
	Logger         *zap.SugaredLogger
	Users          *user.Handler
	Tweets         *post.Handler
	Sessions       *session.Issuer
	RequestTimeout time.Duration
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
// Register, forgot-password and login are public; every other API route needs
// a bearer token.
func RegisterRoutes(d Deps) http.Handler {
	mux := http.NewServeMux()
	auth := session.Middleware(d.Sessions, d.Logger)
	private := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, auth(h))
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	// users
	mux.HandleFunc("POST "+apiPrefix+"/users/register", d.Users.Register)
	mux.HandleFunc("PUT "+apiPrefix+"/users/{loginId}/forgot", d.Users.Forgot)
	mux.HandleFunc("POST "+apiPrefix+"/users/login", d.Users.Login)
	private("GET "+apiPrefix+"/users/all", d.Users.ListAll)
	private("GET "+apiPrefix+"/users/search/{handle}", d.Users.Search)
	private("POST "+apiPrefix+"/users/logout", d.Users.Logout)
	private("GET "+apiPrefix+"/session", session.Userinfo)

	// tweets
	private("GET "+apiPrefix+"/tweets/all", d.Tweets.ListAll)
	private("GET "+apiPrefix+"/tweets/user/{loginId}", d.Tweets.ListByAuthor)
	private("POST "+apiPrefix+"/tweets/{loginId}/add", d.Tweets.Create)
	private("PUT "+apiPrefix+"/tweets/{loginId}/update", d.Tweets.Update)
	private("DELETE "+apiPrefix+"/tweets/{loginId}/delete/{id}", d.Tweets.Delete)
	private("PUT "+apiPrefix+"/tweets/{loginId}/like/{id}", d.Tweets.Like)
	private("PUT "+apiPrefix+"/tweets/{loginId}/reply/{id}", d.Tweets.Reply)

	// metrics sits directly on the mux so the matched pattern is visible
	var handler http.Handler = metrics.Middleware(mux)
	handler = TimeoutMiddleware(d.RequestTimeout)(handler)
	handler = SecurityHeadersMiddleware()(handler)
	handler = LoggingMiddleware(d.Logger)(handler)
	handler = RequestIDMiddleware()(handler)
	return handler
}
