package post

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/post/entity"
)

// Handler exposes HTTP endpoints for tweets. Mutations look the post up
// first and answer 404 when it is gone.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type ReplyRequest struct {
	AuthorLoginID string `json:"authorLoginId"`
	AuthorName    string `json:"authorName"`
	Body          string `json:"body" validate:"required"`
}

// CreateRequest is the tweet draft; createdAt is ignored if sent.
type CreateRequest struct {
	AuthorName    string         `json:"authorName"`
	AuthorLoginID string         `json:"authorLoginId"`
	Body          string         `json:"body" validate:"required,max=1000"`
	LikedBy       []string       `json:"likedBy"`
	Replies       []ReplyRequest `json:"replies" validate:"dive"`
}

type UpdateRequest struct {
	ID string `json:"id" validate:"required"`
	CreateRequest
}

type LikeRequest struct {
	LikedBy []string `json:"likedBy"`
}

type RepliesRequest struct {
	Replies []entity.Reply `json:"replies"`
}

func (c CreateRequest) toPost() entity.Post {
	p := entity.Post{
		AuthorName:    c.AuthorName,
		AuthorLoginID: c.AuthorLoginID,
		Body:          c.Body,
		LikedBy:       c.LikedBy,
	}
	for _, r := range c.Replies {
		p.Replies = append(p.Replies, entity.Reply{
			AuthorLoginID: r.AuthorLoginID,
			AuthorName:    r.AuthorName,
			Body:          r.Body,
		})
	}
	return p
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	posts, err := h.svc.ListAll(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, posts)
}

func (h *Handler) ListByAuthor(w http.ResponseWriter, r *http.Request) {
	posts, err := h.svc.ListByAuthor(r.Context(), r.PathValue("loginId"))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, posts)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !httpx.Decode(w, r, h.logger, &req) {
		return
	}
	draft := req.toPost()
	if draft.AuthorLoginID == "" {
		draft.AuthorLoginID = r.PathValue("loginId")
	}
	p, err := h.svc.Create(r.Context(), draft)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if !httpx.Decode(w, r, h.logger, &req) {
		return
	}
	if _, err := h.svc.FindByID(r.Context(), req.ID); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	replacement := req.toPost()
	if replacement.AuthorLoginID == "" {
		replacement.AuthorLoginID = r.PathValue("loginId")
	}
	if err := h.svc.Update(r.Context(), req.ID, replacement); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.svc.FindByID(r.Context(), id); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	var req LikeRequest
	if !httpx.Decode(w, r, h.logger, &req) {
		return
	}
	id := r.PathValue("id")
	current, err := h.svc.FindByID(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	if err := h.svc.Like(r.Context(), id, entity.Post{LikedBy: req.LikedBy}, *current); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Reply(w http.ResponseWriter, r *http.Request) {
	var req RepliesRequest
	if !httpx.Decode(w, r, h.logger, &req) {
		return
	}
	id := r.PathValue("id")
	current, err := h.svc.FindByID(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	if err := h.svc.Reply(r.Context(), id, *current, entity.Post{Replies: req.Replies}); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
