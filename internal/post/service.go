package post

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/events"
	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/post/entity"
	postrepo "github.com/ovaphlow/pitchfork/service-tweet-go/internal/post/repo"
	"github.com/ovaphlow/pitchfork/service-tweet-go/pkg/docstore"
)

// Notifier receives fire-and-forget domain events.
type Notifier interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

var (
	ErrPostNotFound    = apperr.NotFound("tweet not found")
	ErrMissingAuthor   = apperr.Validation("authorLoginId is required")
	ErrMissingBody     = apperr.Validation("body is required")
	ErrMissingID       = apperr.Validation("id is required")
	errVersionConflict = errors.New("version conflict")
)

const defaultMaxAttempts = 5

// Service owns the lifecycle of posts.
type Service struct {
	repo        *postrepo.PostRepo
	notifier    Notifier
	logger      *zap.SugaredLogger
	now         func() time.Time
	MaxAttempts int
}

func NewService(r *postrepo.PostRepo, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{repo: r, logger: logger, now: time.Now, MaxAttempts: defaultMaxAttempts}
}

// WithNotifier enables post.created events.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// WithClock overrides the time source used to stamp createdAt.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ListAll returns every post, newest first.
func (s *Service) ListAll(ctx context.Context) ([]entity.Post, error) {
	posts, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Store("list tweets", err)
	}
	return posts, nil
}

// ListByAuthor returns the posts whose authorLoginId equals handle, newest first.
func (s *Service) ListByAuthor(ctx context.Context, handle string) ([]entity.Post, error) {
	posts, err := s.repo.ListByAuthor(ctx, handle)
	if err != nil {
		return nil, apperr.Store("list tweets by author", err)
	}
	return posts, nil
}

func (s *Service) FindByID(ctx context.Context, id string) (*entity.Post, error) {
	if id == "" {
		return nil, ErrPostNotFound
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, apperr.Store("find tweet", err)
	}
	return p, nil
}

// Create stamps createdAt with the current time, ignoring any caller value,
// and stores the draft. A new post always starts with zero likes.
func (s *Service) Create(ctx context.Context, draft entity.Post) (*entity.Post, error) {
	if draft.AuthorLoginID == "" {
		return nil, ErrMissingAuthor
	}
	if draft.Body == "" {
		return nil, ErrMissingBody
	}
	p := draft
	p.ID = ""
	p.CreatedAt = s.now().UTC()
	p.LikeCount = 0
	if p.LikedBy == nil {
		p.LikedBy = []string{}
	}
	if p.Replies == nil {
		p.Replies = []entity.Reply{}
	}
	if err := s.repo.Create(ctx, &p); err != nil {
		return nil, apperr.Store("create tweet", err)
	}

	metrics.PostsCreated.Inc()
	s.logger.Infow("tweet created", "id", p.ID, "author", p.AuthorLoginID)
	s.notify(ctx, events.TweetEventsStream, events.PostCreated, events.PostCreatedEvent{
		PostID:        p.ID,
		AuthorLoginID: p.AuthorLoginID,
		Body:          p.Body,
		CreatedAt:     p.CreatedAt,
	})
	return &p, nil
}

// Update replaces the stored post with replacement. The id, createdAt and
// likeCount of the stored post are kept.
func (s *Service) Update(ctx context.Context, id string, replacement entity.Post) error {
	if id == "" {
		return ErrMissingID
	}
	return s.mutate(ctx, id, nil, func(p *entity.Post) {
		next := replacement
		next.ID = p.ID
		next.CreatedAt = p.CreatedAt
		next.LikeCount = p.LikeCount
		next.Version = p.Version
		if next.LikedBy == nil {
			next.LikedBy = []string{}
		}
		if next.Replies == nil {
			next.Replies = []entity.Reply{}
		}
		*p = next
	})
}

// Like adds exactly one like to current and replaces likedBy with
// incoming.LikedBy as sent. If current is stale the post is re-read and the
// like applied to the fresh copy.
func (s *Service) Like(ctx context.Context, id string, incoming, current entity.Post) error {
	likedBy := append([]string{}, incoming.LikedBy...)
	return s.mutate(ctx, id, &current, func(p *entity.Post) {
		p.LikeCount++
		p.LikedBy = likedBy
	})
}

// Reply replaces the reply thread of current with incoming.Replies in full.
func (s *Service) Reply(ctx context.Context, id string, current, incoming entity.Post) error {
	replies := append([]entity.Reply{}, incoming.Replies...)
	return s.mutate(ctx, id, &current, func(p *entity.Post) {
		p.Replies = replies
	})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return apperr.Store("delete tweet", err)
	}
	if !ok {
		return ErrPostNotFound
	}
	s.logger.Infow("tweet deleted", "id", id)
	return nil
}

// mutate applies fn and writes the result with a conditional replace. base is
// the caller's copy and is used for the first attempt when it matches id;
// later attempts re-read the post.
func (s *Service) mutate(ctx context.Context, id string, base *entity.Post, fn func(p *entity.Post)) error {
	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	for i := 0; i < attempts; i++ {
		var p entity.Post
		if i == 0 && base != nil && base.ID == id && base.Version > 0 {
			p = *base
		} else {
			fresh, err := s.FindByID(ctx, id)
			if err != nil {
				return err
			}
			p = *fresh
		}
		fn(&p)
		ok, err := s.repo.ReplaceIfVersion(ctx, &p)
		if err != nil {
			return apperr.Store("replace tweet", err)
		}
		if ok {
			return nil
		}
		metrics.WriteConflicts.WithLabelValues(docstore.Posts).Inc()
		s.logger.Debugw("tweet write conflict, retrying", "id", id, "attempt", i+1)
	}
	return apperr.Store("replace tweet", errVersionConflict)
}

func (s *Service) notify(ctx context.Context, stream, eventType string, data any) {
	if s.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.notifier.Publish(nctx, stream, eventType, data); err != nil {
		s.logger.Warnw("publish event failed", "stream", stream, "type", eventType, "err", err)
	}
}
