package user

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/events"
	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-tweet-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-tweet-go/pkg/docstore"
)

// PasswordHasher defines minimal hashing interface.
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
	NeedsRehash(hash string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) cost() int {
	if b.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return b.Cost
}

func (b BcryptHasher) Hash(pw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), b.cost())
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// NeedsRehash reports whether hash was produced with a different cost than
// the one currently configured.
func (b BcryptHasher) NeedsRehash(hash string) bool {
	c, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return false
	}
	return c != b.cost()
}

// TokenIssuer signs session tokens bound to an email.
type TokenIssuer interface {
	Issue(email string) (string, time.Time, error)
}

// Notifier receives fire-and-forget domain events.
type Notifier interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// Session is the result of a successful authentication.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      entity.User
}

var (
	ErrAccountNotFound = apperr.NotFound("user not found")
	ErrUnauthorized    = apperr.Unauthorized("invalid credentials")
	ErrLoginIDExists   = apperr.Validation("Login Id already exists")
	ErrEmailExists     = apperr.Validation("Email already exists")
	ErrSamePassword    = apperr.Validation("New password cannot be same as the old password")
	ErrMissingFields   = apperr.Validation("loginId, email and password are required")
	ErrMissingPassword = apperr.Validation("password is required")
	ErrLoginIDMismatch = apperr.Validation("loginId does not match the path")

	errVersionConflict = errors.New("version conflict")
)

const defaultMaxAttempts = 5

// UserService owns account identity, credential checks and the login flag.
type UserService struct {
	repo        *userrepo.UserRepo
	hasher      PasswordHasher
	tokens      TokenIssuer
	notifier    Notifier
	logger      *zap.SugaredLogger
	MaxAttempts int
}

func NewUserService(r *userrepo.UserRepo, hasher PasswordHasher, tokens TokenIssuer, logger *zap.SugaredLogger) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &UserService{repo: r, hasher: hasher, tokens: tokens, logger: logger, MaxAttempts: defaultMaxAttempts}
}

// WithNotifier enables user.registered events.
func (s *UserService) WithNotifier(n Notifier) *UserService {
	s.notifier = n
	return s
}

// ListAll returns every account in store order.
func (s *UserService) ListAll(ctx context.Context) ([]entity.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Store("list users", err)
	}
	return users, nil
}

// FindByHandle resolves a loginId or email.
func (s *UserService) FindByHandle(ctx context.Context, handle string) (*entity.User, error) {
	u, err := s.repo.GetByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, apperr.Store("find user", err)
	}
	return u, nil
}

// FindByCredentialHandle resolves using owner's loginId as the handle.
func (s *UserService) FindByCredentialHandle(ctx context.Context, owner entity.User) (*entity.User, error) {
	return s.FindByHandle(ctx, owner.LoginID)
}

// Register stores a new account. candidate.Password is the plaintext password;
// the stored record carries its bcrypt hash.
func (s *UserService) Register(ctx context.Context, candidate entity.User) (*entity.User, error) {
	if candidate.LoginID == "" || candidate.Email == "" || candidate.Password == "" {
		return nil, ErrMissingFields
	}
	if err := s.checkHandlesFree(ctx, candidate); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(candidate.Password)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}
	u := candidate
	u.ID = ""
	u.Password = hash
	u.LoginStatus = false
	if err := s.repo.Create(ctx, &u); err != nil {
		if errors.Is(err, docstore.ErrDuplicate) {
			// lost a race against a concurrent registration
			if err := s.checkHandlesFree(ctx, candidate); err != nil {
				return nil, err
			}
			return nil, ErrEmailExists
		}
		return nil, apperr.Store("create user", err)
	}

	metrics.UsersRegistered.Inc()
	s.logger.Infow("user registered", "id", u.ID, "loginId", u.LoginID)
	s.notify(ctx, events.UserEventsStream, events.UserRegistered, events.UserRegisteredEvent{
		UserID:  u.ID,
		LoginID: u.LoginID,
		Email:   u.Email,
	})
	return &u, nil
}

func (s *UserService) checkHandlesFree(ctx context.Context, candidate entity.User) error {
	if _, err := s.FindByHandle(ctx, candidate.LoginID); err == nil {
		return ErrLoginIDExists
	} else if !errors.Is(err, ErrAccountNotFound) {
		return err
	}
	if _, err := s.FindByHandle(ctx, candidate.Email); err == nil {
		return ErrEmailExists
	} else if !errors.Is(err, ErrAccountNotFound) {
		return err
	}
	return nil
}

// Authenticate checks the password for handle. It returns ErrAccountNotFound
// when no account matches, ErrUnauthorized when the password is wrong, and
// otherwise marks the account logged in and issues a session token.
func (s *UserService) Authenticate(ctx context.Context, handle, password string) (*Session, error) {
	var (
		rehash string
		token  string
		exp    time.Time
	)
	u, err := s.mutate(ctx, handle, func(u *entity.User) error {
		if !s.hasher.Verify(u.Password, password) {
			return ErrUnauthorized
		}
		// the token is signed before anything is written
		if token == "" {
			t, e, err := s.tokens.Issue(u.Email)
			if err != nil {
				return apperr.Internal("issue token", err)
			}
			token, exp = t, e
		}
		if rehash == "" && s.hasher.NeedsRehash(u.Password) {
			if h, err := s.hasher.Hash(password); err == nil {
				rehash = h
			}
		}
		if rehash != "" {
			u.Password = rehash
		}
		u.LoginStatus = true
		return nil
	})
	switch {
	case errors.Is(err, ErrAccountNotFound):
		metrics.LoginsTotal.WithLabelValues(metrics.LoginUnknown).Inc()
		s.logger.Debugw("login for unknown handle", "handle", handle)
		return nil, err
	case errors.Is(err, ErrUnauthorized):
		metrics.LoginsTotal.WithLabelValues(metrics.LoginUnauthorized).Inc()
		s.logger.Debugw("login password mismatch", "handle", handle)
		return nil, err
	case err != nil:
		return nil, err
	}

	metrics.LoginsTotal.WithLabelValues(metrics.LoginSuccess).Inc()
	return &Session{Token: token, ExpiresAt: exp, User: *u}, nil
}

// ResetPassword replaces the password of the account named by current.LoginID.
// No re-authentication is performed.
func (s *UserService) ResetPassword(ctx context.Context, current, desired entity.User) error {
	if desired.Password == "" {
		return ErrMissingPassword
	}
	var hash string
	_, err := s.mutate(ctx, current.LoginID, func(u *entity.User) error {
		if s.hasher.Verify(u.Password, desired.Password) {
			return ErrSamePassword
		}
		if hash == "" {
			h, err := s.hasher.Hash(desired.Password)
			if err != nil {
				return apperr.Internal("hash password", err)
			}
			hash = h
		}
		u.Password = hash
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Infow("password reset", "loginId", current.LoginID)
	return nil
}

// Logout clears the login flag. An unknown handle is not an error, and
// outstanding tokens stay valid until they expire.
func (s *UserService) Logout(ctx context.Context, handle string) error {
	_, err := s.mutate(ctx, handle, func(u *entity.User) error {
		u.LoginStatus = false
		return nil
	})
	if errors.Is(err, ErrAccountNotFound) {
		return nil
	}
	return err
}

// mutate re-reads the account and re-applies fn until the conditional replace
// on version succeeds or MaxAttempts is exhausted. Retries re-read by id so a
// conflict is resolved against the same document.
func (s *UserService) mutate(ctx context.Context, handle string, fn func(u *entity.User) error) (*entity.User, error) {
	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	var id string
	for i := 0; i < attempts; i++ {
		u, err := s.reload(ctx, handle, id)
		if err != nil {
			return nil, err
		}
		id = u.ID
		if err := fn(u); err != nil {
			return nil, err
		}
		ok, err := s.repo.ReplaceIfVersion(ctx, u)
		if err != nil {
			return nil, apperr.Store("replace user", err)
		}
		if ok {
			return u, nil
		}
		metrics.WriteConflicts.WithLabelValues(docstore.Users).Inc()
		s.logger.Debugw("user write conflict, retrying", "id", u.ID, "attempt", i+1)
	}
	return nil, apperr.Store("replace user", errVersionConflict)
}

func (s *UserService) reload(ctx context.Context, handle, id string) (*entity.User, error) {
	if id == "" {
		return s.FindByHandle(ctx, handle)
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, apperr.Store("find user", err)
	}
	return u, nil
}

func (s *UserService) notify(ctx context.Context, stream, eventType string, data any) {
	if s.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.notifier.Publish(nctx, stream, eventType, data); err != nil {
		s.logger.Warnw("publish event failed", "stream", stream, "type", eventType, "err", err)
	}
}
