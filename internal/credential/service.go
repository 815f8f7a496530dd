package credential

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"qrattend/internal/apperr"
	"qrattend/internal/identity"
	"qrattend/internal/metrics"
)

// IssueInput is the request to bind a QR payload to a (username, email) pair.
type IssueInput struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Payload  string `json:"qr_data" validate:"required"`
}

// Service issues and fetches QR credentials. The database is the source of
// truth; the cache is written through on issue and filled from the database
// on a fetch miss.
//
// When an issue can neither replace nor invalidate the cached payload, the
// pair is marked stale and fetches read the database until a fill succeeds.
type Service struct {
	repo     *Repository
	cache    Cache
	validate *validator.Validate

	mu    sync.Mutex
	stale map[pair]struct{}
}

type pair struct{ username, email string }

// NewService creates a service. A nil cache disables caching.
func NewService(repo *Repository, cache Cache) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &Service{repo: repo, cache: cache, validate: validator.New(), stale: map[pair]struct{}{}}
}

// NormalizeEmail is the keying applied to emails on both issue and fetch.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Issue stores the payload for the pair, replacing any earlier one. Any
// authenticated caller may issue for any pair.
//
// The row is written before the cache. If the cache cannot be brought up to
// date the issue fails as a retryable storage error even though the row is
// stored; issuing again is idempotent.
func (s *Service) Issue(ctx context.Context, in IssueInput) error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = NormalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return apperr.BadRequest("missing username, email or qr_data")
	}

	issuedAt := time.Now().UTC().Truncate(time.Microsecond)
	written, err := s.repo.Upsert(ctx, in.Username, in.Email, in.Payload, issuedAt)
	if err != nil {
		return apperr.Storage("credential.issue", err)
	}
	metrics.CredentialsIssued.Inc()
	if !written {
		// a later issue for the pair already landed
		return nil
	}

	p := pair{in.Username, in.Email}
	err = s.cache.Set(ctx, p.username, p.email, Entry{Payload: in.Payload, IssuedAt: issuedAt})
	if err == nil {
		s.clearStale(p)
		return nil
	}
	log.Printf("credential cache set failed for %s: %v", in.Username, err)
	if err := s.cache.Invalidate(ctx, p.username, p.email, issuedAt); err != nil {
		s.markStale(p)
		return apperr.Storage("credential.issue.cache", err)
	}
	s.clearStale(p)
	return nil
}

// Fetch returns the payload issued to the identity's pair, or nil when none
// has been issued.
func (s *Service) Fetch(ctx context.Context, ident identity.Identity) (*string, error) {
	p := pair{ident.Username, NormalizeEmail(ident.Email)}

	if !s.isStale(p) {
		payload, ok, err := s.cache.Get(ctx, p.username, p.email)
		switch {
		case err != nil:
			metrics.CredentialCache.WithLabelValues("error").Inc()
			log.Printf("credential cache get failed for %s: %v", p.username, err)
		case ok:
			metrics.CredentialCache.WithLabelValues("hit").Inc()
			return &payload, nil
		default:
			metrics.CredentialCache.WithLabelValues("miss").Inc()
		}
	}

	cred, err := s.repo.Find(ctx, p.username, p.email)
	if err != nil {
		return nil, apperr.Storage("credential.fetch", err)
	}
	if cred == nil {
		return nil, nil
	}
	if err := s.cache.Set(ctx, p.username, p.email, Entry{Payload: cred.Payload, IssuedAt: cred.IssuedAt}); err != nil {
		log.Printf("credential cache fill failed for %s: %v", p.username, err)
	} else {
		s.clearStale(p)
	}
	return &cred.Payload, nil
}

func (s *Service) markStale(p pair) {
	s.mu.Lock()
	s.stale[p] = struct{}{}
	s.mu.Unlock()
}

func (s *Service) clearStale(p pair) {
	s.mu.Lock()
	delete(s.stale, p)
	s.mu.Unlock()
}

func (s *Service) isStale(p pair) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.stale[p]
	return ok
}
