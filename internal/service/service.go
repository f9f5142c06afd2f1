package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"lafavorita/backend/internal/cache"
	"lafavorita/backend/internal/checkout"
	"lafavorita/backend/internal/domain"
	"lafavorita/backend/internal/store"
)

var (
	ErrForbidden = errors.New("admin role required")
	ErrNoActor   = errors.New("authentication required")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// CredentialUpgrader hashes plaintext credentials that arrive through a
// restored backup or a reset to the seed accounts.
type CredentialUpgrader interface {
	UpgradeLegacyCredentials(ctx context.Context) error
}

type Service struct {
	repo        store.Repository
	carts       cache.Store[checkout.Cart]
	cartTTL     time.Duration
	credentials CredentialUpgrader
	log         zerolog.Logger
	loc         *time.Location
	now         func() time.Time
}

func New(repo store.Repository, carts cache.Store[checkout.Cart], log zerolog.Logger) *Service {
	if carts == nil {
		carts = cache.NewMemory[checkout.Cart]()
	}
	return &Service{
		repo:    repo,
		carts:   carts,
		cartTTL: 12 * time.Hour,
		log:     log,
		loc:     time.Local,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithLocation sets the store's wall-clock zone for "today" and hourly buckets.
func (s *Service) WithLocation(loc *time.Location) *Service {
	if loc != nil {
		s.loc = loc
	}
	return s
}

func (s *Service) WithCartTTL(ttl time.Duration) *Service {
	if ttl > 0 {
		s.cartTTL = ttl
	}
	return s
}

func (s *Service) WithCredentialUpgrader(u CredentialUpgrader) *Service {
	s.credentials = u
	return s
}

func requireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Username == "" {
		return domain.Actor{}, ErrNoActor
	}
	return actor, nil
}

func requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.Actor{}, err
	}
	if actor.Role != domain.RoleAdmin {
		return domain.Actor{}, ErrForbidden
	}
	return actor, nil
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}
	s.log.Info().
		Str("audit", action).
		Str("actor", actor.Username).
		Str("actor_role", actor.Role).
		Str("entity_type", entityType).
		Str("entity_id", entityID).
		Str("detail", detail).
		Msg("audit")
}
