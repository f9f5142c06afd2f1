package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"lafavorita/backend/internal/cache"
	"lafavorita/backend/internal/domain"
	"lafavorita/backend/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type UserStore interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, username string) (*domain.User, error)
	UpdateUser(ctx context.Context, username string, user domain.User) error
}

type Config struct {
	Secret      string
	TokenTTL    time.Duration
	RecoveryTTL time.Duration
}

type Manager struct {
	secret      []byte
	tokenTTL    time.Duration
	recoveryTTL time.Duration
	users       UserStore
	sessions    cache.Store[domain.RecoverySession]
	log         zerolog.Logger
	now         func() time.Time
}

type posClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
	Name string `json:"name"`
}

func NewManager(cfg Config, users UserStore, sessions cache.Store[domain.RecoverySession], log zerolog.Logger) *Manager {
	if cfg.Secret == "" {
		cfg.Secret = "dev-change-me"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 8 * time.Hour
	}
	if cfg.RecoveryTTL <= 0 {
		cfg.RecoveryTTL = 15 * time.Minute
	}
	if sessions == nil {
		sessions = cache.NewMemory[domain.RecoverySession]()
	}
	return &Manager{
		secret:      []byte(cfg.Secret),
		tokenTTL:    cfg.TokenTTL,
		recoveryTTL: cfg.RecoveryTTL,
		users:       users,
		sessions:    sessions,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source for token issue and expiry.
func (a *Manager) WithClock(now func() time.Time) *Manager {
	a.now = now
	return a
}

// UpgradeLegacyCredentials rewrites plaintext passwords and security answers
// as bcrypt hashes. Seeded and imported accounts arrive in plaintext.
func (a *Manager) UpgradeLegacyCredentials(ctx context.Context) error {
	users, err := a.users.ListUsers(ctx)
	if err != nil {
		return err
	}
	upgraded := 0
	for _, u := range users {
		if !needsUpgrade(u) {
			continue
		}
		if _, err := a.upgradeUser(ctx, u); err != nil {
			return err
		}
		upgraded++
	}
	if upgraded > 0 {
		a.log.Info().Int("users", upgraded).Msg("legacy credentials hashed")
	}
	return nil
}

func (a *Manager) upgradeUser(ctx context.Context, u domain.User) (domain.User, error) {
	hashed, err := upgrade(u)
	if err != nil {
		return u, fmt.Errorf("hash credentials of %s: %w", u.Username, err)
	}
	if err := a.users.UpdateUser(ctx, u.Username, hashed); err != nil {
		return u, fmt.Errorf("store credentials of %s: %w", u.Username, err)
	}
	return hashed, nil
}

func (a *Manager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}

	user, err := a.users.GetUser(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.LoginResponse{}, err
	}
	if !matches(user.Password, req.Password) {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}
	if needsUpgrade(*user) {
		if _, err := a.upgradeUser(ctx, *user); err != nil {
			a.log.Warn().Err(err).Str("user", user.Username).Msg("credential upgrade failed")
		}
	}

	expiresAt := a.now().Add(a.tokenTTL)
	token, err := a.sign(domain.Actor{Username: user.Username, Role: user.Role, Name: user.Name}, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		Username:    user.Username,
		Role:        user.Role,
		Name:        user.Name,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *Manager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &posClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return domain.Actor{}, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, ErrInvalidToken
	}
	return domain.Actor{Username: sub, Role: claims.Role, Name: claims.Name}, nil
}

// Authenticate validates token and resolves its subject against the user
// store, so renamed, deleted or demoted accounts lose their old rights
// before the token expires.
func (a *Manager) Authenticate(ctx context.Context, token string) (domain.Actor, error) {
	claimed, err := a.ParseToken(token)
	if err != nil {
		return domain.Actor{}, err
	}
	user, err := a.users.GetUser(ctx, claimed.Username)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Actor{}, ErrInvalidToken
	}
	if err != nil {
		return domain.Actor{}, err
	}
	return domain.Actor{Username: user.Username, Role: user.Role, Name: user.Name}, nil
}

func (a *Manager) sign(actor domain.Actor, expiresAt time.Time) (string, error) {
	claims := posClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   actor.Username,
			IssuedAt:  jwtlib.NewNumericDate(a.now()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "lafavorita",
		},
		Role: actor.Role,
		Name: actor.Name,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}
