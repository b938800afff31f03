package identity

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	"go.opentelemetry.io/otel"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatehousehq/gatehouse/x/core"
	"github.com/gatehousehq/gatehouse/x/util"
)

var tracer = otel.Tracer("identity")

const tokenIssuer = "gatehouse"

// Provider is the identity provider interface the gate and the login
// controller depend on. Validate answers "identity or none" for a credential;
// Authenticate trades a username/secret pair for a session.
type Provider interface {
	Validate(ctx context.Context, credential string) (*core.Identity, error)
	Authenticate(ctx context.Context, username string, secret string) (core.Session, error)
	IssueToken(ctx context.Context, identity *core.Identity, ttl time.Duration) (string, error)
	Revoke(ctx context.Context, token string) error
	Register(ctx context.Context, username string, secret string, tags []string) (core.User, error)
}

type service struct {
	repository Repository
	config     util.Config
}

// NewService creates a new identity service
func NewService(repository Repository, config util.Config) Provider {
	return &service{repository: repository, config: config}
}

// Authenticate checks a username/secret pair and opens a session on success.
// Unknown user and wrong password both come back as ErrNoIdentity so the
// login surface cannot be used to enumerate accounts.
func (s *service) Authenticate(ctx context.Context, username string, secret string) (core.Session, error) {
	ctx, span := tracer.Start(ctx, "Service.Authenticate")
	defer span.End()

	user, err := s.repository.GetUserByUsername(ctx, username)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, core.ErrNoIdentity) {
			return core.Session{}, core.ErrNoIdentity
		}
		return core.Session{}, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(secret))
	if err != nil {
		span.RecordError(err)
		return core.Session{}, core.ErrNoIdentity
	}

	session := core.Session{
		Token:     xid.New().String(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(s.config.Auth.SessionTTL()),
	}

	err = s.repository.SetSession(ctx, session)
	if err != nil {
		span.RecordError(err)
		return core.Session{}, err
	}

	return session, nil
}

// Validate resolves a credential into an identity. The credential is either a
// session token or a bearer JWT minted by IssueToken; both are re-checked
// against the backing stores on every call.
func (s *service) Validate(ctx context.Context, credential string) (*core.Identity, error) {
	ctx, span := tracer.Start(ctx, "Service.Validate")
	defer span.End()

	if credential == "" {
		return nil, core.ErrNoIdentity
	}

	if strings.Count(credential, ".") == 2 {
		return s.validateToken(ctx, credential)
	}

	session, err := s.repository.GetSession(ctx, credential)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if time.Now().After(session.ExpiresAt) {
		return nil, core.ErrNoIdentity
	}

	user, err := s.repository.GetUser(ctx, session.UserID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return identityOf(user), nil
}

func (s *service) validateToken(ctx context.Context, credential string) (*core.Identity, error) {
	ctx, span := tracer.Start(ctx, "Service.ValidateToken")
	defer span.End()

	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(credential, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.Auth.JWTSecret), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		span.RecordError(err)
		return nil, core.ErrNoIdentity
	}

	user, err := s.repository.GetUser(ctx, claims.Subject)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return identityOf(user), nil
}

// IssueToken mints a bearer token for API clients that cannot hold a cookie.
func (s *service) IssueToken(ctx context.Context, identity *core.Identity, ttl time.Duration) (string, error) {
	ctx, span := tracer.Start(ctx, "Service.IssueToken")
	defer span.End()

	if identity == nil {
		return "", core.ErrNoIdentity
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   identity.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        xid.New().String(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Auth.JWTSecret))
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	return token, nil
}

// Revoke ends a session. Revoking an unknown token is a no-op.
func (s *service) Revoke(ctx context.Context, token string) error {
	ctx, span := tracer.Start(ctx, "Service.Revoke")
	defer span.End()

	return s.repository.DeleteSession(ctx, token)
}

// Register creates a user with a bcrypt-hashed secret.
func (s *service) Register(ctx context.Context, username string, secret string, tags []string) (core.User, error) {
	ctx, span := tracer.Start(ctx, "Service.Register")
	defer span.End()

	if username == "" || secret == "" {
		return core.User{}, errors.New("username and secret are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		return core.User{}, err
	}

	user := core.User{
		ID:           xid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		Tags:         pq.StringArray(tags),
	}

	created, err := s.repository.CreateUser(ctx, user)
	if err != nil {
		span.RecordError(err)
		return core.User{}, err
	}

	return created, nil
}

func identityOf(user core.User) *core.Identity {
	attributes := map[string]string{
		"username": user.Username,
	}
	if len(user.Tags) > 0 {
		attributes["tags"] = strings.Join(user.Tags, ",")
	}
	return &core.Identity{
		ID:         user.ID,
		Attributes: attributes,
	}
}
