// Package identity resolves credentials into identities
package identity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/gatehousehq/gatehouse/x/core"
)

// Repository is the storage boundary of the identity provider. Store faults
// are translated into the core error kinds here; callers never see raw
// gorm/redis errors.
type Repository interface {
	GetUser(ctx context.Context, id string) (core.User, error)
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
	CreateUser(ctx context.Context, user core.User) (core.User, error)
	SetSession(ctx context.Context, session core.Session) error
	GetSession(ctx context.Context, token string) (core.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

type repository struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewRepository creates a new identity repository
func NewRepository(db *gorm.DB, rdb *redis.Client) Repository {
	return &repository{db: db, rdb: rdb}
}

const sessionPrefix = "session:"

func (r *repository) GetUser(ctx context.Context, id string) (core.User, error) {
	ctx, span := tracer.Start(ctx, "Repository.GetUser")
	defer span.End()

	var user core.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return core.User{}, core.ErrNoIdentity
		}
		return core.User{}, errors.Wrap(core.ErrProviderUnavailable, err.Error())
	}

	return user, nil
}

func (r *repository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	ctx, span := tracer.Start(ctx, "Repository.GetUserByUsername")
	defer span.End()

	var user core.User
	err := r.db.WithContext(ctx).First(&user, "username = ?", username).Error
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return core.User{}, core.ErrNoIdentity
		}
		return core.User{}, errors.Wrap(core.ErrProviderUnavailable, err.Error())
	}

	return user, nil
}

func (r *repository) CreateUser(ctx context.Context, user core.User) (core.User, error) {
	ctx, span := tracer.Start(ctx, "Repository.CreateUser")
	defer span.End()

	err := r.db.WithContext(ctx).Create(&user).Error
	if err != nil {
		span.RecordError(err)
		return core.User{}, errors.Wrap(core.ErrProviderUnavailable, err.Error())
	}

	return user, nil
}

func (r *repository) SetSession(ctx context.Context, session core.Session) error {
	ctx, span := tracer.Start(ctx, "Repository.SetSession")
	defer span.End()

	value, err := json.Marshal(session)
	if err != nil {
		span.RecordError(err)
		return err
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session already expired")
	}

	err = r.rdb.Set(ctx, sessionPrefix+session.Token, value, ttl).Err()
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(core.ErrProviderUnavailable, err.Error())
	}

	return nil
}

func (r *repository) GetSession(ctx context.Context, token string) (core.Session, error) {
	ctx, span := tracer.Start(ctx, "Repository.GetSession")
	defer span.End()

	value, err := r.rdb.Get(ctx, sessionPrefix+token).Result()
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, redis.Nil) {
			return core.Session{}, core.ErrNoIdentity
		}
		return core.Session{}, errors.Wrap(core.ErrProviderUnavailable, err.Error())
	}

	var session core.Session
	err = json.Unmarshal([]byte(value), &session)
	if err != nil {
		span.RecordError(err)
		return core.Session{}, errors.Wrap(err, "failed to unmarshal session")
	}

	return session, nil
}

func (r *repository) DeleteSession(ctx context.Context, token string) error {
	ctx, span := tracer.Start(ctx, "Repository.DeleteSession")
	defer span.End()

	err := r.rdb.Del(ctx, sessionPrefix+token).Err()
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(core.ErrProviderUnavailable, err.Error())
	}

	return nil
}
