package bootstrap

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gatehousehq/gatehouse/x/core"
)

var tracer = otel.Tracer("bootstrap")

// Outcome is the terminal result of one bootstrap attempt.
type Outcome int

const (
	// Promoted means this actor became the first administrator.
	Promoted Outcome = iota
	// AlreadyBootstrapped means an administrator already existed. Expected
	// after the first success, not an error.
	AlreadyBootstrapped
	// ActorUnknown means the attempt carried no established identity.
	// Promotion never accepts raw credentials.
	ActorUnknown
	// Failed means a transient infrastructure fault. Retryable.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Promoted:
		return "Promoted"
	case AlreadyBootstrapped:
		return "AlreadyBootstrapped"
	case ActorUnknown:
		return "ActorUnknown"
	case Failed:
		return "Failed"
	default:
		return "Error"
	}
}

// Service is the bootstrap state machine. It holds no state of its own: every
// call re-derives the current state from the authority-of-record, so a fresh
// page load naturally re-enters from the top.
type Service interface {
	AdminsExist(ctx context.Context) (bool, error)
	Offer(ctx context.Context) (bool, error)
	Attempt(ctx context.Context, identity *core.Identity) (Outcome, error)
	RoleOf(ctx context.Context, identity *core.Identity) (string, error)
}

type service struct {
	repository Repository
}

// NewService creates a new bootstrap service
func NewService(repository Repository) Service {
	return &service{repository: repository}
}

// AdminsExist answers whether at least one administrator exists, straight
// from the authority-of-record.
func (s *service) AdminsExist(ctx context.Context) (bool, error) {
	ctx, span := tracer.Start(ctx, "Service.AdminsExist")
	defer span.End()

	count, err := s.repository.CountAdmins(ctx)
	if err != nil {
		span.RecordError(err)
		return false, err
	}

	return count > 0, nil
}

// Offer reports whether the promote action should be shown. Advisory only:
// the conditional insert in Attempt is what actually guards the invariant.
func (s *service) Offer(ctx context.Context) (bool, error) {
	ctx, span := tracer.Start(ctx, "Service.Offer")
	defer span.End()

	exists, err := s.AdminsExist(ctx)
	if err != nil {
		return false, err
	}

	return !exists, nil
}

// Attempt runs one bootstrap attempt for an established identity and returns
// its terminal outcome. The outcome is always a value, never an error: Failed
// carries the wrapped cause in the second return for the operational log.
func (s *service) Attempt(ctx context.Context, identity *core.Identity) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "Service.Attempt")
	defer span.End()

	if identity == nil || identity.ID == "" {
		span.SetAttributes(attribute.String("outcome", ActorUnknown.String()))
		return ActorUnknown, nil
	}

	inserted, err := s.repository.InsertAdminIfNoneExists(ctx, identity.ID)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("outcome", Failed.String()))
		return Failed, err
	}

	if !inserted {
		span.SetAttributes(attribute.String("outcome", AlreadyBootstrapped.String()))
		return AlreadyBootstrapped, nil
	}

	span.SetAttributes(attribute.String("outcome", Promoted.String()))
	return Promoted, nil
}

// RoleOf returns the identity's current role assignment, re-read from the
// authority-of-record on every call.
func (s *service) RoleOf(ctx context.Context, identity *core.Identity) (string, error) {
	ctx, span := tracer.Start(ctx, "Service.RoleOf")
	defer span.End()

	if identity == nil || identity.ID == "" {
		return "", core.ErrNoIdentity
	}

	return s.repository.GetRole(ctx, identity.ID)
}
