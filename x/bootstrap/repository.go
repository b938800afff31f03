// Package bootstrap governs the one-time promotion of the first administrator
package bootstrap

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/gatehousehq/gatehouse/x/core"
)

// Repository is the authority-of-record boundary. InsertAdminIfNoneExists is
// the single enforcement point of the at-most-one-admin invariant; CountAdmins
// is advisory and must never be used to guard the write.
type Repository interface {
	CountAdmins(ctx context.Context) (int64, error)
	InsertAdminIfNoneExists(ctx context.Context, userID string) (bool, error)
	GetRole(ctx context.Context, userID string) (string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new bootstrap repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// CountAdmins runs a live count against role_assignments. Never cached: the
// answer has to be re-read on every call so a concurrent promotion is
// observed on the next page load.
func (r *repository) CountAdmins(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "Repository.CountAdmins")
	defer span.End()

	var count int64
	err := r.db.WithContext(ctx).
		Model(&core.RoleAssignment{}).
		Where("role = ?", core.RoleAdmin).
		Count(&count).Error
	if err != nil {
		span.RecordError(err)
		return 0, errors.Wrap(core.ErrProviderUnavailable, err.Error())
	}

	return count, nil
}

// InsertAdminIfNoneExists assigns the admin role to userID only if no admin
// assignment exists, as one conditional statement executed at the database.
// The partial unique index on role='admin' is the actual race guard: of two
// concurrent callers exactly one inserts, the loser conflicts into
// inserted=false. A check-then-act pair in this process would race.
func (r *repository) InsertAdminIfNoneExists(ctx context.Context, userID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Repository.InsertAdminIfNoneExists")
	defer span.End()

	result := r.db.WithContext(ctx).Exec(
		`INSERT INTO role_assignments (user_id, role, cdate)
		 SELECT ?, ?, clock_timestamp()
		 WHERE NOT EXISTS (SELECT 1 FROM role_assignments WHERE role = ?)
		 ON CONFLICT DO NOTHING`,
		userID, core.RoleAdmin, core.RoleAdmin,
	)
	if result.Error != nil {
		span.RecordError(result.Error)
		return false, errors.Wrap(core.ErrProviderUnavailable, result.Error.Error())
	}

	return result.RowsAffected > 0, nil
}

// GetRole returns the current role assignment of userID, core.RoleUser when
// none is recorded. Read fresh per request.
func (r *repository) GetRole(ctx context.Context, userID string) (string, error) {
	ctx, span := tracer.Start(ctx, "Repository.GetRole")
	defer span.End()

	var assignment core.RoleAssignment
	err := r.db.WithContext(ctx).First(&assignment, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return core.RoleUser, nil
		}
		span.RecordError(err)
		return "", errors.Wrap(core.ErrProviderUnavailable, err.Error())
	}

	return assignment.Role, nil
}
