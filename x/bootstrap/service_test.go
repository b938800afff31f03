package bootstrap_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/gatehousehq/gatehouse/x/bootstrap"
	mock_bootstrap "github.com/gatehousehq/gatehouse/x/bootstrap/mock"
	"github.com/gatehousehq/gatehouse/x/core"
)

func TestAttemptWithoutIdentityPerformsNoWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mock_bootstrap.NewMockRepository(ctrl)
	mockRepo.EXPECT().InsertAdminIfNoneExists(gomock.Any(), gomock.Any()).Times(0)

	service := bootstrap.NewService(mockRepo)

	outcome, err := service.Attempt(context.Background(), nil)
	assert.NoError(t, err)
	assert.Equal(t, bootstrap.ActorUnknown, outcome)

	outcome, err = service.Attempt(context.Background(), &core.Identity{})
	assert.NoError(t, err)
	assert.Equal(t, bootstrap.ActorUnknown, outcome)
}

func TestAttemptPromotesWhenInserted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mock_bootstrap.NewMockRepository(ctrl)
	mockRepo.EXPECT().InsertAdminIfNoneExists(gomock.Any(), "u1").Return(true, nil)

	service := bootstrap.NewService(mockRepo)

	outcome, err := service.Attempt(context.Background(), &core.Identity{ID: "u1"})
	assert.NoError(t, err)
	assert.Equal(t, bootstrap.Promoted, outcome)
}

func TestAttemptReportsAlreadyBootstrapped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mock_bootstrap.NewMockRepository(ctrl)
	mockRepo.EXPECT().InsertAdminIfNoneExists(gomock.Any(), "u2").Return(false, nil)

	service := bootstrap.NewService(mockRepo)

	outcome, err := service.Attempt(context.Background(), &core.Identity{ID: "u2"})
	assert.NoError(t, err)
	assert.Equal(t, bootstrap.AlreadyBootstrapped, outcome)
}

func TestAttemptMapsInfraErrorToFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mock_bootstrap.NewMockRepository(ctrl)
	mockRepo.EXPECT().InsertAdminIfNoneExists(gomock.Any(), "u1").
		Return(false, errors.Wrap(core.ErrProviderUnavailable, "connection refused"))

	service := bootstrap.NewService(mockRepo)

	outcome, err := service.Attempt(context.Background(), &core.Identity{ID: "u1"})
	assert.Error(t, err)
	assert.Equal(t, bootstrap.Failed, outcome)
	assert.True(t, errors.Is(err, core.ErrProviderUnavailable))
}

func TestOfferFollowsAdminExistence(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mock_bootstrap.NewMockRepository(ctrl)
	gomock.InOrder(
		mockRepo.EXPECT().CountAdmins(gomock.Any()).Return(int64(0), nil),
		mockRepo.EXPECT().CountAdmins(gomock.Any()).Return(int64(1), nil),
	)

	service := bootstrap.NewService(mockRepo)

	offered, err := service.Offer(context.Background())
	assert.NoError(t, err)
	assert.True(t, offered)

	offered, err = service.Offer(context.Background())
	assert.NoError(t, err)
	assert.False(t, offered)
}

func TestRoleOfRequiresIdentity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mock_bootstrap.NewMockRepository(ctrl)
	service := bootstrap.NewService(mockRepo)

	_, err := service.RoleOf(context.Background(), nil)
	assert.True(t, errors.Is(err, core.ErrNoIdentity))
}
