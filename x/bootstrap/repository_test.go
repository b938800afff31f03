package bootstrap_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gatehousehq/gatehouse/internal/testutil"
	"github.com/gatehousehq/gatehouse/x/bootstrap"
	"github.com/gatehousehq/gatehouse/x/core"
)

func TestRepository(t *testing.T) {
	var ctx = context.Background()

	db, cleanup_db := testutil.CreateDB()
	defer cleanup_db()

	test_repo := bootstrap.NewRepository(db)

	// no admins yet, and asking twice with no intervening write agrees
	count, err := test_repo.CountAdmins(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), count)

	again, err := test_repo.CountAdmins(ctx)
	assert.NoError(t, err)
	assert.Equal(t, count, again)

	inserted, err := test_repo.InsertAdminIfNoneExists(ctx, "u1")
	assert.NoError(t, err)
	assert.True(t, inserted)

	// the second attempt observes the first and does not write
	inserted, err = test_repo.InsertAdminIfNoneExists(ctx, "u2")
	assert.NoError(t, err)
	assert.False(t, inserted)

	count, err = test_repo.CountAdmins(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)

	role, err := test_repo.GetRole(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, core.RoleAdmin, role)

	role, err = test_repo.GetRole(ctx, "u2")
	assert.NoError(t, err)
	assert.Equal(t, core.RoleUser, role)
}

func TestInsertAdminIsAtMostOnceUnderContention(t *testing.T) {
	var ctx = context.Background()

	db, cleanup_db := testutil.CreateDB()
	defer cleanup_db()

	test_repo := bootstrap.NewRepository(db)

	const attempts = 16
	results := make([]bool, attempts)
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = test_repo.InsertAdminIfNoneExists(ctx, fmt.Sprintf("u%d", i))
		}(i)
	}
	wg.Wait()

	promoted := 0
	for i := 0; i < attempts; i++ {
		assert.NoError(t, errs[i])
		if results[i] {
			promoted++
		}
	}
	assert.Equal(t, 1, promoted)

	count, err := test_repo.CountAdmins(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
