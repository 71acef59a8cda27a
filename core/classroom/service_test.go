package classroom_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sims-edu/sims/core"
	"github.com/sims-edu/sims/core/classroom"
	"github.com/sims-edu/sims/storage/database/dummy"
)

func TestService(t *testing.T) {
	svc := classroom.NewService(dummydb.NewClassroomRepository(dummydb.Open()))
	ctx := context.Background()

	cr, err := svc.Create(ctx, classroom.NewClassroom{Name: "CPE 100L"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, classroom.NewClassroom{Name: "CPE 100L"})
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "name", vErr.Fields[0].Field)

	for id, want := range map[string]bool{cr.ID: true, uuid.NewString(): false, "not-a-uuid": false} {
		got, err := svc.ClassroomExists(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got, id)
	}

	created, err := svc.Load(ctx, []classroom.NewClassroom{
		{Name: "CPE 100L"},
		{Name: " CPE 300L "},
		{Name: "   "},
		{Name: "CPE 200L"},
		{Name: "CPE 300L"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	all, err := svc.QueryAll(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(all))
	for _, c := range all {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"CPE 100L", "CPE 200L", "CPE 300L"}, names)
}
