package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ecolearn/ecolearn-api/internal/dto"
	"github.com/ecolearn/ecolearn-api/internal/models"
	"github.com/ecolearn/ecolearn-api/internal/repository"
)

type memoryActivityRepo struct {
	entries []models.ActivityLog
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	return append([]models.ActivityLog(nil), m.entries...), int64(len(m.entries)), nil
}

func TestActivityServiceRecordMasksSecrets(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())

	entry, err := svc.Record(context.Background(), ActivityEntry{
		ActorID:    1,
		ActorRole:  "Teacher",
		Action:     "Credentials.Issue",
		EntityType: "student",
		EntityID:   ptrUint(5),
		Metadata: map[string]interface{}{
			"email":    "student@example.com",
			"password": "hunter22",
			"username": "ecoabc123",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "***", entry.Metadata["email"])
	require.Equal(t, "***", entry.Metadata["password"])
	require.Equal(t, "ecoabc123", entry.Metadata["username"])
	require.Equal(t, "teacher", entry.ActorRole)
	require.Equal(t, "credentials.issue", entry.Action)
}

func TestActivityServiceRecordRequiresAction(t *testing.T) {
	svc := NewActivityService(&memoryActivityRepo{}, testLogger())

	_, err := svc.Record(context.Background(), ActivityEntry{EntityType: "class"})
	require.Error(t, err)

	_, err = svc.Record(context.Background(), ActivityEntry{Action: "class.create"})
	require.Error(t, err)
}

func TestActivityServiceListFilters(t *testing.T) {
	f := newFixtures(t)
	svc := NewActivityService(f.activity, testLogger())
	ctx := context.Background()

	for _, action := range []string{"class.create", "class.create", "submission.graded"} {
		_, err := svc.Record(ctx, ActivityEntry{ActorID: 7, ActorRole: models.RoleTeacher, Action: action, EntityType: "class"})
		require.NoError(t, err)
	}
	_, err := svc.Record(ctx, ActivityEntry{ActorID: 8, Action: "class.create", EntityType: "class"})
	require.NoError(t, err)

	result, err := svc.List(ctx, dto.ActivityListRequest{Action: "CLASS.CREATE", ActorID: 7})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	require.EqualValues(t, 2, result.Pagination.TotalItems)
	require.Equal(t, defaultPageSize, result.Pagination.PageSize)

	all, err := svc.List(ctx, dto.ActivityListRequest{PageSize: 500})
	require.NoError(t, err)
	require.Len(t, all.Items, 4)
	require.Equal(t, maxPageSize, all.Pagination.PageSize)
	require.Equal(t, "system", all.Items[0].ActorRole)
}
