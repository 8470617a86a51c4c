package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/moderation-api/internal/dto"
	"github.com/noah-isme/moderation-api/internal/models"
	"github.com/noah-isme/moderation-api/internal/repository"
)

func TestAssignmentServiceMarkerAllocation(t *testing.T) {
	db := setupServiceDB(t)
	users := repository.NewUserRepository(db)
	activity := NewActivityService(repository.NewActivityLogRepository(db), testLogger())
	svc := NewAssignmentService(repository.NewAssignmentRepository(db), users, testValidator(), activity, testLogger())
	ctx := context.Background()

	assignment, err := svc.Create(ctx, adminActor, dto.AssignmentCreateRequest{Name: "Portfolio"})
	require.NoError(t, err)

	marker, err := models.NewMarker("Mina Marker", "mina@example.com", "Computing", "Tutor")
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, &marker))
	viewer, err := models.NewUser("Vic Viewer", "vic@example.com", "Computing", "Observer", models.RoleStandard)
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, &viewer))

	require.NoError(t, svc.AddMarker(ctx, adminActor, assignment.ID, dto.AssignmentMarkerRequest{MarkerID: marker.ID}))
	require.NoError(t, svc.AddMarker(ctx, adminActor, assignment.ID, dto.AssignmentMarkerRequest{MarkerID: marker.ID}))
	require.ErrorIs(t, svc.AddMarker(ctx, adminActor, assignment.ID, dto.AssignmentMarkerRequest{MarkerID: viewer.ID}), ErrNotMarker)
	require.ErrorIs(t, svc.AddMarker(ctx, adminActor, assignment.ID, dto.AssignmentMarkerRequest{MarkerID: 9999}), ErrUserNotFound)
	require.ErrorIs(t, svc.AddMarker(ctx, adminActor, 9999, dto.AssignmentMarkerRequest{MarkerID: marker.ID}), ErrAssignmentNotFound)

	markers, err := svc.ListMarkers(ctx, assignment.ID)
	require.NoError(t, err)
	require.Len(t, markers, 1)
	require.Equal(t, marker.ID, markers[0].ID)

	require.NoError(t, svc.RemoveMarker(ctx, adminActor, assignment.ID, marker.ID))
	require.ErrorIs(t, svc.RemoveMarker(ctx, adminActor, assignment.ID, marker.ID), ErrMarkerNotAssigned)

	logs, err := activity.ListForEntity(ctx, "assignment", assignment.ID, 0)
	require.NoError(t, err)
	actions := make([]string, 0, len(logs))
	for _, entry := range logs {
		actions = append(actions, entry.Action)
	}
	require.Contains(t, actions, "marker.added")
	require.Contains(t, actions, "marker.removed")
}

func TestAssignmentServiceCreateRequiresAdmin(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewAssignmentService(repository.NewAssignmentRepository(db), repository.NewUserRepository(db), testValidator(), nil, testLogger())

	_, err := svc.Create(context.Background(), Actor{ID: 2, Kind: models.RoleMarker}, dto.AssignmentCreateRequest{Name: "Portfolio"})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(context.Background(), 1234)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}
