package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/moderation-api/internal/events"
	"github.com/noah-isme/moderation-api/internal/models"
	"github.com/noah-isme/moderation-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

var (
	adminActor  = Actor{ID: 1000, Kind: models.RoleAdmin}
	viewerActor = Actor{ID: 99, Kind: models.RoleStandard}
)

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Assignment{},
		&models.AssignmentMarker{},
		&models.Rubric{},
		&models.Criterion{},
		&models.MarkingScore{},
		&models.CriteriaScore{},
		&models.Moderation{},
		&models.ActivityLog{},
	))
	return db
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.Type)
	}
	return types
}

type recordingInvalidator struct {
	assignments []uint
}

func (r *recordingInvalidator) Invalidate(_ context.Context, assignmentID uint) error {
	r.assignments = append(r.assignments, assignmentID)
	return nil
}

// markingFixture holds an assignment with one published rubric and an
// allocated marker.
type markingFixture struct {
	db          *gorm.DB
	assignment  models.Assignment
	rubric      models.Rubric
	admin       models.User
	marker      models.User
	outsider    models.User
	users       repository.UserRepository
	assignments repository.AssignmentRepository
	rubrics     repository.RubricRepository
	scores      repository.MarkingScoreRepository
}

func newMarkingFixture(t *testing.T) markingFixture {
	t.Helper()
	db := setupServiceDB(t)
	ctx := context.Background()

	f := markingFixture{
		db:          db,
		users:       repository.NewUserRepository(db),
		assignments: repository.NewAssignmentRepository(db),
		rubrics:     repository.NewRubricRepository(db),
		scores:      repository.NewMarkingScoreRepository(db),
	}

	admin, err := models.NewAdmin("Uma Chair", "uma@example.com", "Computing", "Unit Chair")
	require.NoError(t, err)
	require.NoError(t, f.users.Create(ctx, &admin))
	f.admin = admin

	marker, err := models.NewMarker("Mina Marker", "mina@example.com", "Computing", "Tutor")
	require.NoError(t, err)
	require.NoError(t, f.users.Create(ctx, &marker))
	f.marker = marker

	outsider, err := models.NewMarker("Otto Outsider", "otto@example.com", "Computing", "Tutor")
	require.NoError(t, err)
	require.NoError(t, f.users.Create(ctx, &outsider))
	f.outsider = outsider

	f.assignment = models.Assignment{Name: "Essay 1", CreatedBy: admin.ID}
	require.NoError(t, f.assignments.Create(ctx, &f.assignment))
	require.NoError(t, f.assignments.AddMarker(ctx, f.assignment.ID, marker.ID))

	structureRef, analysisRef := 18, 60
	f.rubric = models.Rubric{
		Title:        "Essay rubric",
		AssignmentID: f.assignment.ID,
		CreatedBy:    admin.ID,
		Criteria: []models.Criterion{
			{Title: "Structure", Position: 0, MaxScore: 20, AwardedScore: &structureRef},
			{Title: "Analysis", Position: 1, MaxScore: 80, AwardedScore: &analysisRef},
		},
	}
	require.NoError(t, f.rubrics.Create(ctx, &f.rubric))
	require.NoError(t, f.rubrics.MarkPublished(ctx, f.rubric.ID, f.rubric.CreatedAt))

	return f
}

func (f markingFixture) markerActor() Actor {
	return Actor{ID: f.marker.ID, Kind: models.RoleMarker}
}

func (f markingFixture) outsiderActor() Actor {
	return Actor{ID: f.outsider.ID, Kind: models.RoleMarker}
}

func (f markingFixture) adminActor() Actor {
	return Actor{ID: f.admin.ID, Kind: models.RoleAdmin}
}

func ptrUint(v uint) *uint {
	return &v
}

func ptrInt(v int) *int {
	return &v
}

func ptrFloat(v float64) *float64 {
	return &v
}
