package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/moderation-api/internal/config"
	"github.com/noah-isme/moderation-api/internal/database"
	"github.com/noah-isme/moderation-api/internal/dto"
	"github.com/noah-isme/moderation-api/internal/handler"
	"github.com/noah-isme/moderation-api/internal/middleware"
	"github.com/noah-isme/moderation-api/internal/models"
	"github.com/noah-isme/moderation-api/internal/repository"
	"github.com/noah-isme/moderation-api/internal/router"
	"github.com/noah-isme/moderation-api/internal/service"
	"github.com/noah-isme/moderation-api/internal/statistics"
)

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

type testServer struct {
	app          *fiber.App
	db           *gorm.DB
	admin        models.User
	marker       models.User
	secondMarker models.User
}

func setupApp(t *testing.T) testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	redisServer, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(redisServer.Close)
	cache := redis.NewClient(&redis.Options{Addr: redisServer.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	userRepo := repository.NewUserRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	rubricRepo := repository.NewRubricRepository(db)
	scoreRepo := repository.NewMarkingScoreRepository(db)
	moderationRepo := repository.NewModerationRepository(db)

	activityService := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	statisticsService := service.NewStatisticsService(statistics.NewEngine(scoreRepo), cache, time.Minute, logger)

	deps := router.Dependencies{
		UserHandler:       handler.NewUserHandler(service.NewUserService(userRepo, validate, activityService, logger), logger),
		AssignmentHandler: handler.NewAssignmentHandler(service.NewAssignmentService(assignmentRepo, userRepo, validate, activityService, logger), logger),
		RubricHandler:     handler.NewRubricHandler(service.NewRubricService(rubricRepo, assignmentRepo, validate, activityService, nil, logger), logger),
		MarkingHandler: handler.NewMarkingHandler(
			service.NewMarkingService(scoreRepo, rubricRepo, assignmentRepo, validate, statisticsService, nil, logger),
			logger,
			middleware.RateLimit("marking", 100, time.Minute),
		),
		StatisticsHandler: handler.NewStatisticsHandler(statisticsService, logger),
		ModerationHandler: handler.NewModerationHandler(service.NewModerationService(moderationRepo, assignmentRepo, rubricRepo, scoreRepo, validate, activityService, 0.05, logger), logger),
		ActivityHandler:   handler.NewActivityHandler(activityService, logger),
		HealthProbes: map[string]handler.HealthProbe{
			"redis": func(ctx context.Context) error { return cache.Ping(ctx).Err() },
		},
		JWTMiddleware: func(c *fiber.Ctx) error {
			if id, err := strconv.ParseUint(c.Get("X-Test-User"), 10, 64); err == nil {
				c.Locals("user_id", uint(id))
			}
			if role := c.Get("X-Test-Role"); role != "" {
				c.Locals("user_role", role)
			}
			return c.Next()
		},
	}

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "Test", AppEnv: "test"}, deps)

	admin, err := models.NewAdmin("Uma Chair", "uma@example.com", "Computing", "Unit Chair")
	require.NoError(t, err)
	require.NoError(t, userRepo.Create(context.Background(), &admin))
	marker, err := models.NewMarker("Mina Marker", "mina@example.com", "Computing", "Tutor")
	require.NoError(t, err)
	require.NoError(t, userRepo.Create(context.Background(), &marker))

	secondMarker, err := models.NewMarker("Max Marker", "max@example.com", "Computing", "Tutor")
	require.NoError(t, err)
	require.NoError(t, userRepo.Create(context.Background(), &secondMarker))

	return testServer{app: app, db: db, admin: admin, marker: marker, secondMarker: secondMarker}
}

func (s testServer) do(t *testing.T, method, path string, actor models.User, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch v := body.(type) {
		case []byte:
			reader = bytes.NewReader(v)
		default:
			payload, err := json.Marshal(v)
			require.NoError(t, err)
			reader = bytes.NewReader(payload)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor.ID != 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(actor.ID), 10))
		req.Header.Set("X-Test-Role", string(actor.Kind))
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}

func TestHealthReportsProbes(t *testing.T) {
	s := setupApp(t)

	resp := s.do(t, http.MethodGet, "/api/v1/health", models.User{}, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body envelope[handler.HealthResponse]
	decodeResponse(t, resp, &body)
	require.Equal(t, "ok", body.Data.Status)
	require.Equal(t, "ok", body.Data.Checks["redis"])
}

func TestHealthDegradedWhenProbeFails(t *testing.T) {
	app := fiber.New()
	app.Get("/health", handler.HealthCheck(config.Config{AppName: "Test"}, map[string]handler.HealthProbe{
		"database": func(context.Context) error { return errors.New("connection refused") },
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestMarkingWorkflowEndToEnd(t *testing.T) {
	s := setupApp(t)

	resp := s.do(t, http.MethodPost, "/api/v1/assignments", s.admin, dto.AssignmentCreateRequest{Name: "Essay 1"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var assignment envelope[dto.AssignmentResponse]
	decodeResponse(t, resp, &assignment)
	assignmentPath := fmt.Sprintf("/api/v1/assignments/%d", assignment.Data.ID)

	resp = s.do(t, http.MethodPost, assignmentPath+"/markers", s.admin, dto.AssignmentMarkerRequest{MarkerID: s.marker.ID})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	reference := 40
	resp = s.do(t, http.MethodPost, "/api/v1/rubrics", s.admin, dto.RubricCreateRequest{
		AssignmentID: assignment.Data.ID,
		Title:        "Essay rubric",
		Criteria: []dto.CriterionRequest{
			{Title: "Argument", MaxScore: 50, AwardedScore: &reference},
			{Title: "Style", MaxScore: 50, AwardedScore: &reference},
		},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var rubric envelope[dto.RubricResponse]
	decodeResponse(t, resp, &rubric)

	scores := dto.MarkingScoreSubmitRequest{Scores: []dto.CriteriaScoreRequest{
		{CriterionID: rubric.Data.Criteria[0].ID, Score: 40},
		{CriterionID: rubric.Data.Criteria[1].ID, Score: 42},
	}}
	resp = s.do(t, http.MethodPost, assignmentPath+"/marking-scores", s.marker, scores)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/rubrics/%d/publish", rubric.Data.ID), s.marker, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/rubrics/%d/publish", rubric.Data.ID), s.admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, assignmentPath+"/statistics", s.admin, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	var noData envelope[any]
	decodeResponse(t, resp, &noData)
	require.Equal(t, "no data available for this assignment", noData.Message)

	mismatch := scores
	total := 90.0
	mismatch.Total = &total
	resp = s.do(t, http.MethodPost, assignmentPath+"/marking-scores", s.marker, mismatch)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp = s.do(t, http.MethodPost, assignmentPath+"/marking-scores", s.marker, scores)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var submitted envelope[dto.MarkingScoreResponse]
	decodeResponse(t, resp, &submitted)
	require.Equal(t, 82.0, submitted.Data.Total)

	second := dto.MarkingScoreSubmitRequest{
		Scores: []dto.CriteriaScoreRequest{
			{CriterionID: rubric.Data.Criteria[0].ID, Score: 40},
			{CriterionID: rubric.Data.Criteria[1].ID, Score: 40},
		},
	}
	resp = s.do(t, http.MethodPost, assignmentPath+"/marking-scores", s.admin, second)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = s.do(t, http.MethodPost, assignmentPath+"/markers", s.admin, dto.AssignmentMarkerRequest{MarkerID: s.secondMarker.ID})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp = s.do(t, http.MethodPost, assignmentPath+"/marking-scores", s.secondMarker, second)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = s.do(t, http.MethodGet, assignmentPath+"/statistics", s.marker, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = s.do(t, http.MethodGet, assignmentPath+"/statistics", s.admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var stats envelope[dto.StatisticsResponse]
	decodeResponse(t, resp, &stats)
	require.Equal(t, 2, stats.Data.Count)
	require.InDelta(t, 81, stats.Data.Mean, 1e-9)
	require.Equal(t, 82.0, stats.Data.Max)
	require.Equal(t, 80.0, stats.Data.Min)
	require.False(t, stats.Data.CacheHit)

	resp = s.do(t, http.MethodGet, assignmentPath+"/statistics", s.admin, nil)
	decodeResponse(t, resp, &stats)
	require.True(t, stats.Data.CacheHit)

	resp = s.do(t, http.MethodPost, "/api/v1/moderations", s.admin, dto.ModerationCreateRequest{AssignmentID: assignment.Data.ID, Name: "Round one"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var moderation envelope[dto.ModerationResponse]
	decodeResponse(t, resp, &moderation)
	require.Equal(t, "In Progress", moderation.Data.Status)
	moderationPath := fmt.Sprintf("/api/v1/moderations/%d", moderation.Data.ID)

	resp = s.do(t, http.MethodPatch, moderationPath+"/status", s.admin, dto.ModerationStatusRequest{Status: "bogus"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp = s.do(t, http.MethodPatch, moderationPath+"/status", s.admin, dto.ModerationStatusRequest{Status: "completed"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, moderationPath+"/comparison", s.admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var comparison envelope[dto.ModerationComparisonResponse]
	decodeResponse(t, resp, &comparison)
	require.Equal(t, "Completed", comparison.Data.Status)
	require.Len(t, comparison.Data.Rows, 5)
	require.Equal(t, "Mina Marker", comparison.Data.Rows[3].Label)
	require.Equal(t, []bool{true, true}, comparison.Data.Rows[3].InRange)
	require.Equal(t, "Max Marker", comparison.Data.Rows[4].Label)
	require.True(t, *comparison.Data.Rows[4].Agreed)

	resp = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/activity/assignment/%d", assignment.Data.ID), s.admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var activity envelope[[]dto.ActivityLogResponse]
	decodeResponse(t, resp, &activity)
	require.NotEmpty(t, activity.Data)
}

func TestRubricImportRejectsSchemaViolations(t *testing.T) {
	s := setupApp(t)

	resp := s.do(t, http.MethodPost, "/api/v1/rubrics/import", s.admin, []byte(`{"title": "x"}`))
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestValidationErrorsListFields(t *testing.T) {
	s := setupApp(t)

	resp := s.do(t, http.MethodPost, "/api/v1/assignments", s.admin, dto.AssignmentCreateRequest{})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body struct {
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	}
	decodeResponse(t, resp, &body)
	require.Equal(t, "validation failed", body.Message)
	require.Equal(t, "required", body.Details["AssignmentCreateRequest.Name"])
}

func TestUserManagementRoutes(t *testing.T) {
	s := setupApp(t)

	resp := s.do(t, http.MethodPost, "/api/v1/users", s.marker, dto.UserCreateRequest{
		Name: "New", Email: "new@example.com", Department: "Computing", RoleLabel: "Marker", Kind: "marker",
	})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/v1/users", s.admin, dto.UserCreateRequest{
		Name: "New", Email: "new@example.com", Department: "Computing", RoleLabel: "Marker", Kind: "marker",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created envelope[dto.UserResponse]
	decodeResponse(t, resp, &created)
	require.Equal(t, 0, created.Data.Priority)

	resp = s.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/markers/%d/moderation", created.Data.ID), s.admin, dto.MarkerModerationRequest{Round: 1, Completed: true, Status: "In Progress"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var updated envelope[dto.UserResponse]
	decodeResponse(t, resp, &updated)
	require.True(t, *updated.Data.ModerationOneCompleted)
	require.Equal(t, "In Progress", updated.Data.Status)

	resp = s.do(t, http.MethodGet, "/api/v1/users/abc", s.admin, nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
