package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/dayoff-api/internal/dto"
	"github.com/noah-isme/dayoff-api/internal/models"
	"github.com/noah-isme/dayoff-api/internal/repository"
	"github.com/noah-isme/dayoff-api/internal/workflow"
	appErrors "github.com/noah-isme/dayoff-api/pkg/errors"
)

const leaveResource = "leave"

type leaveStore interface {
	Insert(ctx context.Context, app models.LeaveApplication) error
	Get(ctx context.Context, id string) (*models.LeaveApplication, error)
	Snapshot(ctx context.Context) ([]models.LeaveApplication, error)
	Update(ctx context.Context, id string, fn repository.LeaveMutator) (*models.LeaveApplication, error)
	Generation() uint64
}

// cachedOverview tags an overview with the registry generation it was computed from.
type cachedOverview struct {
	Generation uint64               `json:"generation"`
	Overview   models.LeaveOverview `json:"overview"`
}

// LeaveService orchestrates submissions, decisions and reviewer views over the registry.
type LeaveService struct {
	store     leaveStore
	builder   *SubmissionBuilder
	validator *validator.Validate
	cache     *CacheService
	cacheTTL  time.Duration
	audit     auditRecorder
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// LeaveOption customises the leave service.
type LeaveOption func(*LeaveService)

// WithOverviewCache caches reviewer overviews for ttl.
func WithOverviewCache(cache *CacheService, ttl time.Duration) LeaveOption {
	return func(s *LeaveService) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithLeaveAudit records submissions and decisions.
func WithLeaveAudit(audit auditRecorder) LeaveOption {
	return func(s *LeaveService) { s.audit = audit }
}

// WithLeaveMetrics records workflow counters.
func WithLeaveMetrics(metrics *MetricsService) LeaveOption {
	return func(s *LeaveService) { s.metrics = metrics }
}

// WithLeaveClock overrides the decision timestamp source.
func WithLeaveClock(now func() time.Time) LeaveOption {
	return func(s *LeaveService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewLeaveService constructs the leave service.
func NewLeaveService(store leaveStore, builder *SubmissionBuilder, validate *validator.Validate, logger *zap.Logger, opts ...LeaveOption) *LeaveService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if builder == nil {
		builder = NewSubmissionBuilder(validate, nil)
	}
	svc := &LeaveService{store: store, builder: builder, validator: validate, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Submit validates, enriches and stores a new application for applicant.
func (s *LeaveService) Submit(ctx context.Context, req dto.SubmitLeaveRequest, applicant models.Identity, meta RequestMeta) (*models.LeaveApplication, error) {
	staged, err := s.builder.Stage(req, applicant)
	if err != nil {
		return nil, err
	}

	app := s.builder.Commit(ctx, staged)
	if err := s.store.Insert(ctx, app); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store leave application")
	}

	s.metrics.RecordSubmission(string(app.Pipeline))
	s.record(AuditEntry{
		UserID:     applicant.ID,
		Action:     models.AuditActionLeaveSubmit,
		Resource:   leaveResource,
		ResourceID: app.ID,
		After:      map[string]interface{}{"pipeline": app.Pipeline, "type": app.Type, "days": app.DurationDays()},
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	s.invalidateOverviews(ctx)
	s.logger.Info("leave submitted", zap.String("leave_id", app.ID), zap.String("applicant_id", app.ApplicantID), zap.String("pipeline", string(app.Pipeline)))
	return &app, nil
}

// Decide applies reviewer's decision to the application atomically.
func (s *LeaveService) Decide(ctx context.Context, id string, req dto.DecisionRequest, reviewer models.Identity, meta RequestMeta) (*models.LeaveApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	decision := models.ApprovalStatus(req.Decision)
	at := s.now()

	var before models.LeaveApplication
	updated, err := s.store.Update(ctx, id, func(current models.LeaveApplication) (models.LeaveApplication, error) {
		if current.ApplicantID == reviewer.ID {
			return current, appErrors.Clone(appErrors.ErrForbidden, "reviewers cannot decide their own application")
		}
		before = current
		return workflow.ApplyDecision(current, reviewer, decision, req.Comment, at)
	})
	if err != nil {
		if errors.Is(err, appErrors.ErrNotReviewerTurn) {
			s.metrics.RecordOutOfTurn()
		}
		return nil, s.mapStoreError(err, "failed to record decision")
	}

	stage, _ := reviewer.Role.Stage()
	s.metrics.RecordDecision(string(stage), string(decision))
	s.record(AuditEntry{
		UserID:     reviewer.ID,
		Action:     models.AuditActionLeaveDecision,
		Resource:   leaveResource,
		ResourceID: updated.ID,
		Before:     map[string]interface{}{"stage": before.StageStatus(stage), "status": before.Status},
		After:      map[string]interface{}{"stage": updated.StageStatus(stage), "status": updated.Status, "comment": req.Comment},
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	s.invalidateOverviews(ctx)
	s.logger.Info("leave decided",
		zap.String("leave_id", updated.ID),
		zap.String("reviewer_id", reviewer.ID),
		zap.String("stage", string(stage)),
		zap.String("decision", string(decision)),
		zap.String("status", string(updated.Status)))
	return updated, nil
}

// Get returns one application. Students may only read their own.
func (s *LeaveService) Get(ctx context.Context, id string, viewer models.Identity) (*models.LeaveApplication, error) {
	app, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.mapStoreError(err, "failed to load leave application")
	}
	if viewer.Role.IsStudent() && app.ApplicantID != viewer.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only view their own applications")
	}
	return app, nil
}

// Turn reports whether the application is awaiting viewer.
func (s *LeaveService) Turn(ctx context.Context, id string, viewer models.Identity) (*dto.TurnResponse, error) {
	app, err := s.Get(ctx, id, viewer)
	if err != nil {
		return nil, err
	}
	stage, _ := viewer.Role.Stage()
	return &dto.TurnResponse{
		ApplicationID: app.ID,
		Status:        app.Status,
		Stage:         stage,
		YourTurn:      app.ApplicantID != viewer.ID && workflow.IsReviewerTurn(app, viewer.Role, viewer.AssignedClass),
	}, nil
}

// Mine lists the applications submitted by user, newest first.
func (s *LeaveService) Mine(ctx context.Context, user models.Identity) ([]models.LeaveApplication, error) {
	apps, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return workflow.SortByAppliedDateDesc(workflow.MyApplications(apps, user)), nil
}

// Inbox lists applications currently awaiting reviewer.
func (s *LeaveService) Inbox(ctx context.Context, reviewer models.Identity, query dto.LeaveListQuery) ([]models.LeaveApplication, error) {
	return s.project(ctx, query, func(apps []models.LeaveApplication) []models.LeaveApplication {
		return workflow.PendingInbox(apps, reviewer)
	})
}

// Archive lists applications reviewer already acted on or may only observe.
func (s *LeaveService) Archive(ctx context.Context, reviewer models.Identity, query dto.LeaveListQuery) ([]models.LeaveApplication, error) {
	return s.project(ctx, query, func(apps []models.LeaveApplication) []models.LeaveApplication {
		return workflow.ExecutedArchive(apps, reviewer)
	})
}

// Overview summarises the registry for reviewer, served from cache when enabled.
// Cached entries computed from an older registry generation count as misses.
func (s *LeaveService) Overview(ctx context.Context, reviewer models.Identity) (*models.LeaveOverview, error) {
	key := OverviewCacheKey(reviewer.ID)
	generation := s.store.Generation()
	var cached cachedOverview
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit && cached.Generation == generation {
		return &cached.Overview, nil
	}

	apps, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	overview := workflow.Overview(apps, reviewer)
	if s.store.Generation() == generation {
		_ = s.cache.Set(ctx, key, cachedOverview{Generation: generation, Overview: overview}, s.cacheTTL)
	}
	return &overview, nil
}

func (s *LeaveService) project(ctx context.Context, query dto.LeaveListQuery, view func([]models.LeaveApplication) []models.LeaveApplication) ([]models.LeaveApplication, error) {
	filter, err := s.parseQuery(query)
	if err != nil {
		return nil, err
	}
	apps, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	result := workflow.ApplyFilter(view(apps), filter)
	if query.Sort != dto.SortNone {
		result = workflow.SortByAppliedDateDesc(result)
	}
	return result, nil
}

func (s *LeaveService) parseQuery(query dto.LeaveListQuery) (models.LeaveFilter, error) {
	if err := s.validator.Struct(query); err != nil {
		return models.LeaveFilter{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid list query")
	}
	filter := models.LeaveFilter{
		Search: query.Search,
		Role:   models.UserRole(query.Role),
		Status: models.ApprovalStatus(query.Status),
	}
	if query.Class != "" {
		class, ok := models.ParseCollegeClass(query.Class)
		if !ok {
			return models.LeaveFilter{}, appErrors.Clone(appErrors.ErrInvalidClass, "unknown class filter")
		}
		filter.Class = class
	}
	return filter, nil
}

func (s *LeaveService) snapshot(ctx context.Context) ([]models.LeaveApplication, error) {
	apps, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read leave registry")
	}
	return apps, nil
}

func (s *LeaveService) mapStoreError(err error, message string) error {
	if errors.Is(err, repository.ErrLeaveNotFound) {
		return appErrors.Clone(appErrors.ErrNotFound, "leave application not found")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *LeaveService) record(entry AuditEntry) {
	if s.audit == nil {
		return
	}
	s.audit.Record(entry)
}

func (s *LeaveService) invalidateOverviews(ctx context.Context) {
	if err := s.cache.InvalidateOverviews(ctx); err != nil {
		s.logger.Warn("failed to invalidate overview cache", zap.Error(err))
	}
}
