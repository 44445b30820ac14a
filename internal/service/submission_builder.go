package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/dayoff-api/internal/dto"
	"github.com/noah-isme/dayoff-api/internal/models"
	"github.com/noah-isme/dayoff-api/internal/workflow"
	appErrors "github.com/noah-isme/dayoff-api/pkg/errors"
)

const leaveIDPrefix = "LV-"

// StagedSubmission is a validated application that has not been enriched or stored yet.
type StagedSubmission struct {
	Applicant models.Identity
	Pipeline  models.Pipeline
	Class     *models.CollegeClass
	StartDate time.Time
	EndDate   time.Time
	Type      models.LeaveType
	Reason    string
}

// Days returns the inclusive length of the requested period.
func (s *StagedSubmission) Days() int {
	return models.DaysInclusive(s.StartDate, s.EndDate)
}

// RequestContext frames the summary prompt by applicant population.
func (s *StagedSubmission) RequestContext() string {
	if s.Pipeline == models.PipelineStudent {
		return "Student request"
	}
	return "Faculty request"
}

// SubmissionBuilder turns form input into new application records in two phases.
type SubmissionBuilder struct {
	validator *validator.Validate
	enricher  *Enricher
	now       func() time.Time
	newID     func() string
	maxDays   int
}

// DefaultMaxLeaveDays caps the inclusive length of a single application.
const DefaultMaxLeaveDays = 365

// SubmissionOption customises the builder.
type SubmissionOption func(*SubmissionBuilder)

// WithSubmissionClock overrides the applied-date source.
func WithSubmissionClock(now func() time.Time) SubmissionOption {
	return func(b *SubmissionBuilder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithMaxLeaveDays caps the inclusive length of the requested period.
func WithMaxLeaveDays(days int) SubmissionOption {
	return func(b *SubmissionBuilder) {
		if days > 0 {
			b.maxDays = days
		}
	}
}

// WithIDGenerator overrides application id generation.
func WithIDGenerator(newID func() string) SubmissionOption {
	return func(b *SubmissionBuilder) {
		if newID != nil {
			b.newID = newID
		}
	}
}

// NewSubmissionBuilder constructs a builder. A nil enricher stores the fallback texts.
func NewSubmissionBuilder(validate *validator.Validate, enricher *Enricher, opts ...SubmissionOption) *SubmissionBuilder {
	if validate == nil {
		validate = validator.New()
	}
	b := &SubmissionBuilder{
		validator: validate,
		enricher:  enricher,
		now:       time.Now,
		newID:     func() string { return leaveIDPrefix + uuid.NewString() },
		maxDays:   DefaultMaxLeaveDays,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Stage validates the request against the applicant identity. Nothing is created.
func (b *SubmissionBuilder) Stage(req dto.SubmitLeaveRequest, applicant models.Identity) (*StagedSubmission, error) {
	if strings.TrimSpace(applicant.ID) == "" || strings.TrimSpace(applicant.Name) == "" || !applicant.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnknownApplicant, "applicant identity is incomplete")
	}
	if err := b.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave payload")
	}

	leaveType := models.LeaveType(strings.TrimSpace(req.Type))
	if !leaveType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown leave type")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reason is required")
	}

	start, err := time.Parse(dto.DateLayout, req.StartDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start date")
	}
	end, err := time.Parse(dto.DateLayout, req.EndDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end date")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must not be before start date")
	}
	if end.After(start.AddDate(0, 0, b.maxDays-1)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("leave period must not exceed %d days", b.maxDays))
	}

	staged := &StagedSubmission{
		Applicant: applicant,
		Pipeline:  applicant.Role.Pipeline(),
		StartDate: start,
		EndDate:   end,
		Type:      leaveType,
		Reason:    reason,
	}
	if staged.Pipeline == models.PipelineStudent {
		class, ok := models.ParseCollegeClass(req.StudentClass)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrInvalidClass, "students must select a valid college class")
		}
		staged.Class = &class
	}
	return staged, nil
}

// Commit enriches a staged submission and builds the record to insert.
func (b *SubmissionBuilder) Commit(ctx context.Context, staged *StagedSubmission) models.LeaveApplication {
	enrichment := b.enricher.Enrich(ctx, staged.Reason, staged.Type, staged.Days(), staged.RequestContext())

	cc, coc, principal := workflow.InitialStages(staged.Pipeline)
	app := models.LeaveApplication{
		ID:                      b.newID(),
		ApplicantID:             staged.Applicant.ID,
		ApplicantName:           staged.Applicant.Name,
		ApplicantRole:           staged.Applicant.Role,
		Pipeline:                staged.Pipeline,
		StartDate:               staged.StartDate,
		EndDate:                 staged.EndDate,
		Type:                    staged.Type,
		Reason:                  staged.Reason,
		ClassCoordinatorStatus:  cc,
		CourseCoordinatorStatus: coc,
		PrincipalStatus:         principal,
		Status:                  workflow.OverallStatus(cc, coc, principal),
		AppliedDate:             b.now().UTC(),
		AISummary:               enrichment.Summary,
		AILetter:                enrichment.Letter,
	}
	if staged.Class != nil {
		class := *staged.Class
		app.StudentClass = &class
	}
	return app
}
