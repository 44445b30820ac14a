// Package workflow holds the leave approval state machine and the read-side
// projections built on it. Nothing in this package performs I/O.
package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/dayoff-api/internal/models"
	appErrors "github.com/noah-isme/dayoff-api/pkg/errors"
)

// InitialStages returns the stage statuses a new application starts with.
// Staff applications skip the coordinator stages by starting them as approved.
func InitialStages(pipeline models.Pipeline) (cc, coc, principal models.ApprovalStatus) {
	if pipeline == models.PipelineStaff {
		return models.StatusApproved, models.StatusApproved, models.StatusPending
	}
	return models.StatusPending, models.StatusPending, models.StatusPending
}

// OverallStatus derives the application status from its three stages.
func OverallStatus(cc, coc, principal models.ApprovalStatus) models.ApprovalStatus {
	if cc == models.StatusRejected || coc == models.StatusRejected || principal == models.StatusRejected {
		return models.StatusRejected
	}
	if cc == models.StatusApproved && coc == models.StatusApproved && principal == models.StatusApproved {
		return models.StatusApproved
	}
	return models.StatusPending
}

// CheckInvariant verifies that the overall status agrees with the stage statuses.
func CheckInvariant(app *models.LeaveApplication) error {
	if app == nil {
		return fmt.Errorf("nil application")
	}
	want := OverallStatus(app.ClassCoordinatorStatus, app.CourseCoordinatorStatus, app.PrincipalStatus)
	if app.Status != want {
		return fmt.Errorf("application %s: overall status %s, stages imply %s (cc=%s coc=%s principal=%s)",
			app.ID, app.Status, want, app.ClassCoordinatorStatus, app.CourseCoordinatorStatus, app.PrincipalStatus)
	}
	return nil
}

// IsReviewerTurn reports whether the stage owned by role is currently awaiting action.
// assignedClass only matters for class coordinators.
func IsReviewerTurn(app *models.LeaveApplication, role models.UserRole, assignedClass *models.CollegeClass) bool {
	if app == nil || app.Status != models.StatusPending {
		return false
	}
	student := app.Pipeline == models.PipelineStudent
	switch role {
	case models.RoleClassCoordinator:
		return student &&
			assignedClass != nil && app.StudentClass != nil &&
			*app.StudentClass == *assignedClass &&
			app.ClassCoordinatorStatus == models.StatusPending
	case models.RoleCourseCoordinator:
		return student &&
			app.ClassCoordinatorStatus == models.StatusApproved &&
			app.CourseCoordinatorStatus == models.StatusPending
	case models.RolePrincipal:
		if student {
			return app.CourseCoordinatorStatus == models.StatusApproved && app.PrincipalStatus == models.StatusPending
		}
		return app.PrincipalStatus == models.StatusPending
	default:
		return false
	}
}

// ApplyDecision applies a reviewer's decision to a copy of app and returns it.
// The input is never modified.
func ApplyDecision(app models.LeaveApplication, reviewer models.Identity, decision models.ApprovalStatus, comment string, at time.Time) (models.LeaveApplication, error) {
	if !decision.IsTerminal() {
		return app, appErrors.Clone(appErrors.ErrValidation, "decision must be APPROVED or REJECTED")
	}
	stage, owns := reviewer.Role.Stage()
	if !owns || !IsReviewerTurn(&app, reviewer.Role, reviewer.AssignedClass) {
		return app, appErrors.Clone(appErrors.ErrNotReviewerTurn, fmt.Sprintf("application %s is not awaiting %s", app.ID, reviewer.Role))
	}

	next := app.Clone()
	switch stage {
	case models.StageClassCoordinator:
		next.ClassCoordinatorStatus = decision
	case models.StageCourseCoordinator:
		next.CourseCoordinatorStatus = decision
	case models.StagePrincipal:
		next.PrincipalStatus = decision
	}
	next.Status = OverallStatus(next.ClassCoordinatorStatus, next.CourseCoordinatorStatus, next.PrincipalStatus)
	next.Decisions = append(next.Decisions, models.StageDecision{
		Stage:        stage,
		Status:       decision,
		ReviewerID:   reviewer.ID,
		ReviewerName: reviewer.Name,
		Comment:      strings.TrimSpace(comment),
		DecidedAt:    at.UTC(),
	})
	return next, nil
}
