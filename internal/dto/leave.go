package dto

import "github.com/noah-isme/dayoff-api/internal/models"

// DateLayout is the calendar date format accepted for leave periods.
const DateLayout = "2006-01-02"

// SubmitLeaveRequest defines the payload for a new leave application.
// StudentClass is required for students and ignored for staff.
type SubmitLeaveRequest struct {
	StartDate    string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate      string `json:"endDate" validate:"required,datetime=2006-01-02"`
	Type         string `json:"type" validate:"required"`
	Reason       string `json:"reason" validate:"required,max=2000"`
	StudentClass string `json:"studentClass,omitempty"`
}

// DecisionRequest defines the payload for a reviewer decision.
type DecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=APPROVED REJECTED"`
	Comment  string `json:"comment,omitempty" validate:"max=500"`
}

// Sort orders for list endpoints.
const (
	SortAppliedDesc = "applied_desc"
	SortNone        = "none"
)

// LeaveListQuery holds the filters accepted by reviewer list endpoints.
type LeaveListQuery struct {
	Search string `form:"search" validate:"max=100"`
	Class  string `form:"class"`
	Role   string `form:"role" validate:"omitempty,oneof=STUDENT CLASS_COORDINATOR COURSE_COORDINATOR PRINCIPAL NORMAL_FACULTY"`
	Status string `form:"status" validate:"omitempty,oneof=PENDING APPROVED REJECTED"`
	Sort   string `form:"sort" validate:"omitempty,oneof=applied_desc none"`
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// TurnResponse tells a reviewer whether an application is awaiting them.
type TurnResponse struct {
	ApplicationID string                `json:"applicationId"`
	Status        models.ApprovalStatus `json:"status"`
	Stage         models.Stage          `json:"stage,omitempty"`
	YourTurn      bool                  `json:"yourTurn"`
}
