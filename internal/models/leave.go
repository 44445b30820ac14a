package models

import "time"

// ApprovalStatus captures the state of a single stage or of the whole application.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "PENDING"
	StatusApproved ApprovalStatus = "APPROVED"
	StatusRejected ApprovalStatus = "REJECTED"
)

// IsTerminal reports whether the status can no longer change.
func (s ApprovalStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Valid reports whether s is one of the three known statuses.
func (s ApprovalStatus) Valid() bool {
	return s == StatusPending || s.IsTerminal()
}

// Pipeline is the ordered set of stages an application passes through.
type Pipeline string

const (
	PipelineStudent Pipeline = "STUDENT"
	PipelineStaff   Pipeline = "STAFF"
)

// Stage identifies one gate in the approval pipeline.
type Stage string

const (
	StageClassCoordinator  Stage = "CLASS_COORDINATOR"
	StageCourseCoordinator Stage = "COURSE_COORDINATOR"
	StagePrincipal         Stage = "PRINCIPAL"
)

// LeaveType enumerates the supported leave categories.
type LeaveType string

const (
	LeaveTypeMedical           LeaveType = "Medical Leave"
	LeaveTypePersonalEmergency LeaveType = "Personal Emergency"
	LeaveTypeFamilyEvent       LeaveType = "Family Event"
	LeaveTypeAcademicWork      LeaveType = "Academic Work"
	LeaveTypeOther             LeaveType = "Other"
)

// LeaveTypes lists every leave category in display order.
var LeaveTypes = []LeaveType{
	LeaveTypeMedical, LeaveTypePersonalEmergency, LeaveTypeFamilyEvent, LeaveTypeAcademicWork, LeaveTypeOther,
}

// Valid reports whether t is a known leave category.
func (t LeaveType) Valid() bool {
	for _, known := range LeaveTypes {
		if t == known {
			return true
		}
	}
	return false
}

// StageDecision records one reviewer action on an application.
type StageDecision struct {
	Stage        Stage          `json:"stage"`
	Status       ApprovalStatus `json:"status"`
	ReviewerID   string         `json:"reviewerId"`
	ReviewerName string         `json:"reviewerName"`
	Comment      string         `json:"comment,omitempty"`
	DecidedAt    time.Time      `json:"decidedAt"`
}

// LeaveApplication is a leave request moving through its approval pipeline.
type LeaveApplication struct {
	ID                      string          `json:"id"`
	ApplicantID             string          `json:"applicantId"`
	ApplicantName           string          `json:"applicantName"`
	ApplicantRole           UserRole        `json:"applicantRole"`
	Pipeline                Pipeline        `json:"pipeline"`
	StudentClass            *CollegeClass   `json:"studentClass,omitempty"`
	StartDate               time.Time       `json:"startDate"`
	EndDate                 time.Time       `json:"endDate"`
	Type                    LeaveType       `json:"type"`
	Reason                  string          `json:"reason"`
	ClassCoordinatorStatus  ApprovalStatus  `json:"ccStatus"`
	CourseCoordinatorStatus ApprovalStatus  `json:"cocStatus"`
	PrincipalStatus         ApprovalStatus  `json:"principalStatus"`
	Status                  ApprovalStatus  `json:"status"`
	AppliedDate             time.Time       `json:"appliedDate"`
	AISummary               string          `json:"aiSummary,omitempty"`
	AILetter                string          `json:"aiLetter,omitempty"`
	Decisions               []StageDecision `json:"decisions,omitempty"`
}

// StageStatus returns the status held by the given stage.
func (a *LeaveApplication) StageStatus(stage Stage) ApprovalStatus {
	switch stage {
	case StageClassCoordinator:
		return a.ClassCoordinatorStatus
	case StageCourseCoordinator:
		return a.CourseCoordinatorStatus
	case StagePrincipal:
		return a.PrincipalStatus
	}
	return ""
}

// DurationDays returns the inclusive number of calendar days covered by the leave.
func (a *LeaveApplication) DurationDays() int {
	return DaysInclusive(a.StartDate, a.EndDate)
}

// Clone returns a deep copy that shares no mutable state with a.
func (a LeaveApplication) Clone() LeaveApplication {
	if a.StudentClass != nil {
		class := *a.StudentClass
		a.StudentClass = &class
	}
	if a.Decisions != nil {
		decisions := make([]StageDecision, len(a.Decisions))
		copy(decisions, a.Decisions)
		a.Decisions = decisions
	}
	return a
}

// DaysInclusive counts calendar days from start to end, both included.
func DaysInclusive(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int((e.Unix()-s.Unix())/86400) + 1
}

// LeaveFilter narrows projections. Zero values match everything.
type LeaveFilter struct {
	Search string
	Class  CollegeClass
	Role   UserRole
	Status ApprovalStatus
}

// LeaveOverview summarises the registry from one reviewer's point of view.
type LeaveOverview struct {
	PendingForMe  int                `json:"pendingForMe"`
	TotalApproved int                `json:"totalApproved"`
	TotalRejected int                `json:"totalRejected"`
	Recent        []LeaveApplication `json:"recent"`
}
