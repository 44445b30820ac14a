package workflow

import (
	"sort"
	"strings"

	"github.com/noah-isme/dayoff-api/internal/models"
)

// RecentLimit is the number of applications shown in an overview.
const RecentLimit = 3

// PendingInbox returns the applications currently awaiting the reviewer,
// excluding the reviewer's own requests.
func PendingInbox(apps []models.LeaveApplication, reviewer models.Identity) []models.LeaveApplication {
	result := make([]models.LeaveApplication, 0)
	for i := range apps {
		app := &apps[i]
		if app.ApplicantID == reviewer.ID || app.Status != models.StatusPending {
			continue
		}
		if IsReviewerTurn(app, reviewer.Role, reviewer.AssignedClass) {
			result = append(result, *app)
		}
	}
	return result
}

// ExecutedArchive returns the applications the reviewer can look back on: terminal ones,
// ones that already passed the reviewer's stage, or everything for normal faculty.
func ExecutedArchive(apps []models.LeaveApplication, reviewer models.Identity) []models.LeaveApplication {
	result := make([]models.LeaveApplication, 0)
	if reviewer.Role.IsStudent() || !reviewer.Role.Valid() {
		return result
	}
	stage, ownsStage := reviewer.Role.Stage()
	for i := range apps {
		app := &apps[i]
		if app.ApplicantID == reviewer.ID {
			continue
		}
		switch {
		case reviewer.Role == models.RoleNormalFaculty,
			app.Status.IsTerminal(),
			ownsStage && app.StageStatus(stage) != models.StatusPending:
			result = append(result, *app)
		}
	}
	return result
}

// MyApplications returns every application authored by user.
func MyApplications(apps []models.LeaveApplication, user models.Identity) []models.LeaveApplication {
	result := make([]models.LeaveApplication, 0)
	for _, app := range apps {
		if app.ApplicantID == user.ID {
			result = append(result, app)
		}
	}
	return result
}

// ApplyFilter narrows apps to the ones matching every non-empty filter field.
func ApplyFilter(apps []models.LeaveApplication, filter models.LeaveFilter) []models.LeaveApplication {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	result := make([]models.LeaveApplication, 0, len(apps))
	for _, app := range apps {
		if search != "" &&
			!strings.Contains(strings.ToLower(app.ApplicantName), search) &&
			!strings.Contains(strings.ToLower(app.Reason), search) {
			continue
		}
		if filter.Class != "" && (app.StudentClass == nil || *app.StudentClass != filter.Class) {
			continue
		}
		if filter.Role != "" && app.ApplicantRole != filter.Role {
			continue
		}
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		result = append(result, app)
	}
	return result
}

// SortByAppliedDateDesc returns a copy of apps ordered newest first.
// Applications applied at the same instant keep their relative order.
func SortByAppliedDateDesc(apps []models.LeaveApplication) []models.LeaveApplication {
	sorted := append([]models.LeaveApplication(nil), apps...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AppliedDate.After(sorted[j].AppliedDate)
	})
	return sorted
}

// Overview counts the reviewer's pending work and registry-wide outcomes.
func Overview(apps []models.LeaveApplication, reviewer models.Identity) models.LeaveOverview {
	overview := models.LeaveOverview{
		PendingForMe: len(PendingInbox(apps, reviewer)),
	}
	for _, app := range apps {
		switch app.Status {
		case models.StatusApproved:
			overview.TotalApproved++
		case models.StatusRejected:
			overview.TotalRejected++
		}
	}
	recent := SortByAppliedDateDesc(apps)
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	overview.Recent = recent
	return overview
}
