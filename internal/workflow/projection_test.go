package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dayoff-api/internal/models"
)

func ids(apps []models.LeaveApplication) []string {
	out := make([]string, 0, len(apps))
	for _, app := range apps {
		out = append(out, app.ID)
	}
	return out
}

func mustDecide(t *testing.T, app models.LeaveApplication, reviewer models.Identity, decision models.ApprovalStatus) models.LeaveApplication {
	t.Helper()
	next, err := ApplyDecision(app, reviewer, decision, "", decidedAt)
	require.NoError(t, err)
	return next
}

// registryFixture builds a small registry covering every pipeline position.
func registryFixture(t *testing.T) []models.LeaveApplication {
	t.Helper()
	fresh := newApplication("L-fresh", priya, classPtr(models.Class1BScNursing))

	ccApproved := newApplication("L-cc-approved", models.Identity{ID: "S2", Name: "Karan Mehta", Role: models.RoleStudent}, classPtr(models.Class1BScNursing))
	ccApproved.Reason = "Family wedding"
	ccApproved.Type = models.LeaveTypeFamilyEvent
	ccApproved.AppliedDate = ccApproved.AppliedDate.Add(2 * time.Hour)
	ccApproved = mustDecide(t, ccApproved, anita, models.StatusApproved)

	cocApproved := newApplication("L-coc-approved", models.Identity{ID: "S3", Name: "Meera Nair", Role: models.RoleStudent}, classPtr(models.Class2GNM))
	cocApproved.AppliedDate = cocApproved.AppliedDate.Add(4 * time.Hour)
	cocApproved = mustDecide(t, cocApproved, otherCC, models.StatusApproved)
	cocApproved = mustDecide(t, cocApproved, robert, models.StatusApproved)

	rejected := newApplication("L-rejected", models.Identity{ID: "S4", Name: "Arjun", Role: models.RoleStudent}, classPtr(models.Class1BScNursing))
	rejected.AppliedDate = rejected.AppliedDate.Add(-24 * time.Hour)
	rejected = mustDecide(t, rejected, anita, models.StatusRejected)

	staff := newApplication("L-staff", wilson, nil)
	staff.AppliedDate = staff.AppliedDate.Add(6 * time.Hour)

	ownByCC := newApplication("L-anita-own", anita, nil)
	ownByCC.AppliedDate = ownByCC.AppliedDate.Add(time.Hour)

	return []models.LeaveApplication{fresh, ccApproved, cocApproved, rejected, staff, ownByCC}
}

func TestPendingInboxPerReviewer(t *testing.T) {
	apps := registryFixture(t)

	assert.ElementsMatch(t, []string{"L-fresh"}, ids(PendingInbox(apps, anita)))
	assert.Empty(t, PendingInbox(apps, otherCC))
	assert.ElementsMatch(t, []string{"L-cc-approved"}, ids(PendingInbox(apps, robert)))
	assert.ElementsMatch(t, []string{"L-coc-approved", "L-staff", "L-anita-own"}, ids(PendingInbox(apps, elizabeth)))
	assert.Empty(t, PendingInbox(apps, wilson))
	assert.Empty(t, PendingInbox(apps, priya))
}

func TestPendingInboxExcludesOwnApplications(t *testing.T) {
	principalOwn := newApplication("L-pr-own", elizabeth, nil)
	apps := []models.LeaveApplication{principalOwn}

	assert.True(t, IsReviewerTurn(&principalOwn, models.RolePrincipal, nil))
	assert.Empty(t, PendingInbox(apps, elizabeth))
}

func TestExecutedArchivePerReviewer(t *testing.T) {
	apps := registryFixture(t)

	// Class coordinator: own stage decided (including pre-approved staff stages) or terminal.
	assert.ElementsMatch(t,
		[]string{"L-cc-approved", "L-coc-approved", "L-rejected", "L-staff"},
		ids(ExecutedArchive(apps, anita)))
	assert.ElementsMatch(t,
		[]string{"L-coc-approved", "L-rejected", "L-staff", "L-anita-own"},
		ids(ExecutedArchive(apps, robert)))
	assert.ElementsMatch(t, []string{"L-rejected"}, ids(ExecutedArchive(apps, elizabeth)))
	assert.ElementsMatch(t,
		[]string{"L-fresh", "L-cc-approved", "L-coc-approved", "L-rejected", "L-anita-own"},
		ids(ExecutedArchive(apps, wilson)))
	assert.Empty(t, ExecutedArchive(apps, priya))
}

func TestMyApplications(t *testing.T) {
	apps := registryFixture(t)
	assert.ElementsMatch(t, []string{"L-fresh"}, ids(MyApplications(apps, priya)))
	assert.ElementsMatch(t, []string{"L-anita-own"}, ids(MyApplications(apps, anita)))
	assert.Empty(t, MyApplications(apps, robert))
}

func TestApplyFilterOnlyNarrows(t *testing.T) {
	apps := registryFixture(t)
	archive := ExecutedArchive(apps, wilson)

	bySearch := ApplyFilter(archive, models.LeaveFilter{Search: "WEDDING"})
	assert.Equal(t, []string{"L-cc-approved"}, ids(bySearch))

	byName := ApplyFilter(archive, models.LeaveFilter{Search: "meera"})
	assert.Equal(t, []string{"L-coc-approved"}, ids(byName))

	byClass := ApplyFilter(archive, models.LeaveFilter{Class: models.Class1BScNursing})
	assert.ElementsMatch(t, []string{"L-fresh", "L-cc-approved", "L-rejected"}, ids(byClass))

	byRole := ApplyFilter(archive, models.LeaveFilter{Role: models.RoleClassCoordinator})
	assert.Equal(t, []string{"L-anita-own"}, ids(byRole))

	byStatus := ApplyFilter(archive, models.LeaveFilter{Status: models.StatusRejected})
	assert.Equal(t, []string{"L-rejected"}, ids(byStatus))

	combined := ApplyFilter(archive, models.LeaveFilter{Class: models.Class1BScNursing, Status: models.StatusPending, Search: "fever"})
	assert.Equal(t, []string{"L-fresh"}, ids(combined))

	assert.Equal(t, ids(archive), ids(ApplyFilter(archive, models.LeaveFilter{})))
	for _, filtered := range [][]models.LeaveApplication{bySearch, byName, byClass, byRole, byStatus, combined} {
		assert.Subset(t, ids(archive), ids(filtered))
	}
}

func TestProjectionsAreIdempotent(t *testing.T) {
	apps := registryFixture(t)
	snapshot := make([]models.LeaveApplication, len(apps))
	for i := range apps {
		snapshot[i] = apps[i].Clone()
	}

	for _, reviewer := range allReviewers {
		assert.Equal(t, PendingInbox(apps, reviewer), PendingInbox(apps, reviewer))
		assert.Equal(t, ExecutedArchive(apps, reviewer), ExecutedArchive(apps, reviewer))
	}
	assert.Equal(t, snapshot, apps)
}

func TestSortAndOverview(t *testing.T) {
	apps := registryFixture(t)

	sorted := SortByAppliedDateDesc(apps)
	assert.Equal(t, []string{"L-staff", "L-coc-approved", "L-cc-approved", "L-anita-own", "L-fresh", "L-rejected"}, ids(sorted))
	assert.Equal(t, "L-fresh", apps[0].ID, "input order must be preserved")

	overview := Overview(apps, elizabeth)
	assert.Equal(t, 3, overview.PendingForMe)
	assert.Equal(t, 0, overview.TotalApproved)
	assert.Equal(t, 1, overview.TotalRejected)
	assert.Equal(t, []string{"L-staff", "L-coc-approved", "L-cc-approved"}, ids(overview.Recent))
}
