package workflow

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dayoff-api/internal/models"
	appErrors "github.com/noah-isme/dayoff-api/pkg/errors"
)

var decidedAt = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func classPtr(c models.CollegeClass) *models.CollegeClass {
	return &c
}

func newApplication(id string, applicant models.Identity, class *models.CollegeClass) models.LeaveApplication {
	pipeline := applicant.Role.Pipeline()
	cc, coc, pr := InitialStages(pipeline)
	return models.LeaveApplication{
		ID:                      id,
		ApplicantID:             applicant.ID,
		ApplicantName:           applicant.Name,
		ApplicantRole:           applicant.Role,
		Pipeline:                pipeline,
		StudentClass:            class,
		StartDate:               time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:                 time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		Type:                    models.LeaveTypeMedical,
		Reason:                  "Suffering from high fever.",
		ClassCoordinatorStatus:  cc,
		CourseCoordinatorStatus: coc,
		PrincipalStatus:         pr,
		Status:                  OverallStatus(cc, coc, pr),
		AppliedDate:             time.Date(2024, 5, 30, 8, 0, 0, 0, time.UTC),
	}
}

var (
	priya        = models.Identity{ID: "STUDENT_TEMP", Name: "Priya Sharma", Role: models.RoleStudent}
	wilson       = models.Identity{ID: "F1", Name: "Prof. Wilson", Role: models.RoleNormalFaculty}
	anita        = models.Identity{ID: "CC1", Name: "Mrs. Anita", Role: models.RoleClassCoordinator, AssignedClass: classPtr(models.Class1BScNursing)}
	otherCC      = models.Identity{ID: "CC2", Name: "Mr. Rao", Role: models.RoleClassCoordinator, AssignedClass: classPtr(models.Class2GNM)}
	robert       = models.Identity{ID: "COC", Name: "Dr. Robert", Role: models.RoleCourseCoordinator}
	elizabeth    = models.Identity{ID: "PR", Name: "Dr. Elizabeth", Role: models.RolePrincipal}
	allReviewers = []models.Identity{anita, otherCC, robert, elizabeth, wilson}
)

func requireInvariant(t *testing.T, app models.LeaveApplication) {
	t.Helper()
	require.NoError(t, CheckInvariant(&app))
}

func TestScenarioStudentSubmission(t *testing.T) {
	app := newApplication("L-1001", priya, classPtr(models.Class1BScNursing))

	assert.Equal(t, models.PipelineStudent, app.Pipeline)
	assert.Equal(t, models.StatusPending, app.ClassCoordinatorStatus)
	assert.Equal(t, models.StatusPending, app.CourseCoordinatorStatus)
	assert.Equal(t, models.StatusPending, app.PrincipalStatus)
	assert.Equal(t, models.StatusPending, app.Status)
	requireInvariant(t, app)
}

func TestScenarioStudentApproveThenReject(t *testing.T) {
	app := newApplication("L-1001", priya, classPtr(models.Class1BScNursing))

	approved, err := ApplyDecision(app, anita, models.StatusApproved, "get well", decidedAt)
	require.NoError(t, err)
	requireInvariant(t, approved)
	assert.Equal(t, models.StatusApproved, approved.ClassCoordinatorStatus)
	assert.Equal(t, models.StatusPending, approved.CourseCoordinatorStatus)
	assert.Equal(t, models.StatusPending, approved.Status)
	assert.True(t, IsReviewerTurn(&approved, models.RoleCourseCoordinator, nil))
	require.Len(t, approved.Decisions, 1)
	assert.Equal(t, "get well", approved.Decisions[0].Comment)
	assert.Equal(t, models.StageClassCoordinator, approved.Decisions[0].Stage)

	rejected, err := ApplyDecision(approved, robert, models.StatusRejected, "", decidedAt)
	require.NoError(t, err)
	requireInvariant(t, rejected)
	assert.Equal(t, models.StatusRejected, rejected.CourseCoordinatorStatus)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, models.StatusPending, rejected.PrincipalStatus)
	assert.False(t, IsReviewerTurn(&rejected, models.RolePrincipal, nil))
}

func TestScenarioStaffPipeline(t *testing.T) {
	app := newApplication("L-2001", wilson, nil)

	assert.Equal(t, models.PipelineStaff, app.Pipeline)
	assert.Equal(t, models.StatusApproved, app.ClassCoordinatorStatus)
	assert.Equal(t, models.StatusApproved, app.CourseCoordinatorStatus)
	assert.Equal(t, models.StatusPending, app.PrincipalStatus)
	assert.Equal(t, models.StatusPending, app.Status)
	requireInvariant(t, app)

	assert.True(t, IsReviewerTurn(&app, models.RolePrincipal, nil))
	assert.False(t, IsReviewerTurn(&app, models.RoleClassCoordinator, anita.AssignedClass))
	assert.False(t, IsReviewerTurn(&app, models.RoleCourseCoordinator, nil))

	apps := []models.LeaveApplication{app}
	assert.Empty(t, PendingInbox(apps, anita))
	assert.Empty(t, PendingInbox(apps, robert))
	assert.Len(t, PendingInbox(apps, elizabeth), 1)

	final, err := ApplyDecision(app, elizabeth, models.StatusApproved, "", decidedAt)
	require.NoError(t, err)
	requireInvariant(t, final)
	assert.Equal(t, models.StatusApproved, final.Status)
}

func TestFullStudentApproval(t *testing.T) {
	app := newApplication("L-1002", priya, classPtr(models.Class1BScNursing))
	var err error
	for _, reviewer := range []models.Identity{anita, robert, elizabeth} {
		assert.Equal(t, models.StatusPending, app.Status)
		app, err = ApplyDecision(app, reviewer, models.StatusApproved, "", decidedAt)
		require.NoError(t, err)
		requireInvariant(t, app)
	}
	assert.Equal(t, models.StatusApproved, app.Status)
	assert.Len(t, app.Decisions, 3)
}

func TestApplyDecisionOutOfTurn(t *testing.T) {
	app := newApplication("L-1003", priya, classPtr(models.Class1BScNursing))

	cases := []struct {
		name     string
		reviewer models.Identity
	}{
		{"course coordinator before class coordinator", robert},
		{"principal before coordinators", elizabeth},
		{"class coordinator of another class", otherCC},
		{"normal faculty", wilson},
		{"student", priya},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ApplyDecision(app, tc.reviewer, models.StatusApproved, "", decidedAt)
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrNotReviewerTurn))
		})
	}
}

func TestApplyDecisionRejectsPendingDecision(t *testing.T) {
	app := newApplication("L-1004", priya, classPtr(models.Class1BScNursing))
	_, err := ApplyDecision(app, anita, models.StatusPending, "", decidedAt)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestDecidedStageCannotBeDecidedAgain(t *testing.T) {
	app := newApplication("L-1005", priya, classPtr(models.Class1BScNursing))
	approved, err := ApplyDecision(app, anita, models.StatusApproved, "", decidedAt)
	require.NoError(t, err)

	_, err = ApplyDecision(approved, anita, models.StatusRejected, "", decidedAt)
	assert.True(t, errors.Is(err, appErrors.ErrNotReviewerTurn))

	rejected, err := ApplyDecision(approved, robert, models.StatusRejected, "", decidedAt)
	require.NoError(t, err)
	for _, reviewer := range allReviewers {
		_, err := ApplyDecision(rejected, reviewer, models.StatusApproved, "", decidedAt)
		assert.True(t, errors.Is(err, appErrors.ErrNotReviewerTurn), reviewer.Name)
	}
}

func TestApplyDecisionDoesNotMutateInput(t *testing.T) {
	app := newApplication("L-1006", priya, classPtr(models.Class1BScNursing))
	app.Decisions = make([]models.StageDecision, 0, 4)
	before := app.Clone()

	_, err := ApplyDecision(app, anita, models.StatusApproved, "ok", decidedAt)
	require.NoError(t, err)
	assert.Equal(t, before, app)
}

func TestTurnExclusivityOnFreshStudentApplication(t *testing.T) {
	for _, class := range models.Classes {
		app := newApplication("L-x", priya, classPtr(class))
		for _, role := range append([]models.UserRole{models.RoleStudent}, models.StaffRoles...) {
			for _, assigned := range models.Classes {
				got := IsReviewerTurn(&app, role, classPtr(assigned))
				want := role == models.RoleClassCoordinator && assigned == class
				assert.Equal(t, want, got, "class=%s role=%s assigned=%s", class, role, assigned)
			}
			if role != models.RoleClassCoordinator {
				assert.False(t, IsReviewerTurn(&app, role, nil))
			}
		}
	}
}

func TestTerminalApplicationsAreNeverActionable(t *testing.T) {
	app := newApplication("L-1007", priya, classPtr(models.Class1BScNursing))
	app.Status = models.StatusRejected
	for _, reviewer := range allReviewers {
		assert.False(t, IsReviewerTurn(&app, reviewer.Role, reviewer.AssignedClass))
	}
}

func TestOverallStatusTable(t *testing.T) {
	p, a, r := models.StatusPending, models.StatusApproved, models.StatusRejected
	statuses := []models.ApprovalStatus{p, a, r}
	for _, cc := range statuses {
		for _, coc := range statuses {
			for _, pr := range statuses {
				got := OverallStatus(cc, coc, pr)
				switch {
				case cc == r || coc == r || pr == r:
					assert.Equal(t, r, got)
				case cc == a && coc == a && pr == a:
					assert.Equal(t, a, got)
				default:
					assert.Equal(t, p, got)
				}
			}
		}
	}
}

// TestRandomDecisionSequencesKeepInvariant drives random legal decisions through
// both pipelines and checks the status invariant and stage monotonicity after each step.
func TestRandomDecisionSequencesKeepInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(20240601))
	applicants := []struct {
		who   models.Identity
		class *models.CollegeClass
	}{
		{priya, classPtr(models.Class1BScNursing)},
		{models.Identity{ID: "S2", Name: "Karan", Role: models.RoleStudent}, classPtr(models.Class2GNM)},
		{wilson, nil},
		{models.Identity{ID: "CC9", Name: "Staff CC", Role: models.RoleClassCoordinator}, nil},
	}
	decisions := []models.ApprovalStatus{models.StatusApproved, models.StatusRejected}

	for run := 0; run < 500; run++ {
		applicant := applicants[rng.Intn(len(applicants))]
		app := newApplication("L-prop", applicant.who, applicant.class)
		requireInvariant(t, app)

		for step := 0; step < 6; step++ {
			legal := make([]models.Identity, 0)
			for _, reviewer := range allReviewers {
				if IsReviewerTurn(&app, reviewer.Role, reviewer.AssignedClass) {
					legal = append(legal, reviewer)
				}
			}
			if len(legal) == 0 {
				assert.True(t, app.Status.IsTerminal(), "stuck application: %+v", app)
				break
			}
			require.Len(t, legal, 1, "more than one stage awaiting action")

			prev := app
			var err error
			app, err = ApplyDecision(prev, legal[0], decisions[rng.Intn(len(decisions))], "", decidedAt)
			require.NoError(t, err)
			requireInvariant(t, app)
			for _, stage := range []models.Stage{models.StageClassCoordinator, models.StageCourseCoordinator, models.StagePrincipal} {
				if prev.StageStatus(stage).IsTerminal() {
					assert.Equal(t, prev.StageStatus(stage), app.StageStatus(stage), "stage %s changed after decision", stage)
				}
			}
			if app.Pipeline == models.PipelineStaff {
				assert.Equal(t, models.StatusApproved, app.ClassCoordinatorStatus)
				assert.Equal(t, models.StatusApproved, app.CourseCoordinatorStatus)
			}
		}
	}
}
