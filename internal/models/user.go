package models

// UserRole represents the available roles for applicants and reviewers.
type UserRole string

const (
	RoleStudent           UserRole = "STUDENT"
	RoleClassCoordinator  UserRole = "CLASS_COORDINATOR"
	RoleCourseCoordinator UserRole = "COURSE_COORDINATOR"
	RolePrincipal         UserRole = "PRINCIPAL"
	RoleNormalFaculty     UserRole = "NORMAL_FACULTY"
)

// StaffRoles lists every non-student role.
var StaffRoles = []UserRole{RoleClassCoordinator, RoleCourseCoordinator, RolePrincipal, RoleNormalFaculty}

// Valid reports whether the role belongs to the closed role set.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleClassCoordinator, RoleCourseCoordinator, RolePrincipal, RoleNormalFaculty:
		return true
	}
	return false
}

// IsStudent reports whether the role uses the student pipeline.
func (r UserRole) IsStudent() bool {
	return r == RoleStudent
}

// Pipeline returns the approval pipeline an applicant with this role follows.
func (r UserRole) Pipeline() Pipeline {
	if r.IsStudent() {
		return PipelineStudent
	}
	return PipelineStaff
}

// Stage returns the approval stage owned by a reviewer role.
// Students and normal faculty own no stage.
func (r UserRole) Stage() (Stage, bool) {
	switch r {
	case RoleClassCoordinator:
		return StageClassCoordinator, true
	case RoleCourseCoordinator:
		return StageCourseCoordinator, true
	case RolePrincipal:
		return StagePrincipal, true
	}
	return "", false
}

// Identity is the authenticated user acting as applicant or reviewer.
type Identity struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Email         string        `json:"email,omitempty"`
	Role          UserRole      `json:"role"`
	AssignedClass *CollegeClass `json:"assignedClass,omitempty"`
}

// DirectoryUser is a known account that can open a session.
type DirectoryUser struct {
	Key string `json:"key"`
	Identity
}
