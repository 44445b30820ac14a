package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/noah-isme/dayoff-api/internal/models"
)

// ErrUserNotFound is returned when a directory key is unknown.
var ErrUserNotFound = errors.New("directory user not found")

func assigned(c models.CollegeClass) *models.CollegeClass {
	return &c
}

// DefaultDirectoryUsers seeds the directory with the college's demo accounts.
var DefaultDirectoryUsers = []models.DirectoryUser{
	{Key: "PR_ADMIN", Identity: models.Identity{ID: "PR", Name: "Dr. Elizabeth", Email: "principal@dayoff.edu", Role: models.RolePrincipal}},
	{Key: "COC_ALL", Identity: models.Identity{ID: "COC", Name: "Dr. Robert", Email: "coc@dayoff.edu", Role: models.RoleCourseCoordinator}},
	{Key: "CC_1BSC", Identity: models.Identity{ID: "CC1", Name: "Mrs. Anita", Email: "cc1@dayoff.edu", Role: models.RoleClassCoordinator, AssignedClass: assigned(models.Class1BScNursing)}},
	{Key: "FAC_1", Identity: models.Identity{ID: "F1", Name: "Prof. Wilson", Email: "wilson@dayoff.edu", Role: models.RoleNormalFaculty}},
	{Key: "STUDENT", Identity: models.Identity{ID: "STUDENT_TEMP", Name: "Student Demo", Email: "student@college.edu", Role: models.RoleStudent}},
}

// UserDirectory resolves directory keys into identities.
type UserDirectory struct {
	users map[string]models.DirectoryUser
}

// NewUserDirectory indexes users by upper-cased key. Later duplicates win.
func NewUserDirectory(users []models.DirectoryUser) *UserDirectory {
	index := make(map[string]models.DirectoryUser, len(users))
	for _, u := range users {
		index[strings.ToUpper(strings.TrimSpace(u.Key))] = u
	}
	return &UserDirectory{users: index}
}

// FindByKey returns the directory entry for key.
func (d *UserDirectory) FindByKey(ctx context.Context, key string) (*models.DirectoryUser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	user, ok := d.users[strings.ToUpper(strings.TrimSpace(key))]
	if !ok {
		return nil, ErrUserNotFound
	}
	if user.AssignedClass != nil {
		class := *user.AssignedClass
		user.AssignedClass = &class
	}
	return &user, nil
}
