// Package school holds the school-scoped people and groups that user
// memberships point at.
package school

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/schooldesk/schooldesk/internal/domain/shared"
)

// School is a tenant.
type School struct {
	ID   uuid.UUID
	Name string
}

// Role is a job title held by employees, e.g. "Teacher".
type Role struct {
	ID    uuid.UUID
	Title string
}

// Employee is a member of staff at one school.
type Employee struct {
	ID               uuid.UUID
	SchoolID         uuid.UUID
	Forename         string
	Surname          string
	ContactDetailsID *uuid.UUID

	// Roles in link order. Loaded eagerly by the repository.
	Roles []Role
}

// RoleTitles returns the distinct role titles in ascending order. The
// result is never nil.
func (e *Employee) RoleTitles() []string {
	titles := make([]string, 0, len(e.Roles))
	seen := make(map[string]struct{}, len(e.Roles))
	for _, r := range e.Roles {
		if _, ok := seen[r.Title]; ok {
			continue
		}
		seen[r.Title] = struct{}{}
		titles = append(titles, r.Title)
	}
	sort.Strings(titles)
	return titles
}

// Student is a pupil at one school.
type Student struct {
	ID       uuid.UUID
	SchoolID uuid.UUID
	Forename string
	Surname  string
}

// ContactDetails are an employee's preferred contact points.
type ContactDetails struct {
	ID             uuid.UUID
	PreferredEmail string
	PreferredPhone string
}

// StudentGroup is a teaching group, e.g. "7B Maths".
type StudentGroup struct {
	ID        uuid.UUID
	SchoolID  uuid.UUID
	GroupName string
}

// NewPerson validates the name fields shared by employees and students.
func NewPerson(schoolID uuid.UUID, forename, surname string) (uuid.UUID, string, string, error) {
	if schoolID == uuid.Nil {
		return uuid.Nil, "", "", shared.ErrEmptySchoolID
	}
	forename, surname = strings.TrimSpace(forename), strings.TrimSpace(surname)
	if forename == "" || surname == "" {
		return uuid.Nil, "", "", shared.ErrEmptyName
	}
	return uuid.New(), forename, surname, nil
}

// IndexEmployees maps employees by id.
func IndexEmployees(es []*Employee) map[uuid.UUID]*Employee {
	m := make(map[uuid.UUID]*Employee, len(es))
	for _, e := range es {
		m[e.ID] = e
	}
	return m
}

// IndexStudents maps students by id.
func IndexStudents(ss []*Student) map[uuid.UUID]*Student {
	m := make(map[uuid.UUID]*Student, len(ss))
	for _, s := range ss {
		m[s.ID] = s
	}
	return m
}
