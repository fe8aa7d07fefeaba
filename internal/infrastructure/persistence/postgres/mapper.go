package postgres

import (
	"time"

	"github.com/google/uuid"

	"github.com/schooldesk/schooldesk/internal/domain/homework"
	"github.com/schooldesk/schooldesk/internal/domain/identity"
	"github.com/schooldesk/schooldesk/internal/domain/school"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/internal/domain/timetable"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROW <-> DOMAIN MAPPING
// Instants are written in UTC so SQLite's text comparison orders them.
// ══════════════════════════════════════════════════════════════════════════════

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func toUserRow(u *identity.User) *userRow {
	return &userRow{
		ID:                 u.ID,
		Username:           u.Username,
		PasswordHash:       u.PasswordHash,
		AssistantNickname:  u.AssistantNickname,
		AssistantPassCode:  u.AssistantPassCode,
		PassCodeCreatedAt:  u.PassCodeCreatedAt.UTC(),
		LastAssistantUseAt: utcPtr(u.LastAssistantUseAt),
		LastLoginAt:        utcPtr(u.LastLoginAt),
		PreferredContact:   int(u.PreferredContact),
		Email:              u.Email,
		Phone:              u.Phone,
		CreatedAt:          u.CreatedAt.UTC(),
		UpdatedAt:          u.UpdatedAt.UTC(),
	}
}

func (r *userRow) toDomain() *identity.User {
	return &identity.User{
		ID:                 r.ID,
		Username:           r.Username,
		PasswordHash:       r.PasswordHash,
		AssistantNickname:  r.AssistantNickname,
		AssistantPassCode:  r.AssistantPassCode,
		PassCodeCreatedAt:  r.PassCodeCreatedAt.UTC(),
		LastAssistantUseAt: utcPtr(r.LastAssistantUseAt),
		LastLoginAt:        utcPtr(r.LastLoginAt),
		PreferredContact:   shared.ContactMethod(r.PreferredContact),
		Email:              r.Email,
		Phone:              r.Phone,
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
}

func toMembershipRow(m *identity.Membership) *membershipRow {
	return &membershipRow{
		ID:         m.ID,
		UserID:     m.UserID,
		SchoolID:   m.SchoolID,
		UserType:   int(m.UserType),
		UserTypeID: m.UserTypeID,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

func (r *membershipRow) toDomain() identity.Membership {
	return identity.Membership{
		ID:         r.ID,
		UserID:     r.UserID,
		SchoolID:   r.SchoolID,
		UserType:   shared.UserType(r.UserType),
		UserTypeID: r.UserTypeID,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

func (r *employeeRow) toDomain() *school.Employee {
	e := &school.Employee{
		ID:               r.ID,
		SchoolID:         r.SchoolID,
		Forename:         r.Forename,
		Surname:          r.Surname,
		ContactDetailsID: r.ContactDetailsID,
		Roles:            make([]school.Role, 0, len(r.Roles)),
	}
	for _, role := range r.Roles {
		e.Roles = append(e.Roles, school.Role{ID: role.ID, Title: role.Title})
	}
	return e
}

func toPeriodRow(p *timetable.Period) *periodRow {
	return &periodRow{
		ID:         p.ID,
		SchoolID:   p.SchoolID,
		Name:       p.Name,
		Day:        p.Day,
		InstanceID: p.InstanceID,
		StartAt:    p.Start.UTC(),
		EndAt:      p.End.UTC(),
	}
}

func (r *periodRow) toDomain() timetable.Period {
	return timetable.Period{
		ID:         r.ID,
		SchoolID:   r.SchoolID,
		Name:       r.Name,
		Day:        r.Day,
		InstanceID: r.InstanceID,
		Start:      r.StartAt.UTC(),
		End:        r.EndAt.UTC(),
	}
}

func periodsToDomain(rows []periodRow) []timetable.Period {
	out := make([]timetable.Period, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out
}

func (r *eventRow) toDomain() timetable.Event {
	return timetable.Event{
		ID:         r.ID,
		SchoolID:   r.SchoolID,
		EmployeeID: r.EmployeeID,
		SubjectID:  r.SubjectID,
		Start:      r.StartAt.UTC(),
		End:        r.EndAt.UTC(),
	}
}

func toHomeworkRow(h *homework.Homework) *homeworkRow {
	row := &homeworkRow{
		ID:          h.ID,
		SchoolID:    h.SchoolID,
		LessonID:    h.LessonID,
		TemplateID:  h.TemplateID,
		Title:       h.Title,
		Description: h.Description,
		Status:      h.Status.String(),
		SetAt:       h.SetAt.UTC(),
	}
	if !h.DueAt.IsZero() {
		due := h.DueAt.UTC()
		row.DueAt = &due
	}
	return row
}

func (r *homeworkRow) toDomain(students []uuid.UUID) *homework.Homework {
	status, _ := homework.ParseStatus(r.Status)
	h := &homework.Homework{
		ID:          r.ID,
		SchoolID:    r.SchoolID,
		LessonID:    r.LessonID,
		TemplateID:  r.TemplateID,
		Title:       r.Title,
		Description: r.Description,
		Status:      status,
		SetAt:       r.SetAt.UTC(),
		StudentIDs:  students,
	}
	if r.DueAt != nil {
		h.DueAt = r.DueAt.UTC()
	}
	return h
}
