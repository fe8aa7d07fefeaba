package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/schooldesk/schooldesk/internal/application/command"
	"github.com/schooldesk/schooldesk/internal/domain/identity"
	"github.com/schooldesk/schooldesk/internal/domain/school"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/internal/domain/timetable"
	"github.com/schooldesk/schooldesk/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MEMBERSHIPS & SETTINGS
// ══════════════════════════════════════════════════════════════════════════════

func (c *cli) newMembershipCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "membership",
		Short: "Link users to employee or student records",
	}

	var user, schoolFlag, userType, principal string
	link := &cobra.Command{
		Use:   "link",
		Short: "Attach a user to an employee or student at a school",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := parseID("user", user)
			if err != nil {
				return err
			}
			schoolID, err := parseID("school", schoolFlag)
			if err != nil {
				return err
			}
			principalID, err := parseID("principal", principal)
			if err != nil {
				return err
			}
			ut, err := shared.ParseUserType(userType)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				res, err := a.linkMembershipHandler().Handle(ctx, command.LinkMembershipCommand{
					UserID: userID, SchoolID: schoolID, UserType: ut, UserTypeID: principalID,
				})
				if err != nil {
					return err
				}
				return printResult(c, res, func(w io.Writer, id uuid.UUID) {
					row(w, "MEMBERSHIP ID")
					row(w, id)
				})
			})
		},
	}
	link.Flags().StringVar(&user, "user", "", "User id")
	link.Flags().StringVar(&schoolFlag, "school", "", "School id")
	link.Flags().StringVar(&userType, "type", "", "Employee or Student")
	link.Flags().StringVar(&principal, "principal", "", "Employee or student id")

	cmd.AddCommand(link)
	return cmd
}

func (c *cli) newSettingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setting",
		Short: "Manage configuration rows",
	}

	var kind, schoolFlag, value string
	put := &cobra.Command{
		Use:   "put",
		Short: "Set an email format (org or school)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := &identity.Setting{Value: strings.TrimSpace(value)}
			switch strings.ToLower(kind) {
			case "org":
				s.Type = identity.SettingOrgEmailFormat
			case "school":
				s.Type = identity.SettingSchoolEmailFormat
				id, err := parseID("school", schoolFlag)
				if err != nil {
					return err
				}
				s.SchoolID = &id
			default:
				return shared.NewDomainError("cli", "PutSetting", shared.ErrInvalidInput,
					fmt.Sprintf("unknown setting kind %q: use org or school", kind))
			}
			// Reject what the username resolver would refuse later. The parse
			// error is a misconfiguration kind; here it is only bad input.
			if _, err := identity.ParseEmailFormat(s.Type, s.Value, s.Type == identity.SettingSchoolEmailFormat); err != nil {
				return shared.NewDomainError("cli", "PutSetting", shared.ErrInvalidInput, err.Error())
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				return a.settings.Put(ctx, s)
			})
		},
	}
	put.Flags().StringVar(&kind, "kind", "org", "Setting kind (org, school)")
	put.Flags().StringVar(&schoolFlag, "school", "", "School id for school settings")
	put.Flags().StringVar(&value, "value", "", "Email format, e.g. forename.surname@school.org")

	cmd.AddCommand(put)
	return cmd
}

// ══════════════════════════════════════════════════════════════════════════════
// SEED
// Reference data normally arrives from the school's MIS feed.
// ══════════════════════════════════════════════════════════════════════════════

func (c *cli) newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert reference data: schools, staff, students, groups, events",
	}
	cmd.AddCommand(
		c.newSeedSchoolCmd(),
		c.newSeedPersonCmd("employee"),
		c.newSeedPersonCmd("student"),
		c.newSeedGroupCmd(),
		c.newSeedEventCmd(),
		c.newSeedLessonCmd(),
		c.newSeedTemplateCmd(),
	)
	return cmd
}

func (c *cli) printCreated(id uuid.UUID) error {
	return printValue(c, map[string]uuid.UUID{"id": id}, func(w io.Writer, v map[string]uuid.UUID) {
		row(w, "ID")
		row(w, v["id"])
	})
}

func (c *cli) newSeedSchoolCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "school",
		Short: "Create a school",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(name) == "" {
				return shared.NewDomainError("cli", "Seed", shared.ErrEmptyValue, "--name is required")
			}
			s := &school.School{ID: uuid.New(), Name: strings.TrimSpace(name)}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				if err := a.schools.Create(ctx, s); err != nil {
					return err
				}
				return c.printCreated(s.ID)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "School name")
	return cmd
}

func (c *cli) newSeedPersonCmd(kind string) *cobra.Command {
	var (
		schoolFlag, forename, surname string
		email, phone                  string
		roles                         []string
	)
	cmd := &cobra.Command{
		Use:   kind,
		Short: "Create a " + kind,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schoolID, err := parseID("school", schoolFlag)
			if err != nil {
				return err
			}
			id, fn, sn, err := school.NewPerson(schoolID, forename, surname)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				if kind == "student" {
					if err := a.students.Create(ctx, &school.Student{ID: id, SchoolID: schoolID, Forename: fn, Surname: sn}); err != nil {
						return err
					}
					return c.printCreated(id)
				}

				e := &school.Employee{ID: id, SchoolID: schoolID, Forename: fn, Surname: sn}
				for _, title := range roles {
					e.Roles = append(e.Roles, school.Role{Title: strings.TrimSpace(title)})
				}
				err := a.tx.WithTx(ctx, func(ctx context.Context) error {
					if email != "" || phone != "" {
						cd := &school.ContactDetails{ID: uuid.New(), PreferredEmail: email, PreferredPhone: phone}
						if err := a.contacts.Create(ctx, cd); err != nil {
							return err
						}
						e.ContactDetailsID = &cd.ID
					}
					return a.employees.Create(ctx, e)
				})
				if err != nil {
					return err
				}
				return c.printCreated(id)
			})
		},
	}
	cmd.Flags().StringVar(&schoolFlag, "school", "", "School id")
	cmd.Flags().StringVar(&forename, "forename", "", "Forename")
	cmd.Flags().StringVar(&surname, "surname", "", "Surname")
	if kind == "employee" {
		cmd.Flags().StringSliceVar(&roles, "role", nil, "Job title (repeatable)")
		cmd.Flags().StringVar(&email, "email", "", "Preferred contact email")
		cmd.Flags().StringVar(&phone, "phone", "", "Preferred contact phone")
	}
	return cmd
}

func (c *cli) newSeedGroupCmd() *cobra.Command {
	var schoolFlag, name string
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Create a student group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schoolID, err := parseID("school", schoolFlag)
			if err != nil {
				return err
			}
			if strings.TrimSpace(name) == "" {
				return shared.NewDomainError("cli", "Seed", shared.ErrEmptyValue, "--name is required")
			}
			g := &school.StudentGroup{ID: uuid.New(), SchoolID: schoolID, GroupName: strings.TrimSpace(name)}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				if err := a.groups.Create(ctx, g); err != nil {
					return err
				}
				return c.printCreated(g.ID)
			})
		},
	}
	cmd.Flags().StringVar(&schoolFlag, "school", "", "School id")
	cmd.Flags().StringVar(&name, "name", "", "Group name, e.g. 7B Maths")
	return cmd
}

func (c *cli) newSeedEventCmd() *cobra.Command {
	var (
		schoolFlag, employee, subject string
		start, end                    string
		groups                        []string
	)
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Book an event for an employee; groups are linked in flag order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schoolID, err := parseID("school", schoolFlag)
			if err != nil {
				return err
			}
			employeeID, err := parseID("employee", employee)
			if err != nil {
				return err
			}
			subjectID, err := parseOptionalID("subject", subject)
			if err != nil {
				return err
			}
			groupIDs, err := parseIDs("group", groups)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				loc := a.cfg.App.Location
				from, err := timeutil.ParseDateTime(start, loc)
				if err != nil {
					return shared.WrapError("cli", "SeedEvent", shared.ErrInvalidInput, "--start is not a date-time", err)
				}
				to, err := timeutil.ParseDateTime(end, loc)
				if err != nil {
					return shared.WrapError("cli", "SeedEvent", shared.ErrInvalidInput, "--end is not a date-time", err)
				}
				if to.Before(from) {
					return shared.ErrInvalidDates
				}
				e := &timetable.Event{
					ID: uuid.New(), SchoolID: schoolID, EmployeeID: employeeID, SubjectID: subjectID,
					Start: from, End: to,
				}
				for _, g := range groupIDs {
					e.Groups = append(e.Groups, timetable.GroupLink{StudentGroupID: g})
				}
				if err := a.events.Create(ctx, e); err != nil {
					return err
				}
				return c.printCreated(e.ID)
			})
		},
	}
	cmd.Flags().StringVar(&schoolFlag, "school", "", "School id")
	cmd.Flags().StringVar(&employee, "employee", "", "Employee id")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject id")
	cmd.Flags().StringVar(&start, "start", "", `Start, "yyyy-mm-dd hh:mm" in the school zone or RFC 3339`)
	cmd.Flags().StringVar(&end, "end", "", "End, same format as --start")
	cmd.Flags().StringSliceVar(&groups, "group", nil, "Student group id (repeatable)")
	return cmd
}

func (c *cli) newSeedLessonCmd() *cobra.Command {
	var schoolFlag, event string
	cmd := &cobra.Command{
		Use:   "lesson",
		Short: "Create a lesson for an event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schoolID, err := parseID("school", schoolFlag)
			if err != nil {
				return err
			}
			eventID, err := parseID("event", event)
			if err != nil {
				return err
			}
			l := &timetable.Lesson{ID: uuid.New(), SchoolID: schoolID, EventID: eventID}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				if err := a.lessons.Create(ctx, l); err != nil {
					return err
				}
				return c.printCreated(l.ID)
			})
		},
	}
	cmd.Flags().StringVar(&schoolFlag, "school", "", "School id")
	cmd.Flags().StringVar(&event, "event", "", "Event id")
	return cmd
}

func (c *cli) newSeedTemplateCmd() *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Create a homework template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(title) == "" {
				return shared.ErrEmptyTitle
			}
			id := uuid.New()
			return c.run(cmd, func(ctx context.Context, a *app) error {
				if err := a.homework.CreateTemplate(ctx, id, strings.TrimSpace(title)); err != nil {
					return err
				}
				return c.printCreated(id)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Template title")
	return cmd
}
