package main

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/schooldesk/schooldesk/internal/application/command"
	"github.com/schooldesk/schooldesk/internal/application/query"
	"github.com/schooldesk/schooldesk/internal/domain/homework"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HOMEWORK COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func (c *cli) newHomeworkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "homework",
		Short: "Set, change and review homework",
	}
	cmd.AddCommand(
		c.newHomeworkListCmd(),
		c.newHomeworkPastCmd(),
		c.newHomeworkWriteCmd("create"),
		c.newHomeworkWriteCmd("update"),
		c.newHomeworkRemoveCmd(),
	)
	return cmd
}

func (c *cli) printHomework(res *shared.Result[[]query.HomeworkDTO]) error {
	return printResult(c, res, func(w io.Writer, items []query.HomeworkDTO) {
		row(w, "ID", "TITLE", "STATUS", "SET", "DUE", "PERIOD")
		for _, h := range items {
			period := "-"
			if h.PeriodID != nil {
				period = h.PeriodID.String()
			}
			row(w, h.HomeworkID, h.Title, h.Status,
				h.SetAt.Format(timeutil.DateTimeLayout), h.DueAt.Format(timeutil.DateTimeLayout), period)
		}
	})
}

// printWritten maps a written homework to its read view.
func (c *cli) printWritten(res *shared.Result[*homework.Homework]) error {
	mapped := shared.Success(query.NewHomeworkDTO(res.Value))
	return printResult(c, mapped, func(w io.Writer, h query.HomeworkDTO) {
		row(w, "ID", "TITLE", "STATUS", "STUDENTS")
		row(w, h.HomeworkID, h.Title, h.Status, len(h.StudentIDs))
	})
}

func (c *cli) newHomeworkListCmd() *cobra.Command {
	var lesson string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the homework of a lesson",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lessonID, err := parseID("lesson", lesson)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				res, err := a.homeworkQueryHandler().ForLesson(ctx, lessonID)
				if err != nil {
					return err
				}
				return c.printHomework(res)
			})
		},
	}
	cmd.Flags().StringVar(&lesson, "lesson", "", "Lesson id")
	return cmd
}

func (c *cli) newHomeworkPastCmd() *cobra.Command {
	var schoolFlag, employee, subject, group string
	cmd := &cobra.Command{
		Use:   "past",
		Short: "List homework set in an employee's ended lessons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var q query.PastHomeworkQuery
			var err error
			if q.SchoolID, err = parseID("school", schoolFlag); err != nil {
				return err
			}
			if q.EmployeeID, err = parseID("employee", employee); err != nil {
				return err
			}
			if q.SubjectID, err = parseOptionalID("subject", subject); err != nil {
				return err
			}
			if q.StudentGroupID, err = parseID("group", group); err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				res, err := a.homeworkQueryHandler().Past(ctx, q)
				if err != nil {
					return err
				}
				return c.printHomework(res)
			})
		},
	}
	cmd.Flags().StringVar(&schoolFlag, "school", "", "School id")
	cmd.Flags().StringVar(&employee, "employee", "", "Employee id")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject id")
	cmd.Flags().StringVar(&group, "group", "", "Student group id")
	return cmd
}

// newHomeworkWriteCmd builds "create" and "update", which take the same
// fields. Create generates an id when --id is empty.
func (c *cli) newHomeworkWriteCmd(verb string) *cobra.Command {
	var (
		id, schoolFlag, lesson, template string
		title, description, status, due  string
		students                         []string
	)
	cmd := &cobra.Command{
		Use:   verb,
		Short: verb + " a homework",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var hc command.HomeworkCommand
			var err error
			if hc.ID, err = parseOptionalID("id", id); err != nil {
				return err
			}
			if hc.ID == uuid.Nil {
				if verb == "update" {
					return shared.NewDomainError("cli", "UpdateHomework", shared.ErrInvalidID, "--id is required")
				}
				hc.ID = uuid.New()
			}
			if hc.SchoolID, err = parseID("school", schoolFlag); err != nil {
				return err
			}
			if hc.LessonID, err = parseID("lesson", lesson); err != nil {
				return err
			}
			if template != "" {
				tid, err := parseID("template", template)
				if err != nil {
					return err
				}
				hc.TemplateID = &tid
			}
			if hc.Status, err = homework.ParseStatus(status); err != nil {
				return err
			}
			if hc.StudentIDs, err = parseIDs("student", students); err != nil {
				return err
			}
			hc.Title = title
			hc.Description = description

			return c.run(cmd, func(ctx context.Context, a *app) error {
				if hc.DueAt, err = timeutil.ParseDateTime(due, a.cfg.App.Location); err != nil {
					return shared.WrapError("cli", "WriteHomework", shared.ErrInvalidInput, "--due is not a date-time", err)
				}
				hc.DueAt = hc.DueAt.UTC()

				h := a.homeworkHandler()
				write := h.Create
				if verb == "update" {
					write = h.Update
				}
				res, err := write(ctx, hc)
				if err != nil {
					return err
				}
				return c.printWritten(res)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Homework id")
	cmd.Flags().StringVar(&schoolFlag, "school", "", "School id")
	cmd.Flags().StringVar(&lesson, "lesson", "", "Lesson id")
	cmd.Flags().StringVar(&template, "template", "", "Homework template id")
	cmd.Flags().StringVar(&title, "title", "", "Title")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&status, "status", "draft", "Status (draft, set, closed)")
	cmd.Flags().StringVar(&due, "due", "", `Due, "yyyy-mm-dd hh:mm" in the school zone or RFC 3339`)
	cmd.Flags().StringSliceVar(&students, "student", nil, "Student id (repeatable)")
	return cmd
}

func (c *cli) newHomeworkRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a homework",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("id", args[0])
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				res, err := a.homeworkHandler().Remove(ctx, id)
				if err != nil {
					return err
				}
				return c.printWritten(res)
			})
		},
	}
}
