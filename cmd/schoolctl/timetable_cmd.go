package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/schooldesk/schooldesk/internal/application/command"
	"github.com/schooldesk/schooldesk/internal/application/query"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PERIOD COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func (c *cli) newPeriodsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "periods",
		Short: "List and create timetable periods",
	}
	cmd.AddCommand(c.newPeriodsListCmd(), c.newPeriodsCreateCmd())
	return cmd
}

func (c *cli) newPeriodsListCmd() *cobra.Command {
	var schoolFlag, employee, from, to string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List periods labelled with the employee's groups",
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
			return c.run(cmd, func(ctx context.Context, a *app) error {
				loc := a.cfg.App.Location
				fromDay, err := timeutil.ParseDate(from, loc)
				if err != nil {
					return shared.WrapError("cli", "ListPeriods", shared.ErrInvalidInput, "--from must be yyyy-mm-dd", err)
				}
				toDay, err := timeutil.ParseDate(to, loc)
				if err != nil {
					return shared.WrapError("cli", "ListPeriods", shared.ErrInvalidInput, "--to must be yyyy-mm-dd", err)
				}

				res, err := a.periodsHandler().Handle(ctx, query.GetPeriodsQuery{
					EmployeeID: employeeID,
					SchoolID:   schoolID,
					From:       fromDay,
					To:         toDay,
				})
				if err != nil {
					return err
				}
				return printResult(c, res, func(w io.Writer, periods []query.PeriodDTO) {
					row(w, "ID", "DAY", "START", "END", "NAME", "DISPLAY NAME")
					for _, p := range periods {
						row(w, p.PeriodID, p.Day,
							timeutil.FormatClock(p.Start, loc), timeutil.FormatClock(p.End, loc),
							p.Name, p.DisplayName)
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&schoolFlag, "school", "", "School id")
	cmd.Flags().StringVar(&employee, "employee", "", "Employee whose events label the periods")
	cmd.Flags().StringVar(&from, "from", "", "First day, yyyy-mm-dd")
	cmd.Flags().StringVar(&to, "to", "", "Last day, yyyy-mm-dd")
	return cmd
}

func (c *cli) newPeriodsCreateCmd() *cobra.Command {
	var (
		schoolFlag, name, start, end string
		instance                     int
		save                         bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Build a period, and store it with --save",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schoolID, err := parseID("school", schoolFlag)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				loc := a.cfg.App.Location
				from, err := timeutil.ParseDateTime(start, loc)
				if err != nil {
					return shared.WrapError("cli", "CreatePeriod", shared.ErrInvalidInput, "--start is not a date-time", err)
				}
				to, err := timeutil.ParseDateTime(end, loc)
				if err != nil {
					return shared.WrapError("cli", "CreatePeriod", shared.ErrInvalidInput, "--end is not a date-time", err)
				}

				res, err := a.createPeriodHandler().Handle(ctx, command.CreatePeriodCommand{
					Save:       save,
					SchoolID:   schoolID,
					Name:       name,
					Start:      from,
					End:        to,
					InstanceID: instance,
				})
				if err != nil {
					return err
				}
				return printResult(c, res, func(w io.Writer, v command.PeriodView) {
					row(w, "ID", "NAME", "DAY", "START", "END", "SAVED")
					row(w, v.PeriodID, v.Name, v.Day,
						timeutil.FormatClock(v.Start, loc), timeutil.FormatClock(v.End, loc), v.Saved)
				})
			})
		},
	}
	cmd.Flags().StringVar(&schoolFlag, "school", "", "School id")
	cmd.Flags().StringVar(&name, "name", "", "Period name, e.g. P1")
	cmd.Flags().StringVar(&start, "start", "", `Start, "yyyy-mm-dd hh:mm" in the school zone or RFC 3339`)
	cmd.Flags().StringVar(&end, "end", "", "End, same format as --start")
	cmd.Flags().IntVar(&instance, "instance", 0, "Recurrence instance id (0 when not linked)")
	cmd.Flags().BoolVar(&save, "save", false, "Store the period instead of only previewing it")
	return cmd
}
