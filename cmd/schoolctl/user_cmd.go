package main

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/schooldesk/schooldesk/internal/application/command"
	"github.com/schooldesk/schooldesk/internal/application/query"
	"github.com/schooldesk/schooldesk/internal/domain/identity"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func (c *cli) newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Register, update and inspect users",
	}
	cmd.AddCommand(
		c.newUserAddCmd(),
		c.newUserUpdateCmd(),
		c.newUserSessionCmd(),
		c.newUserUsernameCmd(),
		c.newUserListCmd(),
		c.newUserDeviceCmd(),
	)
	return cmd
}

// personFlags are the inputs shared by "user add" and "user username".
type personFlags struct {
	forename string
	surname  string
	userType string
	email    string
	school   string
}

func (p *personFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.forename, "forename", "", "Forename")
	cmd.Flags().StringVar(&p.surname, "surname", "", "Surname")
	cmd.Flags().StringVar(&p.userType, "type", "", "User type (Employee, Student, Parent)")
	cmd.Flags().StringVar(&p.email, "email", "", "Email to adopt as the username (employees and parents)")
	cmd.Flags().StringVar(&p.school, "school", "", "School id (required for students)")
}

func (p *personFlags) parse() (shared.UserType, *string, uuid.UUID, error) {
	ut, err := shared.ParseUserType(p.userType)
	if err != nil {
		return shared.UserTypeUnknown, nil, uuid.Nil, err
	}
	schoolID, err := parseOptionalID("school", p.school)
	if err != nil {
		return shared.UserTypeUnknown, nil, uuid.Nil, err
	}
	var email *string
	if strings.TrimSpace(p.email) != "" {
		email = &p.email
	}
	return ut, email, schoolID, nil
}

func (c *cli) newUserAddCmd() *cobra.Command {
	var (
		person   personFlags
		password string
		roles    []string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a user with a generated username",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ut, email, schoolID, err := person.parse()
			if err != nil {
				return err
			}
			grants := make([]identity.AuthorizationRole, 0, len(roles))
			for _, r := range roles {
				grants = append(grants, identity.AuthorizationRole(r))
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				res, err := a.registerUserHandler().Handle(ctx, command.RegisterUserCommand{
					Forename: person.forename,
					Surname:  person.surname,
					Password: password,
					UserType: ut,
					Email:    email,
					SchoolID: schoolID,
					Roles:    grants,
				})
				if err != nil {
					return err
				}
				return printResult(c, res, func(w io.Writer, id uuid.UUID) {
					row(w, "USER ID")
					row(w, id)
				})
			})
		},
	}
	person.bind(cmd)
	cmd.Flags().StringVar(&password, "password", "", "Initial password")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Authorization role to grant (repeatable)")
	return cmd
}

func (c *cli) newUserUpdateCmd() *cobra.Command {
	var id, password, email, phone string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Replace a user's password and contact points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := parseID("id", id)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				res, err := a.updateUserHandler().Handle(ctx, command.UpdateUserCommand{
					UserID:         userID,
					Password:       password,
					PreferredEmail: email,
					PreferredPhone: phone,
				})
				if err != nil {
					return err
				}
				return printResult(c, res, func(w io.Writer, id uuid.UUID) {
					row(w, "USER ID")
					row(w, id)
				})
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "User id")
	cmd.Flags().StringVar(&password, "password", "", "New password")
	cmd.Flags().StringVar(&email, "email", "", "Preferred email")
	cmd.Flags().StringVar(&phone, "phone", "", "Preferred phone")
	return cmd
}

func (c *cli) newUserSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session <username>",
		Short: "Resolve the schools and roles a user may act as",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				s, err := a.sessionHandler().Handle(ctx, query.GetUserSessionQuery{Username: args[0]})
				if err != nil {
					return err
				}
				return printValue(c, s, func(w io.Writer, s *identity.Session) {
					row(w, "SCHOOL", "TYPE", "PRINCIPAL", "ROLES")
					for _, v := range s.Schools {
						row(w, v.SchoolID, v.UserType, v.UserTypeID, strings.Join(v.Roles, ", "))
					}
				})
			})
		},
	}
}

func (c *cli) newUserUsernameCmd() *cobra.Command {
	var person personFlags
	cmd := &cobra.Command{
		Use:   "username",
		Short: "Preview the username a registration would get",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ut, email, schoolID, err := person.parse()
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				name, err := identity.NewUsernameResolver(a.users, a.settings).Generate(ctx, identity.GenerateUsernameParams{
					Forename: person.forename,
					Surname:  person.surname,
					UserType: ut,
					Email:    email,
					SchoolID: schoolID,
				})
				if err != nil {
					return err
				}
				return printValue(c, map[string]string{"username": name}, func(w io.Writer, v map[string]string) {
					row(w, "USERNAME")
					row(w, v["username"])
				})
			})
		},
	}
	person.bind(cmd)
	return cmd
}

func (c *cli) newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				users, err := a.assistantUsersHandler().All(ctx)
				if err != nil {
					return err
				}
				return printValue(c, users, func(w io.Writer, users []query.UserDTO) {
					row(w, "ID", "USERNAME", "EMAIL", "PHONE")
					for _, u := range users {
						row(w, u.UserID, u.Username, u.Email, u.Phone)
					}
				})
			})
		},
	}
}

func (c *cli) newUserDeviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Manage voice-assistant devices",
	}

	list := &cobra.Command{
		Use:   "list <device-id>",
		Short: "List the users registered on a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				res, err := a.assistantUsersHandler().ForDevice(ctx, args[0])
				if err != nil {
					return err
				}
				return printResult(c, res, func(w io.Writer, users []query.AssistantUserDTO) {
					row(w, "USERNAME", "NICKNAME", "PASS CODE")
					for _, u := range users {
						row(w, u.Username, u.Nickname, u.PassCode)
					}
				})
			})
		},
	}

	add := &cobra.Command{
		Use:   "add <device-id> <username>",
		Short: "Register a device for a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			deviceID := strings.TrimSpace(args[0])
			if deviceID == "" {
				return shared.ErrEmptyDeviceID
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				u, err := a.assistantUsersHandler().ForUsername(ctx, args[1])
				if err != nil {
					return err
				}
				return a.users.RegisterDevice(ctx, identity.Device{DeviceID: deviceID, UserID: u.UserID})
			})
		},
	}

	cmd.AddCommand(list, add)
	return cmd
}
