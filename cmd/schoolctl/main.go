// Package main is the schoolctl operator CLI. It wires the PostgreSQL
// store, the optional Redis session cache and every application handler,
// and exposes them as cobra subcommands.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/schooldesk/schooldesk/config"
	"github.com/schooldesk/schooldesk/internal/application/command"
	"github.com/schooldesk/schooldesk/internal/application/query"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/internal/infrastructure/auth"
	"github.com/schooldesk/schooldesk/internal/infrastructure/persistence/postgres"
	"github.com/schooldesk/schooldesk/internal/infrastructure/persistence/redis"
	"github.com/schooldesk/schooldesk/pkg/circuitbreaker"
	"github.com/schooldesk/schooldesk/pkg/logger"
	"github.com/schooldesk/schooldesk/pkg/retry"
	"github.com/schooldesk/schooldesk/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(openPostgres, os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		log := logger.Default()
		if shared.IsFatal(err) {
			// A missing or malformed setting is an operator fault.
			log.Fatal("schoolctl is misconfigured", logger.Err(err))
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// APPLICATION WIRING
// ══════════════════════════════════════════════════════════════════════════════

// opener builds the store-backed dependencies for one CLI invocation.
type opener func(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error)

// app holds the repositories and handlers a command may use.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	clock timeutil.Clock

	migrate  func() error
	status   func() error
	health   func(ctx context.Context) (*postgres.HealthStatus, error)
	closeFns []func()

	tx          *postgres.TxManager
	users       *postgres.UserRepository
	memberships *postgres.MembershipRepository
	settings    *postgres.SettingRepository
	schools     *postgres.SchoolRepository
	employees   *postgres.EmployeeRepository
	students    *postgres.StudentRepository
	contacts    *postgres.ContactDetailsRepository
	groups      *postgres.StudentGroupRepository
	periods     *postgres.PeriodRepository
	events      *postgres.EventRepository
	lessons     *postgres.LessonRepository
	homework    *postgres.HomeworkRepository

	sessions *redis.SessionCache // nil when the cache is disabled
}

// newApp binds every repository to db.
func newApp(cfg *config.Config, log *logger.Logger, db *gorm.DB) *app {
	return &app{
		cfg:         cfg,
		log:         log,
		clock:       timeutil.SystemClock{},
		tx:          postgres.NewTxManager(db),
		users:       postgres.NewUserRepository(db),
		memberships: postgres.NewMembershipRepository(db),
		settings:    postgres.NewSettingRepository(db),
		schools:     postgres.NewSchoolRepository(db),
		employees:   postgres.NewEmployeeRepository(db),
		students:    postgres.NewStudentRepository(db),
		contacts:    postgres.NewContactDetailsRepository(db),
		groups:      postgres.NewStudentGroupRepository(db),
		periods:     postgres.NewPeriodRepository(db),
		events:      postgres.NewEventRepository(db),
		lessons:     postgres.NewLessonRepository(db),
		homework:    postgres.NewHomeworkRepository(db),
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	conn, err := postgres.NewConnection(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	db, err := postgres.OpenGorm(conn, cfg.Database, log)
	if err != nil {
		conn.Close()
		return nil, err
	}

	a := newApp(cfg, log, db)
	a.closeFns = append(a.closeFns, conn.Close)
	a.migrate = func() error { return postgres.RunMigrations(conn.DB()) }
	a.status = func() error { return postgres.MigrationStatus(conn.DB()) }
	a.health = conn.Health

	if cfg.Database.AutoMigrate {
		if err := a.migrate(); err != nil {
			a.Close()
			return nil, err
		}
	}

	if !cfg.Redis.Disabled {
		cache, err := redis.NewCache(ctx, cfg.Redis)
		if err != nil {
			// The cache is an accelerator; run without it.
			log.Warn("session cache unavailable", logger.Err(err))
		} else {
			a.sessions = redis.NewSessionCache(cache, cfg.Redis.SessionTTL,
				circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
					log.Warn("circuit breaker state changed",
						logger.Component(name), logger.String("from", from.String()), logger.String("to", to.String()))
				}))
			a.closeFns = append(a.closeFns, func() { _ = cache.Close() })
		}
	}
	return a, nil
}

// Close releases the app's connections in reverse order.
func (a *app) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
}

func (a *app) sessionCache() query.SessionCache {
	if a.sessions == nil {
		return nil
	}
	return a.sessions
}

func (a *app) invalidator() command.SessionInvalidator {
	if a.sessions == nil {
		return nil
	}
	return a.sessions
}

func (a *app) registerUserHandler() *command.RegisterUserHandler {
	return command.NewRegisterUserHandler(
		a.users, a.settings,
		auth.NewPasswordHasher(a.cfg.Identity.BcryptCost),
		auth.NewPassCodeGenerator(a.cfg.Identity.PassCodeLength),
		retry.UsernameReservationRetrier(a.cfg.Identity.UsernameRetryAttempts),
		a.clock, a.log,
	)
}

func (a *app) updateUserHandler() *command.UpdateUserHandler {
	return command.NewUpdateUserHandler(
		a.users, a.memberships, a.employees, a.contacts,
		auth.NewPasswordHasher(a.cfg.Identity.BcryptCost),
		a.tx, a.invalidator(), a.clock, a.log,
	)
}

func (a *app) linkMembershipHandler() *command.LinkMembershipHandler {
	return command.NewLinkMembershipHandler(
		a.users, a.memberships, a.employees, a.students,
		a.tx, a.invalidator(), a.clock, a.log,
	)
}

func (a *app) sessionHandler() *query.GetUserSessionHandler {
	return query.NewGetUserSessionHandler(
		a.users, a.memberships, a.employees, a.students,
		a.tx, a.sessionCache(), a.log,
	)
}

func (a *app) periodsHandler() *query.GetPeriodsHandler {
	return query.NewGetPeriodsHandler(a.periods, a.events, a.tx, a.cfg.App.Location, a.log)
}

func (a *app) createPeriodHandler() *command.CreatePeriodHandler {
	return command.NewCreatePeriodHandler(a.periods, a.schools, a.cfg.App.Location, a.log)
}

func (a *app) homeworkHandler() *command.HomeworkHandler {
	return command.NewHomeworkHandler(a.homework, a.schools, a.lessons, a.tx, a.clock, a.log)
}

func (a *app) homeworkQueryHandler() *query.HomeworkQueryHandler {
	return query.NewHomeworkQueryHandler(a.homework, a.periods, a.tx, a.clock)
}

func (a *app) assistantUsersHandler() *query.AssistantUsersHandler {
	return query.NewAssistantUsersHandler(a.users, a.log)
}

// ══════════════════════════════════════════════════════════════════════════════
// ROOT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// cli carries per-invocation state shared by subcommands.
type cli struct {
	open     opener
	out      io.Writer
	output   string
	envFiles []string
}

func newRootCmd(open opener, out io.Writer) *cobra.Command {
	c := &cli{open: open, out: out}

	root := &cobra.Command{
		Use:           "schoolctl",
		Short:         "Operate the schooldesk user and timetable store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOutputFormat(c.output)
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&c.output, "output", "o", "table", "Output format (table, json)")
	root.PersistentFlags().StringSliceVar(&c.envFiles, "env-file", nil, "Dotenv files to load before the environment")

	root.AddCommand(
		c.newMigrateCmd(),
		c.newHealthCmd(),
		c.newUserCmd(),
		c.newMembershipCmd(),
		c.newSettingCmd(),
		c.newPeriodsCmd(),
		c.newHomeworkCmd(),
		c.newSeedCmd(),
	)
	return root
}

// run loads configuration, opens the app and hands it to fn.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load(c.envFiles...)
	if err != nil {
		return err
	}
	log := logger.New(logger.Options{
		Output: cmd.ErrOrStderr(),
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	}).With(logger.Component("schoolctl"), logger.Operation(cmd.CommandPath()))

	a, err := c.open(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}

func (c *cli) newMigrateCmd() *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(_ context.Context, a *app) error {
				if status {
					if a.status == nil {
						return errors.New("migration status is not available for this store")
					}
					return a.status()
				}
				if err := a.migrate(); err != nil {
					return err
				}
				fmt.Fprintln(c.out, "schema is up to date")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "Print migration status instead of applying")
	return cmd
}

func (c *cli) newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Ping the database and show pool statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				if a.health == nil {
					return errors.New("health checks are not available for this store")
				}
				status, err := a.health(ctx)
				if err != nil {
					return err
				}
				if err := printValue(c, status, func(w io.Writer, s *postgres.HealthStatus) {
					row(w, "HEALTHY", "LATENCY", "CONNS", "IDLE", "IN USE", "MAX")
					row(w, s.Healthy, s.PingLatency, s.TotalConns, s.IdleConns, s.AcquiredConns, s.MaxConns)
				}); err != nil {
					return err
				}
				if !status.Healthy {
					return fmt.Errorf("database is unhealthy: %s", status.Error)
				}
				return nil
			})
		},
	}
}
