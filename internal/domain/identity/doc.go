// Package identity holds the authenticatable user of schooldesk and the
// records that hang off it.
//
// A User is not a school person. It is linked to school people (employees
// and students, see package school) through Membership rows, one per
// school and principal:
//
//	user ──< membership >── employee | student
//
// A user may hold several memberships across schools or kinds. Every
// membership must point at an existing principal of the stated kind; a
// membership that does not is a data-integrity fault and is reported as
// shared.ErrUserInvalid by the session query.
//
// # Usernames
//
// UsernameResolver derives a human-readable username from a person's name,
// role and school, using the email formats stored as Settings:
//
//	resolver := identity.NewUsernameResolver(users, settings)
//	name, err := resolver.Generate(ctx, identity.GenerateUsernameParams{
//	    Forename: "Ada",
//	    Surname:  "Lovelace",
//	    UserType: shared.UserTypeStudent,
//	    SchoolID: schoolID,
//	})
//	// ada.lovelace@school.org, or ada.lovelace.1@school.org when taken
//
// The resolver only reads. Two concurrent registrations can still pick the
// same name, so callers insert under a unique index and retry on conflict.
//
// # Repositories
//
// The interfaces in repository.go are implemented with GORM in
// internal/infrastructure/persistence/postgres.
package identity
