// Package main provides triagectl, the operator CLI for schema migrations and
// handler provisioning.
//
//	triagectl migrate up|down|version
//	triagectl migrate steps N
//	triagectl migrate force V
//	triagectl handler add -email E -role moderator|admin -skills a,b
//
// Migrations come from the binary unless -path points at a directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/helpdesk-triage-service/internal/config"
	"github.com/helixir/helpdesk-triage-service/internal/database"
	"github.com/helixir/helpdesk-triage-service/internal/domain"
	"github.com/helixir/helpdesk-triage-service/internal/observability"
	"github.com/helixir/helpdesk-triage-service/internal/repository"
)

var errUsage = errors.New("usage: triagectl migrate up|down|version|steps N|force V | handler add -email E -role R [-skills a,b]")

// command is a parsed invocation.
type command struct {
	name  string // "migrate" or "handler"
	verb  string
	arg   int
	path  string
	email string
	role  domain.Role
	skill []string
}

func main() {
	cmd, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	if err := run(cmd); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseArgs(args []string, stderr io.Writer) (command, error) {
	if len(args) < 2 {
		return command{}, errUsage
	}
	cmd := command{name: args[0], verb: args[1]}

	fs := flag.NewFlagSet("triagectl "+cmd.name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	switch cmd.name {
	case "migrate":
		fs.StringVar(&cmd.path, "path", "", "Read migrations from this directory instead of the binary")
		rest := args[2:]
		switch cmd.verb {
		case "up", "down", "version":
		case "steps", "force":
			if len(rest) == 0 {
				return command{}, fmt.Errorf("migrate %s needs a number", cmd.verb)
			}
			n, err := strconv.Atoi(rest[0])
			if err != nil {
				return command{}, fmt.Errorf("migrate %s: %q is not a number", cmd.verb, rest[0])
			}
			if cmd.verb == "steps" && n == 0 {
				return command{}, errors.New("migrate steps: N must not be zero")
			}
			if cmd.verb == "force" && n < 0 {
				return command{}, errors.New("migrate force: V must not be negative")
			}
			cmd.arg = n
			rest = rest[1:]
		default:
			return command{}, errUsage
		}
		if err := fs.Parse(rest); err != nil {
			return command{}, err
		}

	case "handler":
		if cmd.verb != "add" {
			return command{}, errUsage
		}
		var role, skills string
		fs.StringVar(&cmd.email, "email", "", "Handler email address")
		fs.StringVar(&role, "role", string(domain.RoleModerator), "moderator or admin")
		fs.StringVar(&skills, "skills", "", "Comma-separated skills")
		if err := fs.Parse(args[2:]); err != nil {
			return command{}, err
		}
		cmd.email = strings.ToLower(strings.TrimSpace(cmd.email))
		if cmd.email == "" || !strings.Contains(cmd.email, "@") {
			return command{}, errors.New("handler add: -email is required")
		}
		cmd.role = domain.Role(role)
		if cmd.role != domain.RoleModerator && cmd.role != domain.RoleAdmin {
			return command{}, fmt.Errorf("handler add: role must be moderator or admin, got %q", role)
		}
		cmd.skill = splitSkills(skills)

	default:
		return command{}, errUsage
	}

	return cmd, nil
}

func splitSkills(s string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

func run(cmd command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Console output for the CLI tool.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	})
	logger = logger.With().Str("component", "triagectl").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if cmd.name == "handler" {
		return addHandler(ctx, repository.NewPgUserRepository(db), cmd, logger)
	}
	return migrate(db, cmd, logger)
}

func migrate(db *database.DB, cmd command, logger zerolog.Logger) error {
	var (
		migrator *database.Migrator
		err      error
	)
	if cmd.path != "" {
		migrator, err = database.NewMigrator(db, cmd.path, logger)
	} else {
		migrator, err = database.NewEmbeddedMigrator(db, logger)
	}
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	switch cmd.verb {
	case "up":
		logger.Info().Msg("running all pending migrations")
		err = migrator.Up()
	case "down":
		logger.Warn().Msg("rolling back all migrations")
		err = migrator.Down()
	case "steps":
		logger.Info().Int("steps", cmd.arg).Msg("running migration steps")
		err = migrator.Steps(cmd.arg)
	case "force":
		logger.Warn().Int("version", cmd.arg).Msg("forcing migration version")
		err = migrator.Force(cmd.arg)
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", cmd.verb, err)
	}

	printVersion(migrator, logger)
	return nil
}

func addHandler(ctx context.Context, users repository.UserRepository, cmd command, logger zerolog.Logger) error {
	user := &domain.User{
		ID:        uuid.New(),
		Email:     cmd.email,
		Role:      cmd.role,
		Skills:    cmd.skill,
		CreatedAt: time.Now().UTC(),
	}
	if err := users.Create(ctx, user); err != nil {
		return fmt.Errorf("create handler: %w", err)
	}
	logger.Info().
		Str("id", user.ID.String()).
		Str("email", user.Email).
		Str("role", string(user.Role)).
		Strs("skills", user.Skills).
		Msg("handler provisioned")
	return nil
}

// printVersion logs the current migration version.
func printVersion(migrator *database.Migrator, logger zerolog.Logger) {
	v, dirty, err := migrator.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine migration version")
		return
	}
	logger.Info().
		Uint("version", v).
		Bool("dirty", dirty).
		Msg("current migration version")
}
