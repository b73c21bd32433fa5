// ticketctl runs administrative commands against the ticketing store.
//
//	ticketctl createsuperuser --email root@example.com --username root --password ...
//	ticketctl setrole --email jane@example.com --role staff
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/spec-kit/ticketing-system/internal/app"
	"github.com/spec-kit/ticketing-system/internal/config"
	"github.com/spec-kit/ticketing-system/internal/observability"
	"github.com/spec-kit/ticketing-system/internal/service"
)

const usage = `usage: ticketctl <command> [flags]

commands:
  createsuperuser  create a verified superuser with the admin role
  setrole          change the role of an existing profile
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(out, usage)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger("ticketctl", cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Postgres.DSN == "" {
		logger.Warn("POSTGRES_DSN is empty; changes only live for this process")
	}

	ctx := context.Background()
	container, err := app.New(ctx, *cfg, logger)
	if err != nil {
		return err
	}
	defer container.Close()

	return dispatch(ctx, container.Auth, args, out)
}

func dispatch(ctx context.Context, auth *service.AuthService, args []string, out io.Writer) error {
	switch args[0] {
	case "createsuperuser":
		return createSuperuser(ctx, auth, args[1:], out)
	case "setrole":
		return setRole(ctx, auth, args[1:], out)
	}
	return fmt.Errorf("unknown command %q\n%s", args[0], usage)
}

func createSuperuser(ctx context.Context, auth *service.AuthService, args []string, out io.Writer) error {
	var input service.RegisterInput
	flagSet := pflag.NewFlagSet("createsuperuser", pflag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.StringVar(&input.Email, "email", "", "login email")
	flagSet.StringVar(&input.Username, "username", "", "display username")
	flagSet.StringVar(&input.Password, "password", "", "initial password")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	user, err := auth.CreateSuperuser(ctx, input)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "superuser %s created (%s)\n", user.Email, user.ID)
	return nil
}

func setRole(ctx context.Context, auth *service.AuthService, args []string, out io.Writer) error {
	var email, role string
	flagSet := pflag.NewFlagSet("setrole", pflag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.StringVar(&email, "email", "", "email of the account to change")
	flagSet.StringVar(&role, "role", "", "customer, staff or admin")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if email == "" || role == "" {
		return errors.New("--email and --role are required")
	}

	profile, err := auth.SetRole(ctx, email, role)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s is now %s\n", email, profile.Role)
	return nil
}
