// deskctl is the operator CLI: migrations, the login allow-list, token
// minting and workspace purges, run against the configured database.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gorm.io/gorm"

	"bizdesk/internal/config"
	"bizdesk/internal/db"
	"bizdesk/internal/identity"
	"bizdesk/internal/services"
	console "bizdesk/internal/utils/logger"
)

var log = console.New("deskctl")

const usage = `deskctl - bizdesk operator tool

Usage:
  deskctl migrate
  deskctl authorize <email>
  deskctl revoke <email>
  deskctl issue-token <email>
  deskctl purge <workspace-id> --confirm <workspace name>
  deskctl config-dump --out <path>

Flags:
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	var (
		envFile string
		confirm string
		out     string
		addedBy string
	)

	flagSet := pflag.NewFlagSet("deskctl", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env", ".env", "environment file to load if present")
	flagSet.StringVar(&confirm, "confirm", "", "workspace name, required by purge")
	flagSet.StringVarP(&out, "out", "o", "", "output path for config-dump")
	flagSet.StringVar(&addedBy, "added-by", "deskctl", "recorded as the author of allow-list entries")
	flagSet.BoolP("help", "h", false, "show help")
	flagSet.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(argv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		flagSet.Usage()
		return nil
	}

	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	console.Configure(cfg.Log.Format)

	command, args := flagSet.Arg(0), flagSet.Args()[1:]
	if command == "config-dump" {
		if out == "" {
			return fmt.Errorf("config-dump needs --out")
		}
		if err := cfg.Save(out); err != nil {
			return err
		}
		log.Success("Configuration written to %s", out)
		return nil
	}

	// Connect also applies migrations.
	if err := db.Connect(cfg); err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	switch command {
	case "migrate":
		return nil
	case "authorize", "revoke", "issue-token":
		if len(args) != 1 {
			return fmt.Errorf("%s needs exactly one email", command)
		}
		ident, err := newIdentity(cfg, db.GetDB())
		if err != nil {
			return err
		}
		return identityCommand(ctx, ident, command, args[0], addedBy)
	case "purge":
		if len(args) != 1 {
			return fmt.Errorf("purge needs exactly one workspace id")
		}
		workspaces := services.New(services.Dependencies{DB: db.GetDB()}).Workspaces
		if err := workspaces.PurgeAsOperator(ctx, args[0], confirm); err != nil {
			return err
		}
		log.Success("Workspace %s purged", args[0])
		return nil
	default:
		flagSet.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func newIdentity(cfg *config.Config, gdb *gorm.DB) (*identity.Service, error) {
	allowList, err := config.LoadAllowList(cfg.Auth.AllowListFile)
	if err != nil {
		return nil, err
	}
	issuer, err := identity.NewTokenIssuer(cfg.Auth)
	if err != nil {
		return nil, err
	}
	return identity.NewService(gdb, allowList, issuer, nil), nil
}

func identityCommand(ctx context.Context, ident *identity.Service, command, email, addedBy string) error {
	switch command {
	case "authorize":
		entry, err := ident.AddAuthorizedEmail(ctx, email, addedBy)
		if err != nil {
			return err
		}
		log.Success("Authorized %s", entry.Email)
	case "revoke":
		if err := ident.RemoveAuthorizedEmail(ctx, email); err != nil {
			return err
		}
		log.Success("Revoked %s", email)
	case "issue-token":
		_, user, err := ident.Resolve(ctx, email)
		if err != nil {
			return err
		}
		session, err := ident.IssueSession(user)
		if err != nil {
			return err
		}
		fmt.Println(session.Token)
		log.Info("Token for %s expires at %s", user.Email, session.ExpiresAt.Format("2006-01-02 15:04"))
	}
	return nil
}
