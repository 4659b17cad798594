package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/finquest/finquest/internal/dbconfig"
	"github.com/finquest/finquest/internal/invites"
)

const usage = `usage: inviteadmin <command> [args]

commands:
  create <created-by-uuid>   mint a new invite code
  revoke <code>              invalidate a code
  validate <code>            check whether a code can still be redeemed
  list                       show recent codes
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := dbconfig.NewConfigFromEnv()
	database, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	admin := invites.NewApp(invites.NewRepository(database))
	if err := run(context.Background(), admin, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// run executes one admin command against the injected service.
func run(ctx context.Context, admin invites.Admin, args []string) error {
	switch args[0] {
	case "create":
		if len(args) < 2 {
			return fmt.Errorf("create requires a created-by uuid")
		}
		createdBy, err := uuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid uuid: %w", err)
		}
		invite, err := admin.CreateInvite(ctx, createdBy)
		if err != nil {
			return err
		}
		fmt.Printf("created invite code: %s\n", invite.Code)
		return nil

	case "revoke":
		if len(args) < 2 {
			return fmt.Errorf("revoke requires a code")
		}
		if err := admin.RevokeInvite(ctx, args[1]); err != nil {
			return err
		}
		fmt.Printf("revoked %s\n", args[1])
		return nil

	case "validate":
		if len(args) < 2 {
			return fmt.Errorf("validate requires a code")
		}
		ok, err := admin.ValidateInvite(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s redeemable: %v\n", args[1], ok)
		return nil

	case "list":
		codes, err := admin.ListInvites(ctx, 100)
		if err != nil {
			return err
		}
		for _, c := range codes {
			state := "unused"
			if c.Revoked {
				state = "revoked"
			} else if c.UsedBy != nil {
				state = fmt.Sprintf("used by %s", c.UsedBy)
			}
			fmt.Printf("%s  %s  %s\n", c.Code, c.CreatedAt.Format("2006-01-02"), state)
		}
		return nil

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}
