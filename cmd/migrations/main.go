package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/shelfwatch/shelfwatch/pkg/config"
	"github.com/shelfwatch/shelfwatch/pkg/database"
	"github.com/shelfwatch/shelfwatch/pkg/migrations"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	var db *bun.DB
	openDB := func(*cli.Context) error {
		db, err = database.New(cfg)
		return errors.WithStack(err)
	}

	app := &cli.App{
		Name:   "migrations",
		Usage:  "manage the shelfwatch database schema",
		Before: openDB,
		After: func(*cli.Context) error {
			if db != nil {
				return db.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "apply every pending migration",
				Action: func(c *cli.Context) error {
					group, err := migrations.BringUpToDate(c.Context, db)
					if err != nil {
						return err
					}
					if group.ID == 0 {
						fmt.Println("Database is already up to date")
						return nil
					}
					fmt.Printf("Migrated to %s\n", group)
					return nil
				},
			},
			{
				Name:  "rollback",
				Usage: "undo the last migration group",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "skip the confirmation check"},
				},
				Action: func(c *cli.Context) error {
					if !c.Bool("yes") {
						return cli.Exit("rollback drops data; rerun with --yes to confirm", 1)
					}
					group, err := migrations.Rollback(c.Context, db)
					if err != nil {
						return err
					}
					if group.ID == 0 {
						fmt.Println("Nothing to roll back")
						return nil
					}
					fmt.Printf("Rolled back %s\n", group)
					return nil
				},
			},
			{
				Name:      "create",
				Usage:     "write a new Go migration file",
				ArgsUsage: "<words describing the change>",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return cli.Exit("a migration name is required", 1)
					}
					mf, err := migrations.Create(c.Context, db, strings.Join(c.Args().Slice(), "_"))
					if err != nil {
						return err
					}
					fmt.Printf("Created migration %s (%s)\n", mf.Name, mf.Path)
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "list applied and pending migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "print the status as JSON"},
				},
				Action: func(c *cli.Context) error {
					status, err := migrations.CurrentStatus(c.Context, db)
					if err != nil {
						return err
					}
					if c.Bool("json") {
						enc := json.NewEncoder(os.Stdout)
						enc.SetIndent("", "  ")
						return enc.Encode(status)
					}
					fmt.Printf("Last group: %d\n", status.LastGroup)
					fmt.Printf("Applied (%d): %s\n", len(status.Applied), strings.Join(status.Applied, ", "))
					fmt.Printf("Pending (%d): %s\n", len(status.Unapplied), strings.Join(status.Unapplied, ", "))
					return nil
				},
			},
			{
				Name:  "check-fts",
				Usage: "verify the SQLite build supports full-text search",
				Action: func(*cli.Context) error {
					if err := database.CheckFTS5Support(db); err != nil {
						return cli.Exit(err.Error(), 1)
					}
					fmt.Println("FTS5 is available")
					return nil
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("migrations failed")
	}
}
