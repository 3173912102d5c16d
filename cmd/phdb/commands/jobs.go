package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/phdb/image-bundler/internal/dao/jobdao"
	"github.com/phdb/image-bundler/internal/di"
)

// JobsCommand returns the jobs command for inspecting bundle job records
func JobsCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:    "jobs",
		Aliases: []string{"j"},
		Usage:   "Inspect bundle job records",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "List bundle jobs for an item",
				Description: `List all bundle jobs recorded for an item in an environment.

Examples:
  # Show bundle history for an item
  phdb jobs list --env dev --item-code AB1234

  # As JSON
  phdb jobs list --env prod --item-code AB1234 --json`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "env",
						Aliases:  []string{"e"},
						Usage:    "Environment (dev, staging, or prod)",
						Required: true,
						EnvVars:  []string{"ENV"},
					},
					&cli.StringFlag{
						Name:     "item-code",
						Aliases:  []string{"i"},
						Usage:    "Catalog item code",
						Required: true,
						EnvVars:  []string{"ITEM_CODE"},
					},
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: jobsListAction,
			},
			{
				Name:    "latest",
				Aliases: []string{"la"},
				Usage:   "Show the most recent bundle job per item",
				Description: `Show the latest bundle job for every item in an environment,
most recently updated first.

Examples:
  phdb jobs latest --env dev
  phdb jobs latest --env prod --json`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "env",
						Aliases:  []string{"e"},
						Usage:    "Environment (dev, staging, or prod)",
						Required: true,
						EnvVars:  []string{"ENV"},
					},
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: jobsLatestAction,
			},
		},
	}
}

func jobsListAction(c *cli.Context) error {
	logger := zerolog.Ctx(c.Context)

	env := c.String("env")
	itemCode := c.String("item-code")

	dao, err := createJobDAO(env)
	if err != nil {
		return err
	}

	records, err := dao.QueryByItemEnv(c.Context, itemCode, env)
	if err != nil {
		return fmt.Errorf("failed to query jobs: %w", err)
	}

	if len(records) == 0 {
		fmt.Printf("No bundle jobs found for %s in %s\n", itemCode, env)
		return nil
	}

	if c.Bool("json") {
		displayJobsJSON(records)
	} else {
		fmt.Printf("\nBundle jobs for %s (%s)\n", itemCode, env)
		fmt.Println(strings.Repeat("=", 60))
		displayJobs(records)
	}

	logger.Info().
		Str("item_code", itemCode).
		Str("env", env).
		Int("job_count", len(records)).
		Msg("Retrieved bundle jobs")

	return nil
}

func jobsLatestAction(c *cli.Context) error {
	logger := zerolog.Ctx(c.Context)

	env := c.String("env")

	dao, err := createJobDAO(env)
	if err != nil {
		return err
	}

	records, err := dao.QueryLatestJobs(c.Context, env)
	if err != nil {
		return fmt.Errorf("failed to query latest jobs: %w", err)
	}

	if len(records) == 0 {
		fmt.Printf("No bundle jobs found in %s\n", env)
		return nil
	}

	if c.Bool("json") {
		displayJobsJSON(records)
	} else {
		fmt.Printf("\nLatest bundle job per item (%s)\n", env)
		fmt.Println(strings.Repeat("=", 60))
		displayJobs(records)
	}

	logger.Info().
		Str("env", env).
		Int("job_count", len(records)).
		Msg("Retrieved latest bundle jobs")

	return nil
}

// createJobDAO resolves the jobs DAO from the DI container so the CLI reads
// the same table the bundling Lambda writes, including any config override.
func createJobDAO(env string) (*jobdao.DAO, error) {
	container, err := di.New(env,
		di.WithProviders(di.ProvideJobDAO),
	)
	if err != nil {
		return nil, err
	}

	var dao *jobdao.DAO
	err = container.Invoke(func(d *jobdao.DAO) {
		dao = d
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build jobs DAO: %w", err)
	}

	return dao, nil
}

// displayJobs prints job records in a readable format
func displayJobs(records []jobdao.Record) {
	for _, record := range records {
		fmt.Println()
		fmt.Printf("Job:      %s\n", record.GetID())
		fmt.Printf("Status:   %s\n", record.Status)
		fmt.Printf("Images:   %d requested", record.ImageCount)
		if record.ImagesBundled != nil {
			fmt.Printf(", %d bundled", *record.ImagesBundled)
		}
		fmt.Println()
		if record.BundleKey != "" {
			fmt.Printf("Bundle:   %s", record.BundleKey)
			if record.ZipSize != nil {
				fmt.Printf(" (%d bytes)", *record.ZipSize)
			}
			fmt.Println()
		}
		if record.ErrorMsg != nil && *record.ErrorMsg != "" {
			fmt.Printf("Error:    %s\n", *record.ErrorMsg)
		}
		if record.CreatedAt > 0 {
			fmt.Printf("Created:  %s\n", time.Unix(record.CreatedAt, 0).UTC().Format(time.RFC3339))
		}
		if record.FinishedAt != nil {
			fmt.Printf("Finished: %s\n", time.Unix(*record.FinishedAt, 0).UTC().Format(time.RFC3339))
		}
	}
	fmt.Println()
}

// displayJobsJSON prints job records as JSON
func displayJobsJSON(records []jobdao.Record) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
	}
}
