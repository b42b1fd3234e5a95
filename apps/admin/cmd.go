package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/trezcool/curricula/core/competency"
	"github.com/trezcool/curricula/core/coverage"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db            *sqlx.DB
	competencySvc *competency.Service
	coverageSvc   *coverage.Service
	out           io.Writer
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Curricula administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	root.AddCommand(&cobra.Command{
		Use:                "migrate COMMAND [ARGS...]",
		Short:              "Run a goose migration command (up, down, status, version, ...)",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Help()
				return errHelp
			}
			return cli.migrate(args)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Insert the INBDE competency catalog (idempotent)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inserted, err := cli.competencySvc.Seed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "%d competency areas inserted\n", inserted)
			return nil
		},
	})

	var tenantID, courseID string
	recalculateCmd := &cobra.Command{
		Use:   "recalculate",
		Short: "Recalculate the coverage statistics of a tenant (or one of its courses)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := cli.coverageSvc.RecalculateAll(cmd.Context(), coverage.CourseScope(tenantID, courseID))
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "%d cells recalculated for %s (%d failed) in %s\n",
				report.Cells, report.Scope, report.Failed, report.Duration)
			return nil
		},
	}
	recalculateCmd.Flags().StringVar(&tenantID, "tenant", "", "tenant ID")
	recalculateCmd.Flags().StringVar(&courseID, "course", "", "course ID (default: tenant-wide)")
	_ = recalculateCmd.MarkFlagRequired("tenant")
	root.AddCommand(recalculateCmd)

	return root
}

// run executes the command line args (program name included).
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}
