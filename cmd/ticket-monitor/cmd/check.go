package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/ticket-monitor/internal/config"
	"github.com/donaldgifford/ticket-monitor/internal/engine"
	"github.com/donaldgifford/ticket-monitor/internal/vendor"
	domain "github.com/donaldgifford/ticket-monitor/pkg/types"
)

func checkCommand() *cobra.Command {
	var asJSON bool

	c := &cobra.Command{
		Use:   "check [target...]",
		Short: "Poll targets once and print their offers",
		Long: "check polls each named target (or every enabled target) once and\n" +
			"prints the offers with their target-match flag. It never notifies\n" +
			"and never places orders.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			targets, err := selectTargets(cfg, args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rows, err := checkTargets(ctx, buildRegistry(cfg), targets)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(rows); encErr != nil {
					return encErr
				}
			} else if printErr := printCheckTable(cmd.OutOrStdout(), rows); printErr != nil {
				return printErr
			}
			return err
		},
	}

	c.Flags().BoolVar(&asJSON, "json", false, "print rows as JSON")
	return c
}

// selectTargets returns the named targets, or every enabled target when no
// names are given.
func selectTargets(cfg *config.Config, names []string) ([]*domain.TargetCriteria, error) {
	if len(names) == 0 {
		targets := cfg.EnabledTargets()
		if len(targets) == 0 {
			return nil, errors.New("no enabled targets")
		}
		return targets, nil
	}

	targets := make([]*domain.TargetCriteria, 0, len(names))
	for _, n := range names {
		t, ok := cfg.Target(n)
		if !ok {
			return nil, fmt.Errorf("unknown target %q", n)
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// checkTargets polls each target once. Poll failures are collected and the
// remaining targets are still polled.
func checkTargets(
	ctx context.Context,
	reg *vendor.Registry,
	targets []*domain.TargetCriteria,
) ([]checkRow, error) {
	var (
		rows []checkRow
		errs []error
	)
	for _, t := range targets {
		a, err := reg.Adapter(t.Vendor)
		if err != nil {
			errs = append(errs, fmt.Errorf("target %q: %w", t.Name, err))
			continue
		}
		result, err := a.Poll(ctx, t)
		if err != nil {
			errs = append(errs, fmt.Errorf("target %q: %w", t.Name, err))
			continue
		}
		rows = append(rows, checkRows(t, result, engine.Evaluate(result, t))...)
	}
	return rows, errors.Join(errs...)
}
