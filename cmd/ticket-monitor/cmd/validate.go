package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	domain "github.com/donaldgifford/ticket-monitor/pkg/types"
)

func validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the config file and list its targets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			targets := make([]*domain.TargetCriteria, 0, len(cfg.Targets))
			for i := range cfg.Targets {
				targets = append(targets, cfg.Targets[i].Criteria())
			}

			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "config ok: %d targets, %d enabled\n",
				len(targets), len(cfg.EnabledTargets())); err != nil {
				return err
			}
			return printTargetTable(out, targets)
		},
	}
}
