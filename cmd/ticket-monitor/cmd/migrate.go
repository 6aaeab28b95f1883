package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
)

const migrateTimeout = 60 * time.Second

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply notification history migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Database.Enabled() {
				return errors.New("database.host is not set")
			}

			log, logFile, err := newLogger(&cfg.Logging)
			if err != nil {
				return err
			}
			defer logFile.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), migrateTimeout)
			defer cancel()

			// openHistory migrates on connect.
			s, err := openHistory(ctx, &cfg.Database, log)
			if err != nil {
				return err
			}
			s.Close()

			log.Info("migrations complete")
			return nil
		},
	}
}
