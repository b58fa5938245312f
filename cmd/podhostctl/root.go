package main

import (
	"context"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"podhost/internal/config"
	"podhost/internal/db"
)

type commandContext struct {
	driverFlag *string
	dsnFlag    *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	store *db.Store
}

func newRootCommand() *cobra.Command {
	var driverFlag, dsnFlag string
	ctx := &commandContext{driverFlag: &driverFlag, dsnFlag: &dsnFlag}

	rootCmd := &cobra.Command{
		Use:           "podhostctl",
		Short:         "Administer a podhost deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&driverFlag, "driver", "", "Database driver (postgres or sqlite), overrides DATABASE_DRIVER")
	rootCmd.PersistentFlags().StringVar(&dsnFlag, "database-url", "", "Database URL, overrides DATABASE_URL")

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newUserCommand(ctx))
	rootCmd.AddCommand(newTokenCommand(ctx))
	rootCmd.AddCommand(newPodcastsCommand(ctx))
	rootCmd.AddCommand(newFeedCommand(ctx))

	return rootCmd
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.FromEnv()
		if err != nil {
			c.configErr = err
			return
		}
		if v := strings.TrimSpace(*c.driverFlag); v != "" {
			cfg.DatabaseDriver = v
		}
		if v := strings.TrimSpace(*c.dsnFlag); v != "" {
			cfg.DatabaseURL = v
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) openStore(ctx context.Context) (*db.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	c.store = store
	return store, nil
}

func (c *commandContext) close() error {
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}
