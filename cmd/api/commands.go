package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lorrc/complaint-desk-bff/internal/adapters/secondary/postgres"
	"github.com/lorrc/complaint-desk-bff/internal/auth"
	"github.com/lorrc/complaint-desk-bff/internal/config"
)

// --- migrate ---

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the ui_preferences schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := databaseConfig()
		if err != nil {
			return err
		}
		if err := postgres.MigrateUp(cfg.Database.URL, migrationsDir(cmd, cfg)); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert the last migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := databaseConfig()
		if err != nil {
			return err
		}
		steps, _ := cmd.Flags().GetInt("steps")
		if err := postgres.MigrateDown(cfg.Database.URL, migrationsDir(cmd, cfg), steps); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) reverted\n", steps)
		return nil
	},
}

func init() {
	migrateCmd.PersistentFlags().String("dir", "", "migrations directory (default DB_MIGRATIONS_PATH)")
	migrateDownCmd.Flags().Int("steps", 1, "number of migrations to revert")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

// databaseConfig reads the environment without requiring the settings
// only the server needs.
func databaseConfig() (*config.Config, error) {
	config.LoadDotEnv()
	cfg := config.FromEnv()
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	return cfg, nil
}

func migrationsDir(cmd *cobra.Command, cfg *config.Config) string {
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		return dir
	}
	return cfg.Database.MigrationsPath
}

// --- token ---

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a signed access token for local development",
	Long: `Mint a signed access token for local development.

The token is signed with JWT_SECRET and is accepted both by this service and
by an upstream API sharing the same secret.

Examples:
  complaint-desk token --role admin
  complaint-desk token --user 0b6f3c1e-8c1f-4a55-9a3e-2d3b6a1f0c42 --ttl 8h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config.LoadDotEnv()
		cfg := config.FromEnv()
		if cfg.JWT.Secret == "" {
			return errors.New("JWT_SECRET is required")
		}
		if cfg.App.Environment == "production" {
			return errors.New("refusing to mint tokens in production")
		}

		userID, err := uuidFlag(cmd, "user")
		if err != nil {
			return err
		}
		orgID, err := uuidFlag(cmd, "org")
		if err != nil {
			return err
		}
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		token, err := auth.NewTokenManager(cfg.JWT.Secret, ttl).GenerateToken(userID, orgID, role)
		if err != nil {
			return fmt.Errorf("signing token: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("user", "", "user id (random when empty)")
	tokenCmd.Flags().String("org", "", "organisation id (random when empty)")
	tokenCmd.Flags().String("role", "agent", "role claim forwarded to the upstream API")
	tokenCmd.Flags().Duration("ttl", time.Hour, "token lifetime")
}

func uuidFlag(cmd *cobra.Command, name string) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return uuid.New(), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return id, nil
}
