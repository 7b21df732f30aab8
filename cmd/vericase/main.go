package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vericase/vericase-docs/internal/auth"
	"github.com/vericase/vericase-docs/internal/config"
	"github.com/vericase/vericase-docs/internal/database"
	"github.com/vericase/vericase-docs/internal/model"
	"github.com/vericase/vericase-docs/internal/objectstore"
	"github.com/vericase/vericase-docs/internal/repository"
	"github.com/vericase/vericase-docs/internal/search"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "vericase: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "vericase",
		Short:        "VeriCase Docs admin CLI",
		Long:         "Administrative tasks for a VeriCase Docs deployment: schema and index bootstrap, user management.",
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newMigrateCmd(),
		newCreateUserCmd(),
		newRunCmd(),
	)
	return cmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run individual Go binaries directly",
	}
	cmd.AddCommand(
		newServiceRunner("api", "./cmd/api"),
		newServiceRunner("worker", "./cmd/worker"),
	)
	return cmd
}

func newServiceRunner(name, path string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("go run %s", path),
		RunE: func(cmd *cobra.Command, args []string) error {
			goArgs := append([]string{"run", path}, args...)
			execCmd := exec.CommandContext(cmd.Context(), "go", goArgs...)
			execCmd.Stdout = os.Stdout
			execCmd.Stderr = os.Stderr
			execCmd.Stdin = os.Stdin
			return execCmd.Run()
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema, object bucket, and search index",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			pool, err := database.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()
			if err := database.EnsureSchema(ctx, pool); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}

			store, err := objectstore.NewMinioStore(cfg)
			if err != nil {
				return fmt.Errorf("init object store: %w", err)
			}
			if err := store.EnsureBucket(ctx); err != nil {
				return fmt.Errorf("ensure bucket: %w", err)
			}

			index, err := search.New(cfg)
			if err != nil {
				return fmt.Errorf("init search: %w", err)
			}
			if err := index.EnsureIndex(ctx); err != nil {
				return fmt.Errorf("ensure index: %w", err)
			}

			logrus.Info("schema, bucket, and index are ready")
			return nil
		},
	}
}

func newCreateUserCmd() *cobra.Command {
	var email string
	var password string
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			email = strings.ToLower(strings.TrimSpace(email))
			if email == "" || password == "" {
				return fmt.Errorf("both --email and --password are required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			pool, err := database.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()
			users := repository.NewPgUserRepository(pool)

			if _, err := users.GetByEmail(ctx, email); err == nil {
				return fmt.Errorf("user %s already exists", email)
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			user := &model.User{
				ID:           uuid.NewString(),
				Email:        email,
				PasswordHash: hash,
			}
			if err := users.Create(ctx, user); err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Printf("created user %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address for the new user")
	cmd.Flags().StringVar(&password, "password", "", "Password for the new user")
	return cmd
}
