package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/2beens/gymrotation/internal/auth"
	"github.com/2beens/gymrotation/internal/config"
	"github.com/2beens/gymrotation/internal/db"
	"github.com/2beens/gymrotation/internal/fitness"
	"github.com/2beens/gymrotation/internal/fitness/repo"
	"github.com/2beens/gymrotation/internal/logging"
	"github.com/2beens/gymrotation/pkg"
)

var (
	env        string
	configPath string
	cfg        *config.Config

	adminName     string
	adminEmail    string
	adminPassword string
	adminGender   string

	rootCmd = &cobra.Command{
		Use:   "gymctl",
		Short: "Maintenance tool for the gymrotation backend",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == hashPasswordCmd.Name() {
				return nil
			}

			var err error
			cfg, err = config.Load(env, configPath)
			if err != nil {
				return err
			}
			logging.Setup(logging.LoggerSetupParams{
				LogToStdout: true,
				LogLevel:    cfg.LogLevel,
				Environment: cfg.Environment,
			})
			return nil
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create the postgres tables and indexes (idempotent)",
		RunE:  runMigrate,
	}

	createAdminCmd = &cobra.Command{
		Use:   "create-admin",
		Short: "Register a user with the ADMIN role",
		RunE:  runCreateAdmin,
	}

	hashPasswordCmd = &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := pkg.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cleanSessionsCmd = &cobra.Command{
		Use:   "clean-sessions",
		Short: "Remove expired login sessions from redis",
		RunE:  runCleanSessions,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment [prod | production | dev | development]")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./config.toml", "path for the TOML config file")

	createAdminCmd.Flags().StringVar(&adminName, "name", "", "admin name")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "admin email, used to log in")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "admin password (GYMROTATION_ADMIN_PASSWORD if empty)")
	createAdminCmd.Flags().StringVar(&adminGender, "gender", "", "Male | Female | Other")
	_ = createAdminCmd.MarkFlagRequired("name")
	_ = createAdminCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(migrateCmd, createAdminCmd, hashPasswordCmd, cleanSessionsCmd)
}

func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, timeoutCancel := context.WithTimeout(ctx, 2*time.Minute)
	return ctx, func() {
		timeoutCancel()
		cancel()
	}
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.StoreBackend != config.StoreBackendPostgres {
		return nil, fmt.Errorf("store backend is [%s], nothing to do", cfg.StoreBackend)
	}
	return db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBUser:     os.Getenv("GYMROTATION_POSTGRES_USER"),
		DBPassword: os.Getenv("GYMROTATION_POSTGRES_PASS"),
		MaxConns:   2,
	})
}

func runMigrate(_ *cobra.Command, _ []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}
	log.Infof("database [%s] migrated", cfg.PostgresDBName)
	return nil
}

func runCreateAdmin(cmd *cobra.Command, _ []string) error {
	if adminPassword == "" {
		adminPassword = os.Getenv("GYMROTATION_ADMIN_PASSWORD")
	}
	if adminPassword == "" {
		return errors.New("admin password not set, use --password or GYMROTATION_ADMIN_PASSWORD")
	}

	ctx, cancel := commandContext()
	defer cancel()

	pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}

	service := fitness.NewService(repo.NewRepo(pool))
	admin, err := service.CreateAdmin(ctx, fitness.UserInput{
		Name:     adminName,
		Email:    adminEmail,
		Password: adminPassword,
		Gender:   fitness.Gender(adminGender),
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "admin created: %s <%s>\n", admin.ID, admin.Email)
	return nil
}

func runCleanSessions(_ *cobra.Command, _ []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: os.Getenv("GYMROTATION_REDIS_PASS"),
	})
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warnf("close redis client: %s", err)
		}
	}()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	auth.NewAuthService(cfg.SessionTTL(), rdb).ScanAndClean(ctx, time.Now())
	return nil
}
