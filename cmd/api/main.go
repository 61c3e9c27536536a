package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EJ-pro/Walky/internal/config"
	"github.com/EJ-pro/Walky/internal/db"
	"github.com/EJ-pro/Walky/internal/rank"
	"github.com/EJ-pro/Walky/internal/records"
	"github.com/EJ-pro/Walky/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var mainDepsProvider = defaultDeps
var mainRunner = execute
var exitFn = os.Exit

func main() {
	if err := mainRunner(mainDepsProvider(), os.Args[1:]); err != nil {
		exitFn(1)
	}
}

type mainDeps struct {
	loadConfig      func() config.Config
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	connectRedis    func(config.Config) *redis.Client
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, *pgxpool.Pool, *redis.Client, <-chan os.Signal, ListenFunc) error
	migrate         func(context.Context, db.Querier) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		connectPostgres: db.ConnectPostgres,
		connectRedis:    db.ConnectRedis,
		notify:          signal.Notify,
		run:             Run,
		migrate:         db.Migrate,
	}
}

func execute(deps mainDeps, args []string) error {
	root := newRootCmd(deps)
	root.SetArgs(args)
	return root.Execute()
}

func newRootCmd(deps mainDeps) *cobra.Command {
	serve := newServeCmd(deps)
	root := &cobra.Command{
		Use:           "walky",
		Short:         "Walky backend: live walk tracking, walk history and rank",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          serve.RunE,
	}
	root.AddCommand(
		serve,
		newMigrateCmd(deps),
		newRankCmd(deps),
	)
	return root
}

func newServeCmd(deps mainDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), deps)
		},
	}
}

func serve(ctx context.Context, deps mainDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := deps.loadConfig()

	var pg *pgxpool.Pool
	if cfg.StoreEngine == "" || cfg.StoreEngine == records.EnginePostgres {
		var err error
		pg, err = deps.connectPostgres(cfg)
		if err != nil {
			log.Printf("postgres connection failed: %v", err)
		}
	}

	rdb := deps.connectRedis(cfg)

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(ctx, cfg, pg, rdb, signals, nil); err != nil {
		log.Printf("server exited with error: %v", err)
		return err
	}
	return nil
}

func newMigrateCmd(deps mainDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pg, err := deps.connectPostgres(deps.loadConfig())
			if err != nil {
				return err
			}
			defer pg.Close()
			if err := deps.migrate(cmd.Context(), pg); err != nil {
				return err
			}
			cmd.Println("schema applied")
			return nil
		},
	}
}

func newRankCmd(deps mainDeps) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Print a walker's rank state as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := deps.loadConfig()

			var q db.Querier
			if cfg.StoreEngine == "" || cfg.StoreEngine == records.EnginePostgres {
				pg, err := deps.connectPostgres(cfg)
				if err != nil {
					return err
				}
				defer pg.Close()
				q = pg
			}
			store, err := records.NewByEngine(cfg.StoreEngine, q, cfg.SQLitePath)
			if err != nil {
				return err
			}
			if c, ok := store.(io.Closer); ok {
				defer c.Close()
			}

			state, err := rank.NewService(store, nil, cfg.Location(), 0, cfg.StreakLookbackDays).State(cmd.Context(), userID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(state)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "walker id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run starts the HTTP server and waits for termination signals.
func Run(ctx context.Context, cfg config.Config, pg *pgxpool.Pool, rdb *redis.Client, signals <-chan os.Signal, listen ListenFunc) error {
	srv := server.NewServer(cfg, pg, rdb)

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	var runErr error
	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	srv.Close()
	if pg != nil {
		pg.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	return runErr
}
