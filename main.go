package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/saxenaaman628/redis-election/config"
	"github.com/saxenaaman628/redis-election/internal/api"
	"github.com/saxenaaman628/redis-election/internal/controller"
	"github.com/saxenaaman628/redis-election/internal/election"
	"github.com/saxenaaman628/redis-election/internal/logging"
	rclient "github.com/saxenaaman628/redis-election/internal/redis"
	redishandler "github.com/saxenaaman628/redis-election/internal/redisHandler"
	"github.com/saxenaaman628/redis-election/internal/sqlstore"
	"github.com/saxenaaman628/redis-election/internal/utils"
)

func main() {
	root := &cobra.Command{
		Use:           "election",
		Short:         "Single-election ballot service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			config.LoadEnv()
		},
	}
	root.AddCommand(serveCmd(), tokenCmd(), inspectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func tokenCmd() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed caller token for an address",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !common.IsHexAddress(address) {
				return errors.Errorf("invalid address %q", address)
			}

			tok, err := utils.GenerateJWTToken(common.HexToAddress(address), cfg.JWTSecret, cfg.TokenTTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "caller address (0x...)")
	_ = cmd.MarkFlagRequired("address")

	return cmd
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the projected state kept by the redis journal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Journal != config.JournalRedis {
				return errors.Errorf("inspect needs JOURNAL=%s, got %q", config.JournalRedis, cfg.Journal)
			}

			rdb, err := rclient.Connect(cfg)
			if err != nil {
				return err
			}
			defer rdb.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), rclient.Timeout)
			defer cancel()

			snap, err := redishandler.NewReader(rdb, cfg.ElectionID).Snapshot(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
}

func serve(cfg config.Config) error {
	lvl, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	lg := logging.Setup(os.Stderr, lvl, cfg.LogFormat)

	journal, closeJournal, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer closeJournal()

	el, err := election.Open(cfg.ElectionID, cfg.Admin(), journal)
	if err != nil {
		return err
	}
	el.SetLogging(lg)

	lg.Log().Info().
		Str("election", el.ID()).
		Str("admin", el.Admin().Hex()).
		Str("journal", cfg.Journal).
		Stringer("status", el.WorkflowStatus()).
		Int("events", len(el.Events())).
		Msg("election ready")

	gin.SetMode(gin.ReleaseMode)
	r := api.NewRouter(lg)
	ec := controller.NewElectionController(el)
	ec.SetLogging(lg)
	api.RegisterRoutes(r, ec, api.NewAuthHandler(cfg.JWTSecret, cfg.TokenTTL))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctrlc
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}()

	lg.Log().Info().Str("port", cfg.Port).Msg("listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server failed")
	}
	lg.Log().Info().Msg("server closed")

	return nil
}

func openJournal(cfg config.Config) (election.Journal, func(), error) {
	switch cfg.Journal {
	case config.JournalRedis:
		rdb, err := rclient.Connect(cfg)
		if err != nil {
			return nil, nil, err
		}
		return redishandler.NewJournal(rdb), func() { _ = rdb.Close() }, nil
	case config.JournalSQLite, config.JournalPostgres:
		driver := sqlstore.DriverSQLite
		if cfg.Journal == config.JournalPostgres {
			driver = sqlstore.DriverPostgres
		}
		db, err := sqlstore.Connect(driver, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return sqlstore.NewJournal(db), func() { _ = db.Close() }, nil
	default:
		return election.NewMemoryJournal(), func() {}, nil
	}
}
