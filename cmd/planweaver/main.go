package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/hrygo/planweaver/internal/profile"
	"github.com/hrygo/planweaver/plugin/planner/cache"
	"github.com/hrygo/planweaver/plugin/planner/convctx"
	"github.com/hrygo/planweaver/plugin/planner/generate"
	"github.com/hrygo/planweaver/plugin/planner/inject"
	"github.com/hrygo/planweaver/plugin/planner/schedule"
	"github.com/hrygo/planweaver/plugin/planner/scheduler"
	"github.com/hrygo/planweaver/server"
	apiv1 "github.com/hrygo/planweaver/server/router/api/v1"
	"github.com/hrygo/planweaver/store"
	"github.com/hrygo/planweaver/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "planweaver",
	Short: "Autonomous daily-schedule planning service",
	RunE: func(_ *cobra.Command, _ []string) error {
		return run()
	},
}

func init() {
	viper.SetEnvPrefix("planweaver")
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().String("config", "", "path to a config file (yaml)")
	rootCmd.PersistentFlags().String("mode", "dev", "mode of the server: dev or prod")
	rootCmd.PersistentFlags().String("addr", "", "address to bind")
	rootCmd.PersistentFlags().Int("port", 8230, "port to listen on")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver: sqlite or postgres")
	rootCmd.PersistentFlags().String("dsn", "", "database connection string")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("mode", rootCmd.PersistentFlags().Lookup("mode"))
	_ = viper.BindPFlag("addr", rootCmd.PersistentFlags().Lookup("addr"))
	_ = viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("driver", rootCmd.PersistentFlags().Lookup("driver"))
	_ = viper.BindPFlag("dsn", rootCmd.PersistentFlags().Lookup("dsn"))
}

func run() error {
	if cfg := viper.GetString("config"); cfg != "" {
		viper.SetConfigFile(cfg)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	p := profile.Default()
	p.Mode = viper.GetString("mode")
	p.Addr = viper.GetString("addr")
	p.Port = viper.GetInt("port")
	p.Driver = viper.GetString("driver")
	p.DSN = viper.GetString("dsn")
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		return fmt.Errorf("create db driver: %w", err)
	}

	st := store.New(dbDriver, p)
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	cacheService := cache.NewService(cache.ServiceConfig{
		Capacity:   p.CacheMaxSize,
		DefaultTTL: p.CacheTTL,
	})
	defer cacheService.Close()

	reader := schedule.NewReader(st, cacheService, p.CacheTTL, p.Location())

	provider := generate.NewOpenAIProvider(p)
	limiter := rate.NewLimiter(rate.Every(time.Second), 3)
	generator := generate.NewGenerator(p, st, reader, provider, limiter)

	sched, err := scheduler.New(p, generator, st)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	ctxCache := convctx.New(p.ContextMaxTurns, p.ContextTTL, p.ContinuityWindow)
	defer ctxCache.Close()

	strategy, err := inject.StrategyForMode(p)
	if err != nil {
		return fmt.Errorf("create inject strategy: %w", err)
	}
	engine := inject.NewEngine(p, reader, ctxCache, generator, strategy)
	slog.Info("planning core ready", "mode", p.Mode, "inject_mode", engine.Mode(), "driver", p.Driver)

	api := apiv1.NewAPIV1Service(p, reader, generator, st, engine, ctxCache)
	srv := server.New(p, api)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
