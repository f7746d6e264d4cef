package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/content"
	"github.com/Zachkp/folio/internal/logging"
	"github.com/Zachkp/folio/internal/store"
)

var cfgFile string

func main() {
	root := &cobra.Command{
		Use:           "folio",
		Short:         "Single-page portfolio server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "folio.yml", "config file path")
	root.AddCommand(serveCmd(), pruneCmd(), sectionsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Debug())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	gin.SetMode(cfg.Mode)

	c, err := content.Load(cfg.ContentPath)
	if err != nil {
		return err
	}
	holder := content.NewHolder(c)

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	a, err := newApp(cfg, holder, db, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.Int("sections", c.Registry().Len()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.ContentPath != "" {
		g.Go(func() error {
			return content.Watch(gctx, holder, cfg.ContentPath, logger)
		})
	}
	if cfg.Privacy.TrackVisitors && cfg.Privacy.CleanupInterval > 0 {
		g.Go(func() error {
			a.cleanupLoop(gctx, cfg.Privacy.CleanupInterval)
			return nil
		})
	}
	return g.Wait()
}

func pruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete visitor records older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			db, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.PruneVisitors(cmd.Context(), time.Now().Add(-cfg.Privacy.Retention))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d visitor records older than %s\n", n, cfg.Privacy.Retention)
			return nil
		},
	}
}

func sectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sections",
		Short: "List the navigable sections of the content file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			c, err := content.Load(cfg.ContentPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, s := range c.Registry().Sections() {
				fmt.Fprintf(out, "%d\t#%s\t%s\t%s\n", i+1, s.ID, s.Label, s.Icon)
			}
			return nil
		},
	}
}
