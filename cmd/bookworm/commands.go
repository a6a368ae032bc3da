package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	bcli "github.com/hyperjump/bookworm/internal/cli"
	"github.com/hyperjump/bookworm/internal/ingest"
	"github.com/hyperjump/bookworm/internal/models"
	"github.com/hyperjump/bookworm/internal/queue"
	"github.com/hyperjump/bookworm/internal/server"
	"github.com/hyperjump/bookworm/internal/storage"
)

func serverCommand(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer components.Close()

	srv := server.NewServer(server.Deps{
		Ingest:      components.Ingest,
		Pager:       components.Pager,
		Recommender: components.Recommender,
		Store:       components.Storage,
		Catalog:     components.Catalog,
		Status:      components.Status,
	}, &cfg.Server, logger)
	worker := queue.NewWorker(components.Queue, components.Pager.HandleMessage,
		queue.WithWorkers(cfg.Queue.Workers),
		queue.WithMaxAttempts(cfg.Queue.MaxAttempts),
		queue.WithPollInterval(cfg.Queue.PollInterval),
		queue.WithLogger(logger))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	runErr := g.Wait()

	saveCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := components.SaveSnapshot(saveCtx); err != nil {
		logger.Warn("vector snapshot save failed", zap.Error(err))
	}
	return runErr
}

func populateCommand(c *cli.Context) error {
	format, err := bcli.ParseOutputFormat(c.String("output"))
	if err != nil {
		return err
	}
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var progress ingest.ProgressFunc
	var bar *bcli.PopulateProgress
	if c.Bool("progress") && format == bcli.OutputText {
		bar = bcli.NewPopulateProgress(os.Stderr)
		progress = bar.Update
	}
	components, err := initializeComponents(ctx, cfg, logger, progress)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer components.Close()
	defer func() {
		if err := components.SaveSnapshot(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("vector snapshot save failed", zap.Error(err))
		}
	}()

	out := c.App.Writer
	onPage := func(r *models.PopulateReport) {
		if bar != nil {
			bar.Finish()
		}
		_ = bcli.WritePopulateReport(out, r, format)
	}

	if c.Bool("all") {
		_, err := components.Pager.RunAll(ctx, c.String("cursor"), onPage)
		return err
	}
	report, err := components.Pager.RunPage(ctx, c.String("cursor"))
	if report != nil {
		onPage(report)
	}
	return err
}

func recommendCommand(c *cli.Context) error {
	format, err := bcli.ParseOutputFormat(c.String("output"))
	if err != nil {
		return err
	}
	query := buildQuery(c.Args().Slice())

	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	components, err := initializeComponents(c.Context, cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer components.Close()

	rec, err := components.Recommender.Recommend(c.Context, query)
	if err != nil {
		return err
	}
	return bcli.WriteRecommendation(c.App.Writer, rec, format)
}

func searchCommand(c *cli.Context) error {
	format, err := bcli.ParseOutputFormat(c.String("output"))
	if err != nil {
		return err
	}
	query := buildQuery(c.Args().Slice())
	if query == "" {
		return models.Validationf("usage: bookworm search <query>")
	}

	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	components, err := initializeComponents(c.Context, cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer components.Close()

	hits, err := components.Catalog.Search(c.Context, query, c.Int("limit"))
	if err != nil {
		return err
	}
	return bcli.WriteCatalogHits(c.App.Writer, hits, format)
}

func importCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return models.Validationf("usage: bookworm import <file.csv>")
	}
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	f, err := os.Open(c.Args().First())
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	components, err := initializeComponents(c.Context, cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer components.Close()

	books, err := storage.ImportGoodreadsCSV(c.Context, f, components.Storage)
	if err != nil {
		return err
	}
	if err := components.Catalog.IndexBatch(c.Context, books); err != nil {
		logger.Warn("catalog indexing failed", zap.Error(err))
	}
	fmt.Fprintf(c.App.Writer, "Imported %d books from %s\n", len(books), c.Args().First())
	return nil
}

func statusCommand(c *cli.Context) error {
	format, err := bcli.ParseOutputFormat(c.String("output"))
	if err != nil {
		return err
	}
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	components, err := initializeComponents(c.Context, cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer components.Close()

	st, err := components.Status(c.Context)
	if err != nil {
		return err
	}
	return bcli.WriteStatus(c.App.Writer, st, format)
}

func versionCommand(c *cli.Context) error {
	fmt.Fprintf(c.App.Writer, "bookworm %s\n", version)
	return nil
}

// buildQuery joins positional arguments so multi-word queries work with or without quotes.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// exitCode maps an error to a process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, models.ErrValidation):
		return 2
	default:
		return 1
	}
}
