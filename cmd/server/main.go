package main

import (
	"context"
	"directoryhub/internal/activity"
	"directoryhub/internal/api"
	"directoryhub/internal/config"
	"directoryhub/internal/engine"
	"directoryhub/internal/models"
	"directoryhub/internal/pipeline"
	"directoryhub/internal/repository"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"
)

// dashboardContainer is the chart warmed up after the ETL.
const dashboardContainer = "business-chart"

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := log.New("directoryhub")
	logger.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Initialize Echo (Starts Instantly)
	e := echo.New()
	e.HideBanner = true
	e.Logger = logger
	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	// 2. Storage: Postgres when configured, CSV otherwise
	var repo *repository.PostgresRepository
	var recorder activity.Recorder = activity.NewRing(activity.DefaultCapacity)
	if cfg.DatabaseURL != "" {
		repo, err = openRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("postgres: %v", err)
		}
		defer repo.Close()
		recorder = activity.Tee{repository.NewPostgresActivityRecorder(repo.DB), recorder}
	}

	// 3. Chart pipeline fetching from the data API (this server unless configured)
	loader := pipeline.NewLoader(pipeline.NewFetcher(cfg.UpstreamURL(), cfg.FetchTimeout), logger)
	board := pipeline.NewBoard(loader, recorder, logger)

	// 4. Handler with NIL data: the API is live but answers 503 until the ETL is done
	h := api.NewHandler(nil, board, recorder)
	h.RegisterRoutes(e, cfg.RateLimit)

	// 5. Launch ETL in Background
	go func() {
		logger.Info("BACKGROUND: Starting ETL Pipeline...")
		t0 := time.Now()

		data, err := runETL(ctx, cfg, repo)
		if err != nil {
			logger.Errorf("BACKGROUND: ETL failed, charts will use sample data: %v", err)
			return
		}
		h.SetData(data)
		logger.Infof("BACKGROUND: ETL Complete in %v (%d businesses). API is fully ready.", time.Since(t0), data.Rows)

		if err := warmUp(ctx, board, logger); err != nil {
			logger.Warnf("BACKGROUND: warm-up: %v", err)
		}
	}()

	// 6. Start Server
	go func() {
		logger.Infof("Server ready on %s (data loading in background...)", cfg.Addr)
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

func openRepository(ctx context.Context, dsn string) (*repository.PostgresRepository, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	repo, err := repository.NewPostgresRepository(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}

// runETL builds the dashboard aggregate from Postgres, or from the CSV file.
func runETL(ctx context.Context, cfg config.Config, repo *repository.PostgresRepository) (*models.DashboardData, error) {
	if repo != nil {
		return repo.Dashboard(ctx)
	}
	store, err := engine.LoadColumnar(cfg.DataFile)
	if err != nil {
		return nil, err
	}
	return store.Aggregate(), nil
}

// warmUp primes the category index and the default dashboard chart in parallel.
func warmUp(ctx context.Context, board *pipeline.Board, logger *log.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		board.LoadIndex(ctx)
		return nil
	})
	g.Go(func() error {
		st, err := board.Panel(dashboardContainer).Load(ctx, engine.AllCategory)
		if err != nil && !errors.Is(err, pipeline.ErrStale) {
			return err
		}
		logger.Infof("%s: %d states from %s source", dashboardContainer, st.Shown.Len(), st.Tier)
		return nil
	})
	return g.Wait()
}
