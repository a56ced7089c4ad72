package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"

	"github.com/anrid/covid-scope/pkg/camera"
	"github.com/anrid/covid-scope/pkg/config"
	"github.com/anrid/covid-scope/pkg/gpu/soft"
	"github.com/anrid/covid-scope/pkg/hostmap"
	"github.com/anrid/covid-scope/pkg/logger"
	"github.com/anrid/covid-scope/pkg/scope"
	"github.com/anrid/covid-scope/pkg/server"
	"github.com/anrid/covid-scope/pkg/shaders"
	"github.com/anrid/covid-scope/pkg/stats"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configFile := flag.String("config", "", "config file (yaml, json or toml)")
	width := flag.Int("width", 1024, "initial viewport width")
	height := flag.Int("height", 640, "initial viewport height")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, found, err := stats.LoadIfExists(cfg.Data.CachePath)
	if err != nil {
		logger.Fatal(ctx, err)
	}
	if !found {
		logger.Fatal(ctx, fmt.Errorf("no database at %s, run the create command in `cmd/create` first", cfg.Data.CachePath))
	}
	model, err := db.Model(stats.BuildOptions{Epoch: cfg.Epoch()})
	if err != nil {
		logger.Fatal(ctx, err)
	}

	m := hostmap.New(camera.State{
		Center: camera.LngLat{Lng: 10, Lat: 30},
		Zoom:   1,
		Pitch:  40,
		Width:  *width,
		Height: *height,
	})
	dev := soft.New(shaders.SoftKernels())
	dev.Resize(*width, *height)
	m.OnResize(dev.Resize)

	clock := clockwork.NewRealClock()
	opts := cfg.ScopeOptions()
	opts.Clock = clock

	sc, err := scope.New(dev, model, m, opts)
	if err != nil {
		logger.Fatal(ctx, err)
	}
	if _, err := hostmap.Attach(ctx, m, sc); err != nil {
		logger.Fatal(ctx, err)
	}
	sc.Subscribe(scope.ObserverFunc(func(e scope.Event) {
		logger.Debugf(ctx, "scope event %T %+v", e, e)
	}))

	loop := hostmap.NewLoop(m, clock, cfg.Render.Refresh)

	r := chi.NewRouter()
	r.Mount("/", server.New(loop, m, sc, dev).Routes())
	srv := &http.Server{Addr: cfg.Server.Listen, Handler: r}

	errCh := make(chan error, 2)
	go func() { errCh <- loop.Run(ctx) }()
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Infof(ctx, "listening on %s, %d regions over %d days", cfg.Server.Listen, len(model.Regions()), model.DayCount)

	select {
	case <-ctx.Done():
		logger.Infof(ctx, "shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Errorf(ctx, "server error: %v", err)
		}
		cancel()
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "shutdown: %v", err)
	}
}
