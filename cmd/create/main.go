package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/anrid/covid-scope/pkg/config"
	"github.com/anrid/covid-scope/pkg/logger"
	"github.com/anrid/covid-scope/pkg/stats"
)

func main() {
	configFile := flag.String("config", "", "config file (yaml, json or toml)")
	force := flag.Bool("force", false, "download again even when a cache exists")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, found, err := stats.LoadIfExists(cfg.Data.CachePath)
	if err != nil {
		logger.Fatal(ctx, err)
	}

	if !found || *force {
		cases, deaths, err := stats.FetchTables(ctx, cfg.Data.CasesURL, cfg.Data.DeathsURL)
		if err != nil {
			logger.Fatal(ctx, err)
		}

		db = stats.NewDatabase()
		db.Put(stats.CasesTable, cases)
		db.Put(stats.DeathsTable, deaths)
		db.Downloaded = time.Now().UTC()

		// refuse to cache tables the viewer could not use
		if _, err := db.Model(stats.BuildOptions{Epoch: cfg.Epoch()}); err != nil {
			logger.Fatal(ctx, fmt.Errorf("downloaded tables: %w", err))
		}
		if err := db.Save(cfg.Data.CachePath); err != nil {
			logger.Fatal(ctx, err)
		}
		logger.Infof(ctx, "saved %s", cfg.Data.CachePath)
	}

	info := db.Info()
	p := message.NewPrinter(language.English)
	p.Printf(`
	Tables       : %v
	Content Size : %d
	Downloaded   : %s
	`, info.Tables, info.ContentSize, info.Downloaded.Format(time.RFC3339))
	p.Println("")
}
