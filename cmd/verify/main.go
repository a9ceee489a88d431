// Package main checks published artifacts against the hash stamped on them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ytrends/internal/config"
	"ytrends/internal/formatter"
	"ytrends/internal/logger"
	"ytrends/internal/pipeline"
	"ytrends/internal/publisher"
	"ytrends/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", os.Getenv(config.EnvConfigPath), "Path to YAML config file (optional)")
	date := flag.String("date", "", "Capture date to verify (YYYY-MM-DD, default today in the configured timezone)")
	flag.Parse()

	log := logger.NewLogger("info")

	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded", "error", err)
	}

	cfg, err := config.LoadStorageConfig(*configPath)
	if err != nil {
		log.Error("invalid configuration", "error", err)
		return 1
	}

	captureDate := *date
	if captureDate == "" {
		captureDate = time.Now().In(cfg.Pipeline.Location()).Format(pipeline.DateLayout)
	}

	if _, err := time.Parse(pipeline.DateLayout, captureDate); err != nil {
		log.Error("invalid date", "date", captureDate, "error", err)
		return 1
	}

	ctx := context.Background()

	sink, err := storage.Open(ctx, cfg.StorageConnection, cfg.Storage.Container)
	if err != nil {
		log.Error("failed to open storage", "error", err)
		return 1
	}
	defer sink.Close()

	pub := publisher.New(sink, cfg.Storage.Prefix, logger.Nop(), nil)

	rows := make([][]string, 0, len(cfg.Partitions))
	failed := 0

	for _, key := range cfg.Partitions {
		meta, err := pub.Verify(ctx, key, captureDate)

		switch {
		case errors.Is(err, storage.ErrNotFound):
			failed++
			rows = append(rows, []string{key, "missing", "", "", ""})
		case err != nil:
			failed++
			rows = append(rows, []string{key, "invalid", "", "", err.Error()})
		default:
			rows = append(rows, []string{key, "ok", strconv.Itoa(meta.Rows), meta.RunID, shortHash(meta.Hash)})
		}
	}

	fmt.Printf("Artifacts for %s in %s\n\n", captureDate, sink.Location())
	fmt.Println(strings.Join(formatter.RenderTable([]string{"PARTITION", "STATE", "ROWS", "RUN", "DETAIL"}, rows), "\n"))

	if failed > 0 {
		fmt.Printf("\n%d of %d artifacts failed verification\n", failed, len(cfg.Partitions))
		return 1
	}

	return 0
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}

	return h
}
