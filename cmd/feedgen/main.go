// Command feedgen writes a synthetic product feed for load testing imports.
//
//	feedgen -n 10000 -seed 42 -out products.xlsx
//
// The output format follows the file extension (.csv, .xlsx or .json).
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/feed"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/logger"
)

func main() {
	n := flag.Int("n", 10000, "number of products to generate")
	seed := flag.Uint64("seed", 42, "random seed; the same seed yields the same feed")
	out := flag.String("out", "products.json", "output file (.csv, .xlsx or .json)")
	flag.Parse()

	log := logger.New("feedgen", "info")

	format, err := feed.FormatFromFilename(*out)
	if err != nil {
		log.Error("unsupported output file", slog.String("out", *out), slog.String("error", err.Error()))
		os.Exit(1)
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Error("failed to create output file", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rows := feed.Generate(*n, *seed)
	if err := feed.Write(f, format, rows); err != nil {
		f.Close()
		log.Error("failed to write feed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		log.Error("failed to close output file", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("feed written",
		slog.String("out", *out),
		slog.String("format", string(format)),
		slog.Int("products", len(rows)),
	)
}
