// Command crawler fetches course records from sat.cool and writes them as a
// JSON batch file for the ingest command.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/coursebot/coursebot/engine/crawler"
)

func main() {
	var (
		out     = flag.String("out", "data/sat_courses.json", "output batch file")
		apiBase = flag.String("api", "", "course API base URL (default production)")
		limit   = flag.Int("limit", crawler.DefaultPageLimit, "course-list page size")
		max     = flag.Int("max", crawler.DefaultMaxCourses, "maximum courses to crawl")
	)
	flag.Parse()

	log := slog.Default()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := crawler.New(*apiBase, log)
	courses, err := c.Crawl(ctx, crawler.Opts{PageLimit: *limit, MaxCourses: *max})
	if err != nil {
		log.Error("crawl failed", "error", err, "collected", len(courses))
		if len(courses) == 0 {
			os.Exit(1)
		}
		// Keep a partial batch; the delta-based ingest handles reruns.
	}

	data, err := json.MarshalIndent(courses, "", "  ")
	if err != nil {
		log.Error("encode batch failed", "error", err)
		os.Exit(1)
	}

	if dir := filepath.Dir(*out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error("create output dir failed", "dir", dir, "error", err)
			os.Exit(1)
		}
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		log.Error("write batch failed", "file", *out, "error", err)
		os.Exit(1)
	}

	log.Info("batch written", "file", *out, "courses", len(courses))
}
