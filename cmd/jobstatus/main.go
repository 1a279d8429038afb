// Command jobstatus prints the status of one generation job straight from
// the configured result store. It reads the same configuration as the
// server and is meant for operators inspecting a job during an incident.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/phrazzld/docgen-api/internal/api"
	"github.com/phrazzld/docgen-api/internal/config"
	"github.com/phrazzld/docgen-api/internal/platform/jobstore"
	"github.com/phrazzld/docgen-api/internal/platform/logger"
	"github.com/phrazzld/docgen-api/internal/redact"
	"github.com/phrazzld/docgen-api/internal/service"
)

func main() {
	requestID := flag.String("id", "", "request ID of the job to inspect")
	timeout := flag.Duration("timeout", 10*time.Second, "overall timeout")
	flag.Parse()

	if *requestID == "" {
		fmt.Fprintln(os.Stderr, "usage: jobstatus -id <requestId>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %s", redact.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, cfg, *requestID, os.Stdout); err != nil {
		log.Fatalf("jobstatus: %s", redact.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, requestID string, out io.Writer) error {
	// Logs go to stderr so stdout carries only the report.
	l, err := logger.SetupWithWriter(cfg.Server, os.Stderr)
	if err != nil {
		return err
	}

	handle, err := jobstore.Open(ctx, cfg.Store, false, l)
	if err != nil {
		return err
	}
	defer func() {
		if err := handle.Close(); err != nil {
			l.Error("Error closing result store", "error", redact.Error(err))
		}
	}()
	if handle.Degraded {
		l.Warn("primary store unreachable, reading the filesystem fallback only")
	}

	reader, err := service.NewStatusReader(handle.Store, l)
	if err != nil {
		return err
	}
	report, err := reader.Status(ctx, requestID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(api.StatusResponseFromReport(report))
}
