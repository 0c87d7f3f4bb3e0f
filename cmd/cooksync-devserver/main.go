// Command cooksync-devserver runs an in-memory Cooksync service for local
// development of the sync client.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cooksync/cooksync/internal/domain"
	"github.com/cooksync/cooksync/internal/fakeserver"
	"github.com/cooksync/cooksync/internal/logging"
)

// seedRecipe is one entry of the --recipes file.
type seedRecipe struct {
	ID      int64  `yaml:"id"`
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
}

func loadSeed(path string) ([]domain.ExportRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipes: %w", err)
	}
	var seed []seedRecipe
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse recipes: %w", err)
	}
	out := make([]domain.ExportRecord, 0, len(seed))
	for i, r := range seed {
		if r.ID == 0 {
			r.ID = int64(i + 1)
		}
		out = append(out, domain.ExportRecord{ID: r.ID, Title: r.Title, Content: r.Content})
	}
	return out, nil
}

func main() {
	addr := flag.String("addr", ":3000", "Listen address")
	recipesPath := flag.String("recipes", "", "YAML file of recipes to serve")
	clientHeader := flag.String("client-header", fakeserver.DefaultClientIDHeader, "Client ID header name")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := slog.New(logging.NewHandler(os.Stdout, "json", level))

	opts := []fakeserver.Option{fakeserver.WithClientIDHeader(*clientHeader)}
	if *recipesPath != "" {
		recipes, err := loadSeed(*recipesPath)
		if err != nil {
			logger.Error("load recipes", "error", err)
			os.Exit(1)
		}
		opts = append(opts, fakeserver.WithRecipes(recipes...))
		logger.Info("recipes loaded", "count", len(recipes))
	}

	fake := fakeserver.New(logger, opts...)
	srv := &http.Server{
		Addr:         *addr,
		Handler:      fake.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("dev server listening", "addr", *addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}
