// Command courierd serves the courier HTTP API over an in-memory store.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rbaliyan/courier"
	"github.com/rbaliyan/courier/httpapi"
	"github.com/rbaliyan/courier/store/memory"
)

func main() {
	var (
		addr            = flag.String("addr", ":8080", "listen address")
		redisAddr       = flag.String("redis", "", "redis address for event transport (empty disables)")
		maxBodySize     = flag.Int("max-body-size", courier.DefaultMaxBodySize, "maximum message body size in bytes")
		shutdownTimeout = flag.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
		logJSON         = flag.Bool("log-json", false, "log in JSON format")
		verbose         = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	logger := newLogger(*logJSON, *verbose)
	slog.SetDefault(logger)

	if err := run(logger, *addr, *redisAddr, *maxBodySize, *shutdownTimeout); err != nil {
		logger.Error("courierd failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(jsonFormat, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if jsonFormat {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func run(logger *slog.Logger, addr, redisAddr string, maxBodySize int, shutdownTimeout time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []courier.Option{
		courier.WithStore(memory.New()),
		courier.WithLogger(logger),
		courier.WithMaxBodySize(maxBodySize),
		courier.WithShutdownTimeout(shutdownTimeout),
	}
	if redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer client.Close()
		opts = append(opts, courier.WithRedisClient(client))
		logger.Info("event transport enabled", "redis", redisAddr)
	}

	svc, err := courier.NewService(opts...)
	if err != nil {
		return err
	}
	if err := svc.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Close(closeCtx); err != nil {
			logger.Error("service close failed", "error", err)
		}
	}()

	server := &http.Server{
		Addr:              addr,
		Handler:           httpapi.New(svc, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("courierd listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
