package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/dirk.krummacker/contacts-vcard/internal/config"
	"gitlab.com/dirk.krummacker/contacts-vcard/internal/images"
	"gitlab.com/dirk.krummacker/contacts-vcard/internal/logger"
	"gitlab.com/dirk.krummacker/contacts-vcard/internal/service"
	"gitlab.com/dirk.krummacker/contacts-vcard/internal/store"
	"gitlab.com/dirk.krummacker/contacts-vcard/internal/vcard"
)

const shutdownTimeout = 10 * time.Second

// Usage example on the command line:
// > PORT=8080 DBUSER=dirk DBPWD=bullo92 GIN_MODE=release GIN_LOGGING=OFF go run main.go
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not load configuration:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not create logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("contacts service failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqlDB, err := store.CreateDatabase(cfg.DSN())
	if err != nil {
		return err
	}
	contacts, err := store.New(ctx, sqlDB)
	if err != nil {
		sqlDB.Close()
		return err
	}
	defer contacts.Close()

	var cache vcard.PhotoCache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		cache = vcard.NewRedisPhotoCache(client, cfg.PhotoCacheTTL)
		log.Info("caching photos in redis", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.PhotoCacheTTL))
	}
	resolver := vcard.NewHTTPPhotoResolver(vcard.ResolverConfig{
		Timeout:  cfg.PhotoFetchTimeout,
		MaxBytes: cfg.PhotoMaxBytes,
	}, cache, log)
	exporter := vcard.NewExporter(resolver, cfg.ExportConcurrency, log)
	imageStore := images.NewDiskStore(cfg.ImageDir, cfg.PublicBaseURL)

	svc := service.New(contacts, exporter, imageStore, log, service.Options{
		ImageDir:       imageStore.Dir(),
		RequestLogging: cfg.RequestLogging(),
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           svc.SetupHttpRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("contacts service listening", zap.String("addr", server.Addr))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
