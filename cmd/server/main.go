package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"papelpos/backend/internal/config"
	"papelpos/backend/internal/domain"
	"papelpos/backend/internal/httpapi"
	"papelpos/backend/internal/receipt"
	"papelpos/backend/internal/service"
	"papelpos/backend/internal/store"
	filestore "papelpos/backend/internal/store/file"
	"papelpos/backend/internal/store/memory"
	pgstore "papelpos/backend/internal/store/postgres"
	redisstore "papelpos/backend/internal/store/redis"
	"papelpos/backend/internal/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	loc, err := time.LoadLocation(cfg.StoreTimezone)
	if err != nil {
		log.Fatalf("invalid STORE_TIMEZONE %q: %v", cfg.StoreTimezone, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, closers, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("storage unavailable: %v", err)
	}

	metrics, shutdownMetrics, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, "papelpos")
	if err != nil {
		log.Fatalf("telemetry setup failed: %v", err)
	}
	closers = append(closers, func() error { return shutdownMetrics(context.Background()) })

	svc := service.New(kv, service.Options{
		Location:         loc,
		PendingActionTTL: time.Duration(cfg.PendingActionTTLSeconds) * time.Second,
		Methods:          domain.NewPaymentMethods(cfg.ElectronicPaymentMethods...),
		Metrics:          metrics,
		Business: receipt.Business{
			Name:    cfg.BusinessName,
			NIT:     cfg.BusinessNIT,
			Address: cfg.BusinessAddress,
			Phone:   cfg.BusinessPhone,
		},
	})
	if err := svc.Load(ctx); err != nil {
		if !domain.IsWarning(err) {
			log.Fatalf("load register state: %v", err)
		}
		log.Printf("warning: %v", err)
	}

	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, cfg.AdminSecret)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("POS backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

// openStore picks the storage backend: Postgres, then Redis, then a data
// directory, then memory. A configured backend that cannot be reached is
// fatal rather than silently replaced.
func openStore(ctx context.Context, cfg config.Config) (store.KV, []func() error, error) {
	switch {
	case cfg.DatabaseURL != "":
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, err
		}
		log.Println("storage: postgres")
		return pg, []func() error{pg.Close}, nil
	case cfg.RedisAddr != "":
		rs := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, nil, fmt.Errorf("redis unavailable (%v) and REDIS_ADDR is set", err)
		}
		log.Println("storage: redis")
		return rs, []func() error{rs.Close}, nil
	case cfg.DataDir != "":
		files, err := filestore.New(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("storage: files in %s", cfg.DataDir)
		return files, nil, nil
	default:
		log.Println("storage: in-memory (sales are lost on restart)")
		return memory.New(), nil, nil
	}
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if len(cfg.AdminSecret) < 8 {
		return fmt.Errorf("ADMIN_SECRET must be set and at least 8 characters")
	}
	if err := validateSecretStrength(cfg.AdminSecret); err != nil {
		return fmt.Errorf("ADMIN_SECRET is too weak: %w", err)
	}
	return nil
}

// validateSecretStrength rejects secrets that are one repeated character or
// on a known-weak list.
func validateSecretStrength(secret string) error {
	known := map[string]bool{
		"password": true, "12345678": true, "123456789": true, "admin123": true,
		"administrador": true, "papeleria": true, "contraseña": true, "qwertyui": true,
	}
	if known[strings.ToLower(secret)] {
		return fmt.Errorf("common secret not allowed")
	}

	allSame := true
	for i := 1; i < len(secret); i++ {
		if secret[i] != secret[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("repeated-character secret not allowed")
	}

	return nil
}
