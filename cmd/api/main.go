package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-bengkel-orders/internal/config"
	"github.com/ariefcatur/go-bengkel-orders/internal/httpx"
	"github.com/ariefcatur/go-bengkel-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-bengkel-orders/internal/kafka"
	"github.com/ariefcatur/go-bengkel-orders/internal/orders"
	"github.com/ariefcatur/go-bengkel-orders/internal/postgres"
	"github.com/ariefcatur/go-bengkel-orders/internal/redisx"
)

func newLogger(env string) *zap.Logger {
	if env == "prod" {
		log, _ := zap.NewProduction()
		return log
	}
	log, _ := zap.NewDevelopment()
	return log
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := newLogger(cfg.Env)
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PGMaxConns)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer (one writer, topic per message)
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024)
	prod.Start(ctx)

	// Orchestrator & handlers
	svc := &orders.Service{
		DB:       db,
		Repo:     &orders.Repo{DB: db},
		Ledger:   &inventory.Ledger{DB: db},
		Redis:    rdb,
		Producer: prod,
		Name:     cfg.ServiceName,
		Log:      log,
	}

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{Svc: svc, Log: log}
	oh.Register(router)
	sh := &httpx.StocksHandler{Ledger: svc.Ledger, Log: log}
	sh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // close inbox -> flush & close writer
	cancel()          // stop producer loop
	prod.WaitClosed() // drain
}
