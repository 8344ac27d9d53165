package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nathanyu/orderbook-engine/internal/feed"
	"github.com/nathanyu/orderbook-engine/internal/httpapi"
	"github.com/nathanyu/orderbook-engine/internal/middleware"
	"github.com/nathanyu/orderbook-engine/internal/orderbook"
	"github.com/nathanyu/orderbook-engine/internal/sequencer"
)

const channelBufferSize = 4096

func main() {
	log.Println("Starting order book engine...")

	// --- Core components ---

	// The order book itself: single-threaded, non-reentrant.
	book := orderbook.New()

	// Sequencer: owns book exclusively in its own goroutine, stamps
	// sequence IDs on every admission command it applies.
	seq := sequencer.New(book, channelBufferSize)

	// Feed: keeps a bounded recent-trades history off the sequencer's
	// ExecutionOut channel.
	tradeFeed := feed.New(seq)

	seq.Start()
	tradeFeed.Start()

	// GoodForDay orders rest until a day boundary, which the core has no
	// notion of; this ticker is the external collaborator that decides
	// when one has passed and tells the sequencer to expire them.
	gfdTicker := time.NewTicker(24 * time.Hour)
	defer gfdTicker.Stop()
	gfdDone := make(chan struct{})
	go func() {
		for {
			select {
			case <-gfdTicker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				expired, err := seq.ExpireGoodForDay(ctx)
				cancel()
				if err != nil {
					log.Printf("[main] GoodForDay expiry failed: %v", err)
					continue
				}
				log.Printf("[main] expired %d GoodForDay orders", len(expired))
			case <-gfdDone:
				return
			}
		}
	}()

	// --- HTTP Server ---
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	r := gin.Default()
	r.Use(middleware.PrometheusMiddleware())

	h := httpapi.NewHandler(seq, tradeFeed)
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// --- Metrics Server ---
	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		metricsPort = "9090"
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:    ":" + metricsPort,
		Handler: metricsMux,
	}

	// Start servers
	go func() {
		log.Printf("Metrics server listening on :%s", metricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("metrics server error: %v", err)
		}
	}()

	go func() {
		log.Printf("HTTP server listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	close(gfdDone)
	tradeFeed.Stop()
	seq.Stop()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if err := metricsSrv.Shutdown(ctx); err != nil {
		log.Printf("Metrics server shutdown error: %v", err)
	}

	log.Println("Order book engine stopped.")
}
