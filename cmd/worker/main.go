// Command worker procesa las tareas sri.submit, sri.poll y sri.notify de la cola redis.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/sri-facturacion/internal/bootstrap"
	"github.com/jhoicas/sri-facturacion/pkg/config"
	"github.com/jhoicas/sri-facturacion/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
	if cfg.Queue.Backend != "redis" {
		log.Fatal().Str("queue", cfg.Queue.Backend).Msg("el worker dedicado requiere QUEUE_BACKEND=redis")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar dependencias")
	}
	defer c.Close()

	// Métricas del worker en el mismo puerto HTTP configurado.
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.HTTP.Addr(), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("servidor de métricas finalizado")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	log.Info().
		Int("concurrency", cfg.Worker.Concurrency).
		Str("sri_env", cfg.SRI.Environment).
		Msg("worker iniciado")

	if err := c.Workers().Run(ctx); err != nil {
		log.Error().Err(err).Msg("workers finalizados con error")
	}
	log.Info().Msg("worker detenido")
}
