package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/sri-facturacion/docs"
	"github.com/jhoicas/sri-facturacion/internal/bootstrap"
	httpRouter "github.com/jhoicas/sri-facturacion/internal/interfaces/http"
	"github.com/jhoicas/sri-facturacion/pkg/config"
	"github.com/jhoicas/sri-facturacion/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("sri_env", cfg.SRI.Environment).
		Str("queue", cfg.Queue.Backend).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar dependencias")
	}
	defer c.Close()

	// Con la cola en memoria las tareas solo existen en este proceso: los workers deben correr aquí.
	runWorkers := cfg.Worker.InAPI || cfg.Queue.Backend == "memory"
	workersDone := make(chan struct{})
	if runWorkers {
		go func() {
			defer close(workersDone)
			if err := c.Workers().Run(ctx); err != nil {
				log.Error().Err(err).Msg("workers finalizados con error")
			}
		}()
	} else {
		close(workersDone)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath:    "/",
		FilePath:    "./docs/swagger.json",
		FileContent: []byte(docs.SwaggerInfo.ReadDoc()),
		Path:        "docs",
		Title:       "SRI Facturación API",
	}))

	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		gatherer = c.Registry
	}
	httpRouter.Router(app, httpRouter.RouterDeps{
		Issuer:      c.Orchestrator,
		Status:      c.Status,
		RIDE:        c.PDF,
		Certificate: c.Certificates,
		JWTSecret:   cfg.JWT.Secret,
		ServiceName: cfg.App.Name,
		Gatherer:    gatherer,
		MetricsPath: cfg.Metrics.Path,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	select {
	case <-workersDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("workers sin terminar al agotar el tiempo de apagado")
	}

	log.Info().Msg("aplicación detenida")
}
