// Comando sweep ejecuta una pasada del barrido de facturas recurrentes.
// Pensado para cron: sale con código 1 si alguna serie falló.
//
//	sweep [-as-of YYYY-MM-DD]
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/civil"

	"github.com/jhoicas/Facturacion-api/internal/bootstrap"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

func main() {
	asOfFlag := flag.String("as-of", "", "fecha del barrido (YYYY-MM-DD); por defecto hoy")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, Service: cfg.App.Name}).Component("sweep")

	if cfg.DB.Driver == config.DriverMemory {
		log.Fatal().Msg("el barrido necesita DB_DRIVER=postgres")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Sweep.Timeout)
	defer cancel()

	svc, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar servicios")
	}
	defer svc.Close()

	asOf := svc.Clock.Today()
	if *asOfFlag != "" {
		if asOf, err = civil.ParseDate(*asOfFlag); err != nil {
			log.Fatal().Err(err).Str("as_of", *asOfFlag).Msg("fecha inválida")
		}
	}

	report, err := svc.Engine.Sweep(ctx, asOf)
	if err != nil {
		log.Fatal().Err(err).Msg("barrido fallido")
	}
	for _, f := range report.Failures {
		log.Error().Err(f.Err).Str("series_id", f.SeriesID).Msg("serie sin generar")
	}
	if len(report.Failures) > 0 {
		svc.Close()
		os.Exit(1)
	}
}
