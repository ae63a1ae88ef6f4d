package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/tdeslauriers/cantor/internal/cantor"
	"github.com/tdeslauriers/cantor/internal/config"
	"github.com/tdeslauriers/cantor/internal/util"
)

func main() {

	// set logging to json format for application
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(jsonHandler).
		With(slog.String(util.ServiceKey, util.ServiceCantor)))

	// create a logger for the main package
	logger := slog.Default().
		With(slog.String(util.PackageKey, util.PackageMain)).
		With(slog.String(util.ComponentKey, util.ComponentMain))

	cfg, err := config.Load()
	if err != nil {
		logger.Error(fmt.Sprintf("failed to load %s service config", util.ServiceCantor), "err", err.Error())
		os.Exit(1)
	}

	svc, err := cantor.New(cfg)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to create %s service", util.ServiceCantor), "err", err.Error())
		os.Exit(1)
	}

	defer svc.Close()

	if err := svc.Run(); err != nil {
		logger.Error(fmt.Sprintf("failed to run %s service", util.ServiceCantor), "err", err.Error())
		os.Exit(1)
	}
}
