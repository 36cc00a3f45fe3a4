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

	"github.com/rs/zerolog"

	"github.com/KurtDue/iono-pi-access-control/internal/api"
	"github.com/KurtDue/iono-pi-access-control/internal/core/domain"
	"github.com/KurtDue/iono-pi-access-control/internal/core/ports"
	"github.com/KurtDue/iono-pi-access-control/internal/core/service"
	"github.com/KurtDue/iono-pi-access-control/internal/door"
	"github.com/KurtDue/iono-pi-access-control/internal/hardware"
	"github.com/KurtDue/iono-pi-access-control/internal/infrastructure/config"
	"github.com/KurtDue/iono-pi-access-control/internal/infrastructure/db/sqlite"
	"github.com/KurtDue/iono-pi-access-control/internal/scanner"
	"github.com/KurtDue/iono-pi-access-control/internal/verify"
	"github.com/KurtDue/iono-pi-access-control/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	if cfg.Security.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}
	if cfg.Verifier.BaseURL == "" {
		log.Fatal().Msg("VERIFY_BASE_URL must be set")
	}

	// --- Storage ---
	db, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.DB.Path})
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DB.Path).Msg("open database")
	}
	defer db.Close()

	writer := sqlite.NewWriter(db)
	defer writer.Close()

	auditStore := sqlite.NewAuditStore(db, writer)
	operatorStore := sqlite.NewOperatorStore(db, writer)

	// --- Auth ---
	authService := service.NewAuthService(
		operatorStore, cfg.Security.JWTSecret, cfg.Security.TokenTTL, log)
	if err := authService.Seed(ctx, cfg.Security.AdminUsername, cfg.Security.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("seed admin operator")
	}

	// --- Hardware and door controller ---
	hw, err := buildHardware(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Hardware.Driver).Msg("init hardware")
	}
	defer hw.Close()

	doorCtrl := door.NewController(door.Config{
		DefaultDuration:      cfg.Door.UnlockDuration,
		MaxDuration:          cfg.Door.MaxDuration,
		OverrideDuration:     cfg.Door.OverrideDuration,
		HeldOpenGrace:        cfg.Door.HeldOpenGrace,
		SensorPoll:           cfg.Door.SensorPoll,
		SensorNormallyClosed: cfg.Door.SensorNormallyClosed,
	}, hw, log)
	doorCtrl.Start(ctx)

	// --- Engine ---
	verifier := verify.NewClient(verify.Config{
		BaseURL:   cfg.Verifier.BaseURL,
		Endpoint:  cfg.Verifier.Endpoint,
		AuthToken: cfg.Verifier.AuthToken,
		Timeout:   cfg.Verifier.Timeout,
		DeviceID:  cfg.Verifier.DeviceID,
	}, log)
	engine := service.NewAccessEngine(verifier, doorCtrl, auditStore, log)

	// --- Input sources ---
	var stream *scanner.Stream
	if cfg.Scanner.Enabled {
		stream = scanner.NewStream(scanner.Config{
			Device:   cfg.Scanner.Device,
			BaudRate: cfg.Scanner.BaudRate,
			Prefix:   cfg.Scanner.Prefix,
			Suffix:   cfg.Scanner.Suffix,
			Backoff:  cfg.Scanner.Backoff,
		}, log)
		go stream.Run(ctx, func(cred domain.Credential) {
			if _, err := engine.HandleCredential(ctx, cred); err != nil {
				log.Error().Err(err).Msg("handle scanned credential")
			}
		})
	}

	overrideWatcher := hardware.NewOverrideWatcher(hw, func() {
		if err := engine.HandleOverride(ctx); err != nil {
			log.Error().Err(err).Msg("emergency override rejected")
		}
	}, log)
	go overrideWatcher.Run(ctx)

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Engine:         engine,
		Auth:           authService,
		Door:           doorCtrl,
		Audit:          auditStore,
		JWTSecret:      cfg.Security.JWTSecret,
		TokenTTL:       cfg.Security.TokenTTL,
		ScannerEnabled: cfg.Scanner.Enabled,
		ScannerConnected: func() bool {
			return stream != nil && stream.Connected()
		},
		DeviceID: cfg.Verifier.DeviceID,
		Log:      log,
	})

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("http server listening")
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	// Let the door controller de-energize the relay before the process exits.
	select {
	case <-doorCtrl.Done():
	case <-shutdownCtx.Done():
	}
}

// buildHardware selects the HAL implementation from configuration.
func buildHardware(cfg *config.Config, log zerolog.Logger) (ports.Hardware, error) {
	switch cfg.Hardware.Driver {
	case "gpio":
		return hardware.NewGPIO(hardware.GPIOConfig{
			Chip: cfg.Hardware.Chip,
			RelayPins: map[ports.RelayID]int{
				ports.RelayDoor:      cfg.Hardware.RelayDoorPin,
				ports.RelayAuxiliary: cfg.Hardware.RelayAuxiliaryPin,
			},
			InputPins: map[ports.InputID]int{
				ports.InputDoorSensor: cfg.Hardware.DoorSensorPin,
				ports.InputOverride:   cfg.Hardware.OverridePin,
			},
		}, log)
	case "sim":
		return hardware.NewSim(log), nil
	default:
		return nil, fmt.Errorf("unknown hardware driver %q", cfg.Hardware.Driver)
	}
}
