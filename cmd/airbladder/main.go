package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/airbladder/audio"
	"github.com/lixenwraith/airbladder/config"
	"github.com/lixenwraith/airbladder/core"
	"github.com/lixenwraith/airbladder/device"
	"github.com/lixenwraith/airbladder/engine"
	"github.com/lixenwraith/airbladder/host"
	"github.com/lixenwraith/airbladder/persistence"
	"github.com/lixenwraith/airbladder/service"
)

var (
	configPath   = flag.String("config", "", "Path to a TOML or YAML config file")
	debugFlag    = flag.Bool("debug", false, "Write logs to logs/airbladder.log in interactive mode")
	headlessFlag = flag.Bool("headless", false, "Run a scripted dive on the console instead of the terminal UI")
	durationFlag = flag.Duration("duration", 30*time.Second, "Simulated length of the headless dive")
	parallelFlag = flag.Bool("parallel", false, "Tick devices on separate goroutines")
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			core.HandleCrash(r)
		}
	}()

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "airbladder: %v\n", err)
		os.Exit(1)
	}

	if *headlessFlag {
		os.Exit(runHeadless(cfg))
	}
	os.Exit(runInteractive(cfg))
}

// services is the started service set shared by both modes
type services struct {
	hub     *service.Hub
	storage *persistence.StorageService
	audio   *audio.AudioService
}

func startServices(cfg *config.Config, logger *slog.Logger) (*services, error) {
	s := &services{
		hub:     service.NewHub(logger),
		storage: persistence.NewService(cfg.Storage, logger),
		audio:   audio.NewService(cfg.Audio, logger),
	}
	for _, svc := range []service.Service{s.storage, s.audio} {
		if err := s.hub.Register(svc); err != nil {
			return nil, err
		}
	}
	if err := s.hub.InitAll(); err != nil {
		return nil, fmt.Errorf("initializing services: %w", err)
	}
	if err := s.hub.StartAll(); err != nil {
		s.hub.StopAll()
		return nil, fmt.Errorf("starting services: %w", err)
	}
	return s, nil
}

// player returns the sound bank as a device player, nil when audio is off
func (s *services) player() device.Player {
	if b := s.audio.Bank(); b != nil {
		return b
	}
	return nil
}

func (s *services) newManager(cfg *config.Config, overlays engine.OverlayFactory, logger *slog.Logger) *engine.Manager {
	return engine.NewManager(engine.Options{
		Config:   cfg,
		Store:    s.storage.Store(),
		Player:   s.player(),
		Overlays: overlays,
		Logger:   logger,
		Parallel: *parallelFlag,
	})
}

func runHeadless(cfg *config.Config) int {
	logger := consoleLogger(cfg.Logging, color.Output)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	svc, err := startServices(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	defer svc.hub.StopAll()

	vehicles, err := loadFleet(ctx, svc.storage.Backend())
	if err != nil {
		logger.Error("fleet unavailable", "error", err)
		return 1
	}

	m := svc.newManager(cfg, nil, logger)
	defer m.Close()
	for _, v := range vehicles {
		m.AddVehicle(v)
	}

	diver, err := pickDiver(m, vehicles)
	if err != nil {
		logger.Error("no vehicle can dive", "error", err)
		return 1
	}

	logger.Info("dive starting", "vehicle", diver.Name(), "y", diver.Y(), "duration", durationFlag.String())
	report, err := runDive(ctx, m, diver, *durationFlag, logger)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("dive failed", "error", err)
		return 1
	}
	if err := saveFleet(context.Background(), svc.storage.Backend(), vehicles); err != nil {
		logger.Error("saving fleet failed", "error", err)
		return 1
	}

	logger.Info("dive complete",
		"ticks", report.Ticks,
		"surfaced", report.Surfaced,
		"max_y", fmt.Sprintf("%.2f", report.MaxY),
		"remaining", fmt.Sprintf("%.1f", report.Remaining),
	)
	return 0
}

// pickDiver returns the first vehicle carrying a bladder, fitting one into the first free slot otherwise
func pickDiver(m *engine.Manager, vehicles []*host.Vehicle) (*host.Vehicle, error) {
	for _, v := range vehicles {
		if bladderSlot(v) >= 0 {
			return v, nil
		}
	}
	var errs []error
	for _, v := range vehicles {
		eq := v.Equipment()
		for i := 0; i < eq.Len(); i++ {
			if _, used := eq.At(i); used {
				continue
			}
			err := m.Install(v.ID(), i)
			if err == nil {
				return v, nil
			}
			errs = append(errs, err)
		}
	}
	errs = append(errs, fmt.Errorf("%d vehicles, no free slot", len(vehicles)))
	return nil, errors.Join(errs...)
}

func runInteractive(cfg *config.Config) int {
	logger, logFile := setupLogging(*debugFlag, parseLevel(cfg.Logging.Level))
	if logFile != nil {
		defer logFile.Close()
	}
	slog.SetDefault(logger)

	svc, err := startServices(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "airbladder: %v\n", err)
		return 1
	}
	defer svc.hub.StopAll()

	vehicles, err := loadFleet(context.Background(), svc.storage.Backend())
	if err != nil {
		fmt.Fprintf(os.Stderr, "airbladder: %v\n", err)
		return 1
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "airbladder: creating screen: %v\n", err)
		return 1
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "airbladder: initializing screen: %v\n", err)
		return 1
	}
	core.SetCrashTerminal(screen.Fini)

	gauges := newGaugeSet()
	m := svc.newManager(cfg, gauges.overlay, logger)
	for _, v := range vehicles {
		m.AddVehicle(v)
	}

	a := newApp(m, svc.audio.Bank(), svc.storage.Backend(), vehicles, gauges, logger)
	a.start()
	a.loop(screen)
	screen.Fini()

	if err := a.shutdown(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "airbladder: %v\n", err)
		return 1
	}
	return 0
}
