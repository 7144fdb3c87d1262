// Command press-sensor watches push buttons on GPIO, classifies each press as
// short or long and publishes the result. A long press on a sleep-enabled
// button puts the system into suspend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/press-sensor/internal/button"
	"github.com/sweeney/press-sensor/internal/clock"
	"github.com/sweeney/press-sensor/internal/config"
	"github.com/sweeney/press-sensor/internal/gpio"
	"github.com/sweeney/press-sensor/internal/mqtt"
	"github.com/sweeney/press-sensor/internal/obs"
	"github.com/sweeney/press-sensor/internal/power"
	"github.com/sweeney/press-sensor/internal/status"
	"github.com/sweeney/press-sensor/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults are used when empty)")
	printState := flag.Bool("print-state", false, "Print current button levels and exit")

	var o config.FlagOverrides
	stringFlag(&o.Broker, "broker", "MQTT broker address (empty to disable)")
	stringFlag(&o.HTTPAddr, "http", "HTTP status address (empty to disable)")
	stringFlag(&o.LogLevel, "log-level", "Log level: error, warn, info, debug")
	stringFlag(&o.ClassifyMode, "classify-mode", `Long press detection: "threshold" or "release"`)
	boolFlag(&o.DryRun, "dry-run", "Log instead of suspending on long press")

	flag.Parse()

	cfg, err := loadConfig(*configPath, o)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger := config.NewLogger(os.Stderr, cfg.Logging.Level)
	slog.SetDefault(logger)

	if err := run(cfg, logger, *printState, os.Stdout); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// stringFlag registers a flag that only overrides the config when given.
func stringFlag(dst **string, name, usage string) {
	flag.Func(name, usage, func(v string) error {
		*dst = &v
		return nil
	})
}

func boolFlag(dst **bool, name, usage string) {
	flag.BoolFunc(name, usage, func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = &b
		return nil
	})
}

// loadConfig applies defaults, then the optional file, then flag overrides.
func loadConfig(path string, o config.FlagOverrides) (config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadConfigFile(path); err != nil {
			return config.Config{}, err
		}
	}
	o.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func run(cfg config.Config, logger *slog.Logger, printState bool, stdout io.Writer) error {
	clk := clock.NewMonotonic()

	inputs := make([]gpio.Input, 0, len(cfg.Buttons))
	defer func() {
		for _, in := range inputs {
			in.Close()
		}
	}()
	for _, b := range cfg.Buttons {
		in, err := gpio.Open(cfg.GPIO.Backend, cfg.GPIO.Chip, b.Pin, clk)
		if err != nil {
			return fmt.Errorf("init gpio %s: %w", b.Name, err)
		}
		inputs = append(inputs, in)
	}

	if printState {
		return printLevels(stdout, cfg.Buttons, inputs)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := obs.NewMetrics(reg)

	tracker := status.NewTracker(time.Now(), statusConfig(cfg), buttonInfos(cfg))
	hub := web.NewHub(logger, web.HubConfig{})

	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	var presses *mqtt.AsyncPublisher
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Topic:       cfg.MQTT.Topic,
			SystemTopic: cfg.MQTT.SystemTopic,
			Buffer:      cfg.MQTT.Buffer,
			Logger:      logger,
			OnConnectionChange: func(up bool) {
				tracker.SetMQTTConnected(up)
				metrics.SetMQTTConnected(up)
			},
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		publisher, mqttStatus = p, p
		presses = mqtt.NewAsyncPublisher(p, cfg.MQTT.Buffer, logger)
	}

	var suspender power.Suspender
	if cfg.Sleep.DryRun {
		suspender = power.NewFakeSuspender(logger)
	} else {
		suspender = power.NewSysfsSuspender(cfg.Sleep.StatePath, cfg.Sleep.State, cfg.Sleep.WakeupPath)
	}
	transition := power.NewTransition(cfg.PowerConfig(), clk, suspender, nil, logger)

	sink := &fanout{tracker: tracker, hub: hub, metrics: metrics, logger: logger}
	if presses != nil {
		sink.publisher = presses
	}

	monitors := make([]*button.Monitor, 0, len(inputs))
	for i, bc := range cfg.ButtonConfigs() {
		sleeper := metrics.InstrumentSleeper(bc.Name, transition.ForPin(inputs[i]))
		m, err := button.Register(bc, inputs[i], clk, sink, sleeper, logger)
		if err != nil {
			return fmt.Errorf("register button: %w", err)
		}
		metrics.WatchDetector(bc.Name, m.Detector())
		monitors = append(monitors, m)
	}

	d := &daemon{
		monitors:   monitors,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		heartbeat:  cfg.Heartbeat(),
		logger:     logger,
	}
	d.publishLifecycle("STARTUP", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	for _, m := range monitors {
		m := m
		g.Go(func() error { return m.Run(gctx) })
	}
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	if presses != nil {
		g.Go(func() error {
			presses.Run(gctx)
			return nil
		})
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, hub, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		g.Go(func() error {
			logger.Info("http status server listening", "addr", cfg.HTTP.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	logger.Info("started",
		"buttons", len(monitors),
		"classify_mode", cfg.ClassifyMode,
		"long_press_ms", cfg.Timing.LongPressMS,
		"debounce_ms", cfg.Timing.DebounceMS,
		"broker", cfg.MQTT.Broker,
		"heartbeat", cfg.Heartbeat(),
		"dry_run", cfg.Sleep.DryRun)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	reason := d.runLoop(gctx, time.Now, ticker.C, sigCh)
	cancel()
	err := g.Wait()

	d.publishLifecycle("SHUTDOWN", reason)
	return err
}

func printLevels(w io.Writer, buttons []config.ButtonConfig, inputs []gpio.Input) error {
	for i, b := range buttons {
		pressed, err := inputs[i].Pressed()
		if err != nil {
			return fmt.Errorf("read %s: %w", b.Name, err)
		}
		state := "RELEASED"
		if pressed {
			state = "PRESSED"
		}
		fmt.Fprintf(w, "%s (pin %d): %s\n", b.Name, b.Pin, state)
	}
	return nil
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		PollMs:       int64(cfg.Timing.PollMS),
		DebounceMs:   int64(cfg.Timing.DebounceMS),
		LongPressMs:  int64(cfg.Timing.LongPressMS),
		ClassifyMode: cfg.ClassifyMode,
		HeartbeatMs:  int64(cfg.HeartbeatMS),
		Broker:       cfg.MQTT.Broker,
		HTTPPort:     cfg.HTTP.Addr,
	}
}

func buttonInfos(cfg config.Config) []status.ButtonInfo {
	out := make([]status.ButtonInfo, len(cfg.Buttons))
	for i, b := range cfg.Buttons {
		out[i] = status.ButtonInfo{Name: b.Name, Pin: b.Pin}
	}
	return out
}
