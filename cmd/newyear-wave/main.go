// Command newyear-wave follows solar midnight westward across the globe on
// December 31 and publishes the arrival of the new year to MQTT, Telegram,
// an HTTP status page and an indicator LED.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloudeng.io/errors"
	"github.com/sweeney/newyear-wave/internal/clock"
	"github.com/sweeney/newyear-wave/internal/config"
	"github.com/sweeney/newyear-wave/internal/gpio"
	"github.com/sweeney/newyear-wave/internal/locale"
	"github.com/sweeney/newyear-wave/internal/logic"
	"github.com/sweeney/newyear-wave/internal/mqtt"
	"github.com/sweeney/newyear-wave/internal/notify"
	"github.com/sweeney/newyear-wave/internal/scheduler"
	"github.com/sweeney/newyear-wave/internal/status"
	"github.com/sweeney/newyear-wave/internal/wave"
	"github.com/sweeney/newyear-wave/internal/web"
	"go.uber.org/zap"
)

// flags holds command-line values. Flags that were not set leave the
// config file untouched.
type flags struct {
	configPath   string
	httpAddr     string
	broker       string
	interval     time.Duration
	heartbeat    time.Duration
	at           string
	simulateFrom string
	speed        float64
	printState   bool
	set          map[string]bool
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "TOML config file (built-in defaults when empty)")
	flag.StringVar(&f.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")
	flag.StringVar(&f.broker, "broker", "tcp://localhost:1883", "MQTT broker address")
	flag.DurationVar(&f.interval, "interval", time.Second, "Sampling interval")
	flag.DurationVar(&f.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&f.at, "at", "", "Freeze the wave clock at this RFC 3339 instant")
	flag.StringVar(&f.simulateFrom, "simulate-from", "", "Replay the wave from this RFC 3339 instant")
	flag.Float64Var(&f.speed, "speed", 1, "Simulation speed multiplier (with --simulate-from)")
	flag.BoolVar(&f.printState, "print-state", false, "Print the current wave state and exit")
	flag.Parse()

	f.set = map[string]bool{}
	flag.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })

	if err := run(f); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(f flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.set["http"] {
		cfg.Server.HTTPAddr = f.httpAddr
	}
	if f.set["broker"] {
		cfg.MQTT.Broker = f.broker
	}
	if f.set["interval"] {
		cfg.Sampler.Interval = f.interval
	}
	if f.set["heartbeat"] {
		cfg.Sampler.Heartbeat = f.heartbeat
	}
	errs := errors.M{}
	errs.Append(cfg.Validate())
	if f.speed <= 0 {
		errs.Append(fmt.Errorf("--speed must be positive, got %v", f.speed))
	}
	if f.at != "" && f.simulateFrom != "" {
		errs.Append(fmt.Errorf("--at and --simulate-from are mutually exclusive"))
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// selectClock returns the wave clock and its mode name.
func selectClock(f flags, base clock.Clock) (clock.Clock, string, error) {
	switch {
	case f.at != "":
		at, err := time.Parse(time.RFC3339, f.at)
		if err != nil {
			return nil, "", fmt.Errorf("--at: %w", err)
		}
		return clock.Fixed{At: at}, "fixed", nil
	case f.simulateFrom != "":
		origin, err := time.Parse(time.RFC3339, f.simulateFrom)
		if err != nil {
			return nil, "", fmt.Errorf("--simulate-from: %w", err)
		}
		return clock.NewSimulated(base, origin, f.speed), "simulated", nil
	}
	return base, "real", nil
}

func run(f flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err := cfg.Logging.Build()
	if err != nil {
		return err
	}
	defer logger.Sync()

	places, err := cfg.ResolvePlaces()
	if err != nil {
		return err
	}
	waveClock, clockMode, err := selectClock(f, clock.Real{})
	if err != nil {
		return err
	}
	translator, err := locale.New()
	if err != nil {
		return err
	}

	// Print state mode
	if f.printState {
		printState(os.Stdout, translator, cfg.Locale.Default, places, wave.Evaluate(waveClock.Now()))
		return nil
	}

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:     cfg.MQTT.Broker,
		ClientID:   cfg.MQTT.ClientID,
		BufferSize: cfg.MQTT.BufferSize,
	}, logger.Named("mqtt"))
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, logger.Named("telegram"))
		if err != nil {
			logger.Warn("telegram disabled", zap.Error(err))
		} else {
			notifier = tg
		}
	}

	var indicator gpio.Indicator = gpio.Nop{}
	home := -1
	if cfg.GPIO.Enabled {
		led, err := gpio.NewRealIndicator(cfg.GPIO.Chip, cfg.GPIO.Pin)
		if err != nil {
			publisher.Close()
			return fmt.Errorf("init gpio: %w", err)
		}
		indicator = led
		home = placeIndex(places, cfg.GPIO.Home)
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		IntervalMs:  cfg.Sampler.Interval.Milliseconds(),
		HeartbeatMs: cfg.Sampler.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.Server.HTTPAddr,
		ClockMode:   clockMode,
		Speed:       simulatedSpeed(clockMode, f.speed),
	})
	initial := wave.Evaluate(waveClock.Now())
	tracker.Update(initial, logic.ViewPlaces(places, initial), false, logic.EventCounts{})

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		logger.Warn("failed to publish startup event", zap.Error(err))
	} else {
		logger.Info("published startup event")
	}

	// Start HTTP status server
	var srv *web.Server
	if cfg.Server.HTTPAddr != "" {
		srv = web.New(web.Options{
			Addr:        cfg.Server.HTTPAddr,
			Tracker:     tracker,
			Translator:  translator,
			Clock:       waveClock,
			Places:      places,
			DefaultLang: cfg.Locale.Default,
			Log:         logger.Named("http"),
		})
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("http server error", zap.Error(err))
			}
		}()
		logger.Info("http status server listening", zap.String("addr", cfg.Server.HTTPAddr))
	}

	ticker, err := startTicker(waveClock, cfg.Sampler.Interval, logger.Named("scheduler"), srv, indicator, publisher)
	if err != nil {
		return err
	}

	logger.Info("started",
		zap.String("clock", clockMode),
		zap.Duration("interval", cfg.Sampler.Interval),
		zap.Duration("heartbeat", cfg.Sampler.Heartbeat),
		zap.String("broker", cfg.MQTT.Broker),
		zap.Int("places", len(places)))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	loopErr := runLoop(loopDeps{
		detector:   logic.NewDetector(places, time.Now()),
		publisher:  publisher,
		mqttStatus: publisher,
		notifier:   notifier,
		indicator:  indicator,
		home:       home,
		tracker:    tracker,
		translator: translator,
		lang:       cfg.Locale.Default,
		heartbeat:  cfg.Sampler.Heartbeat,
		now:        time.Now,
		log:        logger,
	}, ticker.C, sigCh)

	ticker.Stop()
	return shutdown(loopErr, srv, indicator, publisher)
}

// startTicker starts sampling. On failure it releases what run has
// already acquired.
func startTicker(clk clock.Clock, interval time.Duration, log *zap.Logger, srv *web.Server, indicator gpio.Indicator, publisher mqtt.Publisher) (*scheduler.Ticker, error) {
	ticker, err := scheduler.NewTicker(clk, interval, log)
	if err != nil {
		return nil, shutdown(err, srv, indicator, publisher)
	}
	return ticker, nil
}

// shutdown releases everything run acquired, reporting all failures.
func shutdown(loopErr error, srv *web.Server, indicator gpio.Indicator, publisher mqtt.Publisher) error {
	errs := errors.M{}
	errs.Append(loopErr)
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs.Append(srv.Shutdown(ctx))
		cancel()
	}
	errs.Append(indicator.Close())
	errs.Append(publisher.Close())
	return errs.Err()
}

func placeIndex(places []logic.Place, name string) int {
	for i, p := range places {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func simulatedSpeed(mode string, speed float64) float64 {
	if mode != "simulated" {
		return 0
	}
	return speed
}

// printState writes a one-shot summary of state.
func printState(w io.Writer, tr *locale.Translator, lang string, places []logic.Place, state wave.State) {
	t := state.Transition
	fmt.Fprintf(w, "%s: %s\n", state.Instant.Format(time.RFC3339), tr.Phase(lang, t.Phase, t.Year))
	switch t.Phase {
	case wave.Before:
		fmt.Fprintln(w, tr.Countdown(lang, t.Countdown))
	case wave.During:
		fmt.Fprintf(w, "%s: %.2f%%  %s: %.4f°\n",
			tr.Text(lang, locale.MsgLabelCover, nil), t.Coverage,
			tr.Text(lang, locale.MsgLabelMid, nil), state.MidnightLon)
		fmt.Fprintln(w, tr.Band(lang, state.Band))
	}
	yes, no := tr.Text(lang, locale.MsgLabelYes, nil), tr.Text(lang, locale.MsgLabelNo, nil)
	for _, v := range logic.ViewPlaces(places, state) {
		mark := no
		if v.InNewYear {
			mark = yes
		}
		fmt.Fprintf(w, "  %-16s %s  %s  %s\n", v.Place.Name,
			v.Arrival.Format("2006-01-02 15:04:05Z"),
			v.LocalArrival.Format("2006-01-02 15:04 MST"), mark)
	}
}
