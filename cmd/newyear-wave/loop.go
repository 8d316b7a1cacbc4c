package main

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/newyear-wave/internal/gpio"
	"github.com/sweeney/newyear-wave/internal/locale"
	"github.com/sweeney/newyear-wave/internal/logic"
	"github.com/sweeney/newyear-wave/internal/mqtt"
	"github.com/sweeney/newyear-wave/internal/notify"
	"github.com/sweeney/newyear-wave/internal/status"
	"github.com/sweeney/newyear-wave/internal/wave"
	"go.uber.org/zap"
)

const notifyTimeout = 10 * time.Second

// loopDeps are the collaborators of runLoop.
type loopDeps struct {
	detector   *logic.Detector
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	notifier   notify.Notifier
	indicator  gpio.Indicator
	home       int // index of the place driving the indicator, -1 for none
	tracker    *status.Tracker
	translator *locale.Translator
	lang       string
	heartbeat  time.Duration
	now        func() time.Time // wall clock for heartbeats
	log        *zap.Logger
}

// runLoop evaluates the wave for every instant received on tick until a
// signal arrives. Delivery failures are logged and never stop the loop.
func runLoop(d loopDeps, tick <-chan time.Time, sig <-chan os.Signal) error {
	var (
		filter   mqtt.StateFilter
		lit      bool
		litKnown bool
	)

	for {
		select {
		case s := <-sig:
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			d.log.Info("shutting down", zap.String("signal", signalName))
			event := mqtt.SystemEvent{
				Timestamp: d.now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if d.tracker != nil {
				d.refreshMQTT()
				event.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				d.log.Warn("failed to publish shutdown event", zap.Error(err))
			} else {
				d.log.Info("published shutdown event")
			}
			return nil

		case t := <-tick:
			state := wave.Evaluate(t)
			events := d.detector.Process(state)

			for _, event := range events {
				d.handleEvent(event)
			}

			views := logic.ViewPlaces(d.detector.Places(), state)

			if d.home >= 0 && d.home < len(views) {
				on := views[d.home].InNewYear
				if !litKnown || on != lit {
					if err := d.indicator.Set(on); err != nil {
						d.log.Warn("indicator error", zap.Error(err))
					} else {
						lit, litKnown = on, true
						if d.tracker != nil {
							d.tracker.SetIndicator(on)
						}
					}
				}
			}

			if filter.Changed(state) {
				if err := d.publisher.PublishState(state); err != nil {
					d.log.Warn("state publish error", zap.Error(err))
				}
			}

			// Update status tracker for HTTP consumers
			if d.tracker != nil {
				d.tracker.Update(state, views, d.detector.IsBaselined(), d.detector.EventCountsSnapshot())
				d.refreshMQTT()
			}

			// Check for heartbeat
			if hb := d.detector.CheckHeartbeat(d.now(), d.heartbeat); hb != nil {
				d.log.Info("heartbeat",
					zap.Duration("uptime", hb.Uptime),
					zap.Int("phase_changes", hb.Counts.PhaseChanges),
					zap.Int("arrivals", hb.Counts.Arrivals))
				hbEvent := mqtt.SystemEvent{
					Timestamp: hb.Timestamp,
					Event:     "HEARTBEAT",
				}
				if d.tracker != nil {
					hbEvent.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := d.publisher.PublishSystem(hbEvent); err != nil {
					d.log.Warn("heartbeat publish error", zap.Error(err))
				}
			}
		}
	}
}

func (d loopDeps) refreshMQTT() {
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

// handleEvent publishes event and announces arrivals and completion.
func (d loopDeps) handleEvent(event logic.Event) {
	fields := []zap.Field{
		zap.String("event", string(event.Type)),
		zap.Int("year", event.Year),
		zap.Float64("coverage", event.Coverage),
	}
	if event.Place != nil {
		fields = append(fields, zap.String("place", event.Place.Name))
	}
	d.log.Info("event", fields...)

	if err := d.publisher.Publish(event); err != nil {
		d.log.Warn("publish error", zap.Error(err))
	}

	var text string
	switch event.Type {
	case logic.EventArrival:
		text = d.translator.Arrival(d.lang, event.Place.Name, event.Year)
	case logic.EventPhaseComplete:
		text = d.translator.Phase(d.lang, wave.Complete, event.Year)
	default:
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := d.notifier.Notify(ctx, text); err != nil {
		d.log.Warn("notify error", zap.Error(err))
	}
}
