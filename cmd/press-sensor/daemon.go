package main

import (
	"context"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/press-sensor/internal/button"
	"github.com/sweeney/press-sensor/internal/logic"
	"github.com/sweeney/press-sensor/internal/mqtt"
	"github.com/sweeney/press-sensor/internal/obs"
	"github.com/sweeney/press-sensor/internal/status"
	"github.com/sweeney/press-sensor/internal/web"
)

// fanout delivers each classified press to every consumer. Nil consumers
// are skipped. It runs on the press worker, so every consumer must return
// without waiting on I/O; MQTT goes through an AsyncPublisher.
type fanout struct {
	publisher mqtt.Publisher
	tracker   *status.Tracker
	hub       *web.Hub
	metrics   *obs.Metrics
	logger    *slog.Logger
}

var _ button.Sink = (*fanout)(nil)

func (f *fanout) Emit(_ context.Context, ev logic.PressEvent) {
	if f.tracker != nil {
		f.tracker.RecordPress(ev)
	}
	if f.metrics != nil {
		f.metrics.Observe(ev)
	}
	if f.hub != nil {
		f.hub.BroadcastPress(ev)
	}
	if f.publisher != nil {
		if err := f.publisher.Publish(ev); err != nil {
			f.logger.Error("publish error", "button", ev.Button, "id", ev.ID, "error", err)
		}
	}
}

// daemon owns the periodic status refresh, heartbeat and lifecycle events.
type daemon struct {
	monitors   []*button.Monitor
	publisher  mqtt.Publisher        // may be nil
	mqttStatus mqtt.ConnectionStatus // may be nil
	tracker    *status.Tracker
	heartbeat  time.Duration
	logger     *slog.Logger
}

// runLoop refreshes the tracker on every tick and emits heartbeats until a
// signal arrives or ctx is canceled. It returns the shutdown reason.
func (d *daemon) runLoop(ctx context.Context, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) string {
	hb := logic.NewHeartbeat(now())

	for {
		select {
		case s := <-sig:
			reason := signalName(s)
			d.logger.Info("shutting down", "signal", reason)
			return reason

		case <-ctx.Done():
			d.logger.Info("shutting down", "reason", "worker exited")
			return "ERROR"

		case <-tick:
			d.refresh()
			if hbData := hb.Check(now(), d.heartbeat, d.totalCounts()); hbData != nil {
				d.logger.Info("heartbeat",
					"uptime", hbData.Uptime,
					"short", hbData.Counts.Short,
					"long", hbData.Counts.Long,
					"suppressed", hbData.Counts.Suppressed,
					"dropped", hbData.Counts.Dropped,
					"sleeps", hbData.Counts.Sleeps)
				d.publishLifecycle("HEARTBEAT", "")
			}
		}
	}
}

// refresh copies live levels and counters from the monitors into the tracker.
func (d *daemon) refresh() {
	for _, m := range d.monitors {
		pressed, err := m.Pressed()
		if err != nil {
			d.logger.Debug("level read error", "button", m.Name(), "error", err)
		}
		d.tracker.UpdateButton(m.Name(), pressed, err == nil, m.Counts())
	}
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

func (d *daemon) totalCounts() logic.EventCounts {
	var total logic.EventCounts
	for _, m := range d.monitors {
		total = total.Add(m.Counts())
	}
	return total
}

// publishLifecycle publishes a STARTUP, HEARTBEAT or SHUTDOWN status snapshot.
func (d *daemon) publishLifecycle(event, reason string) {
	if d.publisher == nil {
		return
	}
	d.refresh()
	snap := d.tracker.Snapshot()
	err := d.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   event != "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		d.logger.Error("system event publish failed", "event", event, "error", err)
		return
	}
	d.logger.Debug("published system event", "event", event)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
