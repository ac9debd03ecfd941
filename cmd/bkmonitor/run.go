// cmd/bkmonitor/run.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/loopholelabs/logging"
	"github.com/loopholelabs/logging/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tamzrod/battery-monitor/internal/battery"
	"github.com/tamzrod/battery-monitor/internal/config"
	"github.com/tamzrod/battery-monitor/internal/metrics"
	"github.com/tamzrod/battery-monitor/internal/monitor"
	"github.com/tamzrod/battery-monitor/internal/poller"
	"github.com/tamzrod/battery-monitor/internal/writer"
)

var (
	cmdRun = &cobra.Command{
		Use:   "run <config.yaml>",
		Short: "Poll all configured devices until interrupted",
		Long:  ``,
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}
)

var runDebug bool

func init() {
	rootCmd.AddCommand(cmdRun)
	cmdRun.Flags().BoolVarP(&runDebug, "debug", "d", false, "Debug logging (trace)")
}

var logLevels = map[string]types.Level{
	"trace": types.TraceLevel,
	"debug": types.DebugLevel,
	"info":  types.InfoLevel,
	"warn":  types.WarnLevel,
	"error": types.ErrorLevel,
}

func runRun(_ *cobra.Command, args []string) error {
	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(args[0])
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	log := logging.New(logging.Zerolog, "bkmonitor", os.Stderr)
	log.SetLevel(logLevels[cfg.Monitor.LogLevel])
	if runDebug {
		log.SetLevel(types.TraceLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Metrics
	// --------------------

	var met *metrics.Metrics
	if cfg.Monitor.Metrics.Listen != "" {
		reg := prometheus.NewRegistry()
		met = metrics.New(reg, metrics.DefaultConfig())

		// Add the default go metrics
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv := &http.Server{Addr: cfg.Monitor.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Str("listen", srv.Addr).Msg("metrics endpoint failed")
			}
		}()
		defer srv.Close()

		log.Info().Str("listen", srv.Addr).Msg("metrics endpoint up")
	}

	// --------------------
	// Build per-device pipelines
	// --------------------

	var pipelines []*monitor.Pipeline

	for _, dev := range cfg.Monitor.Devices {
		p, err := poller.Build(dev, log)
		if err != nil {
			return fmt.Errorf("poller build failed (device=%s): %w", dev.ID, err)
		}

		var w writer.Writer
		if len(dev.Targets) > 0 {
			plan, err := writer.BuildPlan(dev)
			if err != nil {
				return fmt.Errorf("writer plan failed (device=%s): %w", dev.ID, err)
			}

			clients, closeWriters, err := writer.BuildEndpointClients(plan, time.Duration(dev.TimeoutMs)*time.Millisecond)
			if err != nil {
				return fmt.Errorf("writer clients failed (device=%s): %w", dev.ID, err)
			}
			defer closeWriters()

			w = writer.New(plan, clients)
		}

		pl, err := monitor.New(
			monitor.Config{
				DeviceID: dev.ID,
				Battery:  dev.BatteryRange(),
				Interval: time.Duration(dev.Poll.IntervalMs) * time.Millisecond,
			},
			p,
			w,
			met,
			log,
		)
		if err != nil {
			return fmt.Errorf("pipeline failed (device=%s): %w", dev.ID, err)
		}
		pipelines = append(pipelines, pl)

		batteryName := dev.Battery.Type
		if preset, ok := battery.Presets[batteryName]; ok {
			batteryName = preset.Name
		}
		r := dev.BatteryRange()

		log.Info().
			Str("device", dev.ID).
			Str("transport", dev.Transport).
			Str("battery", batteryName).
			Float64("voltage_min", r.Min).
			Float64("voltage_max", r.Max).
			Int("targets", len(dev.Targets)).
			Int("interval_ms", dev.Poll.IntervalMs).
			Msg("device configured")
	}

	var wg sync.WaitGroup
	for _, pl := range pipelines {
		wg.Add(1)
		go func(pl *monitor.Pipeline) {
			defer wg.Done()
			pl.Run(ctx)
		}(pl)
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")
	wg.Wait()

	return nil
}
