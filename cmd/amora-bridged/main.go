// Command amora-bridged runs the device-side pub/sub bridge against an
// in-memory Fake player.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "go.uber.org/automaxprocs"

	"amora/internal/bridge"
	"amora/internal/config"
	"amora/internal/envelope"
	"amora/internal/logging"
	"amora/internal/metrics"
	"amora/internal/player"
	"amora/internal/transport"
)

func main() {
	bootLog := logging.New(logging.Options{Level: "info"})
	bootLog.Info().Int("gomaxprocs", runtime.GOMAXPROCS(0)).Msg("starting amora-bridged")

	cfg, err := config.Load(&bootLog)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logging.New(logging.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	metricsReg := metrics.NewRegistry(reg, "amora")

	sampler, err := metrics.NewSystemSampler(reg, "amora")
	if err != nil {
		log.Warn().Err(err).Msg("process sampler unavailable")
	}

	ns := cfg.Namespace()
	p := player.NewFake()

	lwt, err := envelope.EncodeConnection(envelope.ConnectionEnvelope{
		Status:    envelope.ConnectionOffline,
		Timestamp: envelope.NowTimestamp(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to encode last-will payload")
	}

	topts := cfg.TransportOptions()
	topts.LastWillTopic = ns.Connection()
	topts.LastWillPayload = lwt
	topts.LastWillQoS = 1
	topts.LastWillRetain = true

	t := transport.NewNatsAdapter(topts, log)

	b := bridge.New(bridge.Config{
		Namespace:      ns,
		WorkerCount:    cfg.WorkerCount,
		Intervals:      cfg.PublisherIntervals(),
		RateLimitHz:    cfg.RateLimitHz,
		RateLimitBurst: cfg.RateLimitBurst,
	}, p, t, log, metricsReg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if sampler != nil {
		go sampler.Run(ctx, cfg.PublisherIntervals().FullUpdate)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- b.Run(ctx) }()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")
	b.Stop()

	if err := <-runErr; err != nil {
		log.Error().Err(err).Msg("bridge exited with error")
	}
	_ = metricsServer.Shutdown(context.Background())
	log.Info().Msg("amora-bridged stopped")
}
