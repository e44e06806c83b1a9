package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/remiges-tech/phonecomplete"
	"github.com/remiges-tech/phonecomplete/internal/rpc"
	_ "github.com/remiges-tech/phonecomplete/sources/bolt"
	_ "github.com/remiges-tech/phonecomplete/sources/elasticsearch"
	_ "github.com/remiges-tech/phonecomplete/sources/redis"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build the index and serve completions",
	Long:  "Builds the phone index from the configured source in the background and serves get_completion, healthcheck and message requests on the configured socket.",
	RunE:  runServe,
}

var metricsAddr string

func init() {
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "override server.metrics_addr (empty disables /metrics)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if metricsAddr != "" {
		cfg.Server.MetricsAddr = metricsAddr
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	pc, err := phonecomplete.New(cfg.Source, phonecomplete.NewConfigWithOptions(cfg.SourceConfig(), cfg.Options(log)))
	if err != nil {
		return err
	}
	defer pc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := rpc.NewServer(pc, cfg.Server.Network, cfg.Server.Addr, log)
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Stop()

	var metrics *http.Server
	if cfg.Server.MetricsAddr != "" {
		metrics = startMetrics(cfg.Server.MetricsAddr, log, cancel)
	}

	// searches are answered with not_ready until the first build completes
	build := pc.Initialize(ctx)
	go func() {
		if err := build.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("initial build failed; the index stays empty until a rebuild succeeds")
		}
	}()

	if every := cfg.Index.RebuildEvery; every > 0 {
		go rebuildLoop(ctx, pc, every, log)
	}

	<-ctx.Done()
	log.Info("shutting down")

	if metrics != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("metrics server shutdown failed")
		}
	}
	return nil
}

// startMetrics serves the Prometheus registry on addr and calls fail if the
// listener dies.
func startMetrics(addr string, log logrus.FieldLogger, fail func()) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reg.MustRegister(phonecomplete.Collectors()...)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
			fail()
		}
	}()
	return srv
}

// rebuildLoop rebuilds the index every interval until ctx is done. A tick
// that finds a build still running is skipped.
func rebuildLoop(ctx context.Context, pc phonecomplete.PhoneComplete, every time.Duration, log logrus.FieldLogger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b := pc.Rebuild(ctx)
			if errors.Is(b.Err(), phonecomplete.ErrBuildInProgress) {
				log.Debug("rebuild skipped, build in progress")
				continue
			}
			log.WithField("build_id", b.ID).Info("scheduled rebuild started")
		}
	}
}
