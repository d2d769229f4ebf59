package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/antimetal/timeline-agent/internal/coordinator"
	"github.com/antimetal/timeline-agent/internal/nodeservice"
	"github.com/antimetal/timeline-agent/internal/webservice"
	"github.com/antimetal/timeline-agent/pkg/config"
	"github.com/antimetal/timeline-agent/pkg/timeline"
	"github.com/antimetal/timeline-agent/pkg/timeline/store"
)

var (
	setupLog logr.Logger
	rootLog  logr.Logger

	// CLI Options
	configFile      string
	webAddr         string
	coordinatorAddr string
	storagePath     string
	logLevel        string
)

func init() {
	flag.StringVar(&configFile, "config", "",
		"Path to the agent config file. Flags override file values when set")
	flag.StringVar(&webAddr, "web-bind-address", "",
		"The address the timeline endpoint binds to. Use port 0 for an ephemeral port")
	flag.StringVar(&coordinatorAddr, "coordinator-address", "",
		"The address of the collector coordinator service")
	flag.StringVar(&storagePath, "storage-path", "",
		"Directory for the timeline entity store. Empty runs the store in memory")
	flag.StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error)")
	flag.Parse()
}

func buildLogger(level string) (logr.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return logr.Logger{}, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zapLevel)
	z, err := zcfg.Build()
	if err != nil {
		return logr.Logger{}, err
	}
	return zapr.NewLogger(z), nil
}

func main() {
	cfg, err := config.Load(configFile)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	if webAddr != "" {
		cfg.Web.Addr = webAddr
	}
	if coordinatorAddr != "" {
		cfg.Coordinator.Address = coordinatorAddr
	}
	if storagePath != "" {
		cfg.Storage.Path = storagePath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	rootLog, err = buildLogger(cfg.Log.Level)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	setupLog = rootLog.WithName("setup")
	setupLog.Info("starting timeline agent", "node", cfg.NodeName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	entityStore, err := store.New(cfg.Storage.Path)
	if err != nil {
		setupLog.Error(err, "unable to open entity store", "path", cfg.Storage.Path)
		os.Exit(1)
	}
	defer entityStore.Close()

	conn, err := grpc.NewClient(cfg.Coordinator.Address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		setupLog.Error(err, "unable to connect to coordinator", "address", cfg.Coordinator.Address)
		os.Exit(1)
	}
	defer conn.Close()

	notifier, err := coordinator.New(
		coordinator.WithGRPCConn(conn),
		coordinator.WithLogger(rootLog),
		coordinator.WithReportTimeout(cfg.Coordinator.ReportTimeout),
	)
	if err != nil {
		setupLog.Error(err, "unable to create coordinator client")
		os.Exit(1)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mgr, err := timeline.NewManager(rootLog,
		timeline.WithNotifier(notifier),
		timeline.WithMetricsRegistry(promReg),
	)
	if err != nil {
		setupLog.Error(err, "unable to create collector manager")
		os.Exit(1)
	}
	if err := mgr.Init(timeline.CollectionConfig{
		Store:        entityStore,
		BufferSize:   cfg.Collector.BufferSize,
		FlushTimeout: cfg.Collector.FlushTimeout,
	}); err != nil {
		setupLog.Error(err, "unable to init collector manager")
		os.Exit(1)
	}

	nodeSvc, err := nodeservice.New(nodeservice.Options{
		Logger:   rootLog,
		Registry: mgr,
		Linger:   cfg.Collector.RemovalLinger,
	})
	if err != nil {
		setupLog.Error(err, "unable to create node service")
		os.Exit(1)
	}

	web, err := webservice.New(webservice.Config{
		Addr:            cfg.Web.Addr,
		ReadTimeout:     cfg.Web.ReadTimeout,
		WriteTimeout:    cfg.Web.WriteTimeout,
		IdleTimeout:     cfg.Web.IdleTimeout,
		ShutdownTimeout: cfg.Web.ShutdownTimeout,
	}, mgr, nodeSvc, promReg, rootLog)
	if err != nil {
		setupLog.Error(err, "unable to create web service")
		os.Exit(1)
	}
	mgr.SetRestServer(web)

	if err := mgr.Start(ctx); err != nil {
		setupLog.Error(err, "unable to start collector manager")
		os.Exit(1)
	}
	setupLog.Info("timeline agent running", "address", mgr.BindAddress())

	<-ctx.Done()
	setupLog.Info("shutting down")
	nodeSvc.Stop()
	if err := mgr.Stop(); err != nil {
		setupLog.Error(err, "problems during shutdown")
	}
}
