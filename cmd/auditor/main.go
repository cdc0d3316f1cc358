package main

import (
	"context"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ammopy/vmf-audit/internal/access"
	"github.com/ammopy/vmf-audit/internal/audit"
	"github.com/ammopy/vmf-audit/internal/config"
	"github.com/ammopy/vmf-audit/internal/database"
	"github.com/ammopy/vmf-audit/internal/kafka"
	"github.com/ammopy/vmf-audit/internal/loader"
	"github.com/ammopy/vmf-audit/internal/matching"
	"github.com/ammopy/vmf-audit/internal/metrics"
	"github.com/ammopy/vmf-audit/internal/report"
	"github.com/ammopy/vmf-audit/internal/sequence"
)

func main() {
	// .env is a local-development convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		zap.NewExample().Fatal("failed to create logger", zap.Error(err))
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("audit run failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector()

	var server *http.Server
	if cfg.Server.Enabled {
		server = newServer(cfg.Server, logger)
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer shutdownServer(server, logger)
	}

	snapshot, err := loader.NewLoader(logger).LoadSnapshot(cfg.Inputs)
	if err != nil {
		collector.LoaderErrors.Inc()
		return err
	}
	collector.RecordInputRows("vendors", len(snapshot.Vendors))
	collector.RecordInputRows("active_employees", len(snapshot.ActiveEmployees))
	collector.RecordInputRows("terminated_employees", len(snapshot.TerminatedEmployees))
	collector.RecordInputRows("purchase_orders", len(snapshot.PurchaseOrders))
	collector.RecordInputRows("access_rights", len(snapshot.AccessRights))

	matcher, err := matching.NewMatcher(cfg.Matching, logger)
	if err != nil {
		return err
	}
	pipeline := audit.NewPipeline(
		cfg,
		matching.NewEngine(matcher, cfg.Matching, logger),
		access.NewDetector(cfg.Anomaly, cfg.Matching.CloseMatchThreshold, logger),
		sequence.NewDetector(logger),
		collector,
		logger,
	)

	findings, err := pipeline.Run(ctx, snapshot)
	if err != nil {
		return err
	}

	if err := report.NewWriter(logger).Write(findings, cfg.Report.OutputPath); err != nil {
		collector.ReportErrors.Inc()
		return err
	}
	collector.ReportsWritten.Inc()

	if cfg.Database.Enabled {
		repo, err := database.NewRepository(cfg.Database, logger)
		if err != nil {
			collector.DatabaseErrors.Inc()
			return err
		}
		defer repo.Close()
		if err := repo.Migrate(); err != nil {
			collector.DatabaseErrors.Inc()
			return err
		}
		if err := repo.SaveRun(ctx, findings); err != nil {
			collector.DatabaseErrors.Inc()
			return err
		}
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, logger)
		defer producer.Close()
		if err := producer.PublishFindings(ctx, findings); err != nil {
			collector.KafkaErrors.Inc()
			return err
		}
		collector.KafkaMessagesPublished.Inc()
	}

	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

func newServer(cfg config.ServerConfig, logger *zap.Logger) *http.Server {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	logger.Info("metrics server listening", zap.Int("port", cfg.HTTPPort))
	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

func shutdownServer(server *http.Server, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("metrics server shutdown failed", zap.Error(err))
	}
}
