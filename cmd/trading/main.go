package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/config"
	"github.com/wyfcoding/pkg/database"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/metrics"
	"golang.org/x/sync/errgroup"

	contractapp "github.com/wyfcoding/commoditytrading/internal/contract/application"
	contractdomain "github.com/wyfcoding/commoditytrading/internal/contract/domain"
	contractmysql "github.com/wyfcoding/commoditytrading/internal/contract/infrastructure/persistence/mysql"
	contracthttp "github.com/wyfcoding/commoditytrading/internal/contract/interfaces/http"
	exposureapp "github.com/wyfcoding/commoditytrading/internal/exposure/application"
	exposurehttp "github.com/wyfcoding/commoditytrading/internal/exposure/interfaces/http"
	marketdataapp "github.com/wyfcoding/commoditytrading/internal/marketdata/application"
	mddomain "github.com/wyfcoding/commoditytrading/internal/marketdata/domain"
	mdmessaging "github.com/wyfcoding/commoditytrading/internal/marketdata/infrastructure/messaging"
	mdmysql "github.com/wyfcoding/commoditytrading/internal/marketdata/infrastructure/persistence/mysql"
	mdhttp "github.com/wyfcoding/commoditytrading/internal/marketdata/interfaces/http"
	matchingapp "github.com/wyfcoding/commoditytrading/internal/matching/application"
	matchingdomain "github.com/wyfcoding/commoditytrading/internal/matching/domain"
	matchingmessaging "github.com/wyfcoding/commoditytrading/internal/matching/infrastructure/messaging"
	matchingmysql "github.com/wyfcoding/commoditytrading/internal/matching/infrastructure/persistence/mysql"
	matchinghttp "github.com/wyfcoding/commoditytrading/internal/matching/interfaces/http"
	mtmapp "github.com/wyfcoding/commoditytrading/internal/mtm/application"
	mtmdomain "github.com/wyfcoding/commoditytrading/internal/mtm/domain"
	mtmmessaging "github.com/wyfcoding/commoditytrading/internal/mtm/infrastructure/messaging"
	mtmmysql "github.com/wyfcoding/commoditytrading/internal/mtm/infrastructure/persistence/mysql"
	mtmhttp "github.com/wyfcoding/commoditytrading/internal/mtm/interfaces/http"
	pnlapp "github.com/wyfcoding/commoditytrading/internal/pnl/application"
	pnlhttp "github.com/wyfcoding/commoditytrading/internal/pnl/interfaces/http"
	pricingapp "github.com/wyfcoding/commoditytrading/internal/pricing/application"
	pricingdomain "github.com/wyfcoding/commoditytrading/internal/pricing/domain"
	pricingmysql "github.com/wyfcoding/commoditytrading/internal/pricing/infrastructure/persistence/mysql"
	pricinghttp "github.com/wyfcoding/commoditytrading/internal/pricing/interfaces/http"
)

var configPath = flag.String("config", "configs/trading/config.toml", "config file path")

const curvePointTopic = "marketdata.curve.points"

func main() {
	flag.Parse()

	// 1. Config
	var cfg config.Config
	if err := config.Load(*configPath, &cfg); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. Logger
	logger := logging.NewFromConfig(logging.Config{
		Service:    cfg.Server.Name,
		Module:     "trading",
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	slog.SetDefault(logger.Logger)

	// 3. Metrics
	metricsImpl := metrics.NewMetrics(cfg.Server.Name)
	if cfg.Metrics.Enabled {
		stop := metricsImpl.ExposeHttp(cfg.Metrics.Port)
		defer stop()
	}

	// 4. Infrastructure
	db, err := database.NewDB(cfg.Data.Database, cfg.CircuitBreaker, logger, metricsImpl)
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}

	if cfg.Server.Environment == "dev" {
		if err := db.RawDB().AutoMigrate(
			&contractdomain.Contract{},
			&contractdomain.Shipment{},
			&contractdomain.Assay{},
			&mddomain.PriceCurve{},
			&mddomain.CurveDataPoint{},
			&pricingdomain.PricingFormula{},
			&pricingdomain.FormulaAdjustment{},
			&matchingdomain.Match{},
			&mtmdomain.MtmRecord{},
		); err != nil {
			slog.Error("failed to migrate database", "error", err)
		}
	}

	// 5. Repositories
	contractRepo := contractmysql.NewContractRepository(db.RawDB())
	shipmentRepo := contractmysql.NewShipmentRepository(db.RawDB())
	assayRepo := contractmysql.NewAssayRepository(db.RawDB())
	curveRepo := mdmysql.NewCurveRepository(db.RawDB())
	curveDataRepo := mdmysql.NewCurveDataRepository(db.RawDB())
	formulaRepo := pricingmysql.NewFormulaRepository(db.RawDB())
	matchRepo := matchingmysql.NewMatchRepository(db.RawDB())
	mtmRepo := mtmmysql.NewMtmRepository(db.RawDB())

	// 6. Messaging
	var matchPublisher matchingapp.EventPublisher
	var mtmPublisher mtmapp.EventPublisher
	kafkaEnabled := len(cfg.MessageQueue.Kafka.Brokers) > 0
	if kafkaEnabled {
		mp := matchingmessaging.NewKafkaPublisher(cfg.MessageQueue.Kafka, "matching.completed")
		defer mp.Close()
		matchPublisher = mp

		vp := mtmmessaging.NewKafkaPublisher(cfg.MessageQueue.Kafka, "mtm.valuation.completed")
		defer vp.Close()
		mtmPublisher = vp
	}

	// 7. Application
	curveService := marketdataapp.NewCurveService(curveRepo, curveDataRepo)
	contractService := contractapp.NewContractService(contractRepo, shipmentRepo)
	shipmentService := contractapp.NewShipmentService(contractRepo, shipmentRepo, assayRepo)
	formulaService := pricingapp.NewFormulaService(formulaRepo, curveService, slog.Default())
	pricingEngine := pricingapp.NewPricingEngine(formulaRepo, contractRepo, shipmentRepo, assayRepo, curveService, slog.Default())
	matchingService := matchingapp.NewMatchingService(matchRepo, contractRepo, shipmentRepo, matchPublisher, slog.Default())
	mtmService := mtmapp.NewMtmService(mtmRepo, contractRepo, shipmentRepo, formulaRepo, curveService, mtmPublisher, slog.Default())
	pnlService := pnlapp.NewPnlService(contractRepo, shipmentRepo, matchRepo, mtmRepo, slog.Default())
	exposureService := exposureapp.NewExposureService(contractRepo, shipmentRepo, formulaRepo, curveService, slog.Default())

	// 8. Interfaces
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	contracthttp.NewHandler(contractService, shipmentService).RegisterRoutes(api)
	mdhttp.NewHandler(curveService).RegisterRoutes(api)
	pricinghttp.NewHandler(formulaService, pricingEngine).RegisterRoutes(api)
	matchinghttp.NewHandler(matchingService).RegisterRoutes(api)
	mtmhttp.NewHandler(mtmService).RegisterRoutes(api)
	pnlhttp.NewHandler(pnlService).RegisterRoutes(api)
	exposurehttp.NewHandler(exposureService).RegisterRoutes(api)

	// 9. Start
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(rootCtx)

	addr := fmt.Sprintf(":%d", cfg.Server.HTTP.Port)
	server := &http.Server{Addr: addr, Handler: r}
	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if kafkaEnabled {
		consumer := mdmessaging.NewPricePointConsumer(cfg.MessageQueue.Kafka, curvePointTopic, curveService)
		g.Go(func() error {
			defer consumer.Close()
			slog.Info("curve point consumer starting", "topic", curvePointTopic)
			return consumer.Run(ctx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down servers...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}
