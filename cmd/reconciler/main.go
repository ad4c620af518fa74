package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codejudge/internal/common/db"
	"codejudge/internal/common/mq"
	submissionrepo "codejudge/internal/submission/repository"
	"codejudge/internal/submission/service"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultConfigPath = "configs/reconciler.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	mysqlDB, err := db.NewMySQL(&appCfg.Database)
	if err != nil {
		logger.Error(context.Background(), "init database failed", zap.Error(err))
		return
	}
	defer func() {
		_ = mysqlDB.Close()
	}()

	mqClient, err := mq.NewKafkaQueue(appCfg.Kafka)
	if err != nil {
		logger.Error(context.Background(), "init kafka failed", zap.Error(err))
		return
	}
	defer func() {
		_ = mqClient.Close()
	}()

	declareCtx, declareCancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = mqClient.DeclareTopics(declareCtx, appCfg.Consumer.Topic, appCfg.Consumer.DeadLetterTopic)
	declareCancel()
	if err != nil {
		logger.Error(context.Background(), "declare topics failed", zap.Error(err))
		return
	}

	submissionRepo := submissionrepo.NewSubmissionRepository(mysqlDB)
	reconcileService := service.NewReconcileService(submissionRepo)

	consumerOpts := appCfg.Consumer.toSubscribeOptions()
	consumerOpts.SetDefaults()
	if err := mqClient.SubscribeWithOptions(context.Background(), appCfg.Consumer.Topic, reconcileService.HandleResult, &consumerOpts); err != nil {
		logger.Error(context.Background(), "subscribe result topic failed", zap.Error(err))
		return
	}
	if err := mqClient.Start(); err != nil {
		logger.Error(context.Background(), "start kafka consumer failed", zap.Error(err))
		return
	}

	logger.Info(context.Background(), "reconciler started",
		zap.String("topic", appCfg.Consumer.Topic),
		zap.String("group", appCfg.Consumer.ConsumerGroup),
		zap.Int("concurrency", appCfg.Consumer.Concurrency),
	)

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-shutdownCtx.Done()

	logger.Info(context.Background(), "shutdown signal received")
	_ = mqClient.Stop()
}
