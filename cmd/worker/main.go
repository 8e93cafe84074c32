// Package main (in worker-subfolder) runs export requests from the jobs topic
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/PhotoWatermark/internal/appconfig"
	"github.com/UnendingLoop/PhotoWatermark/internal/export"
	"github.com/UnendingLoop/PhotoWatermark/internal/imageproc"
	"github.com/UnendingLoop/PhotoWatermark/internal/kafka"
	"github.com/UnendingLoop/PhotoWatermark/internal/repository"
	"github.com/UnendingLoop/PhotoWatermark/internal/service"
	"github.com/UnendingLoop/PhotoWatermark/internal/storage"
	"github.com/UnendingLoop/PhotoWatermark/internal/worker"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig, settings, err := appconfig.Load(envFile())
	if err != nil {
		log.Fatalf("Failed to load config: %s\nExiting app...", err)
	}

	zlog.InitConsole()
	if err := zlog.SetLevel(settings.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	if settings.KafkaBroker == "" {
		log.Fatalf("KAFKA_BROKER is empty")
	}

	// Listening to interruptions through context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, dbConn, err := openTemplates(appConfig, settings)
	if err != nil {
		log.Fatalf("Failed to open template storage: %v", err)
	}

	renderer, err := imageproc.NewRenderer(settings.FontCacheSize)
	if err != nil {
		log.Fatalf("Failed to init renderer: %v", err)
	}

	var sink export.ResultSink
	if settings.ExportSink == storage.SinkMinio {
		strg, err := storage.NewResultSink(ctx, appConfig, 10*time.Second)
		if err != nil {
			log.Fatalf("Failed to connect result storage: %v", err)
		}
		sink = strg
	}

	// создаем экземпляр сервиса
	var svc ExportWorkerService = service.NewWatermarkService(repo, renderer, export.NewCoordinator(renderer, settings.ExportWorkers, sink), 0)

	// ждем пока кафка раздуплится
	if err := kafka.WaitKafkaReady(ctx, settings.KafkaBroker, 10*time.Second); err != nil {
		log.Fatalf("Kafka is not available: %v", err)
	}
	if err := kafka.InitKafkaTopics(ctx, settings.KafkaBroker, 10*time.Second, settings.JobsTopic, settings.ReportsTopic); err != nil {
		log.Fatalf("Failed to init topics: %v", err)
	}

	// подключиться к кафке как читатель заданий и как продюсер отчетов
	queue := make(chan kafkago.Message)
	retryStrategy := retry.Strategy{
		Attempts: 5,
		Delay:    2 * time.Second,
		Backoff:  1.5,
	}
	cons := wbfkafka.NewConsumer([]string{settings.KafkaBroker}, settings.JobsTopic, settings.GroupID)
	pub := wbfkafka.NewProducer([]string{settings.KafkaBroker}, settings.ReportsTopic)

	cons.StartConsuming(ctx, queue, retryStrategy)

	// Собираем воедино все что нужно воркеру и запускаем его
	exporter := worker.NewWorkerInstance(svc, pub, queue, cons)
	go exporter.StartWorker(ctx)

	// Waiting for interruption to stop context to start Graceful shutdown
	<-ctx.Done()

	shutdown(cons, pub, dbConn)
	zlog.Logger.Info().Msg("Exiting worker...")
}

func envFile() string {
	if _, err := os.Stat("./.env"); err != nil {
		return ""
	}
	return "./.env"
}

func openTemplates(appConfig *config.Config, s appconfig.Settings) (repository.TemplateRepo, *dbpg.DB, error) {
	if s.TemplateBackend != repository.BackendPostgres {
		repo, err := repository.NewFileTemplateRepo(s.TemplateDir)
		return repo, nil, err
	}

	dbConn, err := repository.ConnectWithRetries(appConfig, 5, 10*time.Second)
	if err != nil {
		return nil, nil, err
	}
	if err := repository.MigrateWithRetries(dbConn.Master, "./migrations", 10, 15*time.Second); err != nil {
		return nil, nil, err
	}
	return repository.NewPostgresTemplateRepo(dbConn), dbConn, nil
}

func shutdown(cons *wbfkafka.Consumer, pub *wbfkafka.Producer, dbConn *dbpg.DB) {
	zlog.Logger.Info().Msg("Interrupt received!!! Starting shutdown sequence...")

	// Closing Kafka connections:
	if err := cons.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close Kafka-reader")
	}
	if err := pub.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close Kafka-writer")
	}
	zlog.Logger.Info().Msg("Kafka connections closed.")

	if dbConn == nil {
		return
	}
	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close DB-conn correctly")
		return
	}
	zlog.Logger.Info().Msg("DBconn closed")
}
