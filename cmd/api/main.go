// Package main (in api-subfolder) provides launch of the HTTP API
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/PhotoWatermark/internal/appconfig"
	"github.com/UnendingLoop/PhotoWatermark/internal/export"
	"github.com/UnendingLoop/PhotoWatermark/internal/imageproc"
	"github.com/UnendingLoop/PhotoWatermark/internal/mwlogger"
	"github.com/UnendingLoop/PhotoWatermark/internal/repository"
	"github.com/UnendingLoop/PhotoWatermark/internal/service"
	"github.com/UnendingLoop/PhotoWatermark/internal/storage"
	"github.com/UnendingLoop/PhotoWatermark/internal/transport"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig, settings, err := appconfig.Load(envFile())
	if err != nil {
		log.Fatalf("Failed to load config: %s\nExiting app...", err)
	}

	// стартуем логгер
	zlog.InitConsole()
	if err := zlog.SetLevel(settings.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// готовим заранее слушатель прерываний - контекст для всего приложения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// хранилище шаблонов
	repo, dbConn, err := openTemplates(appConfig, settings)
	if err != nil {
		log.Fatalf("Failed to open template storage: %v", err)
	}

	renderer, err := imageproc.NewRenderer(settings.FontCacheSize)
	if err != nil {
		log.Fatalf("Failed to init renderer: %v", err)
	}

	// необязательная выгрузка результатов в minio
	var sink export.ResultSink
	if settings.ExportSink == storage.SinkMinio {
		strg, err := storage.NewResultSink(ctx, appConfig, 10*time.Second)
		if err != nil {
			log.Fatalf("Failed to connect result storage: %v", err)
		}
		sink = strg
	}

	coordinator := export.NewCoordinator(renderer, settings.ExportWorkers, sink)

	// создаем экземпляр сервиса
	var svc WatermarkAPIService = service.NewWatermarkService(repo, renderer, coordinator, settings.PreviewMaxSide)
	// cоздаем экземпляр хендлера HTTP
	handlers := transport.NewWatermarkHandler(svc, settings.PreviewRPS)
	// сетапим сервер
	engine := ginext.New(settings.GinMode)

	engine.GET("/ping", handlers.SimplePinger)
	engine.POST("/preview", handlers.Preview)                  // превью одной картинки
	engine.POST("/exports", handlers.StartExport)              // запуск пакетного экспорта
	engine.GET("/exports/:id", handlers.ExportStatus)          // прогресс
	engine.GET("/exports/:id/report", handlers.ExportReport)   // итоговый отчет
	engine.DELETE("/exports/:id", handlers.CancelExport)       // отмена
	engine.GET("/templates", handlers.ListTemplates)           // список шаблонов
	engine.GET("/templates/:name", handlers.LoadTemplate)      // загрузка шаблона
	engine.PUT("/templates/:name", handlers.SaveTemplate)      // сохранение/перезапись
	engine.DELETE("/templates/:name", handlers.DeleteTemplate) // удаление

	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           mwlogger.NewMWLogger(engine),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Server launch
	go func() {
		zlog.Logger.Info().Str("addr", srv.Addr).Msg("Server running")
		err := srv.ListenAndServe()
		if err != nil {
			switch {
			case errors.Is(err, http.ErrServerClosed):
				zlog.Logger.Info().Msg("Server gracefully stopping...")
			default:
				zlog.Logger.Error().Err(err).Msg("Server stopped")
				stop()
			}
		}
	}()

	// ждем отмены контекста для запуска грейсфул закрытия соединений
	<-ctx.Done()

	shutdown(srv, dbConn)
	zlog.Logger.Info().Msg("Exiting api...")
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

	// подключитсья к базе
	dbConn, err := repository.ConnectWithRetries(appConfig, 5, 10*time.Second)
	if err != nil {
		return nil, nil, err
	}
	// накатываем миграцию
	if err := repository.MigrateWithRetries(dbConn.Master, "./migrations", 10, 15*time.Second); err != nil {
		return nil, nil, err
	}
	return repository.NewPostgresTemplateRepo(dbConn), dbConn, nil
}

func shutdown(srv *http.Server, dbConn *dbpg.DB) {
	zlog.Logger.Info().Msg("Interrupt received!!! Starting shutdown sequence...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to shutdown HTTP-server")
	}

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
