package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/airo-bot/airo/internal/bot"
	"github.com/airo-bot/airo/internal/config"
	"github.com/airo-bot/airo/internal/handler"
	"github.com/airo-bot/airo/internal/repo"
	"github.com/airo-bot/airo/internal/service"
	"github.com/airo-bot/airo/internal/worker"
)

func main() {
	// Подключаем логгер
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Загрузка конфигурации (token.env + окружение)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Подключаем БД
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to Database.") // Fatal потому что дальнейшая работа теряет смысл
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal("Failed to ping the Database.")
	}
	logger.Info("Successfully connected to the Database!")

	// Накатываем схему
	if err := repo.Migrate(context.Background(), pool); err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}

	// Слои: репозитории -> сервис -> бот
	taskRepo := repo.NewTaskRepo(pool)
	reminderRepo := repo.NewReminderRepo(pool)
	taskService := service.NewTaskService(taskRepo, reminderRepo)

	botConfig := bot.NewConfig()
	botConfig.Token = cfg.Token
	botConfig.CaptainRole = cfg.CaptainRole

	b, err := bot.New(botConfig, taskService, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	botCtx, botCancel := context.WithCancel(context.Background())
	defer botCancel()

	go func() {
		if err := b.Run(botCtx); err != nil {
			logger.Fatal("Bot stopped with error", zap.Error(err))
		}
	}()

	// Фоновые напоминания: чек-ины и разовые reminders
	workerPool := worker.NewPool(pool, b, logger, cfg.WorkerCount)
	workerPool.Start(botCtx)

	// Операционный HTTP-интерфейс
	opsHandler := handler.NewOpsHandler(taskService, logger)

	srv := http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      opsHandler.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started at ", zap.String("port", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed: ", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Shutdown error: ", zap.Error(err))
	}

	workerPool.Stop()
	botCancel()

	logger.Info("Server stopped succsessfully!")
}
