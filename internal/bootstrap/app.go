// Package bootstrap wires configuration, infrastructure clients and the
// background worker into one App handed to the transport layer.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ikrigel/polo-rag-lev-boots-project/internal/config"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/model"
	mysqlClient "github.com/ikrigel/polo-rag-lev-boots-project/internal/platform/mysql"
	rabbitmqClient "github.com/ikrigel/polo-rag-lev-boots-project/internal/platform/rabbitmq"
	redisClient "github.com/ikrigel/polo-rag-lev-boots-project/internal/platform/redis"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/repository"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/worker"
)

type App struct {
	Config           *config.Config
	Log              *slog.Logger
	MySQL            *gorm.DB
	Redis            *redis.Client
	MQConn           *amqp.Connection
	TranscriptWorker *worker.TranscriptWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	log := newLogger(cfg.App.LogLevel)

	mysqlDB, err := mysqlClient.Connect(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.KnowledgeChunk{},
		&model.GroundTruthPair{},
		&model.TranscriptMessage{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.Connect(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.Connect(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	transcriptRepo := repository.NewTranscriptRepository(mysqlDB)
	transcriptWorker := worker.NewTranscriptWorker(mqConn, transcriptRepo, cfg.RabbitMQ.TranscriptQueue, log)
	if err := transcriptWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start transcript worker failed: %w", err)
	}

	return &App{
		Config:           cfg,
		Log:              log,
		MySQL:            mysqlDB,
		Redis:            redisCli,
		MQConn:           mqConn,
		TranscriptWorker: transcriptWorker,
		StartedAt:        time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.TranscriptWorker != nil {
		a.TranscriptWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
