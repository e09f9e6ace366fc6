package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/leyuan-dev/paper-translator/internal/bot"
	"github.com/leyuan-dev/paper-translator/internal/config"
	"github.com/leyuan-dev/paper-translator/internal/db"
	"github.com/leyuan-dev/paper-translator/internal/httpapi"
	"github.com/leyuan-dev/paper-translator/internal/logger"
	"github.com/leyuan-dev/paper-translator/internal/store/rabbitmq"
	"github.com/leyuan-dev/paper-translator/internal/store/redisstore"
	"github.com/leyuan-dev/paper-translator/internal/translation"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(cfg.LogLevel); err != nil {
		panic(err)
	}
	defer logger.Sync()

	gdb, err := db.Connect(cfg)
	if err != nil {
		logger.L().Fatal("database", zap.Error(err))
	}

	provider := bot.NewPoeProvider(cfg.PoeBaseURL, cfg.PoeUploadURL, cfg.PoeBotName)
	repo := translation.NewRepo(gdb)

	// per-conversation lock: redis when configured, else in-process
	var locker translation.Locker
	if cfg.RedisAddr != "" {
		rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rds.Ping(pctx)
		cancel()
		if err != nil {
			logger.L().Fatal("redis", zap.Error(err))
		}
		defer rds.Close()
		locker = rds
	}

	svc := translation.NewService(repo, provider, locker, cfg.UploadDir)

	var rabbit *rabbitmq.Publisher
	if cfg.RabbitURL != "" {
		rabbit, err = rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			logger.L().Warn("rabbitmq unavailable, async endpoints disabled", zap.Error(err))
			rabbit = nil
		} else {
			defer rabbit.Close()
		}
	}

	r := httpapi.NewRouter(svc, rabbit, cfg.StaticDir)

	logger.L().Info("server listening", zap.String("addr", cfg.HTTPAddr))
	if err := r.Run(cfg.HTTPAddr); err != nil {
		logger.L().Fatal("server", zap.Error(err))
	}
}
