package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/common/database"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/common/logger"
	commonmqtt "github.com/SirazSium84/Doctor-s-Helper-sub000/common/mqtt"
	rediscommon "github.com/SirazSium84/Doctor-s-Helper-sub000/common/redis"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/cache"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/chat"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/config"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/events"
	httpapi "github.com/SirazSium84/Doctor-s-Helper-sub000/internal/http"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/repository"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/scheduler"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/service"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/store"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/vectorsearch"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "doctors-helper")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	// Data source: Postgres when reachable, otherwise the demo population.
	var db *sql.DB
	var source repository.DataSource = repository.NewDemoSource()
	switch {
	case !cfg.DBEnabled:
		log.Info("DB disabled, serving demo data")
	case !cfg.Database.HasCredentials():
		log.Warn("DB credentials missing, serving demo data")
	default:
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			source = repository.NewPostgresSource(db, log)
			log.Info("DB enabled", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Database))
		} else {
			log.Warn("DB connection failed, serving demo data", zap.Error(err))
		}
	}

	cacheOpts := []cache.Option{
		cache.WithLogger(log),
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithLoadTimeout(cfg.Cache.LoadTimeout),
	}
	var publishers events.Multi

	var redisClient *redis.Client
	var kv store.KV
	var history httpapi.EventHistory
	if cfg.RedisEnabled {
		redisClient = rediscommon.NewRedisClient(&cfg.Redis)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rediscommon.Ping(pingCtx, redisClient)
		cancel()
		if err != nil {
			log.Warn("Redis unreachable, snapshot mirror and event stream disabled", zap.Error(err))
			_ = rediscommon.Close(redisClient)
			redisClient = nil
		} else {
			kv = store.NewRedisKV(redisClient)
			stream := events.NewRedisStream(redisClient, cfg.Events.Stream, cfg.Events.MaxLen)
			history = stream
			publishers = append(publishers, stream)
			cacheOpts = append(cacheOpts, cache.WithPublishHook("mirror", cache.MirrorToKV(kv, cfg.Cache.MirrorKey, cfg.Cache.TTL)))
		}
	}

	var mqttClient *commonmqtt.Client
	if cfg.MQTT.Enabled {
		if c, err := commonmqtt.NewClient(&cfg.MQTT.MQTTConfig, log); err == nil {
			mqttClient = c
			publishers = append(publishers, events.NewMQTT(c, cfg.MQTT.Topic))
		} else {
			log.Warn("MQTT connection failed, snapshot events not announced", zap.Error(err))
		}
	}
	if len(publishers) > 0 {
		cacheOpts = append(cacheOpts, cache.WithPublishHook("events", events.Hook(publishers, log)))
	}

	dashboardCache := cache.New(source, cacheOpts...)

	// LLM and vector search fall back to local answers when unconfigured.
	var completer chat.Completer
	if cfg.LLM.Configured() {
		if c, err := chat.NewLLMClient(cfg.LLM, log); err == nil {
			completer = c
		} else {
			log.Warn("LLM client setup failed, chat answers with summaries", zap.Error(err))
		}
	}
	var primary vectorsearch.Searcher
	if cfg.Vector.Configured() {
		if c, err := vectorsearch.NewClient(cfg.Vector, log); err == nil {
			primary = c
		} else {
			log.Warn("Vector index setup failed, using built-in corpus", zap.Error(err))
		}
	}
	searcher := vectorsearch.NewFallbackSearcher(primary, vectorsearch.NewDemoSearcher(), log)
	chatService := chat.NewService(dashboardCache, completer, searcher, log)

	router := httpapi.NewRouter(log, cfg.HTTP.RequestTimeout)
	health := httpapi.HealthDeps{
		Database:         source,
		DatabaseName:     source.Name(),
		Cache:            dashboardCache,
		LLMConfigured:    completer != nil,
		VectorConfigured: primary != nil,
	}
	if kv != nil {
		health.Redis = kv
	}
	router.RegisterHealthRoutes(httpapi.NewHealthHandler(health, log))
	router.RegisterDashboardRoutes(httpapi.NewDashboardHandler(dashboardCache, log))
	router.RegisterCacheRoutes(httpapi.NewCacheHandler(dashboardCache, history, kv, cfg.Cache.MirrorKey, log))
	router.RegisterChatRoutes(httpapi.NewChatHandler(chatService, log))
	router.RegisterSearchRoutes(httpapi.NewSearchHandler(searcher, cfg.Vector.TopK, log))
	router.RegisterExportRoutes(httpapi.NewExportHandler(dashboardCache, log))

	var sched *scheduler.Scheduler
	if cfg.Cache.RefreshSchedule != "" {
		s, err := scheduler.New(dashboardCache, cfg.Cache.RefreshSchedule, cfg.Cache.LoadTimeout, log)
		if err != nil {
			log.Error("Scheduled refresh disabled", zap.Error(err))
		} else {
			sched = s
			sched.Start()
		}
	}

	// Warm the cache so the first dashboard request doesn't wait on the load.
	go func() {
		if err := <-dashboardCache.RefreshInBackground(context.Background()); err != nil {
			log.Warn("Initial cache load failed", zap.Error(err))
		}
	}()

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	_ = srv.Stop(shutdownCtx)
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	if redisClient != nil {
		_ = rediscommon.Close(redisClient)
	}
	if db != nil {
		_ = database.Close(db)
	}
}
