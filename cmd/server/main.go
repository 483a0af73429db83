// Package main 是应用程序的入口点。
package main

import (
	"context"
	"flag"
	"fmt"
	"love-coach-go/internal/config"
	"love-coach-go/internal/handler"
	"love-coach-go/internal/middleware"
	"love-coach-go/internal/pipeline"
	"love-coach-go/internal/repository"
	"love-coach-go/internal/service"
	"love-coach-go/pkg/database"
	"love-coach-go/pkg/es"
	"love-coach-go/pkg/kafka"
	"love-coach-go/pkg/llm"
	"love-coach-go/pkg/lock"
	"love-coach-go/pkg/log"
	"love-coach-go/pkg/storage"
	"love-coach-go/pkg/token"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "./configs/config.yaml"), "配置文件路径")
	flag.Parse()

	// 1. 初始化配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// 3. 初始化数据库和 Redis
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal("数据库初始化失败", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatal("数据库迁移失败", err)
	}
	var rdb *redis.Client
	if cfg.Database.Redis.Addr != "" {
		rdb, err = database.OpenRedis(rootCtx, cfg.Database.Redis)
		if err != nil {
			log.Fatal("Redis 初始化失败", err)
		}
		defer rdb.Close()
	}

	// 4. 初始化 Repository 与基础组件
	repos := repository.NewRepositories(db)
	var locker lock.Locker
	if rdb != nil {
		locker = lock.NewRedisLocker(rdb, "lock:target:", cfg.Pipeline.LockTTL)
	} else {
		log.Warnf("未配置 Redis, 使用进程内的 Target 锁")
		locker = lock.NewLocalLocker()
	}
	llmClient := llm.NewClient(cfg.LLM)

	// 可选组件为 nil 时，相关功能以 "disabled" 响应
	var (
		indexer   service.ArtifactIndexer
		searcher  service.ArtifactSearcher
		objects   service.ObjectStore
		publisher service.TaskPublisher
		producer  *kafka.Producer
	)
	if cfg.Elasticsearch.Enabled {
		esClient, err := es.NewClient(cfg.Elasticsearch)
		if err != nil {
			log.Fatal("Elasticsearch 初始化失败", err)
		}
		if err := esClient.EnsureIndex(rootCtx); err != nil {
			log.Fatal("Elasticsearch 索引初始化失败", err)
		}
		indexer, searcher = esClient, esClient
	}
	if cfg.MinIO.Enabled {
		store, err := storage.NewStore(rootCtx, cfg.MinIO)
		if err != nil {
			log.Fatal("MinIO 初始化失败", err)
		}
		objects = store
	}
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka)
		publisher = producer
	}

	// 5. 初始化 Service (依赖注入)
	targetService := service.NewTargetService(repos)
	coachService := service.NewCoachService(repos, llmClient, locker, cfg.Pipeline, cfg.LLM.Model, indexer, publisher)
	artifactService := service.NewArtifactService(repos)
	searchService := service.NewSearchService(targetService, searcher)
	exportService := service.NewExportService(targetService, objects, cfg.MinIO.PresignExpiry)

	// 6. 启动后台 Kafka 消费者
	var consumerWG sync.WaitGroup
	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka, pipeline.NewProcessor(coachService), rdb)
		consumerWG.Add(1)
		go func() {
			defer consumerWG.Done()
			consumer.Run(rootCtx)
		}()
	}

	// 7. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	var auth gin.HandlerFunc
	if cfg.Auth.Enabled {
		jwtManager := token.NewJWTManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTLHours)
		auth = middleware.AuthMiddleware(jwtManager)
	}
	r := handler.NewRouter(handler.Services{
		Targets:   targetService,
		Coach:     coachService,
		Artifacts: artifactService,
		Search:    searchService,
		Export:    exportService,
	}, auth)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	// 停止消费者后再关闭生产者
	cancelRoot()
	consumerWG.Wait()
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Warnf("关闭 Kafka 生产者失败: %v", err)
		}
	}
	log.Info("服务已优雅关闭")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
