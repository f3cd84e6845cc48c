package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/qs3c/insight_go_client/config"
	"github.com/qs3c/insight_go_client/internal/api"
	"github.com/qs3c/insight_go_client/internal/api/handler"
	"github.com/qs3c/insight_go_client/internal/backend"
	"github.com/qs3c/insight_go_client/internal/database"
	"github.com/qs3c/insight_go_client/internal/jobs"
	"github.com/qs3c/insight_go_client/internal/model"
	"github.com/qs3c/insight_go_client/internal/pkg/cron"
	"github.com/qs3c/insight_go_client/internal/pkg/pubsub"
	"github.com/qs3c/insight_go_client/internal/pkg/queue"
	"github.com/qs3c/insight_go_client/internal/pkg/ws"
	"github.com/qs3c/insight_go_client/internal/repository"
	"github.com/qs3c/insight_go_client/internal/tracker"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Upload.TempDir != "" {
		if err := os.MkdirAll(cfg.Upload.TempDir, 0755); err != nil {
			log.Fatalf("Failed to create temp dir: %v", err)
		}
	}

	// 初始化本地历史库
	db, err := database.NewSQLite(&cfg.History)
	if err != nil {
		log.Fatalf("Failed to open history db: %v", err)
	}
	log.Println("History db ready")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 初始化 Queue 和 Pub/Sub
	trackQueue := queue.NewQueue(rdb, cfg.Tracking.TrackQueue)
	publisher := pubsub.NewPublisher(rdb)
	subscriber := pubsub.NewSubscriber(rdb)

	// 初始化 WebSocket Hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	// 初始化后端客户端与任务服务
	client := backend.NewClient(&cfg.Backend)
	store := jobs.NewStore()
	recordRepo := repository.NewJobRecordRepository(db)
	jobService := jobs.NewService(client, trackQueue, store, recordRepo, cfg)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	// 进度消息转发到 WebSocket 订阅者
	go func() {
		err := subscriber.Subscribe(ctx, func(msg *pubsub.ProgressMessage) {
			wsHub.SendToTask(msg.TaskID, &ws.Message{Type: msg.Type, Data: msg})
		})
		if err != nil && ctx.Err() == nil {
			log.Printf("Progress subscriber stopped: %v", err)
		}
	}()

	// 启动跟踪工作池
	pool := tracker.NewPool(client, trackQueue, store, recordRepo, publisher, jobService, cfg)
	pool.SetOnComplete(func(job model.Job, productName string) {
		if job.Kind != model.KindDatasetUpload {
			return
		}
		// 数据集上传完成，通知页面刷新产品列表
		publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
			Type:     "products_updated",
			TaskID:   job.TaskID,
			Kind:     string(job.Kind),
			Status:   string(job.Status),
			Progress: job.Progress,
		})
		log.Printf("Dataset %q uploaded (task %s)", productName, job.TaskID)
	})
	go pool.Run(ctx)

	// 定时清理临时上传目录
	cronService := cron.NewService(cfg.Upload.TempDir, cfg.Upload.ExpireHours)
	cronService.Start()
	defer cronService.Stop()

	// 初始化 Handler 和 Router
	videoHandler := handler.NewVideoHandler(jobService, cfg)
	commentHandler := handler.NewCommentHandler(jobService)
	productHandler := handler.NewProductHandler(jobService, client, cfg)
	historyHandler := handler.NewHistoryHandler(jobService, client)
	websocketHandler := handler.NewWebSocketHandler(wsHub)

	router := api.NewRouter(
		videoHandler,
		commentHandler,
		productHandler,
		historyHandler,
		websocketHandler,
		cfg,
	)
	engine := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
