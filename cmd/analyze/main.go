package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/qs3c/insight_go_client/config"
	"github.com/qs3c/insight_go_client/internal/backend"
	"github.com/qs3c/insight_go_client/internal/engine"
	"github.com/qs3c/insight_go_client/internal/model"
)

// 命令行入口：提交一个视频并在前台轮询到终态。
// 服务器不参与，直接复用后端客户端和轮询引擎。
func main() {
	var (
		configPath = flag.String("config", "config.yaml", "config file path")
		videoPath  = flag.String("file", "", "video file to analyze (MP4, MOV)")
		attempts   = flag.Int("attempts", 0, "max poll attempts (0 = config value)")
		interval   = flag.Duration("interval", 0, "poll interval (0 = config value)")
	)
	flag.Parse()

	if *videoPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := validateVideoFile(*videoPath, cfg.Upload.MaxVideoSize); err != nil {
		log.Fatalf("%v", err)
	}

	maxAttempts := cfg.Tracking.MaxAttempts
	if *attempts > 0 {
		maxAttempts = *attempts
	}
	pollInterval := cfg.Tracking.PollInterval()
	if *interval > 0 {
		pollInterval = *interval
	}

	// Ctrl+C 取消轮询，任务记为 failed
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Cancelling...")
		cancel()
	}()

	client := backend.NewClient(&cfg.Backend)

	file, err := os.Open(*videoPath)
	if err != nil {
		log.Fatalf("Failed to open video: %v", err)
	}

	taskID, err := client.SubmitVideo(ctx, filepath.Base(*videoPath), file)
	file.Close()
	if err != nil {
		log.Fatalf("Submit failed: %v", err)
	}
	log.Printf("Task submitted: %s", taskID)

	eng := engine.New(client.VideoStatus, engine.Options{
		MaxAttempts:   maxAttempts,
		PollInterval:  pollInterval,
		Phases:        engine.VideoPhases,
		FailedMessage: "Analysis failed",
	})

	job := model.NewJob(model.KindVideoAnalysis)
	job.TaskID = taskID

	start := time.Now()
	final := eng.Track(ctx, job, func(snapshot model.Job) {
		fmt.Printf("[%3.0f%%] %s\n", snapshot.Progress, snapshot.PhaseLabel)
	})

	elapsed := time.Since(start).Round(time.Second)
	switch final.Status {
	case model.StatusCompleted:
		log.Printf("Analysis completed in %s (%d polls)", elapsed, final.Attempts)
		fmt.Println(string(final.Result))
	default:
		log.Printf("Analysis ended: %s after %d polls: %s", final.Status, final.Attempts, final.ErrorMessage)
		os.Exit(1)
	}
}

// validateVideoFile 提交前的本地校验，和页面侧保持同一套限制
func validateVideoFile(path string, maxSize int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat video file: %w", err)
	}
	if info.Size() > maxSize {
		return fmt.Errorf("File size exceeds the 100MB limit")
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".mp4" && ext != ".mov" {
		return fmt.Errorf("Please upload a video file (MP4, MOV)")
	}
	return nil
}
