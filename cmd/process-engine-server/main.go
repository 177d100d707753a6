package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LENAX/process-engine/internal/storage"
	"github.com/LENAX/process-engine/pkg/api"
	"github.com/LENAX/process-engine/pkg/config"
	"github.com/LENAX/process-engine/pkg/core/engine"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	// 命令行参数
	configPath := flag.String("config", "./configs/engine.yaml", "引擎配置文件路径")
	host := flag.String("host", "", "监听地址（覆盖配置文件）")
	port := flag.Int("port", 0, "监听端口（覆盖配置文件）")
	flag.Parse()

	log.Printf("Process Engine Server v%s", Version)
	log.Printf("配置文件: %s", *configPath)

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if *host != "" {
		cfg.ProcessEngine.HTTP.Host = *host
	}
	if *port > 0 {
		cfg.ProcessEngine.HTTP.Port = *port
	}

	// 2. 创建仓储
	repo, err := storage.NewEngineRepository(cfg.GetDatabaseType(), cfg.GetDatabaseDSN())
	if err != nil {
		log.Fatalf("创建仓储失败: %v", err)
	}
	defer repo.Close()

	// 3. 创建并启动Engine
	eng, err := engine.NewEngine(repo, engine.Options{
		DrainCron:  cfg.ProcessEngine.Queue.DrainCron,
		DrainLimit: cfg.ProcessEngine.Queue.DrainLimit,
		Debug:      cfg.ProcessEngine.Queue.Debug,
	})
	if err != nil {
		log.Fatalf("创建Engine失败: %v", err)
	}
	if err := eng.Start(); err != nil {
		log.Fatalf("启动Engine失败: %v", err)
	}

	// 4. 创建API服务器
	serverConfig := api.ServerConfig{
		Host:         cfg.ProcessEngine.HTTP.Host,
		Port:         cfg.ProcessEngine.HTTP.Port,
		ReadTimeout:  api.DefaultServerConfig().ReadTimeout,
		WriteTimeout: api.DefaultServerConfig().WriteTimeout,
	}

	apiServer := api.NewAPIServer(eng, serverConfig, Version)

	// 5. 在goroutine中启动API服务器
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Printf("API服务器错误: %v", err)
		}
	}()

	log.Printf("✅ Process Engine Server started on %s", apiServer.Addr())

	// 6. 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 7. 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("关闭API服务器失败: %v", err)
	}

	if err := eng.Stop(); err != nil {
		log.Printf("停止Engine失败: %v", err)
	}
	log.Println("✅ 服务已停止")
}
