package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	internalstorage "github.com/LENAX/process-engine/internal/storage"
	"github.com/LENAX/process-engine/pkg/api"
	"github.com/LENAX/process-engine/pkg/cli/output"
	"github.com/LENAX/process-engine/pkg/config"
	"github.com/LENAX/process-engine/pkg/core/engine"
)

var (
	serverPort int
	serverHost string
	configPath string
)

// serverCmd server子命令
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "服务管理命令",
	Long:  `管理Process Engine HTTP API服务。`,
}

// serverStartCmd 启动服务
var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "启动HTTP API服务",
	Long: `启动Process Engine HTTP API服务。

示例：
  # 使用默认配置启动
  process-engine server start

  # 指定端口启动
  process-engine server start --port 8080

  # 指定配置文件启动
  process-engine server start --config ./configs/engine.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 未指定配置文件时尝试默认路径
		if configPath == "" {
			defaultPaths := []string{
				"./configs/engine.yaml",
				"./config/engine.yaml",
				"./engine.yaml",
			}
			for _, p := range defaultPaths {
				if _, err := os.Stat(p); err == nil {
					configPath = p
					break
				}
			}
		}

		if configPath != "" {
			output.Info("使用配置文件: %s", configPath)
		} else {
			output.Warning("未找到配置文件，使用默认配置")
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			output.Error("加载配置失败: %v", err)
			return err
		}
		if serverHost != "" {
			cfg.ProcessEngine.HTTP.Host = serverHost
		}
		if serverPort > 0 {
			cfg.ProcessEngine.HTTP.Port = serverPort
		}

		// 创建仓储
		repo, err := internalstorage.NewEngineRepository(cfg.GetDatabaseType(), cfg.GetDatabaseDSN())
		if err != nil {
			output.Error("创建仓储失败: %v", err)
			return err
		}
		defer repo.Close()

		// 创建并启动Engine
		eng, err := engine.NewEngine(repo, engine.Options{
			DrainCron:  cfg.ProcessEngine.Queue.DrainCron,
			DrainLimit: cfg.ProcessEngine.Queue.DrainLimit,
			Debug:      cfg.ProcessEngine.Queue.Debug,
		})
		if err != nil {
			output.Error("创建Engine失败: %v", err)
			return err
		}
		if err := eng.Start(); err != nil {
			output.Error("启动Engine失败: %v", err)
			return err
		}

		// 创建API服务器
		serverConfig := api.ServerConfig{
			Host:         cfg.ProcessEngine.HTTP.Host,
			Port:         cfg.ProcessEngine.HTTP.Port,
			ReadTimeout:  api.DefaultServerConfig().ReadTimeout,
			WriteTimeout: api.DefaultServerConfig().WriteTimeout,
		}

		apiServer := api.NewAPIServer(eng, serverConfig, Version)

		// 在goroutine中启动服务器
		go func() {
			if err := apiServer.Start(); err != nil {
				log.Printf("API服务器错误: %v", err)
			}
		}()

		output.Success("Process Engine Server started on %s", apiServer.Addr())

		// 等待中断信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		output.Info("正在关闭服务...")

		// 优雅关闭
		shutdownCtx, cancel := context.WithTimeout(context.Background(), api.DefaultServerConfig().WriteTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			output.Error("关闭API服务器失败: %v", err)
		}

		if err := eng.Stop(); err != nil {
			output.Error("停止Engine失败: %v", err)
		}
		output.Success("服务已停止")

		return nil
	},
}

func init() {
	serverStartCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "监听端口（覆盖配置文件）")
	serverStartCmd.Flags().StringVarP(&serverHost, "host", "H", "", "监听地址（覆盖配置文件）")
	serverStartCmd.Flags().StringVarP(&configPath, "config", "c", "", "配置文件路径")

	serverCmd.AddCommand(serverStartCmd)
}
