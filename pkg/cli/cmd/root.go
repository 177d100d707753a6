package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// 全局变量
	serverURL  string
	outputJSON bool
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "process-engine",
	Short: "Process Engine CLI - 流程编排引擎命令行工具",
	Long: `Process Engine CLI 是一个用于管理流程编排引擎的命令行工具。

支持的功能：
  - 管理流程模板（上传、列出、查看、启用、停用）
  - 管理流程实例（创建、查看状态、查询历史和上下文）
  - 处理待办任务（列出、完成）
  - 触发执行队列处理
  - 启动HTTP API服务

使用示例：
  # 上传流程模板
  process-engine template upload ./templates/leave-approval.yaml

  # 创建流程实例
  process-engine instance create <template-id> --assign node1=alice

  # 查看实例状态
  process-engine instance status <instance-id>

  # 查询alice的待办任务
  process-engine task pending alice

  # 启动HTTP服务
  process-engine server start --port 8080`,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "Process Engine服务器地址")
	rootCmd.PersistentFlags().BoolVarP(&outputJSON, "json", "j", false, "使用JSON格式输出")

	// 添加子命令
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(instanceCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(versionCmd)
}
