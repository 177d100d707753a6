package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LENAX/process-engine/pkg/api/dto"
	"github.com/LENAX/process-engine/pkg/cli/output"
	"github.com/LENAX/process-engine/pkg/cli/procengine"
)

var (
	instanceName        string
	instanceAssignments []string
	instanceContextJSON string
)

// instanceCmd instance子命令
var instanceCmd = &cobra.Command{
	Use:   "instance",
	Short: "流程实例管理命令",
	Long:  `管理流程实例，包括创建、查看状态、查询执行历史和上下文。`,
}

// instanceCreateCmd 创建实例
var instanceCreateCmd = &cobra.Command{
	Use:   "create <template-id>",
	Short: "基于模板创建并启动流程实例",
	Long: `基于模板创建并启动流程实例。

示例：
  # 创建实例并指定任务处理人
  process-engine instance create tpl-001 --assign approve_node=alice --assign review_node=bob

  # 创建实例并提供初始上下文
  process-engine instance create tpl-001 --context '{"days": 3}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		assignments := make(map[string]string)
		for _, a := range instanceAssignments {
			parts := strings.SplitN(a, "=", 2)
			if len(parts) != 2 {
				output.Error("无效的分配格式: %s（应为 node-id=assignee）", a)
				return fmt.Errorf("invalid assignment: %s", a)
			}
			assignments[parts[0]] = parts[1]
		}

		var initialContext map[string]any
		if instanceContextJSON != "" {
			if err := json.Unmarshal([]byte(instanceContextJSON), &initialContext); err != nil {
				output.Error("解析初始上下文失败: %v", err)
				return err
			}
		}

		client := procengine.New(serverURL)
		result, err := client.CreateInstance(dto.CreateInstanceRequest{
			TemplateID:      args[0],
			InstanceName:    instanceName,
			TaskAssignments: assignments,
			InitialContext:  initialContext,
		})
		if err != nil {
			output.Error("创建失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(result)
		}

		output.Success("流程实例已创建")
		fmt.Printf("Instance ID: %s\n", result.InstanceID)
		return nil
	},
}

// instanceStatusCmd 查看实例状态
var instanceStatusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "查看流程实例执行状态",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := procengine.New(serverURL)
		inst, err := client.GetInstance(args[0])
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(inst)
		}

		fmt.Printf("Instance: %s\n", inst.InstanceID)
		fmt.Printf("Name:     %s\n", inst.Name)
		fmt.Printf("Status:   %s\n", formatStatus(inst.Status))
		fmt.Printf("Node:     %s (%s)\n", inst.CurrentNodeName, inst.CurrentNodeID)
		fmt.Printf("Progress: %.0f%%\n", inst.ProgressPercentage)
		fmt.Printf("Created:  %s\n", inst.CreatedAt.Format("2006-01-02 15:04:05"))
		if inst.ErrorMessage != "" {
			fmt.Printf("Error:    %s\n", inst.ErrorMessage)
		}

		if len(inst.Tasks) > 0 {
			fmt.Println("\nTasks:")
			for _, t := range inst.Tasks {
				assignee := ""
				if t.AssignedTo != "" {
					assignee = fmt.Sprintf(" @%s", t.AssignedTo)
				}
				fmt.Printf("  %s %s (%s)%s\n", getStatusIcon(t.Status), t.FunctionCode, t.Status, assignee)
			}
		}
		return nil
	},
}

// instanceHistoryCmd 查询执行历史
var instanceHistoryCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "查询流程实例的执行历史",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := procengine.New(serverURL)
		result, err := client.GetInstanceHistory(args[0])
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(result)
		}

		if len(result.Items) == 0 {
			output.Info("暂无执行历史")
			return nil
		}

		table := output.NewTable([]string{"EVENT", "FROM", "TO", "DETAIL", "TIME"})
		for _, item := range result.Items {
			table.AddRow([]string{
				item.EventType,
				orDash(item.FromNodeID),
				orDash(item.ToNodeID),
				orDash(item.Detail),
				item.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		table.Render()
		fmt.Printf("\n总计: %d 条记录\n", result.Total)
		return nil
	},
}

// instanceContextCmd 查看实例上下文
var instanceContextCmd = &cobra.Command{
	Use:   "context <id>",
	Short: "查看流程实例最新版本的上下文数据",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := procengine.New(serverURL)
		result, err := client.GetInstanceContext(args[0])
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(result)
		}

		fmt.Printf("Instance: %s\n", result.InstanceID)
		fmt.Printf("Version:  %d\n", result.Version)
		fmt.Println("Context:")
		return output.PrintJSON(result.ContextData)
	},
}

func init() {
	instanceCreateCmd.Flags().StringVar(&instanceName, "name", "", "实例名称（默认按模板名生成）")
	instanceCreateCmd.Flags().StringArrayVar(&instanceAssignments, "assign", nil, "任务节点分配，格式 node-id=assignee，可重复")
	instanceCreateCmd.Flags().StringVar(&instanceContextJSON, "context", "", "初始上下文JSON")

	instanceCmd.AddCommand(instanceCreateCmd)
	instanceCmd.AddCommand(instanceStatusCmd)
	instanceCmd.AddCommand(instanceHistoryCmd)
	instanceCmd.AddCommand(instanceContextCmd)
}

// formatStatus 格式化状态显示
func formatStatus(status string) string {
	switch status {
	case "COMPLETED":
		return "✅ COMPLETED"
	case "FAILED":
		return "❌ FAILED"
	case "ERROR":
		return "💥 ERROR"
	case "RUNNING":
		return "🔄 RUNNING"
	case "PENDING":
		return "⏳ PENDING"
	default:
		return status
	}
}

// getStatusIcon 获取状态图标
func getStatusIcon(status string) string {
	switch status {
	case "COMPLETED":
		return "✅"
	case "FAILED":
		return "❌"
	case "PENDING":
		return "⏳"
	default:
		return "❓"
	}
}

// orDash 空字符串显示为"-"
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
