package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LENAX/process-engine/pkg/cli/output"
	"github.com/LENAX/process-engine/pkg/cli/procengine"
)

// taskCmd task子命令
var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "任务管理命令",
	Long:  `管理流程任务，包括查询待办任务和提交任务完成。`,
}

// taskPendingCmd 查询待办任务
var taskPendingCmd = &cobra.Command{
	Use:   "pending <assignee>",
	Short: "查询指定处理人的待办任务",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := procengine.New(serverURL)
		result, err := client.ListPendingTasks(args[0])
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(result)
		}

		if len(result.Items) == 0 {
			output.Info("暂无待办任务")
			return nil
		}

		table := output.NewTable([]string{"TASK_ID", "INSTANCE", "FUNCTION", "TYPE", "CREATED"})
		for _, t := range result.Items {
			table.AddRow([]string{
				t.TaskID,
				t.InstanceID,
				t.FunctionCode,
				t.TaskType,
				t.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		table.Render()
		return nil
	},
}

// taskShowCmd 查看任务详情
var taskShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "查看任务详情",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := procengine.New(serverURL)
		task, err := client.GetTask(args[0])
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(task)
		}

		fmt.Printf("Task:     %s\n", task.TaskID)
		fmt.Printf("Node:     %s\n", task.NodeID)
		fmt.Printf("Function: %s (%s)\n", task.FunctionCode, task.TaskType)
		fmt.Printf("Status:   %s\n", formatStatus(task.Status))
		if task.AssignedTo != "" {
			fmt.Printf("Assignee: %s\n", task.AssignedTo)
		}
		fmt.Printf("Created:  %s\n", task.CreatedAt.Format("2006-01-02 15:04:05"))
		if task.CompletedAt != nil {
			fmt.Printf("Resolved: %s\n", task.CompletedAt.Format("2006-01-02 15:04:05"))
		}
		if task.ErrorMessage != "" {
			fmt.Printf("Error:    %s\n", task.ErrorMessage)
		}
		return nil
	},
}

// taskCompleteCmd 完成任务
var taskCompleteCmd = &cobra.Command{
	Use:   "complete <id> <output-json>",
	Short: "提交任务输出并完成任务",
	Long: `提交任务输出并完成任务。输出数据必须符合函数声明的输出Schema。

示例：
  process-engine task complete task-001 '{"approved": true, "comment": "同意"}'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var taskOutput map[string]any
		if err := json.Unmarshal([]byte(args[1]), &taskOutput); err != nil {
			output.Error("解析输出JSON失败: %v", err)
			return err
		}

		client := procengine.New(serverURL)
		if err := client.CompleteTask(args[0], taskOutput); err != nil {
			output.Error("完成任务失败: %v", err)
			return err
		}

		output.Success("任务已完成: %s", args[0])
		return nil
	},
}

func init() {
	taskCmd.AddCommand(taskPendingCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskCompleteCmd)
}
