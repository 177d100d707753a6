package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LENAX/process-engine/pkg/cli/output"
	"github.com/LENAX/process-engine/pkg/cli/procengine"
)

// templateCmd template子命令
var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "流程模板管理命令",
	Long:  `管理流程模板，包括上传、列出、查看、启用和停用。`,
}

// templateListCmd 列出模板
var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出所有流程模板",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := procengine.New(serverURL)
		result, err := client.ListTemplates()
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(result)
		}

		if len(result.Items) == 0 {
			output.Info("暂无流程模板")
			return nil
		}

		table := output.NewTable([]string{"ID", "CODE", "NAME", "NODES", "ACTIVE", "CREATED"})
		for _, tpl := range result.Items {
			active := "✅"
			if !tpl.Active {
				active = "⏸️"
			}
			table.AddRow([]string{
				tpl.ID,
				tpl.Code,
				tpl.Name,
				fmt.Sprintf("%d", tpl.NodeCount),
				active,
				tpl.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		table.Render()
		return nil
	},
}

// templateShowCmd 查看模板详情
var templateShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "查看流程模板详情",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := procengine.New(serverURL)
		result, err := client.GetTemplate(args[0])
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(result)
		}

		fmt.Printf("Template: %s\n", result.Name)
		fmt.Printf("ID:       %s\n", result.ID)
		fmt.Printf("Code:     %s\n", result.Code)
		fmt.Printf("Active:   %v\n", result.Active)
		if result.Definition != nil {
			fmt.Println("\nNodes:")
			for _, n := range result.Definition.Nodes {
				fn := ""
				if n.FunctionCode != "" {
					fn = fmt.Sprintf(" (函数: %s)", n.FunctionCode)
				}
				fmt.Printf("  - [%s] %s %s%s\n", n.Type, n.ID, n.Label, fn)
			}
			fmt.Println("\nTransitions:")
			for _, tr := range result.Definition.Transitions {
				cond := ""
				if tr.Condition != "" {
					cond = fmt.Sprintf(" [条件: %s]", tr.Condition)
				}
				fmt.Printf("  - %s -> %s%s\n", tr.FromNodeID, tr.ToNodeID, cond)
			}
		}
		return nil
	},
}

// templateUploadCmd 上传模板
var templateUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "上传YAML流程模板文件",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			output.Error("读取文件失败: %v", err)
			return err
		}

		client := procengine.New(serverURL)
		result, err := client.UploadTemplate(string(content))
		if err != nil {
			output.Error("上传失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(result)
		}

		output.Success("流程模板上传成功: %s (%s)", result.Name, result.ID)
		return nil
	},
}

// templateActivateCmd 启用模板
var templateActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "启用流程模板",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := procengine.New(serverURL)
		if err := client.ActivateTemplate(args[0]); err != nil {
			output.Error("启用失败: %v", err)
			return err
		}
		output.Success("流程模板已启用: %s", args[0])
		return nil
	},
}

// templateDeactivateCmd 停用模板
var templateDeactivateCmd = &cobra.Command{
	Use:   "deactivate <id>",
	Short: "停用流程模板",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := procengine.New(serverURL)
		if err := client.DeactivateTemplate(args[0]); err != nil {
			output.Error("停用失败: %v", err)
			return err
		}
		output.Success("流程模板已停用: %s", args[0])
		return nil
	},
}

func init() {
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateShowCmd)
	templateCmd.AddCommand(templateUploadCmd)
	templateCmd.AddCommand(templateActivateCmd)
	templateCmd.AddCommand(templateDeactivateCmd)
}
