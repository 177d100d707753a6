package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LENAX/process-engine/pkg/cli/output"
	"github.com/LENAX/process-engine/pkg/cli/procengine"
)

var queueLimit int

// queueCmd queue子命令
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "执行队列管理命令",
	Long:  `管理流程执行队列。定时Drain之外，也可以手动触发一次队列处理。`,
}

// queueProcessCmd 手动触发队列处理
var queueProcessCmd = &cobra.Command{
	Use:   "process",
	Short: "手动触发一次执行队列处理",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := procengine.New(serverURL)
		result, err := client.ProcessQueue(queueLimit)
		if err != nil {
			output.Error("处理失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(result)
		}

		output.Success("队列处理完成")
		fmt.Printf("Processed: %d\n", result.Processed)
		fmt.Printf("Succeeded: %d\n", result.Succeeded)
		fmt.Printf("Failed:    %d\n", result.Failed)
		return nil
	},
}

func init() {
	queueProcessCmd.Flags().IntVar(&queueLimit, "limit", 0, "单次处理的最大条目数（默认使用服务端配置）")

	queueCmd.AddCommand(queueProcessCmd)
}
