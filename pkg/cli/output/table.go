package output

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Table 对齐的纯文本表格输出
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable 创建表格
func NewTable(headers []string) *Table {
	return &Table{
		headers: headers,
		rows:    make([][]string, 0),
	}
}

// AddRow 添加行
func (t *Table) AddRow(row []string) {
	t.rows = append(t.rows, row)
}

// columnWidths 按表头和所有行计算每列宽度
func (t *Table) columnWidths() []int {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	return widths
}

// Render 渲染表格到标准输出
func (t *Table) Render() {
	widths := t.columnWidths()

	// 表头
	headerColor := color.New(color.FgCyan, color.Bold)
	for i, h := range t.headers {
		headerColor.Printf("%-*s  ", widths[i], h)
	}
	fmt.Println()

	// 分隔线
	for i := range t.headers {
		fmt.Print(strings.Repeat("-", widths[i]))
		fmt.Print("  ")
	}
	fmt.Println()

	// 数据行
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				fmt.Printf("%-*s  ", widths[i], cell)
			}
		}
		fmt.Println()
	}
}
