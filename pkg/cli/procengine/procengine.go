package procengine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/LENAX/process-engine/pkg/api/dto"
	"github.com/LENAX/process-engine/pkg/storage"
)

// ProcessEngine HTTP API客户端
type ProcessEngine struct {
	baseURL    string
	httpClient *http.Client
}

// New 创建ProcessEngine客户端
func New(baseURL string) *ProcessEngine {
	return &ProcessEngine{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ========== Template API ==========

// ListTemplates 列出所有流程模板
func (p *ProcessEngine) ListTemplates() (*dto.ListResponse[dto.TemplateSummary], error) {
	var resp dto.APIResponse[dto.ListResponse[dto.TemplateSummary]]
	if err := p.get("/api/v1/templates", &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// GetTemplate 获取流程模板详情
func (p *ProcessEngine) GetTemplate(id string) (*storage.WorkflowTemplate, error) {
	var resp dto.APIResponse[storage.WorkflowTemplate]
	if err := p.get("/api/v1/templates/"+id, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// UploadTemplate 上传YAML流程模板
func (p *ProcessEngine) UploadTemplate(yamlContent string) (*dto.TemplateSummary, error) {
	req := dto.CreateTemplateRequest{Content: yamlContent}
	var resp dto.APIResponse[dto.TemplateSummary]
	if err := p.post("/api/v1/templates", req, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// ActivateTemplate 启用流程模板
func (p *ProcessEngine) ActivateTemplate(id string) error {
	var resp dto.APIResponse[map[string]any]
	if err := p.post("/api/v1/templates/"+id+"/activate", nil, &resp); err != nil {
		return err
	}
	if resp.Code != 0 {
		return fmt.Errorf("%s", resp.Message)
	}
	return nil
}

// DeactivateTemplate 停用流程模板
func (p *ProcessEngine) DeactivateTemplate(id string) error {
	var resp dto.APIResponse[map[string]any]
	if err := p.post("/api/v1/templates/"+id+"/deactivate", nil, &resp); err != nil {
		return err
	}
	if resp.Code != 0 {
		return fmt.Errorf("%s", resp.Message)
	}
	return nil
}

// ========== Instance API ==========

// CreateInstance 基于模板创建并启动流程实例
func (p *ProcessEngine) CreateInstance(req dto.CreateInstanceRequest) (*dto.CreateInstanceResponse, error) {
	var resp dto.APIResponse[dto.CreateInstanceResponse]
	if err := p.post("/api/v1/instances", req, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// GetInstance 获取流程实例状态
func (p *ProcessEngine) GetInstance(id string) (*dto.InstanceStatusResponse, error) {
	var resp dto.APIResponse[dto.InstanceStatusResponse]
	if err := p.get("/api/v1/instances/"+id, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// GetInstanceHistory 查询流程实例的执行历史
func (p *ProcessEngine) GetInstanceHistory(id string) (*dto.ListResponse[dto.HistoryItem], error) {
	var resp dto.APIResponse[dto.ListResponse[dto.HistoryItem]]
	if err := p.get("/api/v1/instances/"+id+"/history", &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// GetInstanceContext 获取流程实例最新版本的上下文
func (p *ProcessEngine) GetInstanceContext(id string) (*dto.ContextResponse, error) {
	var resp dto.APIResponse[dto.ContextResponse]
	if err := p.get("/api/v1/instances/"+id+"/context", &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// AppendInstanceContext 追加新版本的上下文数据
func (p *ProcessEngine) AppendInstanceContext(id string, data map[string]any) (*dto.ContextResponse, error) {
	req := dto.AppendContextRequest{ContextData: data}
	var resp dto.APIResponse[dto.ContextResponse]
	if err := p.post("/api/v1/instances/"+id+"/context", req, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// ========== Task API ==========

// ListPendingTasks 查询指定处理人的待办任务
func (p *ProcessEngine) ListPendingTasks(assignee string) (*dto.ListResponse[dto.PendingTaskResponse], error) {
	params := url.Values{}
	params.Set("assignee", assignee)

	var resp dto.APIResponse[dto.ListResponse[dto.PendingTaskResponse]]
	if err := p.get("/api/v1/tasks/pending?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// GetTask 获取任务详情
func (p *ProcessEngine) GetTask(id string) (*dto.TaskDetail, error) {
	var resp dto.APIResponse[dto.TaskDetail]
	if err := p.get("/api/v1/tasks/"+id, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// CompleteTask 提交任务输出并完成任务
func (p *ProcessEngine) CompleteTask(id string, output map[string]any) error {
	req := dto.CompleteTaskRequest{Output: output}
	var resp dto.APIResponse[map[string]string]
	if err := p.post("/api/v1/tasks/"+id+"/complete", req, &resp); err != nil {
		return err
	}
	if resp.Code != 0 {
		return fmt.Errorf("%s", resp.Message)
	}
	return nil
}

// ========== Queue API ==========

// ProcessQueue 手动触发执行队列处理
func (p *ProcessEngine) ProcessQueue(limit int) (*dto.ProcessQueueResponse, error) {
	path := "/api/v1/queue/process"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var resp dto.APIResponse[dto.ProcessQueueResponse]
	if err := p.post(path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// ========== Function API ==========

// ListFunctions 列出所有已注册的任务函数
func (p *ProcessEngine) ListFunctions() (*dto.ListResponse[*storage.FunctionMeta], error) {
	var resp dto.APIResponse[dto.ListResponse[*storage.FunctionMeta]]
	if err := p.get("/api/v1/functions", &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// RegisterFunction 注册任务函数
func (p *ProcessEngine) RegisterFunction(req dto.RegisterFunctionRequest) error {
	var resp dto.APIResponse[map[string]string]
	if err := p.post("/api/v1/functions", req, &resp); err != nil {
		return err
	}
	if resp.Code != 0 {
		return fmt.Errorf("%s", resp.Message)
	}
	return nil
}

// ========== Health API ==========

// Health 健康检查
func (p *ProcessEngine) Health() (*dto.HealthResponse, error) {
	var resp dto.APIResponse[dto.HealthResponse]
	if err := p.get("/health", &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// ========== HTTP Methods ==========

func (p *ProcessEngine) get(path string, result interface{}) error {
	resp, err := p.httpClient.Get(p.baseURL + path)
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	return p.parseResponse(resp, result)
}

func (p *ProcessEngine) post(path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求体失败: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	resp, err := p.httpClient.Post(p.baseURL+path, "application/json", reqBody)
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	return p.parseResponse(resp, result)
}

func (p *ProcessEngine) parseResponse(resp *http.Response, result interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应体失败: %w", err)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("解析响应失败: %w, body: %s", err, string(body))
	}

	return nil
}
