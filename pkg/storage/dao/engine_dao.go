package dao

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LENAX/process-engine/pkg/core/definition"
	"github.com/LENAX/process-engine/pkg/core/schema"
	"github.com/LENAX/process-engine/pkg/storage"
)

// TemplateDAO workflow_template表的数据访问对象（内部使用）
type TemplateDAO struct {
	ID           string    `db:"id"`
	Code         string    `db:"code"`
	Name         string    `db:"name"`
	WorkflowType string    `db:"workflow_type"`
	MaturityGate string    `db:"maturity_gate"`
	Active       bool      `db:"active"`
	Definition   string    `db:"definition"` // JSON格式存储
	CreateTime   time.Time `db:"create_time"`
	UpdateTime   time.Time `db:"update_time"`
}

// FromTemplate 模型转DAO
func FromTemplate(tpl *storage.WorkflowTemplate) (*TemplateDAO, error) {
	defJSON, err := json.Marshal(tpl.Definition)
	if err != nil {
		return nil, fmt.Errorf("序列化模板定义失败: %w", err)
	}
	return &TemplateDAO{
		ID:           tpl.ID,
		Code:         tpl.Code,
		Name:         tpl.Name,
		WorkflowType: tpl.WorkflowType,
		MaturityGate: tpl.MaturityGate,
		Active:       tpl.Active,
		Definition:   string(defJSON),
		CreateTime:   tpl.CreateTime,
		UpdateTime:   tpl.UpdateTime,
	}, nil
}

// ToTemplate DAO转模型
func (d *TemplateDAO) ToTemplate() (*storage.WorkflowTemplate, error) {
	var def definition.Definition
	if err := json.Unmarshal([]byte(d.Definition), &def); err != nil {
		return nil, fmt.Errorf("反序列化模板定义失败: %w", err)
	}
	return &storage.WorkflowTemplate{
		ID:           d.ID,
		Code:         d.Code,
		Name:         d.Name,
		WorkflowType: d.WorkflowType,
		MaturityGate: d.MaturityGate,
		Active:       d.Active,
		Definition:   &def,
		CreateTime:   d.CreateTime,
		UpdateTime:   d.UpdateTime,
	}, nil
}

// InstanceDAO workflow_instance表的数据访问对象（内部使用）
type InstanceDAO struct {
	ID            string         `db:"id"`
	TemplateID    string         `db:"template_id"`
	Name          string         `db:"name"`
	Status        string         `db:"status"`
	CurrentNodeID string         `db:"current_node_id"`
	InputData     string         `db:"input_data"` // JSON格式存储
	ErrorMessage  sql.NullString `db:"error_msg"`
	CreateTime    time.Time      `db:"create_time"`
	UpdateTime    time.Time      `db:"update_time"`
}

// FromInstance 模型转DAO
func FromInstance(inst *storage.WorkflowInstance) (*InstanceDAO, error) {
	input, err := MarshalMap(inst.InputData)
	if err != nil {
		return nil, fmt.Errorf("序列化实例输入失败: %w", err)
	}
	return &InstanceDAO{
		ID:            inst.ID,
		TemplateID:    inst.TemplateID,
		Name:          inst.Name,
		Status:        inst.Status,
		CurrentNodeID: inst.CurrentNodeID,
		InputData:     input,
		ErrorMessage:  toNullString(inst.ErrorMessage),
		CreateTime:    inst.CreateTime,
		UpdateTime:    inst.UpdateTime,
	}, nil
}

// ToInstance DAO转模型
func (d *InstanceDAO) ToInstance() (*storage.WorkflowInstance, error) {
	input, err := UnmarshalMap(d.InputData)
	if err != nil {
		return nil, fmt.Errorf("反序列化实例输入失败: %w", err)
	}
	return &storage.WorkflowInstance{
		ID:            d.ID,
		TemplateID:    d.TemplateID,
		Name:          d.Name,
		Status:        d.Status,
		CurrentNodeID: d.CurrentNodeID,
		InputData:     input,
		ErrorMessage:  d.ErrorMessage.String,
		CreateTime:    d.CreateTime,
		UpdateTime:    d.UpdateTime,
	}, nil
}

// ContextDAO instance_context表的数据访问对象（内部使用）
type ContextDAO struct {
	ID          string    `db:"id"`
	InstanceID  string    `db:"instance_id"`
	Version     int       `db:"version"`
	ContextData string    `db:"context_data"` // JSON格式存储
	CreateTime  time.Time `db:"create_time"`
}

// FromContext 模型转DAO
func FromContext(c *storage.InstanceContext) (*ContextDAO, error) {
	data, err := MarshalMap(c.ContextData)
	if err != nil {
		return nil, fmt.Errorf("序列化实例上下文失败: %w", err)
	}
	return &ContextDAO{
		ID:          c.ID,
		InstanceID:  c.InstanceID,
		Version:     c.Version,
		ContextData: data,
		CreateTime:  c.CreateTime,
	}, nil
}

// ToContext DAO转模型
func (d *ContextDAO) ToContext() (*storage.InstanceContext, error) {
	data, err := UnmarshalMap(d.ContextData)
	if err != nil {
		return nil, fmt.Errorf("反序列化实例上下文失败: %w", err)
	}
	return &storage.InstanceContext{
		ID:          d.ID,
		InstanceID:  d.InstanceID,
		Version:     d.Version,
		ContextData: data,
		CreateTime:  d.CreateTime,
	}, nil
}

// TaskDAO instance_task表的数据访问对象（内部使用）
type TaskDAO struct {
	ID                 string         `db:"id"`
	WorkflowInstanceID string         `db:"workflow_instance_id"`
	NodeID             string         `db:"node_id"`
	FunctionCode       string         `db:"function_code"`
	TaskType           string         `db:"task_type"`
	Status             string         `db:"status"`
	AssignedTo         sql.NullString `db:"assigned_to"`
	InputData          string         `db:"input_data"`  // JSON格式存储
	OutputData         string         `db:"output_data"` // JSON格式存储
	ErrorMessage       sql.NullString `db:"error_msg"`
	CreateTime         time.Time      `db:"create_time"`
	CompleteTime       sql.NullTime   `db:"complete_time"`
}

// FromTask 模型转DAO
func FromTask(t *storage.InstanceTask) (*TaskDAO, error) {
	input, err := MarshalMap(t.InputData)
	if err != nil {
		return nil, fmt.Errorf("序列化任务输入失败: %w", err)
	}
	output, err := MarshalMap(t.OutputData)
	if err != nil {
		return nil, fmt.Errorf("序列化任务输出失败: %w", err)
	}
	return &TaskDAO{
		ID:                 t.ID,
		WorkflowInstanceID: t.WorkflowInstanceID,
		NodeID:             t.NodeID,
		FunctionCode:       t.FunctionCode,
		TaskType:           t.TaskType,
		Status:             t.Status,
		AssignedTo:         toNullString(t.AssignedTo),
		InputData:          input,
		OutputData:         output,
		ErrorMessage:       toNullString(t.ErrorMessage),
		CreateTime:         t.CreateTime,
		CompleteTime:       toNullTime(t.CompleteTime),
	}, nil
}

// ToTask DAO转模型
func (d *TaskDAO) ToTask() (*storage.InstanceTask, error) {
	input, err := UnmarshalMap(d.InputData)
	if err != nil {
		return nil, fmt.Errorf("反序列化任务输入失败: %w", err)
	}
	output, err := UnmarshalMap(d.OutputData)
	if err != nil {
		return nil, fmt.Errorf("反序列化任务输出失败: %w", err)
	}
	return &storage.InstanceTask{
		ID:                 d.ID,
		WorkflowInstanceID: d.WorkflowInstanceID,
		NodeID:             d.NodeID,
		FunctionCode:       d.FunctionCode,
		TaskType:           d.TaskType,
		Status:             d.Status,
		AssignedTo:         d.AssignedTo.String,
		InputData:          input,
		OutputData:         output,
		ErrorMessage:       d.ErrorMessage.String,
		CreateTime:         d.CreateTime,
		CompleteTime:       fromNullTime(d.CompleteTime),
	}, nil
}

// QueueDAO execution_queue表的数据访问对象（内部使用）
type QueueDAO struct {
	ID                 string         `db:"id"`
	WorkflowInstanceID string         `db:"workflow_instance_id"`
	Status             string         `db:"status"`
	ErrorMessage       sql.NullString `db:"error_msg"`
	CreateTime         time.Time      `db:"create_time"`
	ProcessedAt        sql.NullTime   `db:"processed_at"`
}

// ToQueueItem DAO转模型
func (d *QueueDAO) ToQueueItem() *storage.ExecutionQueueItem {
	return &storage.ExecutionQueueItem{
		ID:                 d.ID,
		WorkflowInstanceID: d.WorkflowInstanceID,
		Status:             d.Status,
		ErrorMessage:       d.ErrorMessage.String,
		CreateTime:         d.CreateTime,
		ProcessedAt:        fromNullTime(d.ProcessedAt),
	}
}

// HistoryDAO instance_history表的数据访问对象（内部使用）
type HistoryDAO struct {
	ID                 string         `db:"id"`
	WorkflowInstanceID string         `db:"workflow_instance_id"`
	EventType          string         `db:"event_type"`
	FromNodeID         sql.NullString `db:"from_node_id"`
	ToNodeID           sql.NullString `db:"to_node_id"`
	Detail             sql.NullString `db:"detail"`
	CreateTime         time.Time      `db:"create_time"`
}

// FromHistory 模型转DAO
func FromHistory(h *storage.InstanceHistory) *HistoryDAO {
	return &HistoryDAO{
		ID:                 h.ID,
		WorkflowInstanceID: h.WorkflowInstanceID,
		EventType:          h.EventType,
		FromNodeID:         toNullString(h.FromNodeID),
		ToNodeID:           toNullString(h.ToNodeID),
		Detail:             toNullString(h.Detail),
		CreateTime:         h.CreateTime,
	}
}

// ToHistory DAO转模型
func (d *HistoryDAO) ToHistory() *storage.InstanceHistory {
	return &storage.InstanceHistory{
		ID:                 d.ID,
		WorkflowInstanceID: d.WorkflowInstanceID,
		EventType:          d.EventType,
		FromNodeID:         d.FromNodeID.String,
		ToNodeID:           d.ToNodeID.String,
		Detail:             d.Detail.String,
		CreateTime:         d.CreateTime,
	}
}

// FunctionDAO function_meta表的数据访问对象（内部使用）
type FunctionDAO struct {
	Code         string         `db:"code"`
	Name         string         `db:"name"`
	TaskType     string         `db:"task_type"`
	Description  sql.NullString `db:"description"`
	InputSchema  sql.NullString `db:"input_schema"`  // JSON格式存储
	OutputSchema sql.NullString `db:"output_schema"` // JSON格式存储
	Active       bool           `db:"active"`
	CreateTime   time.Time      `db:"create_time"`
	UpdateTime   time.Time      `db:"update_time"`
}

// FromFunction 模型转DAO
func FromFunction(fn *storage.FunctionMeta) (*FunctionDAO, error) {
	input, err := marshalSchema(fn.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("序列化函数输入Schema失败: %w", err)
	}
	output, err := marshalSchema(fn.OutputSchema)
	if err != nil {
		return nil, fmt.Errorf("序列化函数输出Schema失败: %w", err)
	}
	return &FunctionDAO{
		Code:         fn.Code,
		Name:         fn.Name,
		TaskType:     fn.TaskType,
		Description:  toNullString(fn.Description),
		InputSchema:  input,
		OutputSchema: output,
		Active:       fn.Active,
		CreateTime:   fn.CreateTime,
		UpdateTime:   fn.UpdateTime,
	}, nil
}

// ToFunction DAO转模型
func (d *FunctionDAO) ToFunction() (*storage.FunctionMeta, error) {
	input, err := unmarshalSchema(d.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("反序列化函数输入Schema失败: %w", err)
	}
	output, err := unmarshalSchema(d.OutputSchema)
	if err != nil {
		return nil, fmt.Errorf("反序列化函数输出Schema失败: %w", err)
	}
	return &storage.FunctionMeta{
		Code:         d.Code,
		Name:         d.Name,
		TaskType:     d.TaskType,
		Description:  d.Description.String,
		InputSchema:  input,
		OutputSchema: output,
		Active:       d.Active,
		CreateTime:   d.CreateTime,
		UpdateTime:   d.UpdateTime,
	}, nil
}

// ========== JSON与空值辅助函数 ==========

// MarshalMap map序列化为JSON字符串，nil视为空对象（对外导出）
func MarshalMap(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UnmarshalMap JSON字符串反序列化为map，空串视为空对象（对外导出）
func UnmarshalMap(s string) (map[string]any, error) {
	if s == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

func marshalSchema(s *schema.ObjectSchema) (sql.NullString, error) {
	if s == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalSchema(ns sql.NullString) (*schema.ObjectSchema, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var s schema.ObjectSchema
	if err := json.Unmarshal([]byte(ns.String), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
