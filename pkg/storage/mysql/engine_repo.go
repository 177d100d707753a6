package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LENAX/process-engine/pkg/storage"
	"github.com/LENAX/process-engine/pkg/storage/dao"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// EngineRepo 引擎聚合仓储的MySQL实现（对外导出）
type EngineRepo struct {
	db *sqlx.DB
}

// NewEngineRepo 创建MySQL引擎聚合仓储实例（对外导出）
func NewEngineRepo(db *sqlx.DB) (*EngineRepo, error) {
	repo := &EngineRepo{db: db}
	if err := repo.initSchema(); err != nil {
		return nil, fmt.Errorf("初始化表结构失败: %w", err)
	}
	return repo, nil
}

// NewEngineRepoFromDSN 通过DSN创建MySQL引擎聚合仓储实例（对外导出）
// dsn格式: user:password@tcp(host:port)/dbname?parseTime=true
func NewEngineRepoFromDSN(dsn string) (*EngineRepo, error) {
	// 确保DSN包含parseTime=true
	if !strings.Contains(dsn, "parseTime=true") {
		if strings.Contains(dsn, "?") {
			dsn += "&parseTime=true"
		} else {
			dsn += "?parseTime=true"
		}
	}

	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	return NewEngineRepo(db)
}

// GetDB 获取底层数据库连接（对外导出）
func (r *EngineRepo) GetDB() *sqlx.DB {
	return r.db
}

// Close 关闭数据库连接（对外导出）
func (r *EngineRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// initSchema 初始化数据库表结构
func (r *EngineRepo) initSchema() error {
	// 工作流模板表
	createTemplateSQL := `
	CREATE TABLE IF NOT EXISTS workflow_template (
		id VARCHAR(36) PRIMARY KEY,
		code VARCHAR(255) NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL,
		workflow_type VARCHAR(100) DEFAULT '',
		maturity_gate VARCHAR(100) DEFAULT '',
		active TINYINT(1) NOT NULL DEFAULT 1,
		definition TEXT NOT NULL,
		create_time DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		update_time DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_workflow_template_code (code)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`

	// 工作流实例表
	createInstanceSQL := `
	CREATE TABLE IF NOT EXISTS workflow_instance (
		id VARCHAR(36) PRIMARY KEY,
		template_id VARCHAR(36) NOT NULL,
		name VARCHAR(255) NOT NULL,
		status VARCHAR(50) NOT NULL,
		current_node_id VARCHAR(255) NOT NULL,
		input_data TEXT,
		error_msg TEXT,
		create_time DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		update_time DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (template_id) REFERENCES workflow_template(id),
		INDEX idx_workflow_instance_template_id (template_id),
		INDEX idx_workflow_instance_status (status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`

	// 实例上下文表（只追加版本链）
	createContextSQL := `
	CREATE TABLE IF NOT EXISTS instance_context (
		id VARCHAR(36) PRIMARY KEY,
		instance_id VARCHAR(36) NOT NULL,
		version INT NOT NULL,
		context_data TEXT,
		create_time DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (instance_id) REFERENCES workflow_instance(id) ON DELETE CASCADE,
		UNIQUE KEY uk_instance_context_version (instance_id, version),
		INDEX idx_instance_context_instance_id (instance_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`

	// 实例任务表
	createTaskSQL := `
	CREATE TABLE IF NOT EXISTS instance_task (
		id VARCHAR(36) PRIMARY KEY,
		workflow_instance_id VARCHAR(36) NOT NULL,
		node_id VARCHAR(255) NOT NULL,
		function_code VARCHAR(255) NOT NULL,
		task_type VARCHAR(50) NOT NULL,
		status VARCHAR(50) NOT NULL,
		assigned_to VARCHAR(255),
		input_data TEXT,
		output_data TEXT,
		error_msg TEXT,
		create_time DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		complete_time DATETIME,
		FOREIGN KEY (workflow_instance_id) REFERENCES workflow_instance(id) ON DELETE CASCADE,
		INDEX idx_instance_task_workflow_instance_id (workflow_instance_id),
		INDEX idx_instance_task_status (status),
		INDEX idx_instance_task_assigned_to (assigned_to)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`

	// 推进队列表
	createQueueSQL := `
	CREATE TABLE IF NOT EXISTS execution_queue (
		id VARCHAR(36) PRIMARY KEY,
		workflow_instance_id VARCHAR(36) NOT NULL,
		status VARCHAR(50) NOT NULL,
		error_msg TEXT,
		create_time DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME,
		FOREIGN KEY (workflow_instance_id) REFERENCES workflow_instance(id) ON DELETE CASCADE,
		INDEX idx_execution_queue_status (status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`

	// 实例推进历史表
	createHistorySQL := `
	CREATE TABLE IF NOT EXISTS instance_history (
		id VARCHAR(36) PRIMARY KEY,
		workflow_instance_id VARCHAR(36) NOT NULL,
		event_type VARCHAR(50) NOT NULL,
		from_node_id VARCHAR(255),
		to_node_id VARCHAR(255),
		detail TEXT,
		create_time DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (workflow_instance_id) REFERENCES workflow_instance(id) ON DELETE CASCADE,
		INDEX idx_instance_history_workflow_instance_id (workflow_instance_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`

	// 函数元数据表
	createFunctionMetaSQL := `
	CREATE TABLE IF NOT EXISTS function_meta (
		code VARCHAR(255) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		task_type VARCHAR(50) NOT NULL,
		description TEXT,
		input_schema TEXT,
		output_schema TEXT,
		active TINYINT(1) NOT NULL DEFAULT 1,
		create_time DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		update_time DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`

	for _, sqlStmt := range []string{
		createTemplateSQL,
		createInstanceSQL,
		createContextSQL,
		createTaskSQL,
		createQueueSQL,
		createHistorySQL,
		createFunctionMetaSQL,
	} {
		if _, err := r.db.Exec(sqlStmt); err != nil {
			return fmt.Errorf("执行SQL失败: %w", err)
		}
	}

	return nil
}

// ========== 模板相关操作 ==========

// SaveTemplate 保存工作流模板（code冲突时整体更新）
func (r *EngineRepo) SaveTemplate(ctx context.Context, tpl *storage.WorkflowTemplate) error {
	d, err := dao.FromTemplate(tpl)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO workflow_template
	(id, code, name, workflow_type, maturity_gate, active, definition, create_time, update_time)
	VALUES (:id, :code, :name, :workflow_type, :maturity_gate, :active, :definition, :create_time, :update_time)
	ON DUPLICATE KEY UPDATE
		name = VALUES(name),
		workflow_type = VALUES(workflow_type),
		maturity_gate = VALUES(maturity_gate),
		active = VALUES(active),
		definition = VALUES(definition),
		update_time = VALUES(update_time)
	`
	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("保存模板失败: %w", err)
	}
	return nil
}

// GetTemplate 按ID获取模板
func (r *EngineRepo) GetTemplate(ctx context.Context, id string) (*storage.WorkflowTemplate, error) {
	var d dao.TemplateDAO
	query := `SELECT * FROM workflow_template WHERE id = ?`
	if err := r.db.GetContext(ctx, &d, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("查询模板失败: %w", err)
	}
	return d.ToTemplate()
}

// GetTemplateByCode 按业务编码获取模板
func (r *EngineRepo) GetTemplateByCode(ctx context.Context, code string) (*storage.WorkflowTemplate, error) {
	var d dao.TemplateDAO
	query := `SELECT * FROM workflow_template WHERE code = ?`
	if err := r.db.GetContext(ctx, &d, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("查询模板失败: %w", err)
	}
	return d.ToTemplate()
}

// ListTemplates 列出全部模板
func (r *EngineRepo) ListTemplates(ctx context.Context) ([]*storage.WorkflowTemplate, error) {
	var daos []dao.TemplateDAO
	query := `SELECT * FROM workflow_template ORDER BY create_time`
	if err := r.db.SelectContext(ctx, &daos, query); err != nil {
		return nil, fmt.Errorf("查询模板列表失败: %w", err)
	}

	templates := make([]*storage.WorkflowTemplate, 0, len(daos))
	for i := range daos {
		tpl, err := daos[i].ToTemplate()
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	return templates, nil
}

// SetTemplateActive 切换模板启用状态
func (r *EngineRepo) SetTemplateActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE workflow_template SET active = ?, update_time = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, active, time.Now(), id)
	if err != nil {
		return fmt.Errorf("更新模板状态失败: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ========== 函数注册相关操作 ==========

// SaveFunction 注册或更新函数元数据
func (r *EngineRepo) SaveFunction(ctx context.Context, fn *storage.FunctionMeta) error {
	d, err := dao.FromFunction(fn)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO function_meta
	(code, name, task_type, description, input_schema, output_schema, active, create_time, update_time)
	VALUES (:code, :name, :task_type, :description, :input_schema, :output_schema, :active, :create_time, :update_time)
	ON DUPLICATE KEY UPDATE
		name = VALUES(name),
		task_type = VALUES(task_type),
		description = VALUES(description),
		input_schema = VALUES(input_schema),
		output_schema = VALUES(output_schema),
		active = VALUES(active),
		update_time = VALUES(update_time)
	`
	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("保存函数元数据失败: %w", err)
	}
	return nil
}

// GetFunction 按编码获取函数元数据
func (r *EngineRepo) GetFunction(ctx context.Context, code string) (*storage.FunctionMeta, error) {
	var d dao.FunctionDAO
	query := `SELECT * FROM function_meta WHERE code = ?`
	if err := r.db.GetContext(ctx, &d, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("查询函数元数据失败: %w", err)
	}
	return d.ToFunction()
}

// ListFunctions 列出全部函数元数据
func (r *EngineRepo) ListFunctions(ctx context.Context) ([]*storage.FunctionMeta, error) {
	var daos []dao.FunctionDAO
	query := `SELECT * FROM function_meta ORDER BY create_time`
	if err := r.db.SelectContext(ctx, &daos, query); err != nil {
		return nil, fmt.Errorf("查询函数列表失败: %w", err)
	}

	functions := make([]*storage.FunctionMeta, 0, len(daos))
	for i := range daos {
		fn, err := daos[i].ToFunction()
		if err != nil {
			return nil, err
		}
		functions = append(functions, fn)
	}
	return functions, nil
}

// ========== 实例相关操作 ==========

// SaveInstance 保存新建实例
func (r *EngineRepo) SaveInstance(ctx context.Context, inst *storage.WorkflowInstance) error {
	d, err := dao.FromInstance(inst)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO workflow_instance
	(id, template_id, name, status, current_node_id, input_data, error_msg, create_time, update_time)
	VALUES (:id, :template_id, :name, :status, :current_node_id, :input_data, :error_msg, :create_time, :update_time)
	`
	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("保存实例失败: %w", err)
	}
	return nil
}

// GetInstance 按ID获取实例
func (r *EngineRepo) GetInstance(ctx context.Context, id string) (*storage.WorkflowInstance, error) {
	var d dao.InstanceDAO
	query := `SELECT * FROM workflow_instance WHERE id = ?`
	if err := r.db.GetContext(ctx, &d, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("查询实例失败: %w", err)
	}
	return d.ToInstance()
}

// ListInstancesByStatus 按状态列出实例
func (r *EngineRepo) ListInstancesByStatus(ctx context.Context, status string) ([]*storage.WorkflowInstance, error) {
	var daos []dao.InstanceDAO
	query := `SELECT * FROM workflow_instance WHERE status = ? ORDER BY create_time`
	if err := r.db.SelectContext(ctx, &daos, query, status); err != nil {
		return nil, fmt.Errorf("查询实例列表失败: %w", err)
	}

	instances := make([]*storage.WorkflowInstance, 0, len(daos))
	for i := range daos {
		inst, err := daos[i].ToInstance()
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

// UpdateInstancePosition 更新实例当前节点与状态
func (r *EngineRepo) UpdateInstancePosition(ctx context.Context, id, currentNodeID, status string) error {
	query := `UPDATE workflow_instance SET current_node_id = ?, status = ?, update_time = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, currentNodeID, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("更新实例位置失败: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateInstanceError 将实例置为失败/异常态并记录原因
func (r *EngineRepo) UpdateInstanceError(ctx context.Context, id, status, errMsg string) error {
	query := `UPDATE workflow_instance SET status = ?, error_msg = ?, update_time = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, status, errMsg, time.Now(), id)
	if err != nil {
		return fmt.Errorf("更新实例错误状态失败: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ========== 实例上下文相关操作 ==========

// AppendContext 追加一个新的上下文版本（事务内计算版本号）
func (r *EngineRepo) AppendContext(ctx context.Context, instanceID string, data map[string]any) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("开始事务失败: %w", err)
	}
	defer tx.Rollback()

	var maxVersion sql.NullInt64
	versionQuery := `SELECT MAX(version) FROM instance_context WHERE instance_id = ? FOR UPDATE`
	if err := tx.GetContext(ctx, &maxVersion, versionQuery, instanceID); err != nil {
		return 0, fmt.Errorf("查询上下文版本失败: %w", err)
	}
	version := int(maxVersion.Int64) + 1

	d, err := dao.FromContext(&storage.InstanceContext{
		ID:          uuid.NewString(),
		InstanceID:  instanceID,
		Version:     version,
		ContextData: data,
		CreateTime:  time.Now(),
	})
	if err != nil {
		return 0, err
	}

	insertQuery := `
	INSERT INTO instance_context (id, instance_id, version, context_data, create_time)
	VALUES (:id, :instance_id, :version, :context_data, :create_time)
	`
	if _, err := tx.NamedExecContext(ctx, insertQuery, d); err != nil {
		return 0, fmt.Errorf("写入上下文版本失败: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("提交事务失败: %w", err)
	}
	return version, nil
}

// GetLatestContext 获取实例最新版本的上下文
func (r *EngineRepo) GetLatestContext(ctx context.Context, instanceID string) (*storage.InstanceContext, error) {
	var d dao.ContextDAO
	query := `SELECT * FROM instance_context WHERE instance_id = ? ORDER BY version DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &d, query, instanceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("查询最新上下文失败: %w", err)
	}
	return d.ToContext()
}

// ListContextVersions 按版本升序列出实例的全部上下文快照
func (r *EngineRepo) ListContextVersions(ctx context.Context, instanceID string) ([]*storage.InstanceContext, error) {
	var daos []dao.ContextDAO
	query := `SELECT * FROM instance_context WHERE instance_id = ? ORDER BY version`
	if err := r.db.SelectContext(ctx, &daos, query, instanceID); err != nil {
		return nil, fmt.Errorf("查询上下文版本链失败: %w", err)
	}

	versions := make([]*storage.InstanceContext, 0, len(daos))
	for i := range daos {
		c, err := daos[i].ToContext()
		if err != nil {
			return nil, err
		}
		versions = append(versions, c)
	}
	return versions, nil
}

// ========== 任务相关操作 ==========

// SaveTask 保存任务记录
func (r *EngineRepo) SaveTask(ctx context.Context, task *storage.InstanceTask) error {
	d, err := dao.FromTask(task)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO instance_task
	(id, workflow_instance_id, node_id, function_code, task_type, status, assigned_to,
	 input_data, output_data, error_msg, create_time, complete_time)
	VALUES (:id, :workflow_instance_id, :node_id, :function_code, :task_type, :status, :assigned_to,
	 :input_data, :output_data, :error_msg, :create_time, :complete_time)
	`
	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("保存任务失败: %w", err)
	}
	return nil
}

// GetTask 按ID获取任务
func (r *EngineRepo) GetTask(ctx context.Context, id string) (*storage.InstanceTask, error) {
	var d dao.TaskDAO
	query := `SELECT * FROM instance_task WHERE id = ?`
	if err := r.db.GetContext(ctx, &d, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("查询任务失败: %w", err)
	}
	return d.ToTask()
}

// ListTasksByInstance 列出实例的全部任务
func (r *EngineRepo) ListTasksByInstance(ctx context.Context, instanceID string) ([]*storage.InstanceTask, error) {
	var daos []dao.TaskDAO
	query := `SELECT * FROM instance_task WHERE workflow_instance_id = ? ORDER BY create_time`
	if err := r.db.SelectContext(ctx, &daos, query, instanceID); err != nil {
		return nil, fmt.Errorf("查询实例任务失败: %w", err)
	}
	return daosToTasks(daos)
}

// ListPendingTasksByAssignee 列出指派给某处理人的待办任务
func (r *EngineRepo) ListPendingTasksByAssignee(ctx context.Context, assignee string) ([]*storage.InstanceTask, error) {
	var daos []dao.TaskDAO
	query := `SELECT * FROM instance_task WHERE assigned_to = ? AND status = ? ORDER BY create_time`
	if err := r.db.SelectContext(ctx, &daos, query, assignee, storage.TaskStatusPending); err != nil {
		return nil, fmt.Errorf("查询待办任务失败: %w", err)
	}
	return daosToTasks(daos)
}

func daosToTasks(daos []dao.TaskDAO) ([]*storage.InstanceTask, error) {
	tasks := make([]*storage.InstanceTask, 0, len(daos))
	for i := range daos {
		t, err := daos[i].ToTask()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// CompleteTask 将任务置为完成并写入输出数据
func (r *EngineRepo) CompleteTask(ctx context.Context, id string, output map[string]any) error {
	outputJSON, err := dao.MarshalMap(output)
	if err != nil {
		return fmt.Errorf("序列化任务输出失败: %w", err)
	}

	query := `UPDATE instance_task SET status = ?, output_data = ?, complete_time = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, storage.TaskStatusCompleted, outputJSON, time.Now(), id)
	if err != nil {
		return fmt.Errorf("更新任务状态失败: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// FailTask 将任务置为失败并记录原因
func (r *EngineRepo) FailTask(ctx context.Context, id, errMsg string) error {
	query := `UPDATE instance_task SET status = ?, error_msg = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, storage.TaskStatusFailed, errMsg, id)
	if err != nil {
		return fmt.Errorf("更新任务状态失败: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ========== 推进队列相关操作 ==========

// EnqueueAdvance 为实例入队一条推进请求
func (r *EngineRepo) EnqueueAdvance(ctx context.Context, instanceID string) (string, error) {
	id := uuid.NewString()
	query := `
	INSERT INTO execution_queue (id, workflow_instance_id, status, create_time)
	VALUES (?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, id, instanceID, storage.QueueStatusPending, time.Now()); err != nil {
		return "", fmt.Errorf("入队推进请求失败: %w", err)
	}
	return id, nil
}

// GetQueueItem 按ID获取队列项
func (r *EngineRepo) GetQueueItem(ctx context.Context, id string) (*storage.ExecutionQueueItem, error) {
	var d dao.QueueDAO
	query := `SELECT * FROM execution_queue WHERE id = ?`
	if err := r.db.GetContext(ctx, &d, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("查询队列项失败: %w", err)
	}
	return d.ToQueueItem(), nil
}

// ClaimQueueItem 原子认领队列项（PENDING -> PROCESSING）
func (r *EngineRepo) ClaimQueueItem(ctx context.Context, id string) (bool, error) {
	query := `UPDATE execution_queue SET status = ? WHERE id = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, query, storage.QueueStatusProcessing, id, storage.QueueStatusPending)
	if err != nil {
		return false, fmt.Errorf("认领队列项失败: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("读取认领结果失败: %w", err)
	}
	return rows == 1, nil
}

// MarkQueueItemCompleted 队列项处理成功
func (r *EngineRepo) MarkQueueItemCompleted(ctx context.Context, id string) error {
	query := `UPDATE execution_queue SET status = ?, processed_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, storage.QueueStatusCompleted, time.Now(), id); err != nil {
		return fmt.Errorf("更新队列项状态失败: %w", err)
	}
	return nil
}

// MarkQueueItemFailed 队列项处理失败并记录原因
func (r *EngineRepo) MarkQueueItemFailed(ctx context.Context, id, errMsg string) error {
	query := `UPDATE execution_queue SET status = ?, error_msg = ?, processed_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, storage.QueueStatusFailed, errMsg, time.Now(), id); err != nil {
		return fmt.Errorf("更新队列项状态失败: %w", err)
	}
	return nil
}

// ListPendingQueueItems 按入队顺序列出待处理队列项
func (r *EngineRepo) ListPendingQueueItems(ctx context.Context, limit int) ([]*storage.ExecutionQueueItem, error) {
	var daos []dao.QueueDAO
	query := `SELECT * FROM execution_queue WHERE status = ? ORDER BY create_time`
	args := []any{storage.QueueStatusPending}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	if err := r.db.SelectContext(ctx, &daos, query, args...); err != nil {
		return nil, fmt.Errorf("查询待处理队列失败: %w", err)
	}

	items := make([]*storage.ExecutionQueueItem, 0, len(daos))
	for i := range daos {
		items = append(items, daos[i].ToQueueItem())
	}
	return items, nil
}

// ========== 推进历史相关操作 ==========

// AppendHistory 追加一条实例历史记录
func (r *EngineRepo) AppendHistory(ctx context.Context, h *storage.InstanceHistory) error {
	d := dao.FromHistory(h)
	query := `
	INSERT INTO instance_history (id, workflow_instance_id, event_type, from_node_id, to_node_id, detail, create_time)
	VALUES (:id, :workflow_instance_id, :event_type, :from_node_id, :to_node_id, :detail, :create_time)
	`
	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("写入历史记录失败: %w", err)
	}
	return nil
}

// ListHistory 按时间升序列出实例历史
func (r *EngineRepo) ListHistory(ctx context.Context, instanceID string) ([]*storage.InstanceHistory, error) {
	var daos []dao.HistoryDAO
	query := `SELECT * FROM instance_history WHERE workflow_instance_id = ? ORDER BY create_time`
	if err := r.db.SelectContext(ctx, &daos, query, instanceID); err != nil {
		return nil, fmt.Errorf("查询历史记录失败: %w", err)
	}

	records := make([]*storage.InstanceHistory, 0, len(daos))
	for i := range daos {
		records = append(records, daos[i].ToHistory())
	}
	return records, nil
}
