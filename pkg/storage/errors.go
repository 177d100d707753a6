package storage

import "errors"

// ErrNotFound 记录不存在（对外导出）
// 各数据库实现将sql.ErrNoRows统一转换为本错误，调用方用errors.Is判断
var ErrNotFound = errors.New("记录不存在")
