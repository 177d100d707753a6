package storage

import (
	"fmt"

	"github.com/LENAX/process-engine/pkg/storage"
	"github.com/LENAX/process-engine/pkg/storage/mysql"
	"github.com/LENAX/process-engine/pkg/storage/postgres"
	pkgsqlite "github.com/LENAX/process-engine/pkg/storage/sqlite"
)

// NewEngineRepository 按数据库类型创建引擎聚合仓储（内部方法）
// dbType: 数据库类型（sqlite/mysql/postgres）
// dsn: 数据库连接字符串
func NewEngineRepository(dbType, dsn string) (storage.EngineRepository, error) {
	switch dbType {
	case "sqlite":
		repo, err := pkgsqlite.NewEngineRepoFromDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("create sqlite repository failed: %w", err)
		}
		return repo, nil
	case "mysql":
		repo, err := mysql.NewEngineRepoFromDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("create mysql repository failed: %w", err)
		}
		return repo, nil
	case "postgres", "postgresql":
		repo, err := postgres.NewEngineRepoFromDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("create postgres repository failed: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}
