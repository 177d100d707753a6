package config

import "time"

// EngineConfig 引擎配置（对外导出）
type EngineConfig struct {
	ProcessEngine struct {
		General struct {
			InstanceName string `yaml:"instance_name"`
			LogLevel     string `yaml:"log_level"`
			Env          string `yaml:"env"`
		} `yaml:"general"`
		Storage struct {
			Database struct {
				Type            string        `yaml:"type"`
				DSN             string        `yaml:"dsn"`
				MaxOpenConns    int           `yaml:"max_open_conns"`
				MaxIdleConns    int           `yaml:"max_idle_conns"`
				ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
				ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
			} `yaml:"database"`
		} `yaml:"storage"`
		Queue struct {
			DrainCron  string `yaml:"drain_cron"`
			DrainLimit int    `yaml:"drain_limit"`
			Debug      bool   `yaml:"debug"`
		} `yaml:"queue"`
		HTTP struct {
			Host string `yaml:"host"`
			Port int    `yaml:"port"`
			Mode string `yaml:"mode"`
		} `yaml:"http"`
	} `yaml:"process-engine"`
}

// GetDatabaseType 获取数据库类型
func (c *EngineConfig) GetDatabaseType() string {
	return c.ProcessEngine.Storage.Database.Type
}

// GetDatabaseDSN 获取数据库DSN
func (c *EngineConfig) GetDatabaseDSN() string {
	return c.ProcessEngine.Storage.Database.DSN
}

// ApplyDefaults 应用默认值
func (c *EngineConfig) ApplyDefaults() {
	// General默认值
	if c.ProcessEngine.General.InstanceName == "" {
		c.ProcessEngine.General.InstanceName = "process-engine"
	}
	if c.ProcessEngine.General.LogLevel == "" {
		c.ProcessEngine.General.LogLevel = "info"
	}
	if c.ProcessEngine.General.Env == "" {
		c.ProcessEngine.General.Env = "dev"
	}

	// Database默认值
	if c.ProcessEngine.Storage.Database.Type == "" {
		c.ProcessEngine.Storage.Database.Type = "sqlite"
	}
	if c.ProcessEngine.Storage.Database.DSN == "" {
		c.ProcessEngine.Storage.Database.DSN = "process-engine.db"
	}
	if c.ProcessEngine.Storage.Database.MaxOpenConns <= 0 {
		c.ProcessEngine.Storage.Database.MaxOpenConns = 10
	}
	if c.ProcessEngine.Storage.Database.MaxIdleConns <= 0 {
		c.ProcessEngine.Storage.Database.MaxIdleConns = 5
	}
	if c.ProcessEngine.Storage.Database.ConnMaxLifetime <= 0 {
		c.ProcessEngine.Storage.Database.ConnMaxLifetime = 2 * time.Hour
	}
	if c.ProcessEngine.Storage.Database.ConnMaxIdleTime <= 0 {
		c.ProcessEngine.Storage.Database.ConnMaxIdleTime = 1 * time.Hour
	}

	// Queue默认值
	if c.ProcessEngine.Queue.DrainCron == "" {
		c.ProcessEngine.Queue.DrainCron = "*/30 * * * * *"
	}
	if c.ProcessEngine.Queue.DrainLimit <= 0 {
		c.ProcessEngine.Queue.DrainLimit = 100
	}

	// HTTP默认值
	if c.ProcessEngine.HTTP.Host == "" {
		c.ProcessEngine.HTTP.Host = "0.0.0.0"
	}
	if c.ProcessEngine.HTTP.Port <= 0 {
		c.ProcessEngine.HTTP.Port = 8080
	}
	if c.ProcessEngine.HTTP.Mode == "" {
		c.ProcessEngine.HTTP.Mode = "release"
	}
}
