// Package config 通过 viper 加载 udtkit 的运行配置：yaml 文件、UDT_ 环境变量与默认值
package config

import (
	stdErrors "errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	core "udtkit/data/db"
	"udtkit/errors"
	"udtkit/logging"
)

// EnvPrefix 环境变量前缀，UDT_DATABASE_DSN 覆盖 database.dsn
const EnvPrefix = "UDT"

// Config 运行配置
type Config struct {
	Database     DatabaseConfig     `mapstructure:"database"`
	Keys         KeysConfig         `mapstructure:"keys"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Invalidation InvalidationConfig `mapstructure:"invalidation"`
	Log          LogConfig          `mapstructure:"log"`
	Reference    ReferenceConfig    `mapstructure:"reference"`
	User         string             `mapstructure:"user"`
}

// DatabaseConfig 远端表存储
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

// DB 转换为数据库配置
func (d DatabaseConfig) DB() core.DBConfig {
	return core.DBConfig{
		Driver:          d.Driver,
		DSN:             d.DSN,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		PingTimeout:     d.PingTimeout,
	}
}

// KeysConfig 主键生成
type KeysConfig struct {
	// Random RandomUnique 来源：uuid、uuidv4、ulid、snowflake
	Random       string `mapstructure:"random"`
	DatacenterID int64  `mapstructure:"datacenter_id"`
	WorkerID     int64  `mapstructure:"worker_id"`
	// Sequence Serial 序列后端：sql、redis
	Sequence string `mapstructure:"sequence"`
}

// RedisConfig redis 连接，序列与 streams 传输共用
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// InvalidationConfig 保存后的缓存失效通知
type InvalidationConfig struct {
	// Transport none、memory、redis、nats
	Transport string        `mapstructure:"transport"`
	Stream    string        `mapstructure:"stream"`
	NatsURL   string        `mapstructure:"nats_url"`
	CacheSize int           `mapstructure:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// LogConfig 日志
type LogConfig struct {
	// Backend std 或 zap
	Backend     string `mapstructure:"backend"`
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// ReferenceConfig 有效值目录
type ReferenceConfig struct {
	Dir string `mapstructure:"dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "udt.db")
	v.SetDefault("database.ping_timeout", 3*time.Second)
	v.SetDefault("keys.random", "uuid")
	v.SetDefault("keys.sequence", "sql")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.key_prefix", "udt:seq:")
	v.SetDefault("invalidation.transport", "none")
	v.SetDefault("invalidation.stream", "UDT")
	v.SetDefault("invalidation.nats_url", "nats://localhost:4222")
	v.SetDefault("invalidation.cache_size", 1024)
	v.SetDefault("invalidation.cache_ttl", 5*time.Minute)
	v.SetDefault("invalidation.timeout", 5*time.Second)
	v.SetDefault("log.backend", "std")
	v.SetDefault("log.level", "info")
	v.SetDefault("user", "manager")
}

// Load 读取配置。path 为空时在当前目录查找 udt.yaml；文件不存在不是错误。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("udt")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stdErrors.As(err, &notFound) && !stdErrors.Is(err, fs.ErrNotExist) {
			return nil, errors.WrapError(err, errors.ErrCodeInvalidInput, "读取配置失败")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeInvalidInput, "解析配置失败")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验枚举取值
func (c *Config) Validate() error {
	var errs []error
	check := func(key, value string, allowed ...string) {
		for _, a := range allowed {
			if strings.EqualFold(value, a) {
				return
			}
		}
		errs = append(errs, errors.Errorf(errors.ErrCodeInvalidInput, "%s 取值无效: %q", key, value))
	}
	check("database.driver", c.Database.Driver, "sqlite", "sqlite3", "postgres", "pgx", "postgresql", "mysql")
	check("keys.sequence", c.Keys.Sequence, "sql", "redis")
	check("invalidation.transport", c.Invalidation.Transport, "none", "memory", "redis", "nats")
	check("log.backend", c.Log.Backend, "std", "zap")
	return errors.Join(errs...)
}

// Logger 按配置创建日志
func (c *Config) Logger() (logging.Logger, error) {
	level := logging.ParseLevel(c.Log.Level)
	if strings.EqualFold(c.Log.Backend, "zap") {
		z, err := logging.NewZapLoggerFromConfig(c.Log.Development, level)
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrCodeInternal, "创建 zap 日志失败")
		}
		return z, nil
	}
	return logging.NewStdLogger("[udt] ", logging.WithLevel(level)), nil
}
