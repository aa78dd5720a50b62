package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

var GlobalConfig *Config

// Config 全局配置
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Crypto       CryptoConfig       `mapstructure:"crypto"`
	Log          LogConfig          `mapstructure:"log"`
	Policy       PolicyConfig       `mapstructure:"policy"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Notification NotificationConfig `mapstructure:"notification"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Name string `mapstructure:"name"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // mysql, postgres, sqlite
	DSN             string `mapstructure:"dsn"`    // 非空时优先使用
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
	LogLevel        string `mapstructure:"log_level"`         // SQL日志级别: silent/error/warn/info
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWT     JWTConfig      `mapstructure:"jwt"`
	LDAP    LDAPConfig     `mapstructure:"ldap"`
	Local   LocalConfig    `mapstructure:"local"`
	APIKeys []APIKeyConfig `mapstructure:"api_keys"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret             string `mapstructure:"secret"`
	AccessTokenExpire  int    `mapstructure:"access_token_expire"`  // 秒
	RefreshTokenExpire int    `mapstructure:"refresh_token_expire"` // 秒
}

// LDAPConfig IDM(LDAP)配置
type LDAPConfig struct {
	Enabled      bool           `mapstructure:"enabled"`
	Host         string         `mapstructure:"host"`
	Port         int            `mapstructure:"port"`
	UseSSL       bool           `mapstructure:"use_ssl"`
	BindDN       string         `mapstructure:"bind_dn"`
	BindPassword string         `mapstructure:"bind_password"`
	BaseDN       string         `mapstructure:"base_dn"`
	UserFilter   string         `mapstructure:"user_filter"`
	Attributes   LDAPAttributes `mapstructure:"attributes"`
}

// LDAPAttributes LDAP属性映射
type LDAPAttributes struct {
	Username    string `mapstructure:"username"`
	Email       string `mapstructure:"email"`
	DisplayName string `mapstructure:"display_name"`
}

// LocalConfig 本地用户配置
type LocalConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// APIKeyConfig 全局API Key(自动化调用)
type APIKeyConfig struct {
	Key    string   `mapstructure:"key"`
	Name   string   `mapstructure:"name"`
	Scopes []string `mapstructure:"scopes"`
}

// CryptoConfig 加密配置
type CryptoConfig struct {
	AESKey string `mapstructure:"aes_key"` // 32字节, 为空时敏感变量不加密存储
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level"`  // debug, info, warn, error
	Format   string `mapstructure:"format"` // json, console
	Output   string `mapstructure:"output"` // stdout, file
	FilePath string `mapstructure:"file_path"`
}

// PolicyConfig 状态码校验策略
type PolicyConfig struct {
	EnforceStateStep bool `mapstructure:"enforce_state_step"` // 旧版数值状态规则: code 必须是 state_step 的倍数
	StateStep        int  `mapstructure:"state_step"`
	MaxState         int  `mapstructure:"max_state"`
}

// SchedulerConfig 定时任务配置
type SchedulerConfig struct {
	ArtifactSweepCron string `mapstructure:"artifact_sweep_cron"` // 过期产物清理, 空表示不启用
}

// NotificationConfig 通知配置
type NotificationConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Provider    string `mapstructure:"provider"` // log, lark
	LarkWebhook string `mapstructure:"lark_webhook"`
}

// Load 加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// 读取环境变量 BUILDSTATE_DATABASE_DRIVER -> database.driver
	v.SetEnvPrefix("BUILDSTATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 未指定文件且默认文件不存在时, 使用默认值启动
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	GlobalConfig = config

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "buildstate-api")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.database", "buildstate.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", 3600)
	v.SetDefault("database.log_level", "silent")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("auth.jwt.access_token_expire", 1800)
	v.SetDefault("auth.jwt.refresh_token_expire", 7*24*3600)
	v.SetDefault("auth.local.enabled", true)
	v.SetDefault("auth.ldap.user_filter", "(uid=%s)")
	v.SetDefault("auth.ldap.attributes.username", "uid")
	v.SetDefault("auth.ldap.attributes.email", "mail")
	v.SetDefault("auth.ldap.attributes.display_name", "cn")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("policy.enforce_state_step", false)
	v.SetDefault("policy.state_step", 5)
	v.SetDefault("policy.max_state", 100)

	v.SetDefault("scheduler.artifact_sweep_cron", "0 */10 * * * *")

	v.SetDefault("notification.provider", "log")
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", c.Database.Driver)
	}
	if c.Auth.JWT.Secret == "" {
		return fmt.Errorf("auth.jwt.secret 未配置")
	}
	if c.Crypto.AESKey != "" && len(c.Crypto.AESKey) != 32 {
		return fmt.Errorf("crypto.aes_key 长度必须为32字节")
	}
	if c.Policy.EnforceStateStep && c.Policy.StateStep <= 0 {
		return fmt.Errorf("policy.state_step 必须大于0")
	}
	return nil
}

// GetDSN 获取数据库DSN
func (c *DatabaseConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	switch c.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			c.Host, c.Port, c.Username, c.Password, c.Database)
	case "sqlite":
		return c.Database
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.Username,
			c.Password,
			c.Host,
			c.Port,
			c.Database,
		)
	}
}
