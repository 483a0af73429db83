// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Database      DatabaseConfig      `mapstructure:"database"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Auth          AuthConfig          `mapstructure:"auth"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // mysql 或 sqlite
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Redis           RedisConfig   `mapstructure:"redis"`
}

// RedisConfig 存储 Redis 的配置。Addr 为空时不启用 Redis。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey         string              `mapstructure:"api_key"`
	BaseURL        string              `mapstructure:"base_url"`
	Model          string              `mapstructure:"model"`
	Store          bool                `mapstructure:"store"`
	RequestTimeout time.Duration       `mapstructure:"request_timeout"`
	Generation     LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数。未设置的字段为 nil，不会发送给模型；显式的 0 会照常发送。
type LLMGenerationConfig struct {
	Temperature *float64 `mapstructure:"temperature"`
	TopP        *float64 `mapstructure:"top_p"`
	MaxTokens   *int     `mapstructure:"max_tokens"`
}

// PrerequisitePolicy 描述阶段前置数据缺失时的处理方式。
type PrerequisitePolicy string

const (
	// PolicyRequired 缺失即返回 NotFound。
	PolicyRequired PrerequisitePolicy = "required"
	// PolicyDefault 缺失时以字面量 "None" 代替。
	PolicyDefault PrerequisitePolicy = "default"
)

// Valid 判断策略取值是否合法。
func (p PrerequisitePolicy) Valid() bool {
	return p == PolicyRequired || p == PolicyDefault
}

// PipelineConfig 存储提示链各阶段的配置。
type PipelineConfig struct {
	AutoChain     bool                `mapstructure:"auto_chain"`
	LockTTL       time.Duration       `mapstructure:"lock_ttl"`
	Prerequisites PrerequisitesConfig `mapstructure:"prerequisites"`
}

// PrerequisitesConfig 按阶段配置每个前置数据的策略。
type PrerequisitesConfig struct {
	Analysis     AnalysisPrerequisites     `mapstructure:"analysis"`
	Strategy     StrategyPrerequisites     `mapstructure:"strategy"`
	ReplyOptions ReplyOptionsPrerequisites `mapstructure:"reply_options"`
}

type AnalysisPrerequisites struct {
	PriorAnalysis PrerequisitePolicy `mapstructure:"prior_analysis"`
}

type StrategyPrerequisites struct {
	Analysis      PrerequisitePolicy `mapstructure:"analysis"`
	Conversation  PrerequisitePolicy `mapstructure:"conversation"`
	PriorStrategy PrerequisitePolicy `mapstructure:"prior_strategy"`
}

type ReplyOptionsPrerequisites struct {
	Analysis     PrerequisitePolicy `mapstructure:"analysis"`
	Conversation PrerequisitePolicy `mapstructure:"conversation"`
	Strategy     PrerequisitePolicy `mapstructure:"strategy"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Brokers     string `mapstructure:"brokers"`
	Topic       string `mapstructure:"topic"`
	GroupID     string `mapstructure:"group_id"`
	MaxAttempts int    `mapstructure:"max_attempts"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	BucketName      string        `mapstructure:"bucket_name"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"`
}

// AuthConfig 存储 API 鉴权（JWT）相关的配置。
type AuthConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Secret        string `mapstructure:"secret"`
	Issuer        string `mapstructure:"issuer"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours"`
}

// setDefaults 注册所有键的默认值，使环境变量可以覆盖任意键。
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.redis.addr", "")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.store", false)
	v.SetDefault("llm.request_timeout", time.Duration(0))

	v.SetDefault("pipeline.auto_chain", false)
	v.SetDefault("pipeline.lock_ttl", 2*time.Minute)
	v.SetDefault("pipeline.prerequisites.analysis.prior_analysis", string(PolicyDefault))
	v.SetDefault("pipeline.prerequisites.strategy.analysis", string(PolicyRequired))
	v.SetDefault("pipeline.prerequisites.strategy.conversation", string(PolicyRequired))
	v.SetDefault("pipeline.prerequisites.strategy.prior_strategy", string(PolicyDefault))
	v.SetDefault("pipeline.prerequisites.reply_options.analysis", string(PolicyDefault))
	v.SetDefault("pipeline.prerequisites.reply_options.conversation", string(PolicyDefault))
	v.SetDefault("pipeline.prerequisites.reply_options.strategy", string(PolicyDefault))

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "love-coach-pipeline")
	v.SetDefault("kafka.group_id", "love-coach-go-consumer")
	v.SetDefault("kafka.max_attempts", 3)

	v.SetDefault("elasticsearch.enabled", false)
	v.SetDefault("elasticsearch.addresses", "")
	v.SetDefault("elasticsearch.username", "")
	v.SetDefault("elasticsearch.password", "")
	v.SetDefault("elasticsearch.index_name", "love_coach_artifacts")

	v.SetDefault("minio.enabled", false)
	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket_name", "love-coach")
	v.SetDefault("minio.presign_expiry", time.Hour)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "love-coach-go")
	v.SetDefault("auth.token_ttl_hours", 24*30)
}

// Load 从指定路径读取 YAML 配置，并叠加 .env 与环境变量。
// configPath 为空时只使用默认值与环境变量。
func Load(configPath string) (*Config, error) {
	// .env 不存在是正常情况
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("llm.api_key", "LLM_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("绑定环境变量失败: %w", err)
	}
	// 生成参数没有默认值，需要单独绑定才能被环境变量覆盖
	for _, key := range []string{"llm.generation.temperature", "llm.generation.top_p", "llm.generation.max_tokens"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("绑定环境变量失败: %w", err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置无效: %w", err)
	}
	return &cfg, nil
}

// Validate 检查配置的完整性。
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port 不能为空")
	}
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("不支持的 database.driver: %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn 不能为空")
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model 不能为空")
	}
	if c.LLM.RequestTimeout < 0 {
		return errors.New("llm.request_timeout 不能为负数")
	}
	g := c.LLM.Generation
	if g.Temperature != nil && (*g.Temperature < 0 || *g.Temperature > 2) {
		return fmt.Errorf("llm.generation.temperature 超出范围 [0, 2]: %v", *g.Temperature)
	}
	if g.TopP != nil && (*g.TopP < 0 || *g.TopP > 1) {
		return fmt.Errorf("llm.generation.top_p 超出范围 [0, 1]: %v", *g.TopP)
	}
	if g.MaxTokens != nil && *g.MaxTokens <= 0 {
		return fmt.Errorf("llm.generation.max_tokens 必须大于 0: %d", *g.MaxTokens)
	}
	if c.Pipeline.LockTTL <= 0 {
		return errors.New("pipeline.lock_ttl 必须大于 0")
	}

	p := c.Pipeline.Prerequisites
	policies := map[string]PrerequisitePolicy{
		"analysis.prior_analysis":    p.Analysis.PriorAnalysis,
		"strategy.analysis":          p.Strategy.Analysis,
		"strategy.conversation":      p.Strategy.Conversation,
		"strategy.prior_strategy":    p.Strategy.PriorStrategy,
		"reply_options.analysis":     p.ReplyOptions.Analysis,
		"reply_options.conversation": p.ReplyOptions.Conversation,
		"reply_options.strategy":     p.ReplyOptions.Strategy,
	}
	for key, policy := range policies {
		if !policy.Valid() {
			return fmt.Errorf("pipeline.prerequisites.%s 取值无效: %q", key, policy)
		}
	}

	if c.Kafka.Enabled && (c.Kafka.Brokers == "" || c.Kafka.Topic == "") {
		return errors.New("启用 kafka 时 brokers 与 topic 不能为空")
	}
	if c.Elasticsearch.Enabled && (c.Elasticsearch.Addresses == "" || c.Elasticsearch.IndexName == "") {
		return errors.New("启用 elasticsearch 时 addresses 与 index_name 不能为空")
	}
	if c.MinIO.Enabled && (c.MinIO.Endpoint == "" || c.MinIO.BucketName == "") {
		return errors.New("启用 minio 时 endpoint 与 bucket_name 不能为空")
	}
	if c.Auth.Enabled && c.Auth.Secret == "" {
		return errors.New("启用 auth 时 secret 不能为空")
	}
	return nil
}
