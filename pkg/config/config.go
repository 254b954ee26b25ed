// Package config 提供 TOML 配置加载、环境变量覆盖与 schema 校验
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/wyfcoding/notifyhub/pkg/logger"
)

// Config 基础配置结构
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 服务版本
	Version string `mapstructure:"version"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// RabbitMQ 配置
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	// 下游服务配置
	Services ServicesConfig `mapstructure:"services"`
	// 邮件投递配置
	Email EmailConfig `mapstructure:"email"`
	// 推送投递配置
	Push PushConfig `mapstructure:"push"`
	// Kafka 配置（投递结果事件流）
	Kafka KafkaConfig `mapstructure:"kafka"`
	// Redis 配置
	Redis RedisConfig `mapstructure:"redis"`
	// 限流配置
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	// 日志配置
	Logger logger.Config `mapstructure:"logger"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	// 监听地址
	Host string `mapstructure:"host"`
	// 监听端口
	Port int `mapstructure:"port"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// RabbitMQConfig RabbitMQ 配置
type RabbitMQConfig struct {
	// 连接地址
	URI string `mapstructure:"uri"`
	// 交换机名称（direct）
	Exchange string `mapstructure:"exchange"`
	// 工作队列名称
	Queue string `mapstructure:"queue"`
	// 死信队列名称
	DeadLetterQueue string `mapstructure:"dead_letter_queue"`
	// 预取数量，即单消费者最大在途未确认消息数
	Prefetch int `mapstructure:"prefetch"`
}

// ServicesConfig 下游协作服务配置
type ServicesConfig struct {
	// 用户服务
	User ServiceEndpoint `mapstructure:"user"`
	// 模板渲染服务
	Template ServiceEndpoint `mapstructure:"template"`
}

// ServiceEndpoint 单个下游服务的访问配置
type ServiceEndpoint struct {
	// 基础 URL，例如 http://localhost:4001/api/v1
	BaseURL string `mapstructure:"base_url"`
	// 请求超时（毫秒）
	TimeoutMS int `mapstructure:"timeout_ms"`
}

// EmailConfig 邮件投递配置
type EmailConfig struct {
	// SMTP 中继配置
	SMTP SMTPConfig `mapstructure:"smtp"`
	// 默认发件人
	DefaultFrom string `mapstructure:"default_from"`
}

// SMTPConfig SMTP 中继配置
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// 发送超时（秒）
	Timeout int `mapstructure:"timeout"`
}

// PushConfig 推送投递配置
type PushConfig struct {
	// Firebase 配置
	Firebase FirebaseConfig `mapstructure:"firebase"`
}

// FirebaseConfig Firebase 凭据配置
type FirebaseConfig struct {
	// 服务账号凭据文件路径
	CredentialsFile string `mapstructure:"credentials_file"`
	// 项目 ID
	ProjectID string `mapstructure:"project_id"`
}

// KafkaConfig 投递结果事件流配置
type KafkaConfig struct {
	// 是否启用事件发布
	Enabled bool `mapstructure:"enabled"`
	// Broker 地址列表
	Brokers []string `mapstructure:"brokers"`
	// 投递结果事件主题
	OutcomeTopic string `mapstructure:"outcome_topic"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 主机地址
	Host string `mapstructure:"host"`
	// 端口
	Port int `mapstructure:"port"`
	// 密码
	Password string `mapstructure:"password"`
	// 数据库编号
	DB int `mapstructure:"db"`
	// 最大连接数
	MaxPoolSize int `mapstructure:"max_pool_size"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// 是否启用
	Enabled bool `mapstructure:"enabled"`
	// 每秒请求数
	QPS int `mapstructure:"qps"`
	// 突发容量
	Burst int `mapstructure:"burst"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `mapstructure:"enabled"`
	// 指标路径
	Path string `mapstructure:"path"`
}

// Load 从 TOML 文件加载配置，支持环境变量覆盖与默认值
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 设置配置文件
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// 文件不存在时仅依赖默认值与环境变量
	}

	// 设置环境变量前缀，自动绑定（使用 _ 替代 .）
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 验证配置
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.RabbitMQ.URI == "" {
		return fmt.Errorf("rabbitmq.uri is required")
	}
	if c.RabbitMQ.Queue == "" {
		return fmt.Errorf("rabbitmq.queue is required")
	}
	if c.RabbitMQ.Prefetch <= 0 {
		return fmt.Errorf("rabbitmq.prefetch must be positive: %d", c.RabbitMQ.Prefetch)
	}
	if c.Services.User.BaseURL == "" {
		return fmt.Errorf("services.user.base_url is required")
	}
	if c.Services.Template.BaseURL == "" {
		return fmt.Errorf("services.template.base_url is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 4002)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)

	v.SetDefault("rabbitmq.uri", "amqp://localhost:5672")
	v.SetDefault("rabbitmq.exchange", "notifications.direct")
	v.SetDefault("rabbitmq.dead_letter_queue", "failed.queue")
	v.SetDefault("rabbitmq.prefetch", 10)

	v.SetDefault("services.user.timeout_ms", 5000)
	v.SetDefault("services.template.timeout_ms", 5000)

	v.SetDefault("email.smtp.host", "localhost")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.timeout", 10)
	v.SetDefault("email.default_from", "no-reply@notifyhub.local")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.outcome_topic", "notification.outcomes")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_pool_size", 10)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.qps", 10)
	v.SetDefault("ratelimit.burst", 20)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/app.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// GetEnv 获取环境变量，支持默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
