// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 全局配置变量，仅供 main 与命令行工具在启动时读取；各组件通过构造函数接收各自的子配置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Chat     ChatConfig     `mapstructure:"chat"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
	// PublicURL 是本服务对外可访问的基础地址，用于拼接上传文件的 URL。
	PublicURL string `mapstructure:"public_url"`
	// UploadDir 是上传原始文件的落盘目录。
	UploadDir string `mapstructure:"upload_dir"`
	// MaxUploadMB 限制单个上传文件的大小。
	MaxUploadMB int64 `mapstructure:"max_upload_mb"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	// Driver 可选 mysql / postgres / sqlite。
	Driver      string      `mapstructure:"driver"`
	DSN         string      `mapstructure:"dsn"`
	AutoMigrate bool        `mapstructure:"auto_migrate"`
	Redis       RedisConfig `mapstructure:"redis"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// WorkerConfig 存储生成服务（AI Worker）的地址与各任务的超时预算。
type WorkerConfig struct {
	BaseURL  string               `mapstructure:"base_url"`
	Timeouts WorkerTimeoutsConfig `mapstructure:"timeouts"`
}

// WorkerTimeoutsConfig 为每种任务单独配置超时时间。
type WorkerTimeoutsConfig struct {
	ExtractText  time.Duration `mapstructure:"extract_text"`
	ExtractVideo time.Duration `mapstructure:"extract_video"`
	Notes        time.Duration `mapstructure:"notes"`
	Quiz         time.Duration `mapstructure:"quiz"`
	Flashcards   time.Duration `mapstructure:"flashcards"`
	Podcast      time.Duration `mapstructure:"podcast"`
	Chat         time.Duration `mapstructure:"chat"`
}

// DeliveryConfig 描述播客音频的投递位置。
type DeliveryConfig struct {
	// Backend 可选 local（本地静态目录）或 minio。
	Backend string `mapstructure:"backend"`
	// Root 是本地静态目录的根路径，服务通过 /uploads 暴露该目录。
	Root string `mapstructure:"root"`
	// Prefix 是播客文件在投递根路径下的子目录（或对象前缀）。
	Prefix string `mapstructure:"prefix"`
	// BaseURL 是拼接公共 URL 的前缀，例如 http://localhost:8081/uploads。
	BaseURL string `mapstructure:"base_url"`
}

// PipelineConfig 存储内容生成流水线的参数。
type PipelineConfig struct {
	// Dispatcher 可选 local（进程内协程池）或 kafka。
	Dispatcher            string          `mapstructure:"dispatcher"`
	PoolSize              int             `mapstructure:"pool_size"`
	MinTextLength         int             `mapstructure:"min_text_length"`
	DefaultQuizCount      int             `mapstructure:"default_quiz_count"`
	DefaultFlashcardCount int             `mapstructure:"default_flashcard_count"`
	StageLock             StageLockConfig `mapstructure:"stage_lock"`
}

// StageLockConfig 控制同一文档同一阶段的并发互斥。
type StageLockConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// ChatConfig 存储文档问答的参数。
type ChatConfig struct {
	HistoryWindow int `mapstructure:"history_window"`
}

// SetDefaults 注册所有配置项的默认值，与原服务的硬编码取值保持一致。
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8081")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.public_url", "http://localhost:8081")
	v.SetDefault("server.upload_dir", "./uploads/documents")
	v.SetDefault("server.max_upload_mb", 50)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.redis.addr", "localhost:6379")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "content-generation")
	v.SetDefault("kafka.group_id", "studyai-go-consumer")

	v.SetDefault("worker.base_url", "http://localhost:8000")
	v.SetDefault("worker.timeouts.extract_text", 30*time.Second)
	v.SetDefault("worker.timeouts.extract_video", 300*time.Second)
	v.SetDefault("worker.timeouts.notes", 120*time.Second)
	v.SetDefault("worker.timeouts.quiz", 120*time.Second)
	v.SetDefault("worker.timeouts.flashcards", 120*time.Second)
	v.SetDefault("worker.timeouts.podcast", 180*time.Second)
	v.SetDefault("worker.timeouts.chat", 30*time.Second)

	v.SetDefault("delivery.backend", "local")
	v.SetDefault("delivery.root", "./uploads")
	v.SetDefault("delivery.prefix", "podcasts")
	v.SetDefault("delivery.base_url", "http://localhost:8081/uploads")

	v.SetDefault("pipeline.dispatcher", "local")
	v.SetDefault("pipeline.pool_size", 4)
	v.SetDefault("pipeline.min_text_length", 100)
	v.SetDefault("pipeline.default_quiz_count", 10)
	v.SetDefault("pipeline.default_flashcard_count", 15)
	v.SetDefault("pipeline.stage_lock.enabled", true)
	v.SetDefault("pipeline.stage_lock.ttl", 10*time.Minute)

	v.SetDefault("chat.history_window", 20)
}

// Load 从指定路径读取 YAML 配置，叠加 .env 与 STUDYAI_ 前缀的环境变量。
// 配置文件不存在时仅使用默认值与环境变量。
func Load(configPath string) (Config, error) {
	// .env 只是可选的本地开发便利，找不到时直接使用系统环境变量
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("STUDYAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return cfg, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return cfg, nil
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
