// Package config 在启动时一次性加载应用配置。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// DefaultBotID 是本部署服务的唯一机器人标识。
const DefaultBotID = "assistente-gemini-ifpr"

// DefaultInstruction 在机器人尚无生效指令时写入。
const DefaultInstruction = "Você é um assistente educacional inteligente do IFPR. Responda de forma clara, educativa e sempre incentive o aprendizado. Mantenha um tom amigável e profissional."

// Config 对应 configs/config.yaml，由 Load 构建一次后只读。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	Bot      BotConfig      `mapstructure:"bot"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port      string `mapstructure:"port"`
	Mode      string `mapstructure:"mode"`
	StaticDir string `mapstructure:"static_dir"`
}

// DatabaseConfig 存储数据库与缓存的连接配置。
type DatabaseConfig struct {
	Driver string      `mapstructure:"driver"` // "mysql" 或 "sqlite"
	DSN    string      `mapstructure:"dsn"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig 存储 Redis 的配置。Addr 为空时使用进程内缓存。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 配置领域事件 topic。Brokers 为空时不发布。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// GeminiConfig 配置对话与标题生成所用的模型。
type GeminiConfig struct {
	APIKey          string  `mapstructure:"api_key"`
	Model           string  `mapstructure:"model"`
	Temperature     float64 `mapstructure:"temperature"`
	TopP            float64 `mapstructure:"top_p"`
	MaxOutputTokens int     `mapstructure:"max_output_tokens"`
}

type BotConfig struct {
	ID                 string `mapstructure:"id"`
	DefaultInstruction string `mapstructure:"default_instruction"`
}

// AdminConfig 存储管理后台的共享密码，可以是明文或 bcrypt 哈希。
type AdminConfig struct {
	Password string `mapstructure:"password"`
}

type CacheConfig struct {
	InstructionTTLSeconds int `mapstructure:"instruction_ttl_seconds"`
	StatsTTLSeconds       int `mapstructure:"stats_ttl_seconds"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.static_dir", "public")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.redis.addr", "")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "edubot.events")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.temperature", 0)
	v.SetDefault("gemini.top_p", 0)
	v.SetDefault("gemini.max_output_tokens", 0)
	v.SetDefault("bot.id", DefaultBotID)
	v.SetDefault("bot.default_instruction", DefaultInstruction)
	v.SetDefault("cache.instruction_ttl_seconds", 300)
	v.SetDefault("cache.stats_ttl_seconds", 30)
}

// Load 读取 configPath 处的 YAML 文件（文件不存在时忽略）并应用环境变量覆盖。
// EDUBOT_<SECTION>_<KEY> 可覆盖任意键，另外支持 GEMINI_API_KEY、ADMIN_PASSWORD 和 PORT。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("EDUBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("gemini.api_key", "EDUBOT_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("admin.password", "EDUBOT_ADMIN_PASSWORD", "ADMIN_PASSWORD")
	_ = v.BindEnv("server.port", "EDUBOT_SERVER_PORT", "PORT")

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 返回第一个缺失的必填配置项。
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		return errors.New("gemini.api_key (GEMINI_API_KEY) must be set")
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn must be set")
	}
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Admin.Password) == "" {
		return errors.New("admin.password (ADMIN_PASSWORD) must be set")
	}
	if c.Bot.ID == "" {
		c.Bot.ID = DefaultBotID
	}
	if strings.TrimSpace(c.Bot.DefaultInstruction) == "" {
		c.Bot.DefaultInstruction = DefaultInstruction
	}
	return nil
}
