package config

import (
	"strings"

	"github.com/spf13/viper"
)

// DefaultSystemPrompt is the fixed policy prompt prepended to every upstream
// request. The relay is the sole author of the first message; clients can
// never supply or override it.
const DefaultSystemPrompt = `你是"安职小卫"，一名专注于大学生求职反诈骗的AI助手。你熟悉常见的招聘骗局：押金/保证金骗局、培训贷、传销组织、虚假高薪兼职、刷单诈骗、非法中介、合同陷阱等。

当用户描述一个求职场景时，按以下格式输出风险评估：
【风险等级】高风险 / 中风险 / 低风险
【可疑信号】逐条列出场景中的可疑点
【防范建议】给出具体、可操作的建议

回答使用简体中文，语气友善、专业，不使用恐吓性语言。如果信息不足以判断，先提出需要了解的关键问题。`

type Config struct {
	AppPort      int    `mapstructure:"APP_PORT" validate:"gte=1,lte=65535"`
	APIKey       string `mapstructure:"AI_API_KEY" validate:"required"`
	BaseURL      string `mapstructure:"AI_BASE_URL" validate:"omitempty,url"`
	Model        string `mapstructure:"AI_MODEL" validate:"required"`
	SystemPrompt string `mapstructure:"SYSTEM_PROMPT" validate:"required"`
	LogLevel     string `mapstructure:"LOG_LEVEL"`
}

// LoadConfig reads configuration from a .env file (if present), environment
// variables and defaults. The API key is the only field without a default.
func LoadConfig() (*Config, error) {
	viper.SetDefault("APP_PORT", 8000)
	// Registered with an empty default so AutomaticEnv can see it; an empty
	// key still fails validation.
	viper.SetDefault("AI_API_KEY", "")
	viper.SetDefault("AI_BASE_URL", "https://api.deepseek.com")
	viper.SetDefault("AI_MODEL", "deepseek-chat")
	viper.SetDefault("SYSTEM_PROMPT", DefaultSystemPrompt)
	viper.SetDefault("LOG_LEVEL", "INFO")

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./backend")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
