package config

import (
	"errors"
	"log"
	"os"

	"github.com/spf13/viper"

	"suzu_discount/pkg/security"
)

// Config 全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Discount  DiscountConfig  `mapstructure:"discount"`
	OTP       OTPConfig       `mapstructure:"otp"`
	Phone     PhoneConfig     `mapstructure:"phone"`
	WhatsApp  WhatsAppConfig  `mapstructure:"whatsapp"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Port     string `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AdminConfig 管理端共享口令与会话令牌配置
type AdminConfig struct {
	PasswordHash     string `mapstructure:"password_hash"`     // bcrypt 散列，不保存明文
	RequireToken     bool   `mapstructure:"require_token"`     // 是否强制管理接口携带会话令牌
	TokenSecret      string `mapstructure:"token_secret"`
	TokenExpireHours int    `mapstructure:"token_expire_hours"`
}

// DiscountConfig 折扣档位: [min, max] 区间按 step 取离散值
type DiscountConfig struct {
	Min  int `mapstructure:"min"`
	Max  int `mapstructure:"max"`
	Step int `mapstructure:"step"`
}

type OTPConfig struct {
	Required              bool `mapstructure:"required"` // false 时注册直接预验证发码
	ExpiryMinutes         int  `mapstructure:"expiry_minutes"`
	Length                int  `mapstructure:"length"`
	ResendIntervalSeconds int  `mapstructure:"resend_interval_seconds"`
	SweepIntervalMinutes  int  `mapstructure:"sweep_interval_minutes"`
}

type PhoneConfig struct {
	Validation security.PhoneValidation `mapstructure:"validation"` // strict | none
}

type WhatsAppConfig struct {
	GreenAPI           GreenAPIConfig `mapstructure:"greenapi"`
	Twilio             TwilioConfig   `mapstructure:"twilio"`
	MessageTemplate    string         `mapstructure:"message_template"`
	SendTimeoutSeconds int            `mapstructure:"send_timeout_seconds"`
	MaxAttempts        int            `mapstructure:"max_attempts"`
}

type GreenAPIConfig struct {
	InstanceID string `mapstructure:"instance_id"`
	Token      string `mapstructure:"token"`
	BaseURL    string `mapstructure:"base_url"`
}

type TwilioConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"` // 例如 "whatsapp:+14155238886"
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// GlobalConfig 进程级配置，LoadConfig 后只读
var GlobalConfig Config

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return errors.New("database configuration is incomplete")
	}

	if c.Redis.Addr == "" {
		return errors.New("redis address is required")
	}

	if c.Admin.PasswordHash == "" {
		return errors.New("admin password hash is required")
	}

	if c.Admin.RequireToken {
		if c.Admin.TokenSecret == "" || len(c.Admin.TokenSecret) < 32 {
			return errors.New("admin token secret should be at least 32 characters")
		}
	}

	if c.Discount.Min <= 0 || c.Discount.Max < c.Discount.Min || c.Discount.Step <= 0 {
		return errors.New("invalid discount range configuration")
	}

	if c.Phone.Validation != security.PhoneValidationStrict && c.Phone.Validation != security.PhoneValidationNone {
		return errors.New("phone.validation must be 'strict' or 'none'")
	}

	if c.OTP.Length < 4 || c.OTP.Length > 10 {
		return errors.New("otp.length must be between 4 and 10")
	}

	return nil
}

// LoadConfig 加载配置
func LoadConfig() *Config {
	// 获取环境变量，默认为dev
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	// 根据环境选择配置文件
	configName := "config"
	if env != "" && env != "dev" {
		configName = "config." + env
	}

	viper.SetConfigName(configName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("admin.require_token", false)
	viper.SetDefault("admin.token_expire_hours", 12)
	viper.SetDefault("discount.min", 10)
	viper.SetDefault("discount.max", 40)
	viper.SetDefault("discount.step", 5)
	viper.SetDefault("otp.required", true)
	viper.SetDefault("otp.expiry_minutes", 5)
	viper.SetDefault("otp.length", 6)
	viper.SetDefault("otp.resend_interval_seconds", 60)
	viper.SetDefault("otp.sweep_interval_minutes", 30)
	viper.SetDefault("phone.validation", "strict")
	viper.SetDefault("whatsapp.greenapi.base_url", "https://api.green-api.com")
	viper.SetDefault("whatsapp.message_template", "Your Suzu Kafé verification code: %s\nValid for %d minutes")
	viper.SetDefault("whatsapp.send_timeout_seconds", 10)
	viper.SetDefault("whatsapp.max_attempts", 3)
	viper.SetDefault("ratelimit.rps", 20)
	viper.SetDefault("ratelimit.burst", 40)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Config file not found, using defaults or env vars: %v", err)
	}

	// 绑定环境变量
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&GlobalConfig); err != nil {
		log.Fatalf("Unable to decode into struct: %v", err)
	}

	// 手动覆盖，敏感项优先取环境变量
	if host := os.Getenv("DB_HOST"); host != "" {
		GlobalConfig.Database.Host = host
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		GlobalConfig.Redis.Addr = redisAddr
	}
	if hash := os.Getenv("ADMIN_PASSWORD_HASH"); hash != "" {
		GlobalConfig.Admin.PasswordHash = hash
	}
	if secret := os.Getenv("ADMIN_TOKEN_SECRET"); secret != "" {
		GlobalConfig.Admin.TokenSecret = secret
	}
	if token := os.Getenv("GREEN_API_TOKEN"); token != "" {
		GlobalConfig.WhatsApp.GreenAPI.Token = token
	}
	if authToken := os.Getenv("TWILIO_AUTH_TOKEN"); authToken != "" {
		GlobalConfig.WhatsApp.Twilio.AuthToken = authToken
	}

	// 验证配置
	if err := GlobalConfig.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	log.Printf("Configuration loaded and validated successfully. Environment: %s", env)
	return &GlobalConfig
}
