package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Lock      LockConfig      `mapstructure:"lock"`
	Business  BusinessConfig  `mapstructure:"business"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	RewardEvent     string `mapstructure:"reward_event"`
	DepositEvent    string `mapstructure:"deposit_event"`
	WithdrawalEvent string `mapstructure:"withdrawal_event"`
}

// LockConfig 用户级并发锁配置
// mode 可选 local（进程内锁）或 redis（分布式锁）
type LockConfig struct {
	Mode        string `mapstructure:"mode"`
	TTLSeconds  int    `mapstructure:"ttl_seconds"`
	WaitSeconds int    `mapstructure:"wait_seconds"`
}

type BusinessConfig struct {
	ReferralExpiryHours        int   `mapstructure:"referral_expiry_hours"`
	MaxReferralsPerUser        int   `mapstructure:"max_referrals_per_user"`
	MaxDailyReferrals          int   `mapstructure:"max_daily_referrals"`
	FirstDepositBonusPercent   int64 `mapstructure:"first_deposit_bonus_percent"`
	GiftCodeMaxAmount          int64 `mapstructure:"gift_code_max_amount"`
	GiftCodeMaxDurationMinutes int   `mapstructure:"gift_code_max_duration_minutes"`
	GiftCodeDefaultMaxUses     int   `mapstructure:"gift_code_default_max_uses"`
	MaxRetryCount              int   `mapstructure:"max_retry_count"`
}

type SchedulerConfig struct {
	DailyCron            string `mapstructure:"daily_cron"`
	CatchupIntervalHours int    `mapstructure:"catchup_interval_hours"`
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}
