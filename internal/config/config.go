package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	// ZPay is the Alipay-compatible payment channel.
	ZPay struct {
		MerchantID   string `yaml:"merchant_id"`
		Key          string `yaml:"key"` // shared secret for MD5 signing
		GatewayURL   string `yaml:"gateway_url"`
		RefundWindow int    `yaml:"refund_window_days"`
		// ProductPrice, when set, is the exact decimal string every callback
		// amount must match. Empty disables the check.
		ProductPrice string `yaml:"product_price"`
	} `yaml:"zpay"`

	Redis struct {
		Addr string `yaml:"addr"` // empty disables the advisory lock
		DB   int    `yaml:"db"`
	} `yaml:"redis"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
		Enabled      bool   `yaml:"enabled"`
	} `yaml:"email"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // minutes
	} `yaml:"jwt"`

	Admin struct {
		Login        string `yaml:"login"`
		PasswordHash string `yaml:"password_hash"` // bcrypt
	} `yaml:"admin"`

	Worker struct {
		SweepIntervalMinutes int `yaml:"sweep_interval_minutes"`
	} `yaml:"worker"`
}

var AppConfig *Config

// LoadConfig populates AppConfig either from config.yaml or, when DATABASE_URL
// is set (test / container mode), entirely from environment variables.
func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		applyDefaults(&cfg)
		AppConfig = &cfg
		return
	}

	log.Println("Loading configuration from environment variables")

	cfg.Database.DSN = dbURL
	cfg.Server.Env = getEnv("SERVER_ENV", "development")
	cfg.Server.Port, _ = strconv.Atoi(getEnv("SERVER_PORT", "4000"))

	cfg.ZPay.MerchantID = getEnv("ZPAY_MERCHANT_ID", "1000")
	cfg.ZPay.Key = getEnv("ZPAY_KEY", "test-zpay-key")
	cfg.ZPay.GatewayURL = getEnv("ZPAY_GATEWAY_URL", "https://zpay.example.com")
	cfg.ZPay.RefundWindow, _ = strconv.Atoi(getEnv("ZPAY_REFUND_WINDOW_DAYS", "7"))
	cfg.ZPay.ProductPrice = os.Getenv("ZPAY_PRODUCT_PRICE")

	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	cfg.Redis.DB, _ = strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg.JWT.Secret = getEnv("JWT_SECRET", "test-jwt-secret")
	cfg.JWT.TTL = 60

	cfg.Admin.Login = getEnv("ADMIN_LOGIN", "admin")
	cfg.Admin.PasswordHash = os.Getenv("ADMIN_PASSWORD_HASH")

	cfg.Email.SMTPHost = getEnv("SMTP_HOST", "smtp.test.com")
	cfg.Email.SMTPPort = 587
	cfg.Email.FromEmail = getEnv("EMAIL_FROM", "noreply@example.com")
	cfg.Email.Enabled = false

	applyDefaults(&cfg)
	AppConfig = &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.ZPay.RefundWindow <= 0 {
		cfg.ZPay.RefundWindow = 7
	}
	if cfg.JWT.TTL <= 0 {
		cfg.JWT.TTL = 60
	}
	if cfg.Worker.SweepIntervalMinutes <= 0 {
		cfg.Worker.SweepIntervalMinutes = 60
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4000
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
