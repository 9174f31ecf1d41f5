/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the ledger-service.
// These values are loaded from environment variables. Monetary values are
// whole FCFA.
type Config struct {
	ServerPort            string `mapstructure:"SERVER_PORT"`
	DatabaseURL           string `mapstructure:"DATABASE_URL"`
	RedisURL              string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix  string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL           string `mapstructure:"RABBITMQ_URL"`
	JWTSecret             string `mapstructure:"JWT_SECRET"`
	JWTIssuer             string `mapstructure:"JWT_ISSUER"`
	JWTTTLMinutes         int    `mapstructure:"JWT_TTL_MINUTES"`
	SMSGatewayURL         string `mapstructure:"SMS_GATEWAY_URL"`
	SMSGatewayAPIKey      string `mapstructure:"SMS_GATEWAY_API_KEY"`
	SMSSenderName         string `mapstructure:"SMS_SENDER_NAME"`
	TransferFeeRate       int64  `mapstructure:"TRANSFER_FEE_RATE"`
	TransferFeeFloor      int64  `mapstructure:"TRANSFER_FEE_FLOOR"`
	TransferFeeCap        int64  `mapstructure:"TRANSFER_FEE_CAP"`
	PaymentFeePerMil      int64  `mapstructure:"PAYMENT_FEE_PER_MIL"`
	PaymentFeeMinimum     int64  `mapstructure:"PAYMENT_FEE_MINIMUM"`
	RequestLimitPerMinute int    `mapstructure:"REQUEST_LIMIT_PER_MINUTE"`
	BalanceCacheTTLSec    int    `mapstructure:"BALANCE_CACHE_TTL_SECONDS"`
	CodeCleanupSchedule   string `mapstructure:"CODE_CLEANUP_SCHEDULE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("JWT_ISSUER", "ledger-service")
	viper.SetDefault("JWT_TTL_MINUTES", 30)
	viper.SetDefault("SMS_SENDER_NAME", "SunuPay")
	viper.SetDefault("TRANSFER_FEE_RATE", 100)
	viper.SetDefault("TRANSFER_FEE_FLOOR", 100)
	viper.SetDefault("TRANSFER_FEE_CAP", 5000)
	viper.SetDefault("PAYMENT_FEE_PER_MIL", 5)
	viper.SetDefault("PAYMENT_FEE_MINIMUM", 50)
	viper.SetDefault("REQUEST_LIMIT_PER_MINUTE", 50)
	viper.SetDefault("BALANCE_CACHE_TTL_SECONDS", 300)
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "ledger:rate_limit")
	viper.SetDefault("CODE_CLEANUP_SCHEDULE", "0 3 * * *")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "LEDGER_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("JWT_ISSUER")
	_ = viper.BindEnv("JWT_TTL_MINUTES")
	_ = viper.BindEnv("SMS_GATEWAY_URL")
	_ = viper.BindEnv("SMS_GATEWAY_API_KEY")
	_ = viper.BindEnv("SMS_SENDER_NAME")
	_ = viper.BindEnv("TRANSFER_FEE_RATE")
	_ = viper.BindEnv("TRANSFER_FEE_FLOOR")
	_ = viper.BindEnv("TRANSFER_FEE_CAP")
	_ = viper.BindEnv("PAYMENT_FEE_PER_MIL")
	_ = viper.BindEnv("PAYMENT_FEE_MINIMUM")
	_ = viper.BindEnv("REQUEST_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("BALANCE_CACHE_TTL_SECONDS")
	_ = viper.BindEnv("CODE_CLEANUP_SCHEDULE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "ledger:rate_limit"
	}

	if config.JWTTTLMinutes <= 0 {
		config.JWTTTLMinutes = 30
	}
	if config.RequestLimitPerMinute <= 0 {
		config.RequestLimitPerMinute = 50
	}
	if config.BalanceCacheTTLSec <= 0 {
		config.BalanceCacheTTLSec = 300
	}
	if strings.TrimSpace(config.CodeCleanupSchedule) == "" {
		config.CodeCleanupSchedule = "0 3 * * *"
	}

	if config.TransferFeeRate < 0 {
		log.Printf("level=warn component=config msg=\"negative transfer fee rate configured; using default\" rate=%d", config.TransferFeeRate)
		config.TransferFeeRate = 100
	}
	if config.TransferFeeFloor < 0 {
		log.Printf("level=warn component=config msg=\"negative transfer fee floor configured; coercing to zero\" floor=%d", config.TransferFeeFloor)
		config.TransferFeeFloor = 0
	}
	if config.PaymentFeeMinimum < 0 {
		log.Printf("level=warn component=config msg=\"negative payment fee minimum configured; coercing to zero\" minimum=%d", config.PaymentFeeMinimum)
		config.PaymentFeeMinimum = 0
	}

	return
}
