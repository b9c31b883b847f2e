package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	MongoDB  MongoDBConfig
	JWT      JWTConfig
	Wallet   WalletConfig
	Sweeper  SweeperConfig
	Events   EventsConfig
	Rewards  RewardsConfig
	Admin    AdminConfig
	LogLevel string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	AllowedHosts []string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn int // seconds
}

// WalletConfig holds wallet collaborator configuration
type WalletConfig struct {
	BaseURL    string
	APIKey     string
	MockWallet bool
}

// SweeperConfig holds lifecycle sweeper configuration
type SweeperConfig struct {
	Interval time.Duration
	// ExpireUnclaimed also expires completed-but-unclaimed instances
	// when a window closes, matching the claim path's closed-window
	// rejection.
	ExpireUnclaimed bool
}

// EventsConfig holds event ingress configuration
type EventsConfig struct {
	// DedupWindow is how long ingested event ids are remembered.
	DedupWindow time.Duration
}

// RewardsConfig holds payout configuration
type RewardsConfig struct {
	Currency string
}

// AdminConfig holds the bootstrap operator account
type AdminConfig struct {
	Email    string
	Password string
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// It's okay if the config file is not found, we'll use
		// environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// setDefaults sets default values for configuration. Every key gets a
// default, empty for the secret-bearing ones: viper.AutomaticEnv only
// resolves keys it already knows about, so an unregistered key could
// not be set from the environment alone.
func setDefaults() {
	viper.SetDefault("Server.Port", "4000")
	viper.SetDefault("Server.AllowedHosts", []string{"localhost:3000"})
	viper.SetDefault("MongoDB.URI", "mongodb://localhost:27017/?replicaSet=rs0")
	viper.SetDefault("MongoDB.Database", "igle-rewards")
	viper.SetDefault("JWT.Secret", "")
	viper.SetDefault("JWT.ExpiresIn", 24*60*60) // 24 hours
	viper.SetDefault("Wallet.BaseURL", "")
	viper.SetDefault("Wallet.APIKey", "")
	viper.SetDefault("Wallet.MockWallet", true)
	viper.SetDefault("Admin.Email", "")
	viper.SetDefault("Admin.Password", "")
	viper.SetDefault("Sweeper.Interval", 5*time.Minute)
	viper.SetDefault("Sweeper.ExpireUnclaimed", true)
	viper.SetDefault("Events.DedupWindow", 24*time.Hour)
	viper.SetDefault("Rewards.Currency", "NGN")
	viper.SetDefault("LogLevel", "info")
}
