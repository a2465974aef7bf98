package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"ironforged/database"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken    string
	GuildID         string // Clan guild ID
	ReportChannelID string // Automation channel for reconciliation reports

	// Role names as they appear in the guild
	MemberRoleName string
	AdminRoleName  string

	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Member lifecycle
	ReactivationResetAfter time.Duration // Ingots are zeroed when a member returns after this long
	CorrectiveActionTTL    time.Duration // How long a bot-induced change is expected back from the gateway

	// Economy
	OfferTTL        time.Duration // Lifetime of a pending double-or-nothing offer
	PayrollAmount   int64         // 0 disables payroll
	PayrollInterval time.Duration

	// Process-local state snapshot
	StateFile string

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated), empty disables forwarding

	// Prometheus listen address, empty disables the metrics endpoint
	MetricsAddr string

	// Environment
	Environment string // "development", "production" or "test"
	LogLevel    string
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsDevelopment reports whether the bot runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Discord
		DiscordToken:    os.Getenv("DISCORD_TOKEN"),
		GuildID:         os.Getenv("GUILD_ID"),
		ReportChannelID: os.Getenv("REPORT_CHANNEL_ID"),

		MemberRoleName: getEnvWithDefault("MEMBER_ROLE_NAME", "Member"),
		AdminRoleName:  getEnvWithDefault("ADMIN_ROLE_NAME", "Leadership"),

		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		ReactivationResetAfter: 24 * time.Hour,
		CorrectiveActionTTL:    30 * time.Second,

		OfferTTL:        60 * time.Second,
		PayrollInterval: 7 * 24 * time.Hour,

		StateFile: getEnvWithDefault("STATE_FILE", "state.json"),

		NATSServers: os.Getenv("NATS_SERVERS"),
		MetricsAddr: os.Getenv("METRICS_ADDR"),

		Environment: os.Getenv("ENVIRONMENT"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
	}

	// Override defaults if environment variables are set
	durations := map[string]*time.Duration{
		"REACTIVATION_RESET_AFTER": &config.ReactivationResetAfter,
		"CORRECTIVE_ACTION_TTL":    &config.CorrectiveActionTTL,
		"OFFER_TTL":                &config.OfferTTL,
		"PAYROLL_INTERVAL":         &config.PayrollInterval,
	}
	for key, target := range durations {
		value := os.Getenv(key)
		if value == "" {
			continue
		}
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("%s must be positive, got %s", key, value)
		}
		*target = parsed
	}

	if amount := os.Getenv("PAYROLL_AMOUNT"); amount != "" {
		parsedAmount, err := strconv.ParseInt(amount, 10, 64)
		if err != nil || parsedAmount < 0 {
			return nil, fmt.Errorf("invalid PAYROLL_AMOUNT %q", amount)
		}
		config.PayrollAmount = parsedAmount
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:            "test",
		MemberRoleName:         "Member",
		AdminRoleName:          "Leadership",
		ReactivationResetAfter: 24 * time.Hour,
		CorrectiveActionTTL:    30 * time.Second,
		OfferTTL:               60 * time.Second,
		PayrollInterval:        7 * 24 * time.Hour,
		StateFile:              "state.json",
	}
}
