package config

import (
	"os"
	"strconv"
	"time"
)

type LedgerConfig struct {
	WelcomeBonus            int64
	WelcomeDescription      string
	DefaultUsageDescription string
	HistoryDefaultLimit     int
	HistoryMaxLimit         int
	StoreTimeout            time.Duration
}

func LoadLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		WelcomeBonus:            int64(getEnvAsPositiveInt("CREDITS_WELCOME_BONUS", 100)),
		WelcomeDescription:      getEnv("CREDITS_WELCOME_DESCRIPTION", "Welcome bonus"),
		DefaultUsageDescription: getEnv("CREDITS_USAGE_DESCRIPTION", "Credit usage"),
		HistoryDefaultLimit:     getEnvAsInt("CREDITS_HISTORY_LIMIT", 20),
		HistoryMaxLimit:         getEnvAsInt("CREDITS_HISTORY_MAX_LIMIT", 100),
		StoreTimeout:            getEnvAsDuration("CREDITS_STORE_TIMEOUT", 5*time.Second),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// getEnvAsPositiveInt is getEnvAsInt that also falls back on zero or negative values.
func getEnvAsPositiveInt(key string, defaultVal int) int {
	if val := getEnvAsInt(key, defaultVal); val > 0 {
		return val
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
