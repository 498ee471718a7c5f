package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds server settings. The yaml file is optional; env variables
// override whatever the file provides.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	WebSocket struct {
		WriteTimeoutSec int `yaml:"write_timeout_sec"`
		ReadTimeoutSec  int `yaml:"read_timeout_sec"`
		PingIntervalSec int `yaml:"ping_interval_sec"`
	} `yaml:"websocket"`
}

func loadConfig(path string) (*Config, error) {
	var config Config
	config.Server.Port = "8080"

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.WebSocket.WriteTimeoutSec = getEnvAsInt("WS_WRITE_TIMEOUT_SEC", c.WebSocket.WriteTimeoutSec)
	c.WebSocket.ReadTimeoutSec = getEnvAsInt("WS_READ_TIMEOUT_SEC", c.WebSocket.ReadTimeoutSec)
	c.WebSocket.PingIntervalSec = getEnvAsInt("WS_PING_INTERVAL_SEC", c.WebSocket.PingIntervalSec)
}

func (c *Config) websocketTimeout(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
