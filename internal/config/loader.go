package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// GetConfigPath returns the default config file path (~/.neti/config.json).
func GetConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".neti", "config.json")
}

// Load reads configuration from a JSON file and applies environment
// overrides. If path is empty, uses the default config path. If the file
// doesn't exist, returns DefaultConfig() with env overrides applied.
func Load(path string) (Config, error) {
	if path == "" {
		path = GetConfigPath()
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnv()
			return cfg, nil
		}
		return Config{}, err
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// Save writes configuration to a JSON file.
func Save(cfg Config, path string) error {
	if path == "" {
		path = GetConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides config fields from the environment variables used by
// the production deployment.
func (c *Config) ApplyEnv() {
	setString(&c.Environment, "ENVIRONMENT")
	setInt(&c.Gateway.Port, "NETI_PORT")
	setString(&c.Gateway.APIKey, "NETI_API_KEY")
	setFloat(&c.Buffer.QuietSeconds, "MESSAGE_BUFFER_DELAY")
	setString(&c.Session.RedisURL, "REDIS_URL")
	setString(&c.Session.Password, "REDIS_PASSWORD")
	setInt(&c.Session.DB, "REDIS_DB")
	setInt(&c.Session.TTLHours, "SESSION_TTL_HOURS")
	setString(&c.Oracle.APIKey, "OPENAI_API_KEY")
	setString(&c.Oracle.APIBase, "OPENAI_API_BASE")
	setString(&c.Oracle.Model, "OPENAI_MODEL")
	setString(&c.Qiscus.AppID, "QISCUS_APP_ID")
	setString(&c.Qiscus.SecretKey, "QISCUS_SECRET_KEY")
	setString(&c.Qiscus.BaseURL, "QISCUS_BASE_URL")
	setString(&c.Qiscus.SendURL, "QISCUS_SEND_MESSAGE_URL")
	setString(&c.Qiscus.TagID, "TAG_ID_AI_ESCALATED")
	setInt(&c.Qiscus.TagExpiryDays, "TAG_EXPIRY_DAYS")
	setString(&c.Ticketing.BaseURL, "TICKETING_API_URL")
	setString(&c.Ticketing.APIKey, "TICKETING_API_KEY")
	setString(&c.RepliesFile, "NETI_REPLIES_FILE")
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, env string) {
	if v := os.Getenv(env); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
