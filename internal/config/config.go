// Package config handles configuration loading, saving, and schema definition.
package config

// Config is the top-level Neti configuration.
type Config struct {
	Environment string          `json:"environment,omitempty"`
	Gateway     GatewayConfig   `json:"gateway"`
	Buffer      BufferConfig    `json:"buffer"`
	Session     SessionConfig   `json:"session"`
	Oracle      OracleConfig    `json:"oracle"`
	Qiscus      QiscusConfig    `json:"qiscus"`
	Ticketing   TicketingConfig `json:"ticketing"`
	RepliesFile string          `json:"repliesFile,omitempty"`
}

// GatewayConfig holds HTTP server settings.
type GatewayConfig struct {
	Port          int    `json:"port,omitempty"`
	Host          string `json:"host,omitempty"`
	APIKey        string `json:"apiKey,omitempty"`        // admin endpoint auth (Bearer)
	WSFingerprint string `json:"wsFingerprint,omitempty"` // /ws query auth, optional
}

// BufferConfig holds message debounce settings.
type BufferConfig struct {
	QuietSeconds float64 `json:"quietSeconds,omitempty"`
}

// SessionConfig holds session store settings.
type SessionConfig struct {
	RedisURL string `json:"redisUrl,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
	TTLHours int    `json:"ttlHours,omitempty"`
}

// OracleConfig holds the language-model oracle settings.
type OracleConfig struct {
	APIKey  string `json:"apiKey,omitempty"`
	APIBase string `json:"apiBase,omitempty"`
	Model   string `json:"model,omitempty"`
}

// QiscusConfig holds the chat platform credentials and escalation tag identity.
type QiscusConfig struct {
	AppID         string `json:"appId,omitempty"`
	SecretKey     string `json:"secretKey,omitempty"`
	BaseURL       string `json:"baseUrl,omitempty"`
	SendURL       string `json:"sendUrl,omitempty"`
	TagID         string `json:"tagId,omitempty"`
	TagName       string `json:"tagName,omitempty"`
	TagExpiryDays int    `json:"tagExpiryDays,omitempty"`
}

// TicketingConfig holds the ticketing/validation backend settings.
// An empty BaseURL enables mock mode (no outbound calls, simulated success).
type TicketingConfig struct {
	BaseURL string `json:"baseUrl,omitempty"`
	APIKey  string `json:"apiKey,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Environment: "development",
		Gateway: GatewayConfig{
			Port: 8000,
			Host: "0.0.0.0",
		},
		Buffer: BufferConfig{
			QuietSeconds: 3.0,
		},
		Session: SessionConfig{
			TTLHours: 24,
		},
		Oracle: OracleConfig{
			Model: "gpt-4o-mini",
		},
		Qiscus: QiscusConfig{
			TagName:       "Direspon AI",
			TagExpiryDays: 2,
		},
	}
}
