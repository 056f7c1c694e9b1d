package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
	"gopkg.in/yaml.v3"

	"mensajemagico/internal/domain"
)

// KeyEnv names the environment variable holding the passphrase for enc: values.
const KeyEnv = "MAGIC_CONFIG_KEY"

// Config is the top-level application configuration.
type Config struct {
	API        APIConfig        `yaml:"api"`
	Usage      UsageConfig      `yaml:"usage"`
	Generation GenerationConfig `yaml:"generation"`
	Moderation ModerationConfig `yaml:"moderation"`
	Advisory   AdvisoryConfig   `yaml:"advisory"`
	Logger     LoggerConfig     `yaml:"logger"`
	Tracer     TracerConfig     `yaml:"tracer"`
}

// APIConfig holds settings for the remote generation endpoint.
type APIConfig struct {
	BaseURL           string               `yaml:"base_url"`
	AuthToken         string               `yaml:"auth_token"` // may be "enc:..."
	ConnTimeout       time.Duration        `yaml:"conn_timeout"`
	RespTimeout       time.Duration        `yaml:"resp_timeout"`
	RequestsPerMinute int                  `yaml:"requests_per_minute"` // 0 = unlimited
	Burst             int                  `yaml:"burst"`
	ValidateResponses bool                 `yaml:"validate_responses"`
	CircuitBreaker    CircuitBreakerConfig `yaml:"circuit_breaker"`
	Pool              PoolConfig           `yaml:"pool"`
}

// CircuitBreakerConfig configures the breaker around the endpoint.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// PoolConfig holds HTTP connection pool settings.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// UsageConfig holds quota and cooldown settings. Zero disables a limit.
type UsageConfig struct {
	SessionLimit int           `yaml:"session_limit"`
	DailyLimit   int           `yaml:"daily_limit"`
	MinInterval  time.Duration `yaml:"min_interval"`
}

// Limits converts the section to the governor's limits.
func (u UsageConfig) Limits() domain.UsageLimits {
	return domain.UsageLimits{
		SessionLimit: u.SessionLimit,
		DailyLimit:   u.DailyLimit,
		MinInterval:  u.MinInterval,
	}
}

// GenerationConfig holds orchestrator settings.
type GenerationConfig struct {
	MaxContextWords    int           `yaml:"max_context_words"`
	CooldownOnCacheHit bool          `yaml:"cooldown_on_cache_hit"`
	ReplayChunkSize    int           `yaml:"replay_chunk_size"` // runes per synthetic chunk
	ReplayDelay        time.Duration `yaml:"replay_delay"`
	UserID             string        `yaml:"user_id"`
	UserLocation       string        `yaml:"user_location"`
}

// ModerationConfig holds content filter settings.
type ModerationConfig struct {
	ExtraTerms []string `yaml:"extra_terms"`
}

// AdvisoryConfig holds advisory rule settings.
type AdvisoryConfig struct {
	RulesFile string `yaml:"rules_file"` // empty = embedded rules
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:           "http://localhost:3000",
			ConnTimeout:       10 * time.Second,
			RespTimeout:       60 * time.Second,
			RequestsPerMinute: 30,
			Burst:             3,
			ValidateResponses: true,
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:     true,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Usage: UsageConfig{
			SessionLimit: 10,
			DailyLimit:   20,
			MinInterval:  3 * time.Second,
		},
		Generation: GenerationConfig{
			MaxContextWords: 5,
			ReplayChunkSize: 4,
			ReplayDelay:     30 * time.Millisecond,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file, applies env var overrides, and decrypts
// secrets. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: read config: %w", domain.ErrConfigLoad, err)
		}
	} else {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("%w: resolve config path: %w", domain.ErrConfigLoad, err)
		}
		if err := validatePermissions(absPath); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrConfigLoad, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse config: %w", domain.ErrConfigLoad, err)
		}
	}

	ApplyEnvOverrides(cfg)

	if passphrase := os.Getenv(KeyEnv); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("%w: decrypt secrets: %w", domain.ErrConfigLoad, err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps MAGIC_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MAGIC_API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("MAGIC_API_AUTH_TOKEN"); v != "" {
		cfg.API.AuthToken = v
	}
	if v := os.Getenv("MAGIC_API_REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.API.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("MAGIC_API_VALIDATE_RESPONSES"); v != "" {
		cfg.API.ValidateResponses = v == "true"
	}
	if v := os.Getenv("MAGIC_API_CIRCUIT_BREAKER_ENABLED"); v != "" {
		cfg.API.CircuitBreaker.Enabled = v == "true"
	}
	if v := os.Getenv("MAGIC_USAGE_SESSION_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Usage.SessionLimit = n
		}
	}
	if v := os.Getenv("MAGIC_USAGE_DAILY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Usage.DailyLimit = n
		}
	}
	if v := os.Getenv("MAGIC_USAGE_MIN_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.Usage.MinInterval = d
		}
	}
	if v := os.Getenv("MAGIC_GENERATION_MAX_CONTEXT_WORDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Generation.MaxContextWords = n
		}
	}
	if v := os.Getenv("MAGIC_GENERATION_COOLDOWN_ON_CACHE_HIT"); v != "" {
		cfg.Generation.CooldownOnCacheHit = v == "true"
	}
	if v := os.Getenv("MAGIC_GENERATION_USER_ID"); v != "" {
		cfg.Generation.UserID = v
	}
	if v := os.Getenv("MAGIC_GENERATION_USER_LOCATION"); v != "" {
		cfg.Generation.UserLocation = v
	}
	if v := os.Getenv("MAGIC_MODERATION_EXTRA_TERMS"); v != "" {
		cfg.Moderation.ExtraTerms = splitAndTrim(v, ",")
	}
	if v := os.Getenv("MAGIC_ADVISORY_RULES_FILE"); v != "" {
		cfg.Advisory.RulesFile = v
	}
	if v := os.Getenv("MAGIC_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("MAGIC_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("MAGIC_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("MAGIC_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
}

// splitAndTrim splits s by sep, trims each element and drops empty ones.
func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// encPrefix marks an encrypted config value.
const encPrefix = "enc:"

// IsEncrypted reports whether v is an enc: value.
func IsEncrypted(v string) bool {
	return strings.HasPrefix(v, encPrefix)
}

// decryptSecrets replaces enc: values with their plaintext.
func decryptSecrets(cfg *Config, passphrase string) error {
	if IsEncrypted(cfg.API.AuthToken) {
		decrypted, err := DecryptValue(strings.TrimPrefix(cfg.API.AuthToken, encPrefix), passphrase)
		if err != nil {
			return fmt.Errorf("api auth_token: %w", err)
		}
		cfg.API.AuthToken = decrypted
	}
	return nil
}

// EncryptValue encrypts a plaintext value with AES-256-GCM using a passphrase.
// The result is hex(salt) + ":" + hex(nonce+ciphertext), without the enc: prefix.
func EncryptValue(plaintext, passphrase string) (string, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(ciphertext), nil
}

// DecryptValue decrypts a value produced by EncryptValue.
func DecryptValue(encrypted, passphrase string) (string, error) {
	saltHex, dataHex, ok := strings.Cut(encrypted, ":")
	if !ok {
		return "", fmt.Errorf("invalid encrypted format")
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return "", fmt.Errorf("decode salt: %w", err)
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// deriveKey uses Argon2id to derive a 32-byte key from passphrase + salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// validatePermissions rejects config files writable by group or others,
// since they may hold the bearer token.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	if mode&0o022 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
