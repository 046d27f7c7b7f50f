package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/TremiDkhar/sitelink/internal/domain"
)

// DefaultAPIPrefix is the REST namespace existing site-link peers call.
const DefaultAPIPrefix = "/wp-json/dt-public/v1"

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Site link protocol
	LocalSite      string        // bare hostname of this installation
	Digest         domain.Digest // "md5" (wire-compatible) or "hmac-sha256"
	APIPrefix      string        // prefix of /sites/site_link_check
	SeedFile       string        // optional YAML seed of site links
	ReloadInterval time.Duration // periodic registry rebuild
	PeerTimeout    time.Duration // timeout of outbound status checks

	CheckBurst        int // rate limit burst on the check endpoint
	CheckRefillPerMin int // rate limit refill on the check endpoint

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // dial timeout
	RedisRT               time.Duration // read timeout
	RedisWT               time.Duration // write timeout
	RedisMaxWait          time.Duration // max wait between retries
	RedisPingTimeout      time.Duration // timeout for each ping attempt
	RedisPoolSize         int           // connection pool size
	RedisConnectTimeout   time.Duration // total time to retry connecting
	RedisRetryInterval    time.Duration // initial wait between retries, doubled on failure
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict admin endpoints to these Host headers
	AllowedCIDRS []string // optional, restrict admin/ops endpoints to these IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

// Load reads the configuration from the environment, after merging the
// optional dotenv file. Invalid or missing required values panic.
func Load() *Config {
	loadEnvFile(getenv("SITELINK_ENV_FILE", ".env"), os.Getenv("SITELINK_ENV_FILE") != "")

	digest, err := domain.ParseDigest(getenv("SITELINK_DIGEST", string(domain.DigestMD5)))
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}

	cfg := &Config{
		ListenPort:      getenv("SITELINK_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("SITELINK_SHUTDOWN_TIMEOUT", 5*time.Second),

		LogLevel:  getenv("SITELINK_LOG_LEVEL", "info"),
		PrettyLog: mustBool("SITELINK_PRETTY_LOG", false),

		LocalSite:      requireSite("SITELINK_LOCAL_SITE"),
		Digest:         digest,
		APIPrefix:      normalizePrefix(getenv("SITELINK_API_PREFIX", DefaultAPIPrefix)),
		SeedFile:       getenv("SITELINK_SEED_FILE", ""),
		ReloadInterval: mustDuration("SITELINK_RELOAD_INTERVAL", 5*time.Minute),
		PeerTimeout:    mustDuration("SITELINK_PEER_TIMEOUT", 10*time.Second),

		CheckBurst:        getenvInt("SITELINK_CHECK_BURST", 30),
		CheckRefillPerMin: getenvInt("SITELINK_CHECK_REFILL_PER_MIN", 60),

		RedisAddr:             requireEnv("SITELINK_REDIS_ADDR"),
		RedisUser:             getenv("SITELINK_REDIS_USERNAME", ""),
		RedisPasswordRequired: mustBool("SITELINK_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("SITELINK_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("SITELINK_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		AllowedHosts: splitAndTrim(getenv("SITELINK_ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("SITELINK_ALLOWED_CIDRS", "127.0.0.1,::1")),
		TrustProxy:   mustBool("SITELINK_TRUST_PROXY", false),
	}

	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: SITELINK_REDIS_PASSWORD is required when SITELINK_REDIS_PASSWORD_REQUIRED=true")
	}

	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.RedisPassword != "" {
		c.RedisPassword = "***REDACTED***"
	}
	if c.RedisUser != "" {
		c.RedisUser = "***REDACTED***"
	}
	return c
}

// loadEnvFile merges path into the environment without overriding variables
// that are already set. A missing file is only fatal when it was asked for.
func loadEnvFile(path string, explicit bool) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !explicit {
		return
	}
	if err := godotenv.Load(path); err != nil {
		panic(fmt.Sprintf("❌ FATAL: cannot load env file %s: %v", path, err))
	}
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func requireSite(key string) string {
	site := domain.BareHost(requireEnv(key))
	if site == "" {
		panic(fmt.Sprintf("❌ FATAL: %s does not contain a hostname", key))
	}
	return site
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

// normalizePrefix yields "" or "/a/b" (leading slash, no trailing slash).
func normalizePrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.Trim(strings.TrimSpace(part), `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
