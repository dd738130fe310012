package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProfileFull  = "full"
	ProfileBasic = "basic"

	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
	CacheOff    = "off"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// Profile selects the gateway behaviour: "full" validates strictly, serves the
	// latest envelope at / and enriches requests; "basic" is lenient and greets.
	Profile  string
	Greeting string

	// CORSAllowedOrigins enables the CORS wrapper when non-empty.
	CORSAllowedOrigins []string
	TrustProxyHeaders  bool

	IPInfoToken       string
	IPInfoURL         string
	GeocoderURL       string
	GeocoderUserAgent string
	UpstreamTimeout   time.Duration

	LocationCache    string
	LocationCacheTTL time.Duration

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// MQTTBroker empty disables the MQTT subscriber.
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string
}

func LoadFromEnv() (Config, error) {
	appEnv := envOr("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	profile := strings.ToLower(envOr("GATEWAY_PROFILE", ProfileFull))
	switch profile {
	case ProfileFull, ProfileBasic:
	default:
		return Config{}, fmt.Errorf("invalid GATEWAY_PROFILE %q (allowed: full, basic)", profile)
	}

	trustProxy, err := parseBool("TRUST_PROXY_HEADERS", "false")
	if err != nil {
		return Config{}, err
	}

	upstreamTimeout, err := parseDuration("UPSTREAM_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	if upstreamTimeout <= 0 {
		return Config{}, fmt.Errorf("invalid UPSTREAM_TIMEOUT %q: must be > 0", os.Getenv("UPSTREAM_TIMEOUT"))
	}

	cache := strings.ToLower(envOr("LOCATION_CACHE", CacheSQLite))
	switch cache {
	case CacheSQLite, CacheRedis, CacheOff:
	default:
		return Config{}, fmt.Errorf("invalid LOCATION_CACHE %q (allowed: sqlite, redis, off)", cache)
	}
	cacheTTL, err := parseDuration("LOCATION_CACHE_TTL", "1h")
	if err != nil {
		return Config{}, err
	}

	maxOpenConns, err := parseInt("DB_MAX_OPEN_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := parseInt("DB_MAX_IDLE_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := parseDuration("DB_CONN_MAX_LIFETIME", "0s")
	if err != nil {
		return Config{}, err
	}

	redisDB, err := parseInt("REDIS_DB", "0")
	if err != nil {
		return Config{}, err
	}

	mqttPort, err := parseInt("MQTT_PORT", "1883")
	if err != nil {
		return Config{}, err
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d (must be 1-65535)", mqttPort)
	}

	return Config{
		AppEnv:   appEnv,
		LogLevel: level,
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),

		Profile:  profile,
		Greeting: envOr("GREETING", "Hello, World!"),

		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		TrustProxyHeaders:  trustProxy,

		IPInfoToken:       strings.TrimSpace(os.Getenv("IPINFO_ACCESS_TOKEN")),
		IPInfoURL:         envOr("IPINFO_URL", "https://ipinfo.io"),
		GeocoderURL:       envOr("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent: envOr("GEOCODER_USER_AGENT", "envgate-server"),
		UpstreamTimeout:   upstreamTimeout,

		LocationCache:    cache,
		LocationCacheTTL: cacheTTL,

		SQLiteDriver:          envOr("DB_DRIVER", "sqlite3"),
		SQLiteDSN:             strings.TrimSpace(os.Getenv("DB_DSN")),
		SQLitePath:            envOr("SQLITE_PATH", "../dev/sqlite/envgate.db"),
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,

		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		MQTTBroker:   strings.TrimSpace(os.Getenv("MQTT_BROKER")),
		MQTTPort:     mqttPort,
		MQTTClientID: envOr("MQTT_CLIENT_ID", "envgate-server"),
		MQTTTopic:    envOr("MQTT_TOPIC", "sensors/+/data"),
	}, nil
}

// Enrichment reports whether requests should be geolocated.
func (c Config) Enrichment() bool {
	return c.Profile == ProfileFull
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func parseInt(key, def string) (int, error) {
	s := envOr(key, def)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func parseBool(key, def string) (bool, error) {
	s := envOr(key, def)
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOr(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
