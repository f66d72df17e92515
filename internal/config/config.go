package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Dispatch  DispatchConfig
	Assign    AssignConfig
	Publish   PublishConfig
	Instagram InstagramConfig
	Reaper    ReaperConfig
}

type ServerConfig struct {
	Address string
}

type DatabaseConfig struct {
	PostgresURL string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type DispatchConfig struct {
	Interval time.Duration
}

// AssignConfig controls the daily assignment pass: when it runs (five-field
// cron expression), how many reels it schedules, and the local window the
// random publish times fall into.
type AssignConfig struct {
	CronSpec        string
	BatchSize       int
	WindowStartHour int
	WindowEndHour   int
	Timezone        string
}

type PublishConfig struct {
	PollInterval    time.Duration
	PollMaxAttempts int
}

type InstagramConfig struct {
	AccessToken string
	UserID      string
	BaseURL     string
}

type ReaperConfig struct {
	Interval time.Duration
	MaxAge   time.Duration
}

func LoadAll() (*Config, error) {
	var errs []error

	postgresURL, err := requireEnv("POSTGRES_URL")
	if err != nil {
		errs = append(errs, err)
	}
	accessToken, err := requireEnv("INSTAGRAM_ACCESS_TOKEN")
	if err != nil {
		errs = append(errs, err)
	}
	userID, err := requireEnv("INSTAGRAM_USER_ID")
	if err != nil {
		errs = append(errs, err)
	}

	dispatchSecs, err := getEnvInt("DISPATCH_INTERVAL_SECONDS", 60)
	if err != nil {
		errs = append(errs, err)
	}
	pollSecs, err := getEnvInt("POLL_INTERVAL_SECONDS", 3)
	if err != nil {
		errs = append(errs, err)
	}
	pollMax, err := getEnvInt("POLL_MAX_ATTEMPTS", 20)
	if err != nil {
		errs = append(errs, err)
	}
	batchSize, err := getEnvInt("ASSIGN_BATCH_SIZE", 2)
	if err != nil {
		errs = append(errs, err)
	}
	windowStart, err := getEnvInt("ASSIGN_WINDOW_START_HOUR", 10)
	if err != nil {
		errs = append(errs, err)
	}
	windowEnd, err := getEnvInt("ASSIGN_WINDOW_END_HOUR", 22)
	if err != nil {
		errs = append(errs, err)
	}
	reaperSecs, err := getEnvInt("REAPER_INTERVAL_SECONDS", 300)
	if err != nil {
		errs = append(errs, err)
	}
	reaperMaxAge, err := getEnvInt("REAPER_MAX_AGE_SECONDS", 600)
	if err != nil {
		errs = append(errs, err)
	}

	redisCfg, err := loadRedisConfig()
	if err != nil {
		errs = append(errs, err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		Database: DatabaseConfig{
			PostgresURL: postgresURL,
		},
		Redis: redisCfg,
		Dispatch: DispatchConfig{
			Interval: time.Duration(dispatchSecs) * time.Second,
		},
		Assign: AssignConfig{
			CronSpec:        getEnv("ASSIGN_CRON", "0 9 * * *"),
			BatchSize:       batchSize,
			WindowStartHour: windowStart,
			WindowEndHour:   windowEnd,
			Timezone:        getEnv("ASSIGN_TIMEZONE", "Local"),
		},
		Publish: PublishConfig{
			PollInterval:    time.Duration(pollSecs) * time.Second,
			PollMaxAttempts: pollMax,
		},
		Instagram: InstagramConfig{
			AccessToken: accessToken,
			UserID:      userID,
			BaseURL:     getEnv("GRAPH_BASE_URL", ""),
		},
		Reaper: ReaperConfig{
			Interval: time.Duration(reaperSecs) * time.Second,
			MaxAge:   time.Duration(reaperMaxAge) * time.Second,
		},
	}

	errs = append(errs, validate(cfg)...)

	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRedisConfig() (RedisConfig, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}, nil
	}

	var errs []error
	db, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		errs = append(errs, err)
	}
	ttl, err := getEnvInt("REDIS_TTL_SECONDS", 86400)
	if err != nil {
		errs = append(errs, err)
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		TTL:      time.Duration(ttl) * time.Second,
	}, joinErrors(errs)
}

func validate(cfg *Config) []error {
	var errs []error

	if cfg.Dispatch.Interval <= 0 {
		errs = append(errs, errors.New("DISPATCH_INTERVAL_SECONDS must be > 0"))
	}
	if cfg.Publish.PollInterval <= 0 {
		errs = append(errs, errors.New("POLL_INTERVAL_SECONDS must be > 0"))
	}
	if cfg.Publish.PollMaxAttempts <= 0 {
		errs = append(errs, errors.New("POLL_MAX_ATTEMPTS must be > 0"))
	}
	if cfg.Assign.BatchSize <= 0 {
		errs = append(errs, errors.New("ASSIGN_BATCH_SIZE must be > 0"))
	}
	if cfg.Assign.WindowStartHour < 0 || cfg.Assign.WindowEndHour > 24 ||
		cfg.Assign.WindowStartHour >= cfg.Assign.WindowEndHour {
		errs = append(errs, errors.New("ASSIGN_WINDOW_START_HOUR/ASSIGN_WINDOW_END_HOUR must satisfy 0 <= start < end <= 24"))
	}
	if cfg.Reaper.Interval <= 0 {
		errs = append(errs, errors.New("REAPER_INTERVAL_SECONDS must be > 0"))
	}
	if cfg.Reaper.MaxAge <= 0 {
		errs = append(errs, errors.New("REAPER_MAX_AGE_SECONDS must be > 0"))
	}
	if _, err := time.LoadLocation(cfg.Assign.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("ASSIGN_TIMEZONE invalid: %w", err))
	}

	return errs
}

func requireEnv(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("missing required env var: %s", key)
	}
	return val, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for env %s: %q", key, v)
	}
	return i, nil
}

func joinErrors(errs []error) error {
	var nonNil []error
	for _, e := range errs {
		if e != nil {
			nonNil = append(nonNil, e)
		}
	}
	if len(nonNil) == 0 {
		return nil
	}
	return errors.Join(nonNil...)
}
