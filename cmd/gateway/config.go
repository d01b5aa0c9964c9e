package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"adaptive-gateway/middleware/ratelimit/domain"

	"github.com/ulule/limiter/v3"
)

type config struct {
	listenAddr  string
	upstreamURL string
	logFormat   string
	logDebug    bool

	rateEnabled    bool
	defaultRule    domain.Rule
	rulesFile      string
	rateKeyHeader  string
	trustXFF       bool
	addHeaders     bool
	rewardMethod   string
	rewardPaths    []string
	trustReward    int
	trustPenalty   int
	cleanupEvery   time.Duration
	adminAPIKey    string
	metricsEnabled bool
	metricsNS      string

	rateStatsEnabled       bool
	rateStatsRedisAddr     string
	rateStatsRedisPassword string
	rateStatsRedisDB       int
	rateStatsPrefix        string
	rateStatsTTL           time.Duration
	rateStatsBucket        string
	rateStatsTrackKeys     bool
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.upstreamURL = os.Getenv("UPSTREAM_URL")
	cfg.logFormat = getenvDefault("LOG_FORMAT", "json")
	cfg.logDebug = getenvBoolDefault("LOG_DEBUG", false)

	cfg.rateEnabled = getenvBoolDefault("RATE_ENABLED", true)
	rule, err := parseDefaultRule(getenvDefault("RATE_DEFAULT", "100-M"), getenvDurationDefault("RATE_BLOCK_DURATION", 0))
	if err != nil {
		return config{}, err
	}
	cfg.defaultRule = rule
	cfg.rulesFile = os.Getenv("RATE_RULES_FILE")
	cfg.rateKeyHeader = getenvDefault("RATE_KEY_HEADER", "X-Api-Key")
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)
	cfg.addHeaders = getenvBoolDefault("ADD_RATELIMIT_HEADERS", false)
	cfg.rewardMethod = strings.ToUpper(getenvDefault("REWARD_METHOD", "POST"))
	cfg.rewardPaths = splitList(getenvDefault("REWARD_PATHS", "/api/submit"))
	cfg.trustReward = getenvIntDefault("TRUST_REWARD", domain.DefaultTrustReward)
	cfg.trustPenalty = getenvIntDefault("TRUST_PENALTY", domain.DefaultTrustPenalty)
	cfg.cleanupEvery = getenvDurationDefault("LIMITER_CLEANUP_EVERY", 2*time.Minute)
	cfg.adminAPIKey = os.Getenv("ADMIN_API_KEY")
	cfg.metricsEnabled = getenvBoolDefault("METRICS_ENABLED", true)
	cfg.metricsNS = getenvDefault("METRICS_NAMESPACE", "gateway")

	cfg.rateStatsEnabled = getenvBoolDefault("RATE_STATS_ENABLED", false)
	cfg.rateStatsRedisAddr = getenvDefault("RATE_STATS_REDIS_ADDR", "")
	cfg.rateStatsRedisPassword = os.Getenv("RATE_STATS_REDIS_PASSWORD")
	cfg.rateStatsRedisDB = getenvIntDefault("RATE_STATS_REDIS_DB", 0)
	cfg.rateStatsPrefix = getenvDefault("RATE_STATS_PREFIX", "admission:stats")
	cfg.rateStatsTTL = getenvDurationDefault("RATE_STATS_TTL", 24*time.Hour)
	cfg.rateStatsBucket = getenvDefault("RATE_STATS_BUCKET", "minute")
	cfg.rateStatsTrackKeys = getenvBoolDefault("RATE_STATS_TRACK_KEYS", false)

	if cfg.rateStatsEnabled && strings.TrimSpace(cfg.rateStatsRedisAddr) == "" {
		return config{}, errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_ENABLED=true")
	}
	if cfg.upstreamURL == "" {
		return config{}, errors.New("UPSTREAM_URL is required")
	}
	if cfg.trustReward < 0 || cfg.trustPenalty < 0 {
		return config{}, errors.New("TRUST_REWARD and TRUST_PENALTY must be >= 0")
	}
	return cfg, nil
}

// parseDefaultRule converte a notação "<limite>-<período>" (S, M, H, D) para a
// regra default em segundos. O período precisa ser de pelo menos 1 segundo.
func parseDefaultRule(formatted string, block time.Duration) (domain.Rule, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return domain.Rule{}, fmt.Errorf("invalid RATE_DEFAULT %q: %w", formatted, err)
	}
	if rate.Limit <= 0 || rate.Period < time.Second {
		return domain.Rule{}, fmt.Errorf("invalid RATE_DEFAULT %q: limit and period must be positive", formatted)
	}
	if rate.Limit > domain.MaxRuleValue {
		return domain.Rule{}, fmt.Errorf("invalid RATE_DEFAULT %q: limit must be at most %d", formatted, domain.MaxRuleValue)
	}
	if block < 0 {
		return domain.Rule{}, errors.New("RATE_BLOCK_DURATION must be >= 0")
	}
	if block%time.Second != 0 {
		return domain.Rule{}, fmt.Errorf("RATE_BLOCK_DURATION must be whole seconds, got %s", block)
	}
	if block/time.Second > domain.MaxRuleValue {
		return domain.Rule{}, fmt.Errorf("RATE_BLOCK_DURATION must be at most %ds", domain.MaxRuleValue)
	}
	return domain.Rule{
		KeyPrefix:     domain.GlobalPrefix,
		Points:        int(rate.Limit),
		Duration:      int(rate.Period / time.Second),
		BlockDuration: int(block / time.Second),
	}, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
