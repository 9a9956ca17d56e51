// FILE: env.go
// Package config – environment helpers and a dependency-free .env loader.
//
// Mirrors the bot's original approach: small typed getters, a restricted
// whitelist .env loader that only injects keys this process actually
// reads, and no external config-file parser (TOML/YAML/CLI flags stay
// out of scope per the platform's external-collaborator boundary).
package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "y", "yes":
		return true
	case "0", "false", "n", "no":
		return false
	default:
		return def
	}
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// knownKeys is the whitelist LoadEnvFile injects from .env; anything else
// in the file (exchange secrets, PEMs) is ignored on purpose.
var knownKeys = map[string]struct{}{
	"GRIDSIM_PAIR": {}, "GRIDSIM_TIMEFRAME_MIN": {}, "GRIDSIM_CAPITAL": {},
	"GRIDSIM_GRID_LEVELS": {}, "GRIDSIM_GRID_SPACING": {},
	"GRIDSIM_MAX_POSITION_PCT": {}, "GRIDSIM_MAX_DRAWDOWN_PCT": {},
	"GRIDSIM_STOP_LOSS_PCT": {}, "GRIDSIM_TAKER_FEE_BPS": {}, "GRIDSIM_MAKER_FEE_BPS": {},
	"GRIDSIM_BASE_SLIPPAGE_BPS": {}, "GRIDSIM_RATE_LIMIT_PER_MIN": {},
	"GRIDSIM_REST_BASE_URL": {}, "GRIDSIM_WS_URL": {}, "GRIDSIM_STRATEGY_DIR": {},
	"GRIDSIM_JOURNAL_DIR": {}, "GRIDSIM_LOG_LEVEL": {}, "GRIDSIM_PORT": {},
	"GRIDSIM_OPTIMIZER_STRATEGY": {}, "GRIDSIM_OPTIMIZER_ITERATIONS": {},
}

// LoadEnvFile reads ./.env and ../.env and injects only the whitelisted
// keys into the process environment. It never overrides a variable
// already set, so explicit exports win over the file.
func LoadEnvFile() {
	try := func(path string) {
		f, err := os.Open(path)
		if err != nil {
			return
		}
		defer f.Close()
		s := bufio.NewScanner(f)
		for s.Scan() {
			line := strings.TrimSpace(s.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if strings.HasPrefix(line, "export ") {
				line = strings.TrimSpace(line[len("export "):])
			}
			eq := strings.Index(line, "=")
			if eq <= 0 {
				continue
			}
			key := strings.TrimSpace(line[:eq])
			if _, ok := knownKeys[key]; !ok {
				continue
			}
			val := strings.TrimSpace(line[eq+1:])
			if len(val) >= 2 && ((val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'')) {
				val = val[1 : len(val)-1]
			}
			if idx := strings.IndexAny(val, "#"); idx >= 0 {
				val = strings.TrimSpace(val[:idx])
			}
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, val)
			}
		}
	}
	for _, base := range []string{".", ".."} {
		try(filepath.Join(base, ".env"))
	}
}
