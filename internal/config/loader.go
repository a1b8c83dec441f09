package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the console service.
type Config struct {
	HTTPPort       int
	SQLiteDSN      string
	SessionTTL     time.Duration
	JWTSecret      string
	UploadDir      string
	MaxUploadBytes int64
	SecureCookies  bool
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int

	// Agenda grid constants. Defaults mirror the console's original pixel
	// values; deployments may override them.
	HourHeight      float64
	CollapsedHeight float64
	WorkdayStart    int
	WorkdayEnd      int
}

// Load parses configuration values from the current process environment.
//
// A .env file in the working directory is applied first when present. The
// loader applies defaults for optional fields while accumulating missing and
// invalid entries so operators see every problem at once.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:        8080,
		SQLiteDSN:       "file:console.db?_foreign_keys=on",
		SessionTTL:      24 * time.Hour,
		UploadDir:       "uploads",
		MaxUploadBytes:  10 << 20,
		AllowedOrigins:  []string{"*"},
		RateLimitRPS:    25,
		RateLimitBurst:  50,
		HourHeight:      60,
		CollapsedHeight: 30,
		WorkdayStart:    7,
		WorkdayEnd:      20,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("CONSOLE_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "CONSOLE_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("CONSOLE_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if secret := strings.TrimSpace(os.Getenv("CONSOLE_JWT_SECRET")); secret == "" {
		missing = append(missing, "CONSOLE_JWT_SECRET")
	} else {
		cfg.JWTSecret = secret
	}

	if ttlValue := strings.TrimSpace(os.Getenv("CONSOLE_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "CONSOLE_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if dir := strings.TrimSpace(os.Getenv("CONSOLE_UPLOAD_DIR")); dir != "" {
		cfg.UploadDir = dir
	}

	if sizeValue := strings.TrimSpace(os.Getenv("CONSOLE_MAX_UPLOAD_BYTES")); sizeValue != "" {
		size, err := strconv.ParseInt(sizeValue, 10, 64)
		if err != nil || size <= 0 {
			invalid = append(invalid, "CONSOLE_MAX_UPLOAD_BYTES")
		} else {
			cfg.MaxUploadBytes = size
		}
	}

	if secureValue := strings.TrimSpace(os.Getenv("CONSOLE_SECURE_COOKIES")); secureValue != "" {
		secure, err := strconv.ParseBool(secureValue)
		if err != nil {
			invalid = append(invalid, "CONSOLE_SECURE_COOKIES")
		} else {
			cfg.SecureCookies = secure
		}
	}

	if origins := strings.TrimSpace(os.Getenv("CONSOLE_ALLOWED_ORIGINS")); origins != "" {
		parts := strings.Split(origins, ",")
		cleaned := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			cfg.AllowedOrigins = cleaned
		}
	}

	if rpsValue := strings.TrimSpace(os.Getenv("CONSOLE_RATE_LIMIT_RPS")); rpsValue != "" {
		rps, err := strconv.ParseFloat(rpsValue, 64)
		if err != nil || rps <= 0 {
			invalid = append(invalid, "CONSOLE_RATE_LIMIT_RPS")
		} else {
			cfg.RateLimitRPS = rps
		}
	}

	if burstValue := strings.TrimSpace(os.Getenv("CONSOLE_RATE_LIMIT_BURST")); burstValue != "" {
		burst, err := strconv.Atoi(burstValue)
		if err != nil || burst <= 0 {
			invalid = append(invalid, "CONSOLE_RATE_LIMIT_BURST")
		} else {
			cfg.RateLimitBurst = burst
		}
	}

	if hhValue := strings.TrimSpace(os.Getenv("CONSOLE_AGENDA_HOUR_HEIGHT")); hhValue != "" {
		hh, err := strconv.ParseFloat(hhValue, 64)
		if err != nil || hh <= 0 {
			invalid = append(invalid, "CONSOLE_AGENDA_HOUR_HEIGHT")
		} else {
			cfg.HourHeight = hh
		}
	}

	if chValue := strings.TrimSpace(os.Getenv("CONSOLE_AGENDA_COLLAPSED_HEIGHT")); chValue != "" {
		ch, err := strconv.ParseFloat(chValue, 64)
		if err != nil || ch <= 0 {
			invalid = append(invalid, "CONSOLE_AGENDA_COLLAPSED_HEIGHT")
		} else {
			cfg.CollapsedHeight = ch
		}
	}

	if wsValue := strings.TrimSpace(os.Getenv("CONSOLE_AGENDA_WORKDAY_START")); wsValue != "" {
		ws, err := strconv.Atoi(wsValue)
		if err != nil || ws < 0 || ws > 23 {
			invalid = append(invalid, "CONSOLE_AGENDA_WORKDAY_START")
		} else {
			cfg.WorkdayStart = ws
		}
	}

	if weValue := strings.TrimSpace(os.Getenv("CONSOLE_AGENDA_WORKDAY_END")); weValue != "" {
		we, err := strconv.Atoi(weValue)
		if err != nil || we < 1 || we > 24 {
			invalid = append(invalid, "CONSOLE_AGENDA_WORKDAY_END")
		} else {
			cfg.WorkdayEnd = we
		}
	}

	if cfg.WorkdayStart >= cfg.WorkdayEnd {
		invalid = append(invalid, "CONSOLE_AGENDA_WORKDAY_END")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
