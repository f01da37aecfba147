package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL        = "http://localhost:5000/api"
	DefaultServerPort    = "8080"
	DefaultSessionCookie = "siramm_session"
)

// DefaultKnownScopes is the scope enumeration the store accepts.
var DefaultKnownScopes = []string{"project", "task", "invoice", "activity", "member"}

type Config struct {
	APIURL              string
	ServerPort          string
	CORSOrigin          string
	LogFile             string
	LogStdout           bool
	LogLevel            string
	MongoURI            string
	MongoDBName         string
	MongoCollection     string
	ProjectTasksTimeout time.Duration
	BreakerTimeout      time.Duration
	BreakerMaxFailures  uint32
	KnownScopes         []string
	SessionCookie       string
	SessionIdleTimeout  time.Duration
	Token               string
}

// Load reads .env files (missing files are fine) and then the environment.
// envFiles defaults to ".env".
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	cfg := Config{
		APIURL:              strings.TrimRight(getenv("API_URL", DefaultAPIURL), "/"),
		ServerPort:          strings.TrimPrefix(getenv("SERVER_PORT", DefaultServerPort), ":"),
		CORSOrigin:          getenv("CORS_ORIGIN", "*"),
		LogFile:             getenv("LOG_FILE", "logs/siramm-web.log"),
		LogLevel:            getenv("LOG_LEVEL", "info"),
		MongoURI:            os.Getenv("MONGO_URI"),
		MongoDBName:         getenv("MONGO_DB_NAME", "siramm"),
		MongoCollection:     getenv("MONGO_COLLECTION", "pending_mutations"),
		SessionCookie:       getenv("SESSION_COOKIE", DefaultSessionCookie),
		Token:               os.Getenv("SIRAMM_TOKEN"),
		KnownScopes:         DefaultKnownScopes,
		ProjectTasksTimeout: 30 * time.Second,
		BreakerTimeout:      5 * time.Second,
		BreakerMaxFailures:  3,
		SessionIdleTimeout:  12 * time.Hour,
	}

	var err error
	if cfg.LogStdout, err = getbool("LOG_STDOUT", false); err != nil {
		return Config{}, err
	}
	if cfg.ProjectTasksTimeout, err = getduration("PROJECT_TASKS_TIMEOUT", cfg.ProjectTasksTimeout); err != nil {
		return Config{}, err
	}
	if cfg.BreakerTimeout, err = getduration("BREAKER_TIMEOUT", cfg.BreakerTimeout); err != nil {
		return Config{}, err
	}
	if cfg.SessionIdleTimeout, err = getduration("SESSION_IDLE_TIMEOUT", cfg.SessionIdleTimeout); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("BREAKER_MAX_FAILURES"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return Config{}, errors.New("BREAKER_MAX_FAILURES must be a positive integer")
		}
		cfg.BreakerMaxFailures = uint32(n)
	}
	if v := os.Getenv("KNOWN_SCOPES"); v != "" {
		var scopes []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				scopes = append(scopes, s)
			}
		}
		if len(scopes) > 0 {
			cfg.KnownScopes = scopes
		}
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getbool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New(key + " must be a boolean")
	}
	return b, nil
}

func getduration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.New(key + " must be a duration such as 30s")
	}
	return d, nil
}
