package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-tweet-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-tweet-go/pkg/utilities"
)

var (
	ErrMissingRequiredEnv = errors.New("missing required environment variable")
	ErrInvalidJWTSecret   = errors.New("JWT_SECRET must be at least 32 bytes")
	ErrUnknownStoreDriver = errors.New("unknown STORE_DRIVER")
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type StoreConfig struct {
	Driver          string
	Postgres        database.Config
	Mongo           database.MongoConfig
	UsersCollection string
	PostsCollection string
}

type AuthConfig struct {
	JWTSecret  string
	Issuer     string
	TokenTTL   time.Duration
	BcryptCost int
}

type EventsConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ConsumerGroup string
	ConsumerName  string
}

func (c EventsConfig) Enabled() bool { return c.RedisAddr != "" }

type Config struct {
	HTTPAddr       string
	RequestTimeout time.Duration
	Log            utilities.Config
	Store          StoreConfig
	Auth           AuthConfig
	Events         EventsConfig
	SnowflakeNode  int64
}

// Load reads the whole configuration from the environment. Call it after
// godotenv.Load so values from a .env file are visible.
func Load() (Config, error) {
	secret, err := mustEnv("JWT_SECRET")
	if err != nil {
		return Config{}, err
	}
	if err := validateJWTSecret(secret); err != nil {
		return Config{}, err
	}

	driver := strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres))
	store := StoreConfig{
		Driver: driver,
		Postgres: database.Config{
			MaxConns:       getIntEnv("DB_MAX_CONNS", 5),
			Timeout:        getDurationEnv("DB_TIMEOUT", 5*time.Second),
			TimeZone:       os.Getenv("DB_TIMEZONE"),
			ClientEncoding: os.Getenv("DB_CLIENT_ENCODING"),
		},
		Mongo: database.MongoConfig{
			Database: getEnv("MONGO_DATABASE", "tweetapp"),
			Timeout:  getDurationEnv("DB_TIMEOUT", 5*time.Second),
		},
		UsersCollection: getEnv("USERS_COLLECTION", "users"),
		PostsCollection: getEnv("POSTS_COLLECTION", "posts"),
	}
	switch driver {
	case DriverPostgres:
		if store.Postgres.DSN, err = mustEnv("DATABASE_URL"); err != nil {
			return Config{}, err
		}
	case DriverMongo:
		if store.Mongo.URI, err = mustEnv("MONGO_URI"); err != nil {
			return Config{}, err
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownStoreDriver, driver)
	}

	cost := getIntEnv("BCRYPT_COST", bcrypt.DefaultCost)
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "tweet-api"
	}

	return Config{
		HTTPAddr:       getEnv("HTTP_ADDR", "0.0.0.0:8431"),
		RequestTimeout: getDurationEnv("REQUEST_TIMEOUT", 5*time.Second),
		Log:            utilities.ConfigFromEnv(),
		Store:          store,
		Auth: AuthConfig{
			JWTSecret:  secret,
			Issuer:     getEnv("JWT_ISSUER", "service-tweet"),
			TokenTTL:   getDurationEnv("TOKEN_TTL", time.Hour),
			BcryptCost: cost,
		},
		Events: EventsConfig{
			RedisAddr:     os.Getenv("REDIS_ADDR"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       getIntEnv("REDIS_DB", 0),
			ConsumerGroup: getEnv("EVENTS_GROUP", "tweet-api"),
			ConsumerName:  getEnv("EVENTS_CONSUMER", hostname),
		},
		SnowflakeNode: int64(getIntEnv("SNOWFLAKE_NODE", 1)),
	}, nil
}

func validateJWTSecret(secret string) error {
	if len(secret) < 32 {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidJWTSecret, len(secret))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingRequiredEnv, key)
	}
	return v, nil
}

func getIntEnv(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
