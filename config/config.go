package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	JournalMemory   = "memory"
	JournalRedis    = "redis"
	JournalSQLite   = "sqlite"
	JournalPostgres = "postgres"
)

type Config struct {
	Port          string        `env:"PORT" envDefault:"8080"`
	AdminAddress  string        `env:"ADMIN_ADDRESS,required,notEmpty"`
	ElectionID    string        `env:"ELECTION_ID" envDefault:"default"`
	Journal       string        `env:"JOURNAL" envDefault:"memory"`
	RedisURI      string        `env:"REDIS_URI" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	DatabaseURL   string        `env:"DATABASE_URL" envDefault:"file:election.db"`
	JWTSecret     string        `env:"JWT_SECRET,required,notEmpty"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string        `env:"LOG_FORMAT" envDefault:"json"`
}

// LoadEnv loads the dotenv file named by ENV_FILE, .env by default. Variables
// already set in the environment win.
func LoadEnv() {
	file := GetEnv("ENV_FILE", ".env")
	err := godotenv.Load(file)
	if err != nil {
		log.Warn().Str("file", file).Msg("no env file found, using environment variables")
	}
}

func GetEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to parse environment")
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if !common.IsHexAddress(c.AdminAddress) {
		return errors.Errorf("ADMIN_ADDRESS %q is not a hex address", c.AdminAddress)
	}

	switch c.Journal {
	case JournalMemory, JournalRedis, JournalSQLite, JournalPostgres:
	default:
		return errors.Errorf("unknown JOURNAL %q", c.Journal)
	}

	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}

	return nil
}

func (c Config) Admin() common.Address {
	return common.HexToAddress(c.AdminAddress)
}
