package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const admin = "0x00000000000000000000000000000000000000a1"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ADMIN_ADDRESS", admin)
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, JournalMemory, cfg.Journal)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, common.HexToAddress(admin), cfg.Admin())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADMIN_ADDRESS", admin)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "9000")
	t.Setenv("JOURNAL", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("TOKEN_TTL", "15m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, JournalRedis, cfg.Journal)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("ADMIN_ADDRESS", admin)
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	ok := Config{AdminAddress: admin, Journal: JournalSQLite, TokenTTL: time.Hour}
	assert.NoError(t, ok.Validate())

	badAddr := ok
	badAddr.AdminAddress = "alice"
	assert.Error(t, badAddr.Validate())

	badJournal := ok
	badJournal.Journal = "floppy"
	assert.Error(t, badJournal.Validate())

	badTTL := ok
	badTTL.TokenTTL = 0
	assert.Error(t, badTTL.Validate())
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ELECTION_TEST_KEY", "")
	assert.Equal(t, "fallback", GetEnv("ELECTION_TEST_KEY", "fallback"))

	t.Setenv("ELECTION_TEST_KEY", "set")
	assert.Equal(t, "set", GetEnv("ELECTION_TEST_KEY", "fallback"))
}

func TestLoadEnvFromFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "election.env")
	require.NoError(t, os.WriteFile(file, []byte("ELECTION_FILE_KEY=from-file\nELECTION_SET_KEY=from-file\n"), 0o600))

	t.Setenv("ENV_FILE", file)
	t.Setenv("ELECTION_SET_KEY", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("ELECTION_FILE_KEY") })

	LoadEnv()

	assert.Equal(t, "from-file", os.Getenv("ELECTION_FILE_KEY"))
	assert.Equal(t, "from-env", os.Getenv("ELECTION_SET_KEY"))
}
