package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_TYPE", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, 5*time.Second, cfg.Store.Timeout)
	assert.Equal(t, int64(500), cfg.Economy.TransferFeeBps)
	assert.Equal(t, "UTC", cfg.Economy.DailyTimezone)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
}

func TestLoadParsesLists(t *testing.T) {
	t.Setenv("STORE_TYPE", "memory")
	t.Setenv("API_KEYS", "bot-a,bot-b")
	t.Setenv("ADMIN_KEYS", "root")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"bot-a", "bot-b"}, cfg.Auth.APIKeys)
	assert.Equal(t, []string{"root"}, cfg.Auth.AdminKeys)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"store type":   func(c *Config) { c.Store.Type = "cassandra" },
		"pending type": func(c *Config) { c.Pending.Type = "etcd" },
		"fee":          func(c *Config) { c.Economy.TransferFeeBps = 20000 },
		"gift cap":     func(c *Config) { c.Economy.GiftMaxAmount = 0 },
		"timezone":     func(c *Config) { c.Economy.DailyTimezone = "Mars/Olympus" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDSNs(t *testing.T) {
	s := StoreConfig{Host: "db", Port: 5432, Name: "eco", User: "u", Password: "p", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/eco?sslmode=disable", s.PostgresDSN())
	assert.Equal(t, "u:p@tcp(db:5432)/eco?parseTime=true", s.MySQLDSN())

	r := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", r.Address())
}

func validConfig() Config {
	return Config{
		Store:   StoreConfig{Type: "memory", Timeout: time.Second},
		Pending: PendingConfig{Type: "memory"},
		Journal: JournalConfig{Buffer: "none"},
		Economy: EconomyConfig{TransferFeeBps: 500, GiftMaxAmount: 100, DailyTimezone: "UTC"},
	}
}
