package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "badger")
	t.Setenv("BADGER_IN_MEMORY", "true")
	t.Setenv("BADGER_PATH", "")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("PORT", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("DB_DRIVER", "")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.Equal(t, StoreBadger, cfg.StoreDriver)
	assert.True(t, cfg.Badger.InMemory)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "pgx", cfg.DB.Driver)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"bad ttl", map[string]string{"TOKEN_TTL": "forever"}},
		{"negative ttl", map[string]string{"TOKEN_TTL": "-1h"}},
		{"bad bool", map[string]string{"BADGER_IN_MEMORY": "maybe"}},
		{"unknown store", map[string]string{"STORE_DRIVER": "mongo"}},
		{"postgres without db", map[string]string{"STORE_DRIVER": "postgres", "DB_NAME": "", "DB_USER": ""}},
		{"unknown sql driver", map[string]string{"STORE_DRIVER": "postgres", "DB_NAME": "forum", "DB_USER": "forum", "DB_DRIVER": "mysql"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadPostgres(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_USER", "forum")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "forum")
	t.Setenv("DB_SSLMODE", "require")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, "host=db user=forum password=secret dbname=forum port=5433 sslmode=require TimeZone=UTC", cfg.DB.DSN())
}
