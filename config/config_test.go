package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default configuration",
			envVars: map[string]string{
				"ENVIRONMENT": "development",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "polishfinder", cfg.Database.Database)
				assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
				assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
				assert.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL)
				assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL)
				assert.Empty(t, cfg.Auth.BootstrapAdmin)
				assert.Equal(t, 30, cfg.RateLimit.SubmissionsPerMinute)
				assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
			},
		},
		{
			name: "memory storage with redis cache",
			envVars: map[string]string{
				"STORAGE_DRIVER":       "memory",
				"PERMISSION_CACHE":     "redis",
				"REDIS_ADDR":           "cache:6379",
				"REDIS_DB":             "2",
				"PERMISSION_CACHE_TTL": "1m",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
				assert.Equal(t, CacheBackendRedis, cfg.Cache.Backend)
				assert.Equal(t, "cache:6379", cfg.Redis.Addr)
				assert.Equal(t, 2, cfg.Redis.DB)
				assert.Equal(t, time.Minute, cfg.Cache.TTL)
			},
		},
		{
			name: "database url takes precedence",
			envVars: map[string]string{
				"DATABASE_URL":      "postgres://u:p@db.internal:6543/catalog?sslmode=require",
				"DB_MAX_OPEN_CONNS": "50",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres://u:p@db.internal:6543/catalog?sslmode=require", cfg.Database.DSN())
				assert.Equal(t, "host=db.internal port=6543 database=catalog", cfg.Database.LogString())
				assert.Equal(t, 50, cfg.Database.MaxOpenConns)
			},
		},
		{
			name: "cors origins are split and trimmed",
			envVars: map[string]string{
				"CORS_ALLOWED_ORIGINS": "https://a.example, https://b.example,",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
			},
		},
		{
			name: "PORT env var takes precedence over SERVER_PORT",
			envVars: map[string]string{
				"PORT":        "9443",
				"SERVER_PORT": "9000",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9443, cfg.Server.Port)
			},
		},
		{
			name: "production with default jwt secret",
			envVars: map[string]string{
				"ENVIRONMENT": "production",
			},
			wantErr: true,
		},
		{
			name: "production with custom jwt secret",
			envVars: map[string]string{
				"ENVIRONMENT": "production",
				"JWT_SECRET":  "a-real-secret",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsProduction())
				assert.Equal(t, "a-real-secret", cfg.Auth.JWTSecret)
			},
		},
		{
			name: "bootstrap admin and refresh ttl",
			envVars: map[string]string{
				"BOOTSTRAP_ADMIN_USERNAME": "root",
				"JWT_REFRESH_TTL":          "12h",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "root", cfg.Auth.BootstrapAdmin)
				assert.Equal(t, 12*time.Hour, cfg.Auth.RefreshTokenTTL)
			},
		},
		{
			name: "unknown cache backend",
			envVars: map[string]string{
				"PERMISSION_CACHE": "memcached",
			},
			wantErr: true,
		},
		{
			name: "unknown storage driver",
			envVars: map[string]string{
				"STORAGE_DRIVER": "sqlite",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := New(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Environment: "development",
		Storage:     StorageConfig{Driver: StorageDriverPostgres},
		Database: DatabaseConfig{
			Host:     "localhost",
			User:     "user",
			Database: "db",
		},
		Auth:          AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Hour, RefreshTokenTTL: time.Hour},
		Cache:         CacheConfig{Backend: CacheBackendMemory},
		RateLimit:     RateLimitConfig{SubmissionsPerMinute: 30},
		Observability: ObservabilityConfig{LogLevel: "info"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid development config",
			mutate: func(*Config) {},
		},
		{
			name:    "missing database host",
			mutate:  func(c *Config) { c.Database.Host = "" },
			wantErr: true,
			errMsg:  "database configuration required",
		},
		{
			name:    "missing database user",
			mutate:  func(c *Config) { c.Database.User = "" },
			wantErr: true,
			errMsg:  "database user is required",
		},
		{
			name: "memory driver needs no database",
			mutate: func(c *Config) {
				c.Storage.Driver = StorageDriverMemory
				c.Database = DatabaseConfig{}
			},
		},
		{
			name:    "redis cache without address",
			mutate:  func(c *Config) { c.Cache.Backend = CacheBackendRedis },
			wantErr: true,
			errMsg:  "REDIS_ADDR",
		},
		{
			name:    "empty jwt secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "" },
			wantErr: true,
			errMsg:  "JWT secret is required",
		},
		{
			name:    "non-positive token ttl",
			mutate:  func(c *Config) { c.Auth.AccessTokenTTL = 0 },
			wantErr: true,
			errMsg:  "TTL",
		},
		{
			name:    "non-positive refresh ttl",
			mutate:  func(c *Config) { c.Auth.RefreshTokenTTL = 0 },
			wantErr: true,
			errMsg:  "JWT_REFRESH_TTL",
		},
		{
			name:    "zero submission rate limit",
			mutate:  func(c *Config) { c.RateLimit.SubmissionsPerMinute = 0 },
			wantErr: true,
			errMsg:  "RATE_LIMIT_SUBMISSIONS_PER_MINUTE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		environment string
		want        bool
	}{
		{"production", true},
		{"prod", true},
		{"development", false},
		{"staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.want, cfg.IsProduction())
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		Database: "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	assert.Equal(t, expected, cfg.DSN())
	assert.NotContains(t, cfg.LogString(), "testpass")
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{Host: "0.0.0.0", Port: 8080}
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue int
		want         int
	}{
		{"valid int", "42", 10, 42},
		{"empty value", "", 10, 10},
		{"invalid int", "not-a-number", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.value)
			assert.Equal(t, tt.want, getEnvAsInt("TEST_INT", tt.defaultValue))
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "45s")
	assert.Equal(t, 45*time.Second, getEnvAsDuration("TEST_DURATION", time.Second))

	t.Setenv("TEST_DURATION", "soon")
	assert.Equal(t, time.Second, getEnvAsDuration("TEST_DURATION", time.Second))
}
