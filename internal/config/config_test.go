package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(env string) *Config {
	return &Config{
		Env:                      env,
		DBSSLMode:                "require",
		JWTSecret:                "secure-secret-at-least-32-chars-long",
		DBPassword:               "secure-password",
		Port:                     "8080",
		ImageMaxUploadSizeMB:     10,
		DBConnMaxLifetimeMinutes: 1,
		RedisURL:                 "redis://localhost:6379",
		StorageDriver:            "s3",
		S3Bucket:                 "upload",
		S3AccessKey:              "AKIAEXAMPLE",
		S3SecretKey:              "secret-example",
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with empty SSL mode", "prod", "", true},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig(tt.env)
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateProductionSecrets(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"default jwt secret", func(c *Config) { c.JWTSecret = defaultJWTSecret }},
		{"short jwt secret", func(c *Config) { c.JWTSecret = "short" }},
		{"default db password", func(c *Config) { c.DBPassword = "password" }},
		{"memory storage", func(c *Config) { c.StorageDriver = "memory" }},
		{"default s3 credentials", func(c *Config) { c.S3AccessKey = "minioadmin" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig("production")
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestConfig_ValidateEnums(t *testing.T) {
	c := validConfig("development")
	c.DBSchemaMode = "magic"
	assert.Error(t, c.Validate())

	c = validConfig("development")
	c.StorageDriver = "ftp"
	assert.Error(t, c.Validate())

	c = validConfig("development")
	c.StorageDriver = "memory"
	c.S3Bucket = ""
	assert.NoError(t, c.Validate())
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("STORAGE_DRIVER")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("STORAGE_DRIVER", " Memory ")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "memory", c.StorageDriver)
	assert.Equal(t, "upload", c.S3Bucket)
	assert.Equal(t, 3600, c.PhotoURLTTLSeconds)
	assert.Equal(t, 400, c.PhotoSizePx)
	assert.Equal(t, "access_token", c.CookieName)
}
