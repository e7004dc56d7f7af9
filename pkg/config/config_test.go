package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	require.NotNil(t, cfg)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "assignment_tracker", cfg.Database.Name)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 5*time.Minute, cfg.Cache.SemesterTTL)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 1000, cfg.Import.MaxRows)
	assert.Equal(t, int64(1<<20), cfg.Import.MaxBytes)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	v.Set("SEMESTER_CACHE_TTL", "not-a-duration")
	v.Set("IMPORT_MAX_ROWS", -5)
	v.Set("EXPORTS_SIGNED_URL_TTL", "2h")

	cfg := fromViper(v)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Cache.SemesterTTL)
	assert.Equal(t, 1000, cfg.Import.MaxRows)
	assert.Equal(t, 2*time.Hour, cfg.Exports.SignedURLTTL)
}
