package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/assignment-tracker-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "tracker", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=tracker sslmode=disable", dsn)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	assert.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_init.up.sql")
	assert.Contains(t, names, "000001_init.down.sql")
}
