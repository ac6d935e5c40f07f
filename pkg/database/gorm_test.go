package database

import (
	"testing"

	"edubot/internal/config"
	"edubot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	db, err := Open(config.DatabaseConfig{Driver: "sqlite", DSN: "file:migrate_test?mode=memory&cache=shared"})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []interface{}{&model.Transcript{}, &model.SystemInstruction{}, &model.User{}} {
		assert.True(t, db.Migrator().HasTable(table))
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "mongo", DSN: "x"})
	assert.ErrorContains(t, err, "unsupported")
}

func TestOpenRedisDisabledWithoutAddress(t *testing.T) {
	rdb, err := OpenRedis(config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, rdb)
}
