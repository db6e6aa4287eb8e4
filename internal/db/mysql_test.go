package db

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/optica-notifier/internal/config"
)

func TestNormalizeDSN(t *testing.T) {
	dsn, err := normalizeDSN("u:p@tcp(db:3306)/clinic?clientFoundRows=true&parseTime=false&loc=Local")
	require.NoError(t, err)

	mc, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.False(t, mc.ClientFoundRows)
	assert.True(t, mc.ParseTime)
	assert.Equal(t, time.UTC, mc.Loc)
	assert.Equal(t, "clinic", mc.DBName)
	assert.Equal(t, "db:3306", mc.Addr)
}

func TestNormalizeDSN_Invalid(t *testing.T) {
	_, err := normalizeDSN("not a dsn")
	assert.ErrorContains(t, err, "parse mysql dsn")
}

func TestNewMySQLConnection_EmptyDSN(t *testing.T) {
	_, err := NewMySQLConnection(config.DatabaseConfig{})
	assert.EqualError(t, err, "empty MySQL DSN")
}
