package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSNPinsUTCAndParseTime(t *testing.T) {
	got := dsn("app", "s3cret", "db.internal", "3306", "cinema")
	assert.Equal(t, "app:s3cret@tcp(db.internal:3306)/cinema?charset=utf8mb4&parseTime=true&loc=UTC", got)
}

func TestDSNOmitsEmptyPassword(t *testing.T) {
	got := dsn("root", "", "localhost", "3306", "cinema")
	assert.Equal(t, "root@tcp(localhost:3306)/cinema?charset=utf8mb4&parseTime=true&loc=UTC", got)
}
