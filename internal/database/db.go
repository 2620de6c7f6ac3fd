// Package database opens the MySQL pool backing the seat ledger.
package database

import (
	"context"
	"database/sql"
	"net"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Pool sizing for the booking workload: traffic is many short-lived
// transactions (a seat-map read, a booking commit of three statements),
// so a moderate ceiling with a small idle set rides out on-sale bursts
// without hoarding server connections between them.
const (
	maxOpenConns    = 40
	maxIdleConns    = 10
	connMaxLifetime = 15 * time.Minute
)

// Open connects to MySQL and verifies the connection before returning.
// All timestamps cross this boundary as UTC: hold expiries and the
// sweep cutoff are compared against DB-written times, which only works
// when every server instance and the database agree on the zone.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn(user, pass, host, port, name))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// dsn builds the driver connection string.  parseTime turns DATETIME
// columns into time.Time on scan and loc=UTC pins their zone; the
// password segment is omitted entirely when empty so local setups
// without one still connect.
func dsn(user, pass, host, port, name string) string {
	auth := user
	if pass != "" {
		auth += ":" + pass
	}
	return auth + "@tcp(" + net.JoinHostPort(host, port) + ")/" + name +
		"?charset=utf8mb4&parseTime=true&loc=UTC"
}
