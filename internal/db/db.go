package db

import (
	"errors"
	"fmt"
	"log"
	"log/slog"

	"github.com/curaious/workboard/internal/config"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// UniqueViolation is the postgres SQLSTATE for a unique constraint failure.
const UniqueViolation = "23505"

// DSN builds the postgres connection string shared by the pool and the notification listener.
func DSN(conf *config.Config) string {
	str := fmt.Sprintf("postgresql://%v:%v@%v:%v/%v", conf.DB_USERNAME, conf.DB_PASSWORD, conf.DB_HOST, conf.DB_PORT, conf.DB_NAME)
	if conf.DISABLE_TLS == "true" {
		str = str + "?sslmode=disable"
	}
	return str
}

func NewConn(conf *config.Config) *sqlx.DB {
	slog.Info("Connecting to database")

	// Connect to database
	db, err := sqlx.Open("postgres", DSN(conf))
	if err != nil {
		log.Fatal(err)
	}
	err = db.Ping()
	if err != nil {
		log.Fatalln("Unable to connect to database", err.Error())
	}

	slog.Info("Connected to database")

	return db
}

// IsUniqueViolation reports whether err came from a unique constraint, optionally a specific one.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != UniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
