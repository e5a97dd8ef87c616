package data

import (
	"database/sql"
	"embed"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const (
	DataFileName string = "data.db"

	schemaVersion = 1

	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

var (
	//go:embed sql/*
	f embed.FS

	errDBNotInitialized = errors.New("database not initialized")

	insertSchemaVersion = `INSERT INTO schema_version (version)
		SELECT ? WHERE NOT EXISTS (SELECT 1 FROM schema_version WHERE version = ?)`
)

// IsPostgres reports whether dsn points at a PostgreSQL server rather than a
// SQLite file.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Init creates the schema in the database at dsn. It is safe to call on an
// existing database.
func Init(dsn string) error {
	if dsn == "" {
		return errors.New("dsn not specified")
	}

	db, err := GetDB(dsn)
	if err != nil {
		return errors.Wrapf(err, "error opening database: %s", redact(dsn))
	}
	defer db.Close()

	slog.Debug("creating db schema", "driver", driverName(dsn))
	b, err := f.ReadFile("sql/ddl.sql")
	if err != nil {
		return errors.Wrap(err, "failed to read the schema creation file")
	}
	if _, err := db.Exec(string(b)); err != nil {
		return errors.Wrapf(err, "failed to create database schema in: %s", redact(dsn))
	}
	if _, err := db.Exec(bind(db, insertSchemaVersion), schemaVersion, schemaVersion); err != nil {
		return errors.Wrap(err, "failed to record schema version")
	}
	slog.Debug("db schema ready", "version", schemaVersion)

	return nil
}

func GetDB(dsn string) (*sql.DB, error) {
	conn, err := sql.Open(driverName(dsn), dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", redact(dsn))
	}
	return conn, nil
}

func driverName(dsn string) string {
	if IsPostgres(dsn) {
		return driverPostgres
	}
	return driverSQLite
}

// bind rewrites ? placeholders into $n ones when db is PostgreSQL.
func bind(db *sql.DB, q string) string {
	if _, ok := db.Driver().(*pq.Driver); !ok {
		return q
	}
	var sb strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func redact(dsn string) string {
	if !IsPostgres(dsn) {
		return dsn
	}
	if i := strings.Index(dsn, "@"); i > 0 {
		return dsn[:strings.Index(dsn, "://")+3] + "***" + dsn[i:]
	}
	return dsn
}
