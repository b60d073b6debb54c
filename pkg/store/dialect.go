package store

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	Name string
	// Placeholder returns the bind marker for the n-th (1-based) parameter
	Placeholder func(n int) string
	TextType    string
	KeyType     string
	DoubleType  string
	TimeType    string
	// BindTime converts a deadline into the value handed to the driver
	BindTime func(t time.Time) interface{}
}

var (
	// Postgres is the dialect for PostgreSQL through pgx.
	Postgres = Dialect{
		Name:        "postgres",
		Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		TextType:    "TEXT",
		KeyType:     "TEXT",
		DoubleType:  "DOUBLE PRECISION",
		TimeType:    "TIMESTAMP",
		BindTime:    func(t time.Time) interface{} { return t.UTC() },
	}

	// MySQL is the dialect for MySQL and MariaDB.
	MySQL = Dialect{
		Name:        "mysql",
		Placeholder: func(int) string { return "?" },
		TextType:    "TEXT",
		KeyType:     "VARCHAR(191)",
		DoubleType:  "DOUBLE",
		TimeType:    "DATETIME",
		BindTime:    func(t time.Time) interface{} { return t.UTC() },
	}

	// SQLite is the dialect for modernc.org/sqlite. Deadlines are stored as
	// text so every reader sees the same wall-clock value.
	SQLite = Dialect{
		Name:        "sqlite",
		Placeholder: func(int) string { return "?" },
		TextType:    "TEXT",
		KeyType:     "TEXT",
		DoubleType:  "REAL",
		TimeType:    "TIMESTAMP",
		BindTime:    func(t time.Time) interface{} { return t.UTC().Format("2006-01-02 15:04:05") },
	}
)

// DialectByName returns the dialect registered under name.
func DialectByName(name string) (Dialect, bool) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pgx":
		return Postgres, true
	case "mysql", "mariadb":
		return MySQL, true
	case "sqlite", "sqlite3":
		return SQLite, true
	}
	return Dialect{}, false
}

func (d Dialect) placeholders(from, n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = d.Placeholder(from + i)
	}
	return strings.Join(marks, ", ")
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// validIdentifier reports whether name can be spliced into SQL as a table name.
func validIdentifier(name string) bool {
	return identPattern.MatchString(name)
}
