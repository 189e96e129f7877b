package sqlcatalog

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/idr/idrstat/pkg/catalog"
	"github.com/idr/idrstat/pkg/constants"
	"github.com/idr/idrstat/pkg/errors"
)

// Dialect describes how a database/sql driver spells positional parameters.
type Dialect struct {
	Name   string
	Driver string

	placeholder func(n int) string
}

var (
	// Postgres talks to a live catalog database through pgx.
	Postgres = Dialect{
		Name:        constants.DriverPostgres,
		Driver:      "pgx",
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	}

	// SQLite reads catalog exports and test fixtures.
	SQLite = Dialect{
		Name:        constants.DriverSQLite,
		Driver:      "sqlite",
		placeholder: func(int) string { return "?" },
	}
)

// ParseDialect resolves a configured driver name.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pgx", "":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, errors.NewValidationError("catalog.driver", name, "must be postgres or sqlite")
	}
}

// Bind rewrites :name parameters into the dialect's positional placeholders
// and returns the matching argument list. Quoted literals and Postgres ::
// casts are left alone.
func (d Dialect) Bind(query string, params catalog.Params) (string, []any, error) {
	var (
		b       strings.Builder
		args    []any
		inQuote bool
	)
	runes := []rune(query)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case inQuote || r != ':':
			b.WriteRune(r)
		case i+1 < len(runes) && runes[i+1] == ':':
			b.WriteString("::")
			i++
		default:
			j := i + 1
			for j < len(runes) && (runes[j] == '_' || unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j])) {
				j++
			}
			if j == i+1 {
				b.WriteRune(r)
				continue
			}
			name := string(runes[i+1 : j])
			value, ok := params[name]
			if !ok {
				return "", nil, errors.NewValidationError(name, nil, "query parameter not set")
			}
			args = append(args, value)
			b.WriteString(d.placeholder(len(args)))
			i = j - 1
		}
	}
	return b.String(), args, nil
}
