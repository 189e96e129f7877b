// Package constants provides shared constants used throughout the idrstat codebase.
// This includes the on-disk naming convention, catalog object types, file
// permissions and timeouts that should be consistent across the application.
package constants

import "time"

// AppName is the binary name used in messages.
const AppName = "idrstat"

// Filesystem layout. These patterns are the contract with the study tree
// published on disk and must not change.
const (
	// StudyPattern matches top-level study directories.
	StudyPattern = "idr*"

	// ScreenPattern matches screen directories inside a study.
	ScreenPattern = "screen*"

	// PlatesDir is the directory inside a screen that holds one entry per plate.
	PlatesDir = "plates"
)

// Catalog model constants
const (
	// BytesPerSample is the fixed pixel sample width used when estimating bytes.
	BytesPerSample = 8

	// MissingCell is rendered in place of the catalog id for absent entities.
	MissingCell = "MISSING"

	// TotalLabel labels the final accumulation row of a report.
	TotalLabel = "Total"
)

// Search object types probed by the search-coverage audit, in probe order.
const (
	TypeScreen = "Screen"
	TypePlate  = "Plate"
	TypeImage  = "Image"
)

// SearchTypes lists the object types every annotation value is probed against.
var SearchTypes = []string{TypeScreen, TypePlate, TypeImage}

// Search term limits
const (
	// MaxSearchTermLength is the longest term the search oracle accepts.
	MaxSearchTermLength = 255
)

// File and path defaults
const (
	// DefaultNoMatchesFile receives the values no search probe could find.
	DefaultNoMatchesFile = "no_matches.txt"

	// DefaultRoot is the directory scanned for studies.
	DefaultRoot = "."

	// DefaultConfigName is the config file name searched in $HOME and cwd.
	DefaultConfigName = ".idrstat"

	// EnvPrefix prefixes every environment variable read by viper.
	EnvPrefix = "IDRSTAT"
)

// Catalog drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Timeout constants
const (
	// ConnectTimeout bounds opening and pinging the catalog.
	ConnectTimeout = 30 * time.Second

	// ShutdownTimeout bounds cleanup after a failed command.
	ShutdownTimeout = 5 * time.Second
)
