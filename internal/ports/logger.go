package ports

import "github.com/tracklab-io/statefeed/pkg/log"

// Logger is the structured logging port. It is the pkg/log interface;
// the alias keeps internal packages importing only ports.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Field constructors, re-exported for internal callers.
var (
	String   = log.String
	Int      = log.Int
	Int32    = log.Int32
	Int64    = log.Int64
	Uint64   = log.Uint64
	Float64  = log.Float64
	Bool     = log.Bool
	Duration = log.Duration
	Time     = log.Time
	Err      = log.Err
	Any      = log.Any
)
