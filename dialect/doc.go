// Package dialect defines the dialect names and the execution interfaces
// shared by the statement builder and its drivers.
//
// # Dialect Constants
//
//	dialect.ANSI     = "ansi"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//	dialect.Postgres = "postgres"
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// dialect/sql implements Driver over database/sql and runs the statements
// compiled by its Builder.
package dialect
