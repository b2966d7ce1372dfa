// Package sql provides a stateful, fluent SQL statement builder and a
// database/sql based driver that executes its statements.
//
// # Builder
//
// A Builder accumulates clause fragments and compiles them into a Statement
// on a terminal call:
//
//	b := sql.NewBuilder(sql.ANSI, "user")
//	stmt, err := b.Select("name").Where("id", 3).Get()
//	// stmt.SQL:   SELECT "name" FROM "user" WHERE "id" = :id:
//	// stmt.Binds: id=3
//
// Terminal calls (Get, Insert, InsertBatch, Update, UpdateBatch, Delete,
// Replace, Upsert, UpsertBatch, Truncate, EmptyTable) reset the builder.
// The GetCompiledX methods reset only when asked to.
//
// # Conditions
//
// Keys may carry a trailing operator and values select the rendering:
//
//	b.Where("age >=", 18).             // "age" >= :age:
//		Where("deleted_at", nil).       // "deleted_at" IS NULL
//		Where("score", sql.Expr("10")). // "score" = 10
//		OrGroupStart().
//			Like("name", "jo", sql.WithSide(sql.SideAfter)).
//			WhereIn("role", "admin", "staff").
//		GroupEnd()
//
// WhereInQuery, Union and FromSubquery take a SubqueryFunc that receives a
// fresh builder and compiles inline, sharing the bindings of the outer
// statement.
//
// # Bindings
//
// Named placeholders (:name:) are assigned when a statement compiles. A key
// used twice yields name and name0, name1, ... so every placeholder is
// unique. Statement.Positional converts them to the "?" or "$n" form of a
// dialect; in test mode the builder inlines escaped literals instead.
//
// # Query Cache
//
// StartCache and StopCache delimit clauses that survive the reset of
// terminal calls:
//
//	b.StartCache().Select("id").Where("active", true).StopCache()
//	admins, _ := b.Where("role", "admin").Get()
//	staff, _ := b.Where("role", "staff").Get()
//
// # Dialects
//
// ANSI (the default), MySQL, Postgres and SQLite grammars control identifier
// quoting, literal escaping, placeholders, LIMIT, random ordering, TRUNCATE
// and the UPSERT form (ON DUPLICATE KEY or ON CONFLICT).
//
// # Execution
//
//	drv, err := sql.Open(dialect.Postgres, dsn)
//	res, err := drv.ExecStatement(ctx, stmt)
//
// StatsDriver and DebugDriver wrap a Driver with statistics and logging.
package sql
