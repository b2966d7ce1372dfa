// Package lint parses compiled statements with the TiDB SQL parser to catch
// malformed output before it reaches a database.
package lint

import (
	"errors"
	"fmt"

	"github.com/pingcap/tidb/parser"
	"github.com/pingcap/tidb/parser/ast"
	"github.com/pingcap/tidb/parser/mysql"
	_ "github.com/pingcap/tidb/parser/test_driver"

	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/dialect/sql"
)

// ErrUnsupported is returned for statements whose syntax the MySQL grammar
// of the parser does not cover, such as ON CONFLICT upserts.
var ErrUnsupported = errors.New("lint: statement not supported by the parser")

// SyntaxError reports a statement the parser rejected.
type SyntaxError struct {
	SQL string
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("lint: syntax error: %v", e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// KindError reports a statement that parsed to another statement type than
// its kind implies.
type KindError struct {
	Kind string
	Got  string
}

func (e *KindError) Error() string {
	return fmt.Sprintf("lint: %s statement parsed as %s", e.Kind, e.Got)
}

// Check parses the literal form of stmt for grammar g. For every grammar but
// MySQL, double quotes delimit identifiers and backslashes are literal.
func Check(stmt *sql.Statement, g sql.Grammar) error {
	if g.Upsert() == sql.UpsertOnConflict && (stmt.Kind == sql.KindUpsert || stmt.Kind == sql.KindUpsertBatch) {
		return ErrUnsupported
	}
	query := stmt.Interpolate(g)
	p := parser.New()
	if g.Name() != dialect.MySQL {
		p.SetSQLMode(mysql.ModeANSIQuotes | mysql.ModeNoBackslashEscapes)
	}
	stmts, _, err := p.Parse(query, "", "")
	if err != nil {
		return &SyntaxError{SQL: query, Err: err}
	}
	if len(stmts) != 1 {
		return &SyntaxError{SQL: query, Err: fmt.Errorf("expected one statement, got %d", len(stmts))}
	}
	if got := nodeKind(stmts[0]); !matches(stmt.Kind, got) {
		return &KindError{Kind: stmt.Kind, Got: got}
	}
	return nil
}

func nodeKind(n ast.StmtNode) string {
	switch n := n.(type) {
	case *ast.SelectStmt, *ast.SetOprStmt:
		return "SELECT"
	case *ast.InsertStmt:
		if n.IsReplace {
			return "REPLACE"
		}
		return "INSERT"
	case *ast.UpdateStmt:
		return "UPDATE"
	case *ast.DeleteStmt:
		return "DELETE"
	case *ast.TruncateTableStmt:
		return "TRUNCATE"
	default:
		return fmt.Sprintf("%T", n)
	}
}

func matches(kind, node string) bool {
	switch kind {
	case sql.KindSelect, sql.KindCount:
		return node == "SELECT"
	case sql.KindInsert, sql.KindInsertBatch, sql.KindUpsert, sql.KindUpsertBatch:
		return node == "INSERT"
	case sql.KindReplace:
		return node == "REPLACE"
	case sql.KindUpdate, sql.KindUpdateBatch:
		return node == "UPDATE"
	case sql.KindDelete, sql.KindEmpty:
		return node == "DELETE"
	case sql.KindTruncate:
		return node == "TRUNCATE" || node == "DELETE"
	default:
		return false
	}
}
