package sql

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/quarry"
)

// StatementCache stores compiled statements in a quarry.Cache, encoded with
// msgpack.
type StatementCache struct {
	cache quarry.Cache
	ttl   time.Duration
}

// NewStatementCache returns a StatementCache over c. A zero ttl never expires.
func NewStatementCache(c quarry.Cache, ttl time.Duration) *StatementCache {
	return &StatementCache{cache: c, ttl: ttl}
}

type cachedStatement struct {
	Kind    string          `msgpack:"k"`
	SQL     string          `msgpack:"s"`
	Literal bool            `msgpack:"l"`
	Dialect string          `msgpack:"d"`
	Binds   []cachedBinding `msgpack:"b"`
}

type cachedBinding struct {
	Name   string `msgpack:"n"`
	Value  any    `msgpack:"v"`
	Escape bool   `msgpack:"e"`
}

// EncodeStatement encodes stmt with msgpack.
func EncodeStatement(stmt *Statement) ([]byte, error) {
	cs := cachedStatement{Kind: stmt.Kind, SQL: stmt.SQL, Literal: stmt.Literal, Dialect: stmt.Dialect}
	for _, bd := range stmt.Binds.All() {
		cs.Binds = append(cs.Binds, cachedBinding{Name: bd.Name, Value: bd.Value, Escape: bd.Escape})
	}
	return msgpack.Marshal(&cs)
}

// DecodeStatement decodes a statement encoded by EncodeStatement. Integers
// decode as int64 and floats as float64.
func DecodeStatement(data []byte) (*Statement, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	var cs cachedStatement
	if err := dec.Decode(&cs); err != nil {
		return nil, fmt.Errorf("dialect/sql: decode statement: %w", err)
	}
	binds := NewBindings()
	for _, bd := range cs.Binds {
		binds.restore(Binding{Name: bd.Name, Value: bd.Value, Escape: bd.Escape})
	}
	return &Statement{Kind: cs.Kind, SQL: cs.SQL, Binds: binds, Literal: cs.Literal, Dialect: cs.Dialect}, nil
}

// Get returns the cached statement, or nil on a miss.
func (sc *StatementCache) Get(ctx context.Context, key quarry.CacheKey) (*Statement, error) {
	data, err := sc.cache.Get(ctx, key.String())
	if err != nil || data == nil {
		return nil, err
	}
	return DecodeStatement(data)
}

// Put stores stmt under key.
func (sc *StatementCache) Put(ctx context.Context, key quarry.CacheKey, stmt *Statement) error {
	data, err := EncodeStatement(stmt)
	if err != nil {
		return fmt.Errorf("dialect/sql: encode statement: %w", err)
	}
	return sc.cache.Set(ctx, key.String(), data, sc.ttl)
}

// GetOrCompile returns the cached statement or compiles, stores and returns
// a new one.
func (sc *StatementCache) GetOrCompile(ctx context.Context, key quarry.CacheKey, compile func() (*Statement, error)) (*Statement, error) {
	if stmt, err := sc.Get(ctx, key); err != nil || stmt != nil {
		return stmt, err
	}
	stmt, err := compile()
	if err != nil {
		return nil, err
	}
	if err := sc.Put(ctx, key, stmt); err != nil {
		return nil, err
	}
	return stmt, nil
}

// InvalidateTable removes all statements cached for the table of key.
func (sc *StatementCache) InvalidateTable(ctx context.Context, key quarry.CacheKey) error {
	return sc.cache.DeletePrefix(ctx, key.TablePrefix())
}
