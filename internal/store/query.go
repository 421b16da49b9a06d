package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// QueryResult mirrors one statement's result within a multi-statement
// SurrealDB query response.
type QueryResult struct {
	Status string
	Result []map[string]interface{}
}

// query executes against whichever backend is active, normalizing both
// drivers' differing result shapes into a common []QueryResult.
func (s *Store) query(ctx context.Context, q string, params map[string]interface{}) ([]QueryResult, error) {
	if s.useEmbedded {
		return s.queryEmbedded(q, params)
	}
	return s.queryRemote(ctx, q, params)
}

func (s *Store) queryEmbedded(q string, params map[string]interface{}) ([]QueryResult, error) {
	if s.embeddedDB == nil {
		return nil, fmt.Errorf("embedded database not connected")
	}
	results, err := s.embeddedDB.Query(q, params)
	if err != nil {
		return nil, err
	}

	maps := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		switch v := r.(type) {
		case map[string]interface{}:
			maps = append(maps, v)
		case []interface{}:
			for _, item := range v {
				if m, ok := item.(map[string]interface{}); ok {
					maps = append(maps, m)
				}
			}
		}
	}
	return []QueryResult{{Status: "OK", Result: maps}}, nil
}

func (s *Store) queryRemote(ctx context.Context, q string, params map[string]interface{}) ([]QueryResult, error) {
	if s.db == nil {
		return nil, fmt.Errorf("remote database not connected")
	}
	result, err := surrealdb.Query[[]map[string]interface{}](ctx, s.db, q, params)
	if err != nil {
		return nil, err
	}
	out := make([]QueryResult, 0, len(*result))
	for _, qr := range *result {
		out = append(out, QueryResult{Status: qr.Status, Result: qr.Result})
	}
	return out, nil
}

// decodeResult marshals the first statement's rows through JSON into T,
// normalizing SurrealDB record-id/datetime wrapper shapes along the way.
func decodeResult[T any](results []QueryResult) ([]T, error) {
	if len(results) == 0 || results[0].Status != "OK" || len(results[0].Result) == 0 {
		return nil, nil
	}
	normalized := normalizeRows(results[0].Result)
	data, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return items, nil
}

// normalizeRows recursively rewrites SurrealDB's record-id and datetime
// wrapper objects ({"tb":"x","id":"y"} / {"Datetime":"..."}) into the plain
// "table:id" string / ISO string forms this package's Go structs expect.
func normalizeRows(data interface{}) interface{} {
	switch v := data.(type) {
	case []map[string]interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = normalizeRows(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = normalizeRows(item)
		}
		return out
	case map[string]interface{}:
		if dt, ok := v["Datetime"]; ok && len(v) == 1 {
			return dt
		}
		if tb, hasTB := v["tb"]; hasTB {
			if id, hasID := v["id"]; hasID && len(v) == 2 {
				return fmt.Sprintf("%v:%v", tb, id)
			}
		}
		if tb, hasTB := v["Table"]; hasTB {
			if id, hasID := v["ID"]; hasID && len(v) == 2 {
				return fmt.Sprintf("%v:%v", tb, id)
			}
		}
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = normalizeRows(val)
		}
		return out
	default:
		return data
	}
}

// isAlreadyExistsError reports whether err looks like a DEFINE-already-done
// error so idempotent schema setup can tolerate concurrent initialization.
func isAlreadyExistsError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "already exists") || strings.Contains(s, "already defined")
}
