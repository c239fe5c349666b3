//go:build !cgo_sqlite

package main

import (
	"database/sql"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"

	_ "modernc.org/sqlite"
)

// mattnPragmas maps the cgo driver's DSN parameters onto the pragmas they set.
var mattnPragmas = map[string]string{
	"_journal_mode": "journal_mode",
	"_busy_timeout": "busy_timeout",
	"_synchronous":  "synchronous",
	"_cache_size":   "cache_size",
	"_foreign_keys": "foreign_keys",
}

// initDB opens the corpus database with the pure Go driver. Config paths use
// the cgo driver's parameters, so they are rewritten to _pragma form first.
func initDB(dataSource string) (*sql.DB, error) {
	dsn, err := nativeDSN(dataSource)
	if err != nil {
		return nil, err
	}
	return sql.Open("sqlite", dsn)
}

// nativeDSN rewrites "_busy_timeout=5000" style parameters as
// "_pragma=busy_timeout(5000)". Other parameters pass through unchanged.
// busy_timeout is applied first so the remaining pragmas can wait on locks.
func nativeDSN(dataSource string) (string, error) {
	path, rawQuery, found := strings.Cut(dataSource, "?")
	if !found {
		return dataSource, nil
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("invalid database path parameters: %w", err)
	}

	var pragmas []string
	if v, ok := query["_busy_timeout"]; ok {
		pragmas = append(pragmas, fmt.Sprintf("busy_timeout(%s)", v[len(v)-1]))
		query.Del("_busy_timeout")
	}
	for _, param := range slices.Sorted(maps.Keys(mattnPragmas)) {
		if v, ok := query[param]; ok {
			pragmas = append(pragmas, fmt.Sprintf("%s(%s)", mattnPragmas[param], v[len(v)-1]))
			query.Del(param)
		}
	}
	for _, p := range pragmas {
		query.Add("_pragma", p)
	}
	return path + "?" + query.Encode(), nil
}
