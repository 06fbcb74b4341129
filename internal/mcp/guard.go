package mcp

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrEmptyQuery         = errors.New("empty SQL query")
	ErrMultipleStatements = errors.New("multiple statements not allowed")
	ErrNotReadOnly        = errors.New("only SELECT statements allowed")
)

// BlockedError names the keyword that made a generated query unsafe.
type BlockedError struct {
	Keyword string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked SQL keyword: %s", e.Keyword)
}

type rule struct {
	keyword string
	pattern *regexp.Regexp
}

// Guard accepts a single SELECT or WITH statement free of the blocked keywords.
type Guard struct {
	rules []rule
}

// Keywords ending in "(" only match as function calls.
var commonRules = rules(
	"INSERT", "UPDATE", "DELETE", "MERGE", "UPSERT", "DROP", "TRUNCATE", "ALTER", "CREATE",
	"GRANT", "REVOKE", "EXEC", "EXECUTE", "CALL",
	"INTO OUTFILE", "INTO DUMPFILE", "LOAD DATA", "LOAD_FILE(",
)

var (
	SQLiteGuard   = NewGuard("ATTACH", "DETACH", "PRAGMA", "VACUUM", "load_extension(")
	PostgresGuard = NewGuard("COPY", "pg_read_file(", "pg_write_file(", "pg_ls_dir(", "lo_import(", "lo_export(", "dblink(", "pg_sleep(")
	MySQLGuard    = NewGuard("SLEEP(", "BENCHMARK(", "GET_LOCK(")
)

var (
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	limitClause  = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)`)
)

// NewGuard extends the common write blocklist with dialect keywords.
func NewGuard(keywords ...string) Guard {
	return Guard{rules: rules(keywords...)}
}

func rules(keywords ...string) []rule {
	out := make([]rule, len(keywords))
	for i, k := range keywords {
		call := strings.HasSuffix(k, "(")
		name := strings.TrimSuffix(k, "(")
		expr := `(?i)\b` + strings.Join(strings.Fields(regexp.QuoteMeta(name)), `\s+`) + `\b`
		if call {
			expr += `\s*\(`
		}
		out[i] = rule{keyword: name, pattern: regexp.MustCompile(expr)}
	}
	return out
}

// Validate checks a generated query before it reaches the database. Comments are
// ignored; a single trailing semicolon is allowed.
func (g Guard) Validate(query string) error {
	query = strings.TrimSpace(blockComment.ReplaceAllString(lineComment.ReplaceAllString(query, " "), " "))
	if query == "" {
		return ErrEmptyQuery
	}
	if strings.Contains(strings.TrimRight(query, "; \t\r\n"), ";") {
		return ErrMultipleStatements
	}

	upper := strings.ToUpper(query)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return ErrNotReadOnly
	}

	for _, set := range [][]rule{commonRules, g.rules} {
		for _, r := range set {
			if r.pattern.MatchString(query) {
				return &BlockedError{Keyword: r.keyword}
			}
		}
	}
	return nil
}

// LimitRows caps a query at maxRows rows. The last LIMIT is lowered when it is above
// the cap; a query without one gets it appended.
func LimitRows(query string, maxRows int) string {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	query = strings.TrimSuffix(strings.TrimSpace(query), ";")

	locs := limitClause.FindAllStringSubmatchIndex(query, -1)
	if len(locs) == 0 {
		return fmt.Sprintf("%s LIMIT %d", query, maxRows)
	}

	last := locs[len(locs)-1]
	if n, err := strconv.Atoi(query[last[2]:last[3]]); err == nil && n <= maxRows {
		return query
	}
	return query[:last[2]] + strconv.Itoa(maxRows) + query[last[3]:]
}
