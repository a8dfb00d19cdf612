package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

// ApplyFile runs every statement of a .sql file in order, stopping at the
// first failure. It returns how many statements succeeded.
func (db *DB) ApplyFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return db.Apply(ctx, string(data))
}

// Apply runs each statement of script sequentially. There is no enclosing
// transaction: statements before a failure stay applied.
func (db *DB) Apply(ctx context.Context, script string) (int, error) {
	statements := SplitStatements(script)
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return i, fmt.Errorf("statement %d of %d failed: %w", i+1, len(statements), err)
		}
	}
	log.Printf("📦 Applied %d SQL statements", len(statements))
	return len(statements), nil
}

// SplitStatements splits a SQL script on semicolons that are outside quotes,
// comments and dollar-quoted bodies. Empty and comment-only statements are dropped.
func SplitStatements(script string) []string {
	var (
		out     []string
		current strings.Builder
		hasCode bool
		dollar  string
		quote   byte
		inLine  bool
		inBlock bool
	)

	flush := func() {
		if hasCode {
			out = append(out, strings.TrimSpace(current.String()))
		}
		current.Reset()
		hasCode = false
	}

	for i := 0; i < len(script); i++ {
		c := script[i]

		switch {
		case inLine:
			if c == '\n' {
				inLine = false
			}
			current.WriteByte(c)
			continue

		case inBlock:
			current.WriteByte(c)
			if c == '*' && i+1 < len(script) && script[i+1] == '/' {
				current.WriteByte('/')
				i++
				inBlock = false
			}
			continue

		case quote != 0:
			current.WriteByte(c)
			if c == quote {
				quote = 0
			}
			continue

		case dollar != "":
			if strings.HasPrefix(script[i:], dollar) {
				current.WriteString(dollar)
				i += len(dollar) - 1
				dollar = ""
				continue
			}
			current.WriteByte(c)
			continue
		}

		switch {
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			inLine = true
			current.WriteByte(c)
		case c == '/' && i+1 < len(script) && script[i+1] == '*':
			inBlock = true
			current.WriteString("/*")
			i++
		case c == '\'' || c == '"' || c == '`':
			quote = c
			hasCode = true
			current.WriteByte(c)
		case c == '$':
			if tag := dollarTag(script[i:]); tag != "" {
				dollar = tag
				hasCode = true
				current.WriteString(tag)
				i += len(tag) - 1
			} else {
				current.WriteByte(c)
			}
		case c == ';':
			flush()
		default:
			if !isSpace(c) {
				hasCode = true
			}
			current.WriteByte(c)
		}
	}
	flush()
	return out
}

// dollarTag returns the opening $tag$ at the start of s, or ""
func dollarTag(s string) string {
	for j := 1; j < len(s); j++ {
		c := s[j]
		if c == '$' {
			return s[:j+1]
		}
		if !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || j > 1 && c >= '0' && c <= '9') {
			return ""
		}
	}
	return ""
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
