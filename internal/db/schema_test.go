package db

import (
	"os"
	"regexp"
	"strings"
	"testing"
)

// The mock-based query tests match regexps only, so they cannot notice a
// column referenced in SQL that the schema never creates. This test pins the
// columns the services actually name against the initial migration.
var schemaColumns = map[string][]string{
	"users":             {"id", "email", "username", "password_hash", "full_name", "is_admin", "tg_chat_id", "created_at", "updated_at"},
	"refresh_tokens":    {"id", "user_id", "token", "expires_at", "revoked_at"},
	"routes":            {"id", "name", "author_id", "date_in", "date_out", "comment", "baggage", "rate", "length_days", "month", "year", "created_at"},
	"dots":              {"id", "name", "information", "date", "note"},
	"notes":             {"id", "done", "text", "created_at"},
	"route_dots":        {"route_id", "dot_id"},
	"route_notes":       {"route_id", "note_id"},
	"tags":              {"id", "name"},
	"route_tags":        {"route_id", "tag_id"},
	"public_routes":     {"id", "name", "author_id", "comment", "rate", "length_days", "month", "year", "created_at"},
	"public_dots":       {"id", "name", "information"},
	"public_route_dots": {"route_id", "dot_id"},
	"public_route_tags": {"route_id", "tag_id"},
	"complaints":        {"id", "author_id", "text", "answer", "created_at"},
}

func TestMigrationDefinesReferencedColumns(t *testing.T) {
	raw, err := os.ReadFile("../../migrations/001_init.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}

	for table, columns := range schemaColumns {
		re := regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS ` + table + ` \((.*?)\);`)
		match := re.FindSubmatch(raw)
		if match == nil {
			t.Fatalf("migration does not create table %s", table)
		}
		body := string(match[1])
		for _, column := range columns {
			found := false
			for _, line := range strings.Split(body, "\n") {
				if strings.HasPrefix(strings.TrimSpace(line), column+" ") {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("table %s is missing column %s", table, column)
			}
		}
	}
}
