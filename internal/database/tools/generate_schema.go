//go:build ignore

// Command generate_schema applies all migrations to an in-memory database
// and regenerates internal/database/schema.go from the resulting schema.
package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"sfh-go/internal/database"
	"sfh-go/internal/database/migrations"
)

func main() {
	db, err := database.OpenConnection(":memory:")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migrations.MigrateUp(db); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}

	schema, err := extractSchema(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to extract schema: %v\n", err)
		os.Exit(1)
	}

	outPath := filepath.Join("internal", "database", "schema.go")
	if err := os.WriteFile(outPath, []byte(renderSource(schema)), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write schema file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Generated %s from migrations\n", outPath)
}

// extractSchema queries sqlite_master for all CREATE statements, excluding
// SQLite internal tables and the migration tracking table.
func extractSchema(db *sql.DB) (string, error) {
	query := `
		SELECT sql || ';'
		FROM sqlite_master
		WHERE type IN ('table', 'index')
		  AND name NOT LIKE 'sqlite_%'
		  AND name != 'schema_migrations'
		  AND tbl_name != 'schema_migrations'
		ORDER BY
		  CASE type
		    WHEN 'table' THEN 1
		    WHEN 'index' THEN 2
		  END,
		  name
	`

	rows, err := db.Query(query)
	if err != nil {
		return "", fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var schema string
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return "", fmt.Errorf("scan failed: %w", err)
		}
		schema += stmt + "\n\n"
	}

	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("rows error: %w", err)
	}

	return schema, nil
}

func renderSource(schema string) string {
	return `package database

// Schema is the full database schema as produced by applying all
// migrations to an empty database.
//
// Generated from internal/database/migrations/files/*.sql by
// internal/database/tools/generate_schema.go. Do not edit manually;
// run 'go generate ./internal/database' after changing migrations.
const Schema = ` + "`\n" + schema + "`\n"
}
