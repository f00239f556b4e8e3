package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"ingest-api/pkg/postgres"
)

// ElementRepository bootstraps the destination table the ingestion service
// writes partitioned elements into
type ElementRepository struct {
	db *postgres.DB
}

func NewElementRepository(db *postgres.DB) *ElementRepository {
	return &ElementRepository{db: db}
}

// ElementsSchemaSQL renders the DDL for a pgvector-backed elements table
func ElementsSchemaSQL(table string, dimensions int) string {
	if dimensions <= 0 {
		dimensions = 3072
	}
	ident := pgx.Identifier{table}.Sanitize()
	index := func(column string) string {
		name := pgx.Identifier{"idx_" + table + "_" + column}.Sanitize()
		return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s);", name, ident, column)
	}

	var b strings.Builder
	b.WriteString("CREATE EXTENSION IF NOT EXISTS vector;\n")
	fmt.Fprintf(&b, `CREATE TABLE IF NOT EXISTS %s (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	record_id VARCHAR(255),
	element_id VARCHAR(255),
	text TEXT,
	embeddings VECTOR(%d),
	parent_id VARCHAR(255),
	page_number INTEGER,
	is_continuation BOOLEAN DEFAULT FALSE,
	orig_elements TEXT,
	partitioner_type VARCHAR(100),
	image_description TEXT,
	table_description TEXT,
	table_html TEXT,
	created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
`, ident, dimensions)
	for _, column := range []string{"record_id", "element_id", "page_number", "partitioner_type"} {
		b.WriteString(index(column))
		b.WriteString("\n")
	}
	return b.String()
}

// CreateSchema creates table and its indexes if they are missing
func (r *ElementRepository) CreateSchema(ctx context.Context, table string, dimensions int) error {
	if _, err := r.db.Exec(ctx, ElementsSchemaSQL(table, dimensions)); err != nil {
		return fmt.Errorf("failed to create %s schema: %w", table, err)
	}
	return nil
}
