package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"cybermaze-gateway/internal/infra/archive"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ExportLoader reads the archived competition tables from Postgres,
// where each exported {results:[...]} document is kept as one jsonb
// row in export_documents.
type ExportLoader struct {
	pool *pgxpool.Pool
}

func NewExportLoader(pool *pgxpool.Pool) *ExportLoader {
	return &ExportLoader{pool: pool}
}

func (l *ExportLoader) LoadExport(ctx context.Context) (archive.Export, error) {
	var export archive.Export
	if err := loadTable(ctx, l.pool, "challenges", &export.Challenges); err != nil {
		return archive.Export{}, err
	}
	if err := loadTable(ctx, l.pool, "users", &export.Users); err != nil {
		return archive.Export{}, err
	}
	if err := loadTable(ctx, l.pool, "teams", &export.Teams); err != nil {
		return archive.Export{}, err
	}
	if err := loadTable(ctx, l.pool, "solves", &export.Solves); err != nil {
		return archive.Export{}, err
	}
	if err := loadTable(ctx, l.pool, "flags", &export.Flags); err != nil {
		return archive.Export{}, err
	}
	if err := loadTable(ctx, l.pool, "files", &export.Files); err != nil {
		return archive.Export{}, err
	}
	if err := loadTable(ctx, l.pool, "config", &export.Config); err != nil {
		return archive.Export{}, err
	}
	return export, nil
}

func loadTable[T any](ctx context.Context, pool *pgxpool.Pool, name string, out *[]T) error {
	var raw []byte
	err := pool.QueryRow(ctx, `SELECT data FROM export_documents WHERE name=$1`, name).Scan(&raw)
	if err != nil {
		return fmt.Errorf("load export table %s: %w", name, err)
	}
	var doc struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("unmarshal export table %s: %w", name, err)
	}
	*out = doc.Results
	return nil
}
