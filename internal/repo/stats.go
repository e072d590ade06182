// Package repo implements the data persistence layer for logged messages,
// backed by GORM. This file provides a small aggregate query used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// ExportStats returns the number of rows matching q's filters (ignoring
// Limit) and the greatest matching id, or 0 when nothing matches.
//
// Because the log is append-only and ids only grow, the pair changes exactly
// when the export result set can change, which makes it a cheap version tag.
func ExportStats(ctx context.Context, db *gorm.DB, q ExportQuery) (count int64, maxID int64, err error) {
	scope, err := exportScope(db.WithContext(ctx), q)
	if err != nil {
		return 0, 0, err
	}

	var row struct {
		Count int64
		MaxID int64
	}
	if err := scope.Select("COUNT(*) AS count, COALESCE(MAX(id), 0) AS max_id").Scan(&row).Error; err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return row.Count, row.MaxID, nil
}
