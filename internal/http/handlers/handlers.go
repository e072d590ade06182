// Package handlers provides the HTTP handlers of the admin API.
//
// Handlers are transport-thin: they parse query parameters, call the export
// service and translate results into HTTP responses, including conditional
// (ETag) responses.
package handlers

import (
	"context"

	"github.com/tbourn/tg-message-logger/internal/domain"
	"github.com/tbourn/tg-message-logger/internal/services"
)

// ExportService is the export contract consumed by the handlers.
// Implementations must be safe for concurrent use and honor ctx.
type ExportService interface {
	// Export returns matching messages newest first.
	Export(ctx context.Context, req services.ExportRequest) ([]domain.Message, error)
	// Fingerprint returns the match count (ignoring the limit) and max id.
	Fingerprint(ctx context.Context, req services.ExportRequest) (count, maxID int64, err error)
}

// Pinger checks that the message store is reachable.
type Pinger func(ctx context.Context) error

// Handlers groups the admin API endpoints.
type Handlers struct {
	exportSvc ExportService
	ping      Pinger
}

// New constructs Handlers. A nil ping reports the store as always healthy.
func New(exportSvc ExportService, ping Pinger) *Handlers {
	return &Handlers{exportSvc: exportSvc, ping: ping}
}
