// Package export asks the service for records this client has not
// imported yet and classifies the answer.
package export

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cooksync/cooksync/internal/domain"
	"github.com/cooksync/cooksync/internal/identity"
	"github.com/cooksync/cooksync/pkg/cooksync"
)

// ExportAPI is the part of the service client the requester needs.
type ExportAPI interface {
	Export(ctx context.Context, token, deviceID string, importedIDs []int64) ([]domain.ExportRecord, error)
}

// Requester issues export requests.
type Requester struct {
	api    ExportAPI
	ids    identity.Provider
	logger *slog.Logger
}

// NewRequester creates a Requester.
func NewRequester(api ExportAPI, ids identity.Provider, logger *slog.Logger) *Requester {
	return &Requester{api: api, ids: ids, logger: logger}
}

// RequestExport sends importedIDs so the server can compute the delta.
// It never returns a Go error; failures are reported as ExportError.
func (r *Requester) RequestExport(ctx context.Context, token string, importedIDs []int64) domain.ExportResult {
	records, err := r.api.Export(ctx, token, r.ids.DeviceID(), importedIDs)
	if err != nil {
		r.logger.Warn("export request failed", "error", err)
		return domain.ExportResult{
			Status:  domain.ExportError,
			Message: Message(err),
			Err:     err,
		}
	}
	if len(records) == 0 {
		return domain.ExportResult{Status: domain.ExportUpToDate}
	}
	r.logger.Info("export delivered", "records", len(records))
	return domain.ExportResult{Status: domain.ExportDelivered, Records: records}
}

// Message turns an export failure into the text shown to the user.
func Message(err error) string {
	var statusErr *cooksync.StatusError
	switch {
	case errors.Is(err, domain.ErrConflict):
		return domain.ErrConflict.Error()
	case errors.Is(err, domain.ErrLocked):
		return domain.ErrLocked.Error()
	case errors.As(err, &statusErr):
		return statusErr.StatusText
	case errors.Is(err, domain.ErrProtocol):
		return domain.ErrProtocol.Error()
	default:
		return domain.ErrTransport.Error()
	}
}
