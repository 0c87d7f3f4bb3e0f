package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/cooksync/cooksync/internal/domain"
	"github.com/cooksync/cooksync/internal/identity"
	"github.com/cooksync/cooksync/pkg/cooksync"
)

type stubAPI struct {
	records []domain.ExportRecord
	err     error

	gotToken, gotDevice string
	gotIDs              []int64
}

func (s *stubAPI) Export(ctx context.Context, token, deviceID string, ids []int64) ([]domain.ExportRecord, error) {
	s.gotToken, s.gotDevice, s.gotIDs = token, deviceID, ids
	return s.records, s.err
}

func newRequester(api ExportAPI) *Requester {
	return NewRequester(api, identity.Static("dev"), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRequestExport_Delivered(t *testing.T) {
	api := &stubAPI{records: []domain.ExportRecord{{ID: 7, Title: "Pie"}}}

	res := newRequester(api).RequestExport(context.Background(), "tok", []int64{1, 2})
	if res.Status != domain.ExportDelivered || len(res.Records) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if api.gotToken != "tok" || api.gotDevice != "dev" || !reflect.DeepEqual(api.gotIDs, []int64{1, 2}) {
		t.Errorf("request = %q %q %v", api.gotToken, api.gotDevice, api.gotIDs)
	}
}

func TestRequestExport_UpToDate(t *testing.T) {
	res := newRequester(&stubAPI{}).RequestExport(context.Background(), "tok", nil)
	if res.Status != domain.ExportUpToDate {
		t.Fatalf("status = %s", res.Status)
	}
}

func TestRequestExport_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"transport", fmt.Errorf("%w: dial", domain.ErrTransport), "cannot connect to server"},
		{"conflict", &cooksync.StatusError{StatusCode: 409, StatusText: "Conflict"}, "sync in progress initiated by a different client"},
		{"locked", &cooksync.StatusError{StatusCode: 417, StatusText: "Expectation Failed"}, "export is locked, wait for an hour before retrying"},
		{"unauthorized", &cooksync.StatusError{StatusCode: 401, StatusText: "Unauthorized"}, "Unauthorized"},
		{"server", &cooksync.StatusError{StatusCode: 502, StatusText: "Bad Gateway"}, "Bad Gateway"},
		{"protocol", fmt.Errorf("%w: not a list", domain.ErrProtocol), "unexpected response from server"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newRequester(&stubAPI{err: tt.err}).RequestExport(context.Background(), "tok", nil)
			if res.Status != domain.ExportError {
				t.Fatalf("status = %s", res.Status)
			}
			if res.Message != tt.want {
				t.Errorf("message = %q, want %q", res.Message, tt.want)
			}
			if !errors.Is(res.Err, tt.err) {
				t.Errorf("Err = %v, want %v", res.Err, tt.err)
			}
		})
	}
}

func TestRequestExport_AgainstServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	client := cooksync.NewClient(cooksync.Config{BaseURL: server.URL})
	res := newRequester(client).RequestExport(context.Background(), "tok", nil)
	if res.Message != "sync in progress initiated by a different client" {
		t.Errorf("message = %q", res.Message)
	}
	if !errors.Is(res.Err, domain.ErrConflict) {
		t.Errorf("Err = %v", res.Err)
	}
}
