package source

import (
	"context"

	"github.com/hogehogetakumi/edinet-value-screener/internal/model"
)

// Source delivers the raw filing payloads discovered since the last run.
// The disclosure crawler itself is an external collaborator; implementations
// here only transport its output.
type Source interface {
	FetchFilings(ctx context.Context) ([]model.RawFiling, error)
	Name() string
}

// Completer is implemented by sources that need an acknowledgement once a run
// has fully processed the fetched batch (e.g. moving consumed inbox files).
type Completer interface {
	Complete() error
}

// MockSource returns a fixed batch for development and testing.
type MockSource struct {
	Filings []model.RawFiling
	Err     error
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) FetchFilings(_ context.Context) ([]model.RawFiling, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Filings, nil
}
