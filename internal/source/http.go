package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/hogehogetakumi/edinet-value-screener/internal/model"
)

// minRequestInterval throttles calls to the crawler service, which sits in
// front of the EDINET API and inherits its 500ms/request rate limit.
const minRequestInterval = 600 * time.Millisecond

// HTTPSource fetches raw filing payloads from the crawler service, one
// disclosure date per request.
type HTTPSource struct {
	BaseURL  string
	APIKey   string
	DaysBack int
	Client   *http.Client

	mu        sync.Mutex
	lastReqAt time.Time
}

func NewHTTPSource(baseURL, apiKey string, daysBack int) *HTTPSource {
	return &HTTPSource{
		BaseURL:  baseURL,
		APIKey:   apiKey,
		DaysBack: daysBack,
		Client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *HTTPSource) Name() string { return "crawler" }

// FetchFilings walks the last DaysBack disclosure dates and concatenates the
// crawler's per-day results. A failed day is logged and skipped so one bad
// date does not lose the whole batch.
func (s *HTTPSource) FetchFilings(ctx context.Context) ([]model.RawFiling, error) {
	var all []model.RawFiling
	now := time.Now()
	for i := 0; i < s.DaysBack; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		date := now.AddDate(0, 0, -i).Format("2006-01-02")
		filings, err := s.fetchDay(ctx, date)
		if err != nil {
			log.Printf("[WARN] fetch filings for %s: %v", date, err)
			continue
		}
		all = append(all, filings...)
	}
	return all, nil
}

func (s *HTTPSource) fetchDay(ctx context.Context, date string) ([]model.RawFiling, error) {
	s.rateLimit()

	endpoint := fmt.Sprintf("%s/api/v1/filings?date=%s", s.BaseURL, date)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch filings: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch filings: status %d, body: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Results []model.RawFiling `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode filings: %w", err)
	}
	return payload.Results, nil
}

func (s *HTTPSource) rateLimit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if delta := time.Since(s.lastReqAt); delta < minRequestInterval {
		time.Sleep(minRequestInterval - delta)
	}
	s.lastReqAt = time.Now()
}
