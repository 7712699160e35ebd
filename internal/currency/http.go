package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fintrack-dev/fintrack/internal/buildinfo"
)

// HTTPProvider fetches rates from GET {BaseURL}/{BASE}, which answers
// {"rates": {"EUR": 0.92, ...}}. Responses are cached for TTL.
type HTTPProvider struct {
	BaseURL string
	Client  *http.Client
	TTL     time.Duration

	mu    sync.Mutex
	cache map[string]cachedRates
	now   func() time.Time
}

type cachedRates struct {
	rates   map[string]decimal.Decimal
	fetched time.Time
}

type ratesResponse struct {
	Rates map[string]decimal.Decimal `json:"rates"`
}

// NewHTTPProvider returns a provider with the given request timeout.
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
		TTL:     time.Hour,
	}
}

func (p *HTTPProvider) Rates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	base = strings.ToUpper(base)
	now := time.Now
	if p.now != nil {
		now = p.now
	}

	p.mu.Lock()
	if c, ok := p.cache[base]; ok && now().Sub(c.fetched) < p.TTL {
		p.mu.Unlock()
		return c.rates, nil
	}
	p.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/"+base, nil)
	if err != nil {
		return nil, fmt.Errorf("building rates request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent())

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching rates for %s: %w", base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetching rates for %s: status %d: %s", base, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding rates for %s: %w", base, err)
	}
	if len(out.Rates) == 0 {
		return nil, fmt.Errorf("rates for %s: empty response", base)
	}

	p.mu.Lock()
	if p.cache == nil {
		p.cache = make(map[string]cachedRates)
	}
	p.cache[base] = cachedRates{rates: out.Rates, fetched: now()}
	p.mu.Unlock()
	return out.Rates, nil
}
