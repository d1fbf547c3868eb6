package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tartampluch/go-rota/internal/config"
	"golang.org/x/time/rate"
)

// Fetcher defines the contract for retrieving a backend JSON document.
// This interface allows for mocking in tests and decoupling from the network layer.
type Fetcher interface {
	FetchJSON(ctx context.Context, url string) (map[string]any, error)
}

// HTTPFetcher implements Fetcher using the standard net/http library,
// throttled by a token bucket so batch views cannot flood the backend.
type HTTPFetcher struct {
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewHTTPFetcher creates an HTTPFetcher allowing ratePerSec requests per
// second with bursts of the same size. A non-positive rate disables throttling.
func NewHTTPFetcher(ratePerSec int) *HTTPFetcher {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)
	}
	return &HTTPFetcher{
		Client: &http.Client{
			Timeout: config.HTTPTimeout,
		},
		Limiter: limiter,
	}
}

// FetchJSON retrieves and decodes a JSON document. A top-level array is
// returned wrapped as {"rows": [...]} so callers only handle objects.
// The URL is logged without its query string, which can carry keys.
func (f *HTTPFetcher) FetchJSON(ctx context.Context, targetURL string) (map[string]any, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}

	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompFetcher),
		slog.String(config.LogKeyURL, safeURL(u)),
		slog.String(config.LogKeyAction, u.Query().Get(config.ParamAction)),
	)

	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrRateLimitWait, err)
		}
	}

	start := time.Now()
	log.Debug(config.MsgFetchStart)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrRequestBuild, err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	req.Header.Set(config.HeaderAccept, config.MimeJSON)

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		log.Warn(config.MsgFetchBadStatus, slog.Int(config.LogKeyStatus, resp.StatusCode))
		return nil, fmt.Errorf("%s: %d %s", config.ErrUnexpectedStatus, resp.StatusCode, resp.Status)
	}

	var v any
	dec := json.NewDecoder(io.LimitReader(resp.Body, config.MaxJSONResponseSize))
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrDecodeJSON, err)
	}

	log.Debug(config.MsgFetchDone, config.LogKeyDuration, time.Since(start).Milliseconds())

	switch x := v.(type) {
	case map[string]any:
		return x, nil
	case []any:
		return map[string]any{"rows": x}, nil
	default:
		return nil, fmt.Errorf("%s: %w", config.ErrDecodeJSON, errNotObject)
	}
}

var errNotObject = errors.New("payload is neither an object nor an array")

// safeURL strips the query string and credentials for logging.
func safeURL(u *url.URL) string {
	return u.Scheme + "://" + u.Host + u.Path
}
