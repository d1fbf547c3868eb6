// Package engine is the fetch orchestrator: it composes the cache, the
// identity resolver and the schedule normalizer into the operations the CLI
// and the feed server use.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tartampluch/go-rota/internal/cache"
	"github.com/tartampluch/go-rota/internal/config"
	"github.com/tartampluch/go-rota/internal/identity"
	"github.com/tartampluch/go-rota/internal/schedule"
)

var (
	// ErrCancelled marks an operation abandoned because its context ended.
	// It also matches the underlying context error with errors.Is.
	ErrCancelled = errors.New(config.ErrCtxCancelled)

	ErrActorRequired = errors.New(config.ErrActorRequired)
	ErrUnknownAction = errors.New(config.ErrUnknownAction)
)

// Limits are the TTLs and worker counts of a Client.
type Limits struct {
	DirectoryTTL       time.Duration
	ScheduleCurrentTTL time.Duration
	ScheduleOtherTTL   time.Duration
	TeamConcurrency    int
	HistoryConcurrency int
	SendConcurrency    int
}

// LimitsFrom reads the limits of a Settings value, filling zero fields with defaults.
func LimitsFrom(s config.Settings) Limits {
	return Limits{
		DirectoryTTL:       s.DirectoryTTL,
		ScheduleCurrentTTL: s.ScheduleCurrentTTL,
		ScheduleOtherTTL:   s.ScheduleOtherTTL,
		TeamConcurrency:    s.TeamConcurrency,
		HistoryConcurrency: s.HistoryConcurrency,
		SendConcurrency:    s.SendConcurrency,
	}.withDefaults()
}

func (l Limits) withDefaults() Limits {
	if l.DirectoryTTL <= 0 {
		l.DirectoryTTL = config.DirectoryTTL
	}
	if l.ScheduleCurrentTTL <= 0 {
		l.ScheduleCurrentTTL = config.ScheduleCurrentTTL
	}
	if l.ScheduleOtherTTL <= 0 {
		l.ScheduleOtherTTL = config.ScheduleOtherTTL
	}
	l.TeamConcurrency = config.Limit(l.TeamConcurrency, config.TeamConcurrency)
	l.HistoryConcurrency = config.Limit(l.HistoryConcurrency, config.HistoryConcurrency)
	l.SendConcurrency = config.Limit(l.SendConcurrency, config.SendConcurrency)
	return l
}

// Options configures a Client. Fetcher and BaseURL are required.
type Options struct {
	BaseURL string
	// APIKey, when set, is sent with every request.
	APIKey  string
	Fetcher Fetcher
	Cache   *cache.Cache
	Clock   Clock
	Limits  Limits
}

// Client is one session against the backend. It is safe for concurrent use.
type Client struct {
	base     *url.URL
	apiKey   string
	fetcher  Fetcher
	cache    *cache.Cache
	clock    Clock
	limits   Limits
	resolver *identity.Resolver
	log      *slog.Logger
}

// NewClient validates opts and builds a Client with its own identity resolver.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New(config.ErrBaseURLEmpty)
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	if base.Scheme != config.SchemeHTTP && base.Scheme != config.SchemeHTTPS {
		return nil, fmt.Errorf("%s: %s", config.ErrProtocol, base.Scheme)
	}
	if opts.Fetcher == nil {
		return nil, errors.New(config.ErrFetcherMissing)
	}

	c := &Client{
		base:    base,
		apiKey:  opts.APIKey,
		fetcher: opts.Fetcher,
		cache:   opts.Cache,
		clock:   opts.Clock,
		limits:  opts.Limits.withDefaults(),
		log:     slog.With(config.LogKeyComponent, config.CompClient),
	}
	if c.clock == nil {
		c.clock = RealClock{}
	}
	if c.cache == nil {
		c.cache = cache.New(c.clock.Now)
	}
	c.resolver = identity.NewResolver(c, c)
	return c, nil
}

// Resolver exposes the identity resolver bound to this Client.
func (c *Client) Resolver() *identity.Resolver {
	return c.resolver
}

// Now returns the Client's notion of the current instant.
func (c *Client) Now() time.Time {
	return c.clock.Now()
}

// Close drops every cached entry and remembered alias. The Client stays usable.
func (c *Client) Close() {
	c.cache.Purge()
	c.resolver.Reset()
}

// ResolveAlias maps an email or phone to its canonical alias.
func (c *Client) ResolveAlias(ctx context.Context, q identity.Query) (identity.Resolution, error) {
	res, err := c.resolver.ResolveAlias(ctx, q)
	if err != nil && ctx.Err() != nil {
		return res, cancelled(ctx.Err())
	}
	return res, err
}

// GetDirectory returns the employee directory, cached for DirectoryTTL.
// A directory the backend reports as not ok is returned without error.
func (c *Client) GetDirectory(ctx context.Context) (identity.Directory, error) {
	raw, err := c.fetch(ctx, config.ActionDirectory, nil, c.limits.DirectoryTTL)
	if err != nil {
		if ctx.Err() != nil {
			return identity.Directory{}, cancelled(ctx.Err())
		}
		return identity.Directory{}, err
	}
	return identity.DecodeDirectory(raw), nil
}

// GetSchedule is GetScheduleErr without the cancellation report. It never
// fails: absence of data is a not-ok schedule.
func (c *Client) GetSchedule(ctx context.Context, identifier string, offset int) schedule.Normalized {
	n, _ := c.GetScheduleErr(ctx, identifier, offset)
	return n
}

// GetScheduleErr returns the schedule of identifier for the week at offset
// (0 current, negative future, positive past).
//
// The identifier is first tried as an email. When that yields no days it is
// resolved to an alias and the alias actions are tried in order; the first ok
// schedule wins, otherwise the last not-ok one is returned. The only error is
// ErrCancelled.
func (c *Client) GetScheduleErr(ctx context.Context, identifier string, offset int) (schedule.Normalized, error) {
	log := c.log.With(config.LogKeyOpID, uuid.NewString(), config.LogKeyOffset, offset)
	ttl := c.scheduleTTL(offset)

	res := c.scheduleAttempt(ctx, config.ActionSmartSchedule, config.ParamEmail, identifier, offset, ttl)
	if res.OK {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return res, cancelled(err)
	}
	log.Debug(config.MsgScheduleMiss)

	resolved, err := c.resolver.ResolveAlias(ctx, queryFor(identifier))
	if err != nil {
		if ctx.Err() != nil {
			return res, cancelled(ctx.Err())
		}
		log.Debug(config.MsgScheduleFailed, config.LogKeyError, err)
		return res, nil
	}

	attempts := make([]func(context.Context) schedule.Normalized, 0, len(config.ScheduleAliasActions))
	for _, action := range config.ScheduleAliasActions {
		attempts = append(attempts, func(ctx context.Context) schedule.Normalized {
			return c.scheduleAttempt(ctx, action, config.ParamAlias, resolved.Alias, offset, ttl)
		})
	}

	n, idx := FirstSuccess(ctx, attempts, func(n schedule.Normalized) bool { return n.OK }, nil)
	if idx >= 0 {
		log.Debug(config.MsgScheduleAlias,
			config.LogKeyAlias, resolved.Alias,
			config.LogKeyAction, config.ScheduleAliasActions[idx],
		)
		return n, nil
	}
	if err := ctx.Err(); err != nil {
		return n, cancelled(err)
	}
	log.Debug(config.MsgScheduleFailed, config.LogKeyAlias, resolved.Alias)
	return n, nil
}

func (c *Client) scheduleAttempt(ctx context.Context, action, param, value string, offset int, ttl time.Duration) schedule.Normalized {
	params := url.Values{}
	params.Set(param, value)
	params.Set(config.ParamOffset, strconv.Itoa(offset))

	raw, err := c.fetch(ctx, action, params, ttl)
	if err != nil {
		c.log.Debug(config.MsgFetchFailed, config.LogKeyAction, action, config.LogKeyError, err)
		return schedule.NotOK()
	}
	return schedule.Normalize(raw)
}

func (c *Client) scheduleTTL(offset int) time.Duration {
	if offset == 0 {
		return c.limits.ScheduleCurrentTTL
	}
	return c.limits.ScheduleOtherTTL
}

// fetch performs a cached GET of action. A ttl <= 0 bypasses the cache.
func (c *Client) fetch(ctx context.Context, action string, params url.Values, ttl time.Duration) (map[string]any, error) {
	key := cacheKey(action, params)
	v, err := c.cache.Do(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return c.fetcher.FetchJSON(ctx, c.endpoint(action, params))
	})
	if err != nil {
		return nil, err
	}
	m, _ := v.(map[string]any)
	return m, nil
}

// endpoint builds the request URL of action, adding the session API key
// unless params already carry one.
func (c *Client) endpoint(action string, params url.Values) string {
	q := c.base.Query()
	for k, vs := range params {
		q[k] = vs
	}
	q.Set(config.ParamAction, action)
	if c.apiKey != "" && q.Get(config.ParamAPIKey) == "" {
		q.Set(config.ParamAPIKey, c.apiKey)
	}
	u := *c.base
	u.RawQuery = q.Encode()
	return u.String()
}

// cacheKey identifies a request without its secrets, so keys are safe to log.
func cacheKey(action string, params url.Values) string {
	q := url.Values{}
	for k, vs := range params {
		if k != config.ParamAPIKey {
			q[k] = vs
		}
	}
	q.Set(config.ParamAction, action)
	return q.Encode()
}

// queryFor treats identifiers containing "@" as emails and anything else as a phone.
func queryFor(identifier string) identity.Query {
	if strings.Contains(identifier, "@") {
		return identity.Query{Email: identifier}
	}
	return identity.Query{Phone: identifier}
}

func cancelled(err error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}
