// Package identity maps employee emails and phones to directory records and
// the uppercase aliases the schedule spreadsheet uses to label rows.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/tartampluch/go-rota/internal/config"
	"github.com/tartampluch/go-rota/internal/schedule"
)

var (
	ErrAliasNotFound = errors.New(config.ErrAliasNotFound)
	ErrAliasEmpty    = errors.New(config.ErrAliasEmpty)
)

// DirectorySource provides the (cached) directory snapshot.
type DirectorySource interface {
	GetDirectory(ctx context.Context) (Directory, error)
}

// ScheduleSource provides the current-week schedule of an employee.
type ScheduleSource interface {
	GetSchedule(ctx context.Context, identifier string, offset int) schedule.Normalized
}

// Query identifies an employee by email or phone.
type Query struct {
	Email string
	Phone string
}

// Resolution is the outcome of a successful alias lookup.
type Resolution struct {
	Alias   string
	FoundBy string
}

// Resolver looks identities up in the directory. Successful alias
// resolutions are kept for the life of the Resolver.
type Resolver struct {
	dir   DirectorySource
	sched ScheduleSource

	mu   sync.RWMutex
	memo map[string]Resolution

	log *slog.Logger
}

// NewResolver creates a Resolver. sched may be nil, in which case contact
// fields are read from the directory only.
func NewResolver(dir DirectorySource, sched ScheduleSource) *Resolver {
	return &Resolver{
		dir:   dir,
		sched: sched,
		memo:  make(map[string]Resolution),
		log:   slog.With(config.LogKeyComponent, config.CompIdentity),
	}
}

// ResolveAlias returns the canonical alias of the employee matching q.
// It fails with ErrAliasNotFound when no record matches and ErrAliasEmpty
// when the matching record has no usable name. Directory failures are
// returned wrapped and are not remembered.
func (r *Resolver) ResolveAlias(ctx context.Context, q Query) (Resolution, error) {
	key := Key(q.Email, q.Phone)

	r.mu.RLock()
	res, ok := r.memo[key]
	r.mu.RUnlock()
	if ok {
		r.log.Debug(config.MsgAliasMemo, config.LogKeyIdentity, key, config.LogKeyAlias, res.Alias)
		return res, nil
	}

	rec, err := r.FindRecord(ctx, q)
	if err != nil {
		return Resolution{}, err
	}

	alias := DeriveAlias(rec.Name)
	if alias == "" {
		return Resolution{}, fmt.Errorf("%w: %s", ErrAliasEmpty, key)
	}

	res = Resolution{Alias: alias, FoundBy: config.FoundByDirectory}
	r.mu.Lock()
	r.memo[key] = res
	r.mu.Unlock()

	r.log.Debug(config.MsgAliasResolved, config.LogKeyIdentity, key, config.LogKeyAlias, alias)
	return res, nil
}

// FindRecord returns the directory record matching q.
func (r *Resolver) FindRecord(ctx context.Context, q Query) (Record, error) {
	if Key(q.Email, q.Phone) == "" {
		return Record{}, ErrAliasNotFound
	}

	d, err := r.dir.GetDirectory(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", config.ErrDirectoryFetch, err)
	}

	rec, ok := d.Find(q.Email, q.Phone)
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrAliasNotFound, Key(q.Email, q.Phone))
	}
	return rec, nil
}

// ResolvePhone returns the phone used for messaging an employee: the contact
// columns of the current schedule row first, then the directory.
func (r *Resolver) ResolvePhone(ctx context.Context, email string) (string, bool) {
	return r.contactField(ctx, email,
		[]string{"rowCallMeBot", "rowPhone", "phone", "contact"},
		func(rec Record) string { return rec.Phone },
	)
}

// ResolveAPIKey returns the per-employee messaging key, looked up the same way
// as ResolvePhone.
func (r *Resolver) ResolveAPIKey(ctx context.Context, email string) (string, bool) {
	return r.contactField(ctx, email,
		[]string{"rowApiKey", "apikey"},
		func(rec Record) string { return rec.APIKey },
	)
}

func (r *Resolver) contactField(ctx context.Context, email string, rowKeys []string, fromRecord func(Record) string) (string, bool) {
	if r.sched != nil {
		n := r.sched.GetSchedule(ctx, email, 0)
		if v := schedule.Field(n.Raw, rowKeys...); v != "" {
			return v, true
		}
	}

	rec, err := r.FindRecord(ctx, Query{Email: email})
	if err != nil {
		return "", false
	}
	if v := strings.TrimSpace(fromRecord(rec)); v != "" {
		return v, true
	}
	return "", false
}

// Candidates lists every alias under which email's schedule row may be
// filed: the row alias reported by the backend, the variants of the
// directory name and its bare last word.
func (r *Resolver) Candidates(ctx context.Context, email string) []string {
	var out []string
	if r.sched != nil {
		n := r.sched.GetSchedule(ctx, email, 0)
		out = append(out, strings.ToUpper(n.RowAlias))
	}

	if rec, err := r.FindRecord(ctx, Query{Email: email}); err == nil && rec.Name != "" {
		out = append(out, BuildAliasVariants(rec.Name)...)
		words := strings.Fields(rec.Name)
		if len(words) > 0 {
			out = append(out, strings.ToUpper(words[len(words)-1]))
		}
	}
	return dedupe(out)
}

// Invalidate forgets the alias remembered for an identity key.
func (r *Resolver) Invalidate(key string) {
	r.mu.Lock()
	delete(r.memo, key)
	r.mu.Unlock()
}

// Reset forgets every remembered alias.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.memo = make(map[string]Resolution)
	r.mu.Unlock()
}
