package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/tartampluch/go-rota/internal/batch"
	"github.com/tartampluch/go-rota/internal/config"
	"github.com/tartampluch/go-rota/internal/engine"
	"github.com/tartampluch/go-rota/internal/identity"
	"github.com/tartampluch/go-rota/internal/schedule"
)

// Source is the part of engine.Client the feed builder reads from.
type Source interface {
	GetDirectory(ctx context.Context) (identity.Directory, error)
	GetScheduleErr(ctx context.Context, identifier string, offset int) (schedule.Normalized, error)
	Now() time.Time
}

var feedNameRe = regexp.MustCompile(`[^a-z0-9]+`)

// FeedName is the URL-safe feed name of an employee, e.g.
// "ana.gomez@example.com" becomes "ana-gomez-example-com.ics".
func FeedName(email string) string {
	base := strings.Trim(feedNameRe.ReplaceAllString(identity.NormalizeEmail(email), "-"), "-")
	if base == "" {
		return ""
	}
	return base + config.FeedExtension
}

// BuildFeeds renders the current and next week of every directory employee
// with an email, at most limit at a time, plus the directory itself as
// config.DirectoryFeedName. An employee whose calendar cannot be built is
// left out, as is one whose feed name is already taken; the directory being
// unavailable fails the whole build.
func BuildFeeds(ctx context.Context, src Source, summary SummaryFunc, limit int) (map[string][]byte, error) {
	dir, err := src.GetDirectory(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrDirectoryFetch, err)
	}
	if !dir.OK {
		return nil, errors.New(config.ErrDirectoryEmpty)
	}

	// Emails that slug to the same name keep the first employee in directory order.
	var records []identity.Record
	taken := make(map[string]bool, len(dir.Records))
	for _, rec := range dir.Records {
		name := FeedName(rec.Email)
		if name == "" {
			continue
		}
		if taken[name] {
			slog.Warn(config.MsgFeedCollision,
				config.LogKeyComponent, config.CompExport,
				config.LogKeyIdentity, rec.Email,
				config.LogKeyFile, name,
			)
			continue
		}
		taken[name] = true
		records = append(records, rec)
	}

	now := src.Now()
	results := batch.Run(ctx, records, limit, func(ctx context.Context, rec identity.Record, _ int) ([]byte, error) {
		var weeks []Week
		for _, offset := range []int{0, -1} {
			n, err := src.GetScheduleErr(ctx, rec.Email, offset)
			if err != nil {
				return nil, err
			}
			weeks = append(weeks, Week{Start: engine.WeekStart(now, offset), Schedule: n})
		}
		name := rec.Name
		if name == "" {
			name = rec.Email
		}
		return Calendar(name, weeks, now, summary)
	})

	feeds := make(map[string][]byte, len(records)+1)
	for i, r := range results {
		if r.Err != nil {
			slog.Warn(config.MsgFeedFailed,
				config.LogKeyComponent, config.CompExport,
				config.LogKeyIdentity, records[i].Email,
				config.LogKeyError, r.Err,
			)
			continue
		}
		feeds[FeedName(records[i].Email)] = r.Value
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrCancelled, err)
	}

	var buf bytes.Buffer
	if err := Directory(&buf, dir.Records); err != nil {
		return nil, err
	}
	feeds[config.DirectoryFeedName] = buf.Bytes()

	slog.Info(config.MsgFeedRefreshed,
		config.LogKeyComponent, config.CompExport,
		config.LogKeyCount, len(feeds),
	)
	return feeds, nil
}
