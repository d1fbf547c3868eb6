package engine

import (
	"context"
	"net/url"
	"strconv"

	"github.com/tartampluch/go-rota/internal/config"
	"github.com/tartampluch/go-rota/internal/schedule"
)

// Notification is one backend notice for an employee.
type Notification struct {
	ID    int64
	Title string
	Body  string
}

// Notifications is a page of notices and the cursor to poll from next.
type Notifications struct {
	Items  []Notification
	Cursor int64
}

// PollNotifications returns the notices for email newer than since. The
// returned cursor is the highest id seen, or since when nothing is new.
// A response that is not ok yields no items and an unchanged cursor.
func (c *Client) PollNotifications(ctx context.Context, email string, since int64) (Notifications, error) {
	params := url.Values{}
	params.Set(config.ParamEmail, email)
	params.Set(config.ParamSince, strconv.FormatInt(since, 10))

	out := Notifications{Cursor: since}
	raw, err := c.fetch(ctx, config.ActionGetNotifications, params, 0)
	if err != nil {
		if ctx.Err() != nil {
			return out, cancelled(ctx.Err())
		}
		return out, err
	}
	if ok, _ := raw["ok"].(bool); !ok {
		return out, nil
	}

	items, _ := raw["items"].([]any)
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		n := Notification{
			Title: schedule.Field(m, "title"),
			Body:  schedule.Field(m, "body"),
		}
		if n.Title == "" {
			n.Title = config.DefaultNotificationTitle
		}
		if id, err := strconv.ParseInt(schedule.Field(m, "id"), 10, 64); err == nil {
			n.ID = id
			out.Cursor = max(out.Cursor, id)
		}
		out.Items = append(out.Items, n)
	}

	if len(out.Items) > 0 {
		c.log.Debug(config.MsgNotifications, config.LogKeyCount, len(out.Items), config.LogKeyCursor, out.Cursor)
	}
	return out, nil
}
