package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/robfig/cron/v3"
	"github.com/tartampluch/go-rota/internal/config"
)

const (
	tabMinWidth = 0
	tabWidth    = 0
	tabPadding  = 2
	maskVisible = 4
)

// println writes one translated line.
func (a *app) println(key string, data map[string]any) {
	fmt.Fprintln(a.out, a.tr.T(key, data))
}

// table starts an aligned table with translated column headers.
func (a *app) table(headerKeys ...string) *tabwriter.Writer {
	w := tabwriter.NewWriter(a.out, tabMinWidth, tabWidth, tabPadding, ' ', 0)
	headers := make([]string, len(headerKeys))
	for i, k := range headerKeys {
		headers[i] = a.tr.T(k, nil)
	}
	row(w, headers...)
	return w
}

func row(w *tabwriter.Writer, cells ...string) {
	fmt.Fprintln(w, strings.Join(cells, "\t"))
}

func hours(h float64) string {
	return fmt.Sprintf(config.HourDisplayFormat, h)
}

// mask hides all but the first characters of a secret.
func mask(secret string) string {
	r := []rune(secret)
	if len(r) <= maskVisible {
		return strings.Repeat("*", len(r))
	}
	return string(r[:maskVisible]) + strings.Repeat("*", len(r)-maskVisible)
}

// every runs job on the cron expression until ctx ends. A run still in progress
// when the next one is due makes that one skip.
func every(ctx context.Context, expr string, job func()) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(expr, job); err != nil {
		return fmt.Errorf("%s %q: %w", config.ErrCronSpec, expr, err)
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
