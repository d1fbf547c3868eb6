package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tartampluch/go-rota/internal/config"
	"github.com/tartampluch/go-rota/internal/engine"
	"github.com/tartampluch/go-rota/internal/export"
	"github.com/tartampluch/go-rota/internal/identity"
	"github.com/tartampluch/go-rota/internal/live"
	"github.com/tartampluch/go-rota/internal/server"
	"github.com/tartampluch/go-rota/internal/shift"
	"golang.org/x/sync/errgroup"
)

func newDirectoryCmd(a *app) *cobra.Command {
	var asVCard bool
	cmd := &cobra.Command{
		Use:   "directory",
		Short: "List the employee directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.client.GetDirectory(cmd.Context())
			if err != nil {
				return err
			}
			if !d.OK {
				return errors.New(config.ErrDirectoryEmpty)
			}
			if asVCard {
				return export.Directory(a.out, d.Records)
			}

			w := a.table(config.TKeyColName, config.TKeyColEmail, config.TKeyColPhone, config.TKeyColRole)
			for _, r := range d.Records {
				row(w, r.Name, r.Email, r.Phone, r.Role)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asVCard, config.FlagVCard, false, config.FlagDescVCard)
	return cmd
}

func newAliasCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "alias <email|phone>",
		Short: "Resolve the alias an employee is filed under",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := identity.Query{Phone: args[0]}
			if strings.Contains(args[0], "@") {
				q = identity.Query{Email: args[0]}
			}
			res, err := a.client.ResolveAlias(cmd.Context(), q)
			if err != nil {
				return err
			}
			a.println(config.TKeyAliasFound, map[string]any{
				"Identity": args[0],
				"Alias":    res.Alias,
				"Source":   res.FoundBy,
			})
			return nil
		},
	}
}

func newScheduleCmd(a *app) *cobra.Command {
	var offset int
	cmd := &cobra.Command{
		Use:   "schedule <email|phone>",
		Short: "Show one week of an employee's shifts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.client.GetScheduleErr(cmd.Context(), args[0], offset)
			if err != nil {
				return err
			}
			if !n.OK {
				a.println(config.TKeyNoSchedule, map[string]any{"Identity": args[0]})
				return nil
			}

			label := n.WeekLabel
			if label == "" {
				label = engine.WeekLabel(a.client.Now(), offset)
			}
			fmt.Fprintln(a.out, label)

			w := a.table(config.TKeyColDay, config.TKeyColShift, config.TKeyColHours)
			week := n.Canonical()
			for _, d := range week.Days {
				row(w, d.Name, d.Shift, hours(d.Hours))
			}
			for _, d := range week.Extra {
				row(w, d.Name, d.Shift, hours(d.Hours))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			a.println(config.TKeyTotalHours, map[string]any{"Hours": hours(n.Total)})
			return nil
		},
	}
	cmd.Flags().IntVar(&offset, config.FlagOffset, 0, config.FlagDescOffset)
	return cmd
}

func newLiveCmd(a *app) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "live <email|phone>",
		Short: "Show the hours worked today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			show := func(ctx context.Context) {
				now := a.client.Now()
				n := a.client.GetSchedule(ctx, args[0], 0)
				if !n.OK {
					a.println(config.TKeyNoSchedule, map[string]any{"Identity": args[0]})
					return
				}
				r := live.Compute(n, now, shift.DayKey(now))
				switch r.State {
				case live.StateInProgress:
					a.println(config.TKeyLiveWorking, map[string]any{
						"Hours": hours(r.Hours),
						"Total": hours(r.Projected(n.Total)),
					})
				case live.StateCompleted:
					a.println(config.TKeyLiveCompleted, map[string]any{"Hours": hours(r.Hours)})
				default:
					a.println(config.TKeyLiveNone, nil)
				}
			}

			ctx := cmd.Context()
			show(ctx)
			if !watch {
				return nil
			}
			return every(ctx, a.settings.LiveRefresh, func() { show(ctx) })
		},
	}
	cmd.Flags().BoolVar(&watch, config.FlagWatch, false, config.FlagDescWatch)
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var weeks int
	cmd := &cobra.Command{
		Use:   "history <email|phone>",
		Short: "Show weekly totals of the current and previous weeks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.client.History(cmd.Context(), args[0], weeks)
			for _, w := range list {
				total := config.DefaultEmptyShift
				if w.Schedule.OK {
					total = hours(w.Schedule.Total)
				}
				a.println(config.TKeyHistoryRow, map[string]any{"Label": w.Label, "Total": total})
			}
			return err
		},
	}
	cmd.Flags().IntVar(&weeks, config.FlagWeeks, config.DefaultHistoryWeeks, config.FlagDescWeeks)
	return cmd
}

func newTeamCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "team",
		Short: "Show who works today, by section",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.client.GetDirectory(cmd.Context())
			if err != nil {
				return err
			}
			if !d.OK {
				return errors.New(config.ErrDirectoryEmpty)
			}

			groups := identity.SplitGroups(d.Records, a.settings.Groups)
			sections, err := a.client.TeamOverview(cmd.Context(), groups)
			for _, s := range sections {
				a.println(config.TKeyTeamSummary, map[string]any{
					"Section":   a.sectionTitle(s.Name),
					"Scheduled": s.Stats.Scheduled,
					"On":        s.Stats.On,
					"Done":      s.Stats.Done,
				})
				w := a.table(config.TKeyColName, config.TKeyColShift, config.TKeyColStatus, config.TKeyColLive)
				for _, m := range s.Members {
					todayShift, liveHours := config.DefaultEmptyShift, config.DefaultEmptyShift
					if m.Today.Shift != "" {
						todayShift = m.Today.Shift
					}
					if m.Live.State != live.StateNone {
						liveHours = hours(m.Live.Hours)
					}
					row(w, m.Record.Name, todayShift, a.tr.Status(m.Status), liveHours)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Fprintln(a.out)
			}
			return err
		},
	}
}

func newSendCmd(a *app) *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "send <today|tomorrow> [email...]",
		Short: "Message employees their shift; everyone in the directory when no email is given",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := sendAction(args[0])
			if err != nil {
				return err
			}

			emails := args[1:]
			if len(emails) == 0 {
				d, err := a.client.GetDirectory(cmd.Context())
				if err != nil {
					return err
				}
				for _, r := range d.Records {
					if r.Email != "" {
						emails = append(emails, r.Email)
					}
				}
			}

			outcomes, err := a.client.SendForDay(cmd.Context(), action, a.actor(actor), emails)
			sent, skipped, failed := 0, 0, 0
			for _, o := range outcomes {
				switch {
				case o.Skipped:
					skipped++
				case o.Err != nil:
					failed++
					a.println(config.TKeySendFailed, map[string]any{"Identity": o.Email, "Error": o.Err, "Detail": config.DefaultEmptyShift})
				case o.Result.OK:
					sent++
					a.println(config.TKeySendOK, map[string]any{"Identity": o.Email, "Attempts": o.Result.Attempts})
				default:
					failed++
					a.println(config.TKeySendFailed, map[string]any{"Identity": o.Email, "Error": o.Result.Error, "Detail": o.Result.LastError})
				}
			}
			a.println(config.TKeyBatchSummary, map[string]any{"Sent": sent, "Skipped": skipped, "Failed": failed})
			return err
		},
	}
	cmd.Flags().StringVar(&actor, config.FlagActor, "", config.FlagDescActor)
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "update <email> <day> <shift> [<day> <shift>...]",
		Short: "Rewrite days of an employee's current week",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes, err := dayPairs(args[1:])
			if err != nil {
				return err
			}

			_, results, err := a.client.UpdateMany(cmd.Context(), args[0], a.actor(actor), changes)
			for i, r := range results {
				data := map[string]any{
					"Day":    shift.DayFix(changes[i].Day),
					"Shift":  changes[i].Shift,
					"Error":  r.Error,
					"Detail": r.LastError,
				}
				if r.OK {
					a.println(config.TKeyUpdateOK, data)
				} else {
					a.println(config.TKeyUpdateFailed, data)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&actor, config.FlagActor, "", config.FlagDescActor)
	return cmd
}

func newNotificationsCmd(a *app) *cobra.Command {
	var (
		since int64
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "notifications <email>",
		Short: "Print backend notifications for an employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cursor := since
			poll := func(ctx context.Context) error {
				res, err := a.client.PollNotifications(ctx, args[0], cursor)
				if err != nil {
					return err
				}
				for _, n := range res.Items {
					a.println(config.TKeyNotification, map[string]any{"ID": n.ID, "Title": n.Title, "Body": n.Body})
				}
				cursor = res.Cursor
				return nil
			}

			ctx := cmd.Context()
			if err := poll(ctx); err != nil && !watch {
				return err
			}
			if !watch {
				return nil
			}
			return every(ctx, a.settings.NotifyRefresh, func() {
				if err := poll(ctx); err != nil {
					slog.Warn(config.MsgPollFailed,
						config.LogKeyComponent, config.CompWorker,
						config.LogKeyError, err,
					)
				}
			})
		},
	}
	cmd.Flags().Int64Var(&since, config.FlagSince, 0, config.FlagDescSince)
	cmd.Flags().BoolVar(&watch, config.FlagWatch, false, config.FlagDescWatch)
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve every employee's shifts as iCalendar feeds and the directory as vCards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := server.NewFeedServer(a.settings.Port)
			limit := config.Limit(a.settings.TeamConcurrency, config.TeamConcurrency)

			refresh := func(ctx context.Context) {
				feeds, err := export.BuildFeeds(ctx, a.client, a.tr.EventSummary, limit)
				if err != nil {
					slog.Warn(config.MsgFeedFailed,
						config.LogKeyComponent, config.CompWorker,
						config.LogKeyError, err,
					)
					return
				}
				srv.Replace(feeds)
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return srv.Start(ctx)
			})
			g.Go(func() error {
				refresh(ctx)
				return every(ctx, a.settings.FeedRefresh, func() { refresh(ctx) })
			})
			return g.Wait()
		},
	}
}

func newKeyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the backend API key stored in the system keyring",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <api-key>",
			Short: "Store the API key of the configured backend",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := config.SaveAPIKey(a.settings.BaseURL, args[0]); err != nil {
					return err
				}
				a.println(config.TKeyKeySaved, nil)
				return nil
			},
		},
		&cobra.Command{
			Use:   "get",
			Short: "Show the stored API key, masked",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				key, ok := config.LookupAPIKey(a.settings.BaseURL)
				if !ok {
					a.println(config.TKeyKeyMissing, map[string]any{"URL": config.KeyringUser(a.settings.BaseURL)})
					return nil
				}
				fmt.Fprintln(a.out, mask(key))
				return nil
			},
		},
	)
	return cmd
}

func (a *app) sectionTitle(name string) string {
	switch name {
	case engine.SectionFront:
		return a.tr.T(config.TKeyGroupFront, nil)
	case engine.SectionCash:
		return a.tr.T(config.TKeyGroupCash, nil)
	default:
		return a.tr.T(config.TKeyGroupBack, nil)
	}
}
