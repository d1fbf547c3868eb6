package main

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tartampluch/go-rota/internal/config"
	"github.com/tartampluch/go-rota/internal/engine"
	"github.com/tartampluch/go-rota/internal/i18n"
)

// app holds what every command shares once settings are loaded.
type app struct {
	out        io.Writer
	configPath string
	debug      bool

	// initLogging is nil in tests, which keep the default logger.
	initLogging func(debug bool) io.Closer
	logCloser   io.Closer

	settings config.Settings
	client   *engine.Client
	tr       *i18n.Translator
}

// load reads the settings and builds the backend client.
func (a *app) load() error {
	s, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}

	client, err := engine.NewClient(engine.Options{
		BaseURL: s.BaseURL,
		APIKey:  s.APIKey,
		Fetcher: engine.NewHTTPFetcher(s.RatePerSec),
		Limits:  engine.LimitsFrom(s),
	})
	if err != nil {
		return err
	}

	a.settings = s
	a.client = client
	a.tr = i18n.New(s.Language)
	return nil
}

func (a *app) close() {
	if a.client != nil {
		a.client.Close()
	}
	if a.logCloser != nil {
		_ = a.logCloser.Close() // Best effort close
	}
}

// actor returns the explicit flag value or the configured acting identity.
func (a *app) actor(flag string) string {
	if strings.TrimSpace(flag) != "" {
		return flag
	}
	return a.settings.Actor
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "go-rota",
		Short:         "Shift schedules, live hours and shift messages from the rota backend",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.initLogging != nil {
				a.logCloser = a.initLogging(a.debug)
				logStartupInfo()
			}
			return a.load()
		},
	}
	root.SetOut(a.out)
	root.SetVersionTemplate(fmt.Sprintf(config.MsgVersionOutput, config.AppName, config.Version, config.Commit, config.Date, runtime.GOOS, runtime.GOARCH))

	root.PersistentFlags().StringVar(&a.configPath, config.FlagConfig, "", config.FlagDescConfig)
	root.PersistentFlags().BoolVar(&a.debug, config.FlagDebug, false, config.FlagDescDebug)

	root.AddCommand(
		newDirectoryCmd(a),
		newAliasCmd(a),
		newScheduleCmd(a),
		newLiveCmd(a),
		newHistoryCmd(a),
		newTeamCmd(a),
		newSendCmd(a),
		newUpdateCmd(a),
		newNotificationsCmd(a),
		newServeCmd(a),
		newKeyCmd(a),
	)
	return root
}

// sendAction maps the CLI day argument to the backend action.
func sendAction(arg string) (string, error) {
	switch strings.ToLower(arg) {
	case config.ActionTodayArg:
		return config.ActionSendToday, nil
	case config.ActionTomorrowArg:
		return config.ActionSendTomorrow, nil
	}
	return "", engine.ErrUnknownAction
}

// dayPairs reads "<day> <shift>" argument pairs.
func dayPairs(args []string) ([]engine.DayChange, error) {
	if len(args) == 0 || len(args)%2 != 0 {
		return nil, errors.New(config.ErrDayPairs)
	}
	changes := make([]engine.DayChange, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		changes = append(changes, engine.DayChange{Day: args[i], Shift: args[i+1]})
	}
	return changes, nil
}
