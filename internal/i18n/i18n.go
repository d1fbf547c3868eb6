// Package i18n localizes the CLI output and calendar event titles.
package i18n

import (
	"embed"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"sync"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/go-rota/internal/config"
	"github.com/tartampluch/go-rota/internal/shift"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Translator renders messages in one language, falling back to English.
type Translator struct {
	lang      string
	localizer *goi18n.Localizer
}

var loadBundle = sync.OnceValues(func() (*goi18n.Bundle, []string) {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyError, err,
		)
		return bundle, nil
	}

	var detectedLangs []string

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		langCode := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
		if langCode == "" {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			slog.Error(config.ErrLocaleLoad,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
				config.LogKeyError, err,
			)
			continue
		}
		detectedLangs = append(detectedLangs, langCode)
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, langCode,
			config.LogKeyFile, name,
		)
	}

	slices.Sort(detectedLangs)
	return bundle, detectedLangs
})

// Languages lists the language codes with an embedded locale file.
func Languages() []string {
	_, langs := loadBundle()
	return slices.Clone(langs)
}

// New returns a Translator for lang. Unknown or empty codes use the default language.
func New(lang string) *Translator {
	bundle, langs := loadBundle()
	if !slices.Contains(langs, lang) {
		lang = config.DefaultLanguage
	}
	return &Translator{
		lang:      lang,
		localizer: goi18n.NewLocalizer(bundle, lang, config.DefaultLanguage),
	}
}

// Lang is the language actually used.
func (t *Translator) Lang() string {
	return t.lang
}

// T translates key, executing its template with data. Missing keys render
// as the key itself.
func (t *Translator) T(key string, data map[string]any) string {
	msg, err := t.localizer.Localize(&goi18n.LocalizeConfig{MessageID: key, TemplateData: data})
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, key,
			config.LogKeyError, err,
		)
		return key
	}
	return msg
}

// Status names a shift status.
func (t *Translator) Status(s shift.Status) string {
	switch s {
	case shift.StatusLater:
		return t.T(config.TKeyStatusLater, nil)
	case shift.StatusOn:
		return t.T(config.TKeyStatusOn, nil)
	case shift.StatusDone:
		return t.T(config.TKeyStatusDone, nil)
	case shift.StatusUnknown:
		return t.T(config.TKeyStatusUnknown, nil)
	default:
		return t.T(config.TKeyStatusNone, nil)
	}
}

// EventSummary titles calendar events; it satisfies export.SummaryFunc.
func (t *Translator) EventSummary(name, shiftText string, inProgress bool) string {
	key := config.TKeyEvtSummary
	if inProgress {
		key = config.TKeyEvtInProgress
		shiftText = strings.TrimSuffix(strings.TrimSpace(shiftText), ".")
	}
	return t.T(key, map[string]any{"Name": name, "Shift": shiftText})
}
