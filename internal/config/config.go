package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Go-Rota/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Go Rota"
	AppID             = "com.github.tartampluch.go-rota"
	KeyringService    = "com.github.tartampluch.go-rota"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
	EnvFileName       = ".env"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagConfig       = "config"
	FlagDebug        = "debug"
	FlagOffset       = "offset"
	FlagWeeks        = "weeks"
	FlagActor        = "actor"
	FlagVCard        = "vcard"
	FlagWatch        = "watch"
	FlagSince        = "since"
	FlagDescConfig   = "Path to a YAML settings file"
	FlagDescDebug    = "Enable debug logging to stderr"
	FlagDescOffset   = "Week offset (0 = current, negative = future, positive = past)"
	FlagDescWeeks    = "Number of weeks to include"
	FlagDescActor    = "Acting identity sent with mutations (defaults to settings)"
	FlagDescVCard    = "Write the directory as vCard 4.0 instead of a table"
	FlagDescWatch    = "Keep polling on the configured schedule"
	FlagDescSince    = "Notification cursor to start from"
	MsgVersionOutput = "%s version %s (commit %s, built %s, %s/%s)\n"
)

// -----------------------------------------------------------------------------
// Backend Contract
// -----------------------------------------------------------------------------

const (
	// Query parameters understood by the backend.
	ParamAction = "action"
	ParamEmail  = "email"
	ParamAlias  = "alias"
	ParamTarget = "target"
	ParamActor  = "actor"
	ParamOffset = "offset"
	ParamDay    = "day"
	ParamShift  = "shift"
	ParamPhone  = "phone"
	ParamAPIKey = "apikey"
	ParamSince  = "since"

	// Read actions.
	ActionDirectory        = "getEmployeesDirectory"
	ActionSmartSchedule    = "getSmartSchedule"
	ActionScheduleByAlias  = "getScheduleByAlias"
	ActionSchedule         = "getSchedule"
	ActionGetNotifications = "getnotifications"

	// Mutating actions.
	ActionSendToday     = "sendtoday"
	ActionSendTomorrow  = "sendtomorrow"
	ActionUpdateShift   = "updateShift"
	ActionUpdateShiftV2 = "updateShiftAPI"
	ActionUpdateShiftV1 = "updateShiftAPI_v1"

	// Backend error codes with defined semantics.
	BackendErrRowNotFound = "row_not_found_for_alias"

	// Error codes produced locally for mutations.
	ErrCodeAllVariantsFailed = "all_variants_failed"
)

// ScheduleAliasActions is the ordered list of actions tried with a resolved alias.
var ScheduleAliasActions = []string{ActionSmartSchedule, ActionScheduleByAlias, ActionSchedule}

// UpdateAliasActions is the ordered list of update actions tried per alias candidate.
var UpdateAliasActions = []string{ActionUpdateShift, ActionUpdateShiftV2, ActionUpdateShiftV1}

// -----------------------------------------------------------------------------
// Cache TTLs & Concurrency
// -----------------------------------------------------------------------------

const (
	DirectoryTTL       = 5 * time.Minute
	ScheduleCurrentTTL = 60 * time.Second
	ScheduleOtherTTL   = 5 * time.Minute

	// Worker limits used by the batch operations.
	TeamConcurrency    = 4
	HistoryConcurrency = 3
	SendConcurrency    = 3

	DefaultHistoryWeeks = 5
	DefaultRatePerSec   = 8
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultPort            = "18081"
	DefaultLanguage        = "en"
	DefaultFeedRefresh     = "@every 5m"
	DefaultLiveRefresh     = "@every 1m"
	DefaultNotifyRefresh   = "@every 25s"
	DefaultEmptyShift      = "-"
	WeekLabelDateFormat    = "Jan 2"
	WeekLabelSeparator     = " – "
	HourDisplayFormat      = "%.1f"
	FoundByDirectory       = "directory"
	ActionTodayArg         = "today"
	ActionTomorrowArg      = "tomorrow"
	MaxJSONResponseSize    = 8 * 1024 * 1024 // 8MB
	DefaultWeekdayFallback = "Mon"

	DefaultNotificationTitle = "Update"
	DateFormatBasic          = "20060102"
	FormatCalName            = "%s - %s"
	FallbackSummary          = "%s: %s"
)

// SupportedLanguages defines the list of available output languages (ISO 639-1).
var SupportedLanguages = []string{"en", "es"}

// DefaultGroupLabels are the directory rows that delimit each team section.
var DefaultGroupLabels = GroupLabels{
	BackStart:  "J. GIRALDO",
	BackEnd:    "S. BARRERA",
	FrontStart: "E. REYES",
	FrontEnd:   "S. ZULETA",
	CashStart:  "K. ORTIZ",
	CashEnd:    "C. BUSTAMANTE",
}

// -----------------------------------------------------------------------------
// Environment Variables
// -----------------------------------------------------------------------------

const (
	EnvBaseURL    = "GOROTA_BASE_URL"
	EnvActor      = "GOROTA_ACTOR"
	EnvAPIKey     = "GOROTA_API_KEY"
	EnvPort       = "GOROTA_PORT"
	EnvLanguage   = "GOROTA_LANG"
	EnvRatePerSec = "GOROTA_RATE_PER_SEC"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout        = 30 * time.Second
	ShutdownTimeout    = 5 * time.Second
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 30 * time.Second
	ServerIdleTimeout  = 60 * time.Second
	RetryAfterSeconds  = "10"
	AllowedMethods     = "GET, HEAD"
	SchemeHTTP         = "http"
	SchemeHTTPS        = "https"
	RouteFeeds         = "/"
	FeedExtension      = ".ics"
	VCardExtension     = ".vcf"
	DirectoryFeedName  = "directory.vcf"
	AddrSeparator      = ":"
	MinPort            = 1
	MaxPort            = 65535
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderAccept          = "Accept"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeJSON            = "application/json"
	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeTextVCard       = "text/vcard; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	ICalVersion = "2.0"
	ICalProdid  = "-//Go Rota//Engine//EN"
	ICalCalName = "Shifts"
	ICalMethod  = "PUBLISH"
	ICalScale   = "GREGORIAN"
	ICalDomain  = "gorota"

	PropUID        = "UID"
	PropSummary    = "SUMMARY"
	PropDTStart    = "DTSTART"
	PropDTEnd      = "DTEND"
	PropDTStamp    = "DTSTAMP"
	PropRefresh    = "REFRESH-INTERVAL"
	PropVersion    = "VERSION"
	PropProdid     = "PRODID"
	PropXWRCalName = "X-WR-CALNAME"
	PropCalScale   = "CALSCALE"
	PropMethod     = "METHOD"
	PropStatus     = "STATUS"

	StatusConfirmed = "CONFIRMED"
	StatusTentative = "TENTATIVE"

	FormatUID          = "%s-%s@%s"
	FormatHashInput    = "%s|%s|%s"
	UIDHashLength      = 12
	DefaultICalRefresh = 1 * time.Hour

	// StubVCalendar is the minimal valid iCalendar object used when a week has no shifts.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrBaseURLEmpty     = "configuration error: base URL is empty"
	ErrInvalidURL       = "invalid URL structure"
	ErrProtocol         = "unsupported protocol scheme (http/https only)"
	ErrPortRequired     = "server port is required"
	ErrPortNumber       = "server port must be a number"
	ErrPortRange        = "server port must be between 1 and 65535"
	ErrRateLimit        = "rate limit must be positive"
	ErrLanguage         = "unsupported language"
	ErrSettingsRead     = "failed to read settings file"
	ErrSettingsParse    = "failed to parse settings file"
	ErrFetcherMissing   = "internal error: network fetcher is not initialized"
	ErrCtxCancelled     = "operation cancelled by context"
	ErrDecodeJSON       = "failed to decode backend response"
	ErrRateLimitWait    = "rate limiter wait aborted"
	ErrRequestBuild     = "failed to create request"
	ErrNetwork          = "network error during fetch"
	ErrUnexpectedStatus = "server returned unexpected status"
	ErrAliasNotFound    = "alias not found in directory"
	ErrAliasEmpty       = "directory record yields an empty alias"
	ErrDirectoryFetch   = "failed to fetch directory"
	ErrDirectoryEmpty   = "directory response is not ok"
	ErrICalEncode       = "failed to encode iCalendar data"
	ErrVCardEncode      = "failed to encode vCard data"
	ErrServerStartup    = "server startup failed"
	ErrServerShutdown   = "server shutdown failed"
	ErrLogFile          = "failed to open log file"
	ErrCacheDir         = "could not determine user cache dir"
	ErrCreateDir        = "could not create app cache dir"
	ErrAppFailed        = "application failed unexpectedly"
	ErrWriteResp        = "failed to write response body"
	ErrLocalesAccess    = "failed to access embedded locales"
	ErrLocaleLoad       = "failed to load locale file"
	ErrKeyringWrite     = "failed to save API key to keyring"
	ErrWorkerPanic      = "worker panicked"
	ErrCronSpec         = "invalid refresh schedule"
	ErrUnknownAction    = "unknown send action (today|tomorrow)"
	ErrActorRequired    = "an acting identity is required for mutations"
	ErrDayPairs         = "shift changes must be given as <day> <shift> pairs"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Feed initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
	HTTPMsgNotFound     = "Feed Not Found"
)

// -----------------------------------------------------------------------------
// Log Messages
// -----------------------------------------------------------------------------

const (
	MsgAppStarting     = "Starting application"
	MsgAppStop         = "Application stopped gracefully"
	MsgEnvMissing      = "No .env file found, using process environment"
	MsgFetchStart      = "Requesting backend"
	MsgFetchDone       = "Backend responded"
	MsgFetchBadStatus  = "Server returned error status"
	MsgFetchFailed     = "Backend request failed"
	MsgCalendarBuilt   = "Calendar built"
	MsgCacheHit        = "Cache hit"
	MsgCacheShared     = "Joined in-flight request"
	MsgScheduleMiss    = "Primary schedule lookup empty, trying alias fallback"
	MsgScheduleAlias   = "Schedule resolved through alias"
	MsgScheduleFailed  = "All schedule lookups returned no data"
	MsgAliasResolved   = "Alias resolved"
	MsgAliasMemo       = "Alias served from memo"
	MsgCandidateTry    = "Trying mutation candidate"
	MsgCandidateFail   = "Mutation candidate failed"
	MsgMutationOK      = "Mutation succeeded"
	MsgMutationFailed  = "Every mutation candidate failed"
	MsgMutationStopped = "Mutation stopped on a row-specific backend error"
	MsgBatchDone       = "Batch finished"
	MsgFeedRefreshed   = "Feed refreshed"
	MsgFeedFailed      = "Feed refresh failed"
	MsgFeedCollision   = "Feed name already taken, employee skipped"
	MsgServerListen    = "HTTP server listening"
	MsgServerStop      = "Shutting down HTTP server..."
	MsgCacheUpdated    = "Feed cache updated"
	MsgLocaleSkip      = "Skipping non-locale file"
	MsgLocaleBadName   = "Locale file has no language code"
	MsgLocaleLoaded    = "Locale loaded successfully"
	MsgTransMissing    = "Missing translation key"
	MsgKeyringMiss     = "API key not found in keyring"
	MsgNotifications   = "Notifications received"
	MsgPollFailed      = "Notification poll failed"
	MsgLogWarning      = "Warning: %s at %s: %v\n"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeyAction    = "action"
	LogKeyAlias     = "alias"
	LogKeyIdentity  = "identity"
	LogKeyOffset    = "offset"
	LogKeyAttempt   = "attempt"
	LogKeyCount     = "count"
	LogKeyFailed    = "failed"
	LogKeyOpID      = "op_id"
	LogKeyFeed      = "feed"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyCursor    = "cursor"
	LogKeyDuration  = "duration_ms"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompMain     = "main"
	CompConfig   = "config"
	CompCache    = "cache"
	CompBatch    = "batch"
	CompFetcher  = "fetcher"
	CompClient   = "client"
	CompIdentity = "identity"
	CompServer   = "server"
	CompExport   = "export"
	CompI18n     = "i18n"
	CompWorker   = "worker"
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyColDay        = "col_day"
	TKeyColShift      = "col_shift"
	TKeyColHours      = "col_hours"
	TKeyColName       = "col_name"
	TKeyColLive       = "col_live"
	TKeyColEmail      = "col_email"
	TKeyColPhone      = "col_phone"
	TKeyColRole       = "col_role"
	TKeyColStatus     = "col_status"
	TKeyTotalHours    = "total_hours"
	TKeyNoSchedule    = "no_schedule"
	TKeyLiveWorking   = "live_working"
	TKeyLiveCompleted = "live_completed"
	TKeyLiveNone      = "live_none"
	TKeyAliasFound    = "alias_found"
	TKeySendOK        = "send_ok"
	TKeySendFailed    = "send_failed"
	TKeyUpdateOK      = "update_ok"
	TKeyUpdateFailed  = "update_failed"
	TKeyBatchSummary  = "batch_summary"
	TKeyTeamSummary   = "team_summary"
	TKeyGroupBack     = "group_back"
	TKeyGroupFront    = "group_front"
	TKeyGroupCash     = "group_cash"
	TKeyNotification  = "notification"
	TKeyHistoryRow    = "history_row"
	TKeyEvtSummary    = "evt_summary"
	TKeyEvtInProgress = "evt_in_progress"
	TKeyStatusNone    = "status_none"
	TKeyStatusLater   = "status_later"
	TKeyStatusOn      = "status_on"
	TKeyStatusDone    = "status_done"
	TKeyStatusUnknown = "status_unknown"
	TKeyKeySaved      = "key_saved"
	TKeyKeyMissing    = "key_missing"
)
