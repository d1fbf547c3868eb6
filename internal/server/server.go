package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tartampluch/go-rota/internal/config"
)

// cacheItem stores one rendered feed and its metadata for HTTP caching.
type cacheItem struct {
	data         []byte
	contentType  string
	etag         string
	lastModified string // RFC1123 format required by HTTP headers
}

type feedSet map[string]*cacheItem

// FeedServer serves the generated calendar and vCard feeds over HTTP, one
// URL per feed name (e.g. /ana-example-com.ics, /directory.vcf).
type FeedServer struct {
	// feeds is replaced wholesale on every write so readers never lock.
	// A nil set means no refresh has completed yet.
	feeds atomic.Pointer[feedSet]
	// mu serializes writers.
	mu   sync.Mutex
	Port string
}

// NewFeedServer creates a new instance of the server.
func NewFeedServer(port string) *FeedServer {
	return &FeedServer{
		Port: port,
	}
}

// Handler returns the HTTP handler serving the feeds.
func (s *FeedServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteFeeds, s.handleFeedRequest)
	return mux
}

// Start initializes the HTTP server and blocks until the context is cancelled.
func (s *FeedServer) Start(ctx context.Context) error {
	if s.Port == "" {
		return fmt.Errorf(config.ErrPortRequired)
	}

	srv := &http.Server{
		Addr:         config.LocalhostBindAddr + config.AddrSeparator + s.Port,
		Handler:      s.Handler(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyPort, s.Port,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// Update atomically replaces the content of one feed, creating it if needed.
func (s *FeedServer) Update(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshot()
	next[name] = s.item(name, data)
	s.feeds.Store(&next)
}

// Replace swaps the whole feed set. Feeds absent from feeds stop being served.
func (s *FeedServer) Replace(feeds map[string][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(feedSet, len(feeds))
	for name, data := range feeds {
		next[name] = s.item(name, data)
	}
	s.feeds.Store(&next)
}

// Names lists the feeds currently served, sorted.
func (s *FeedServer) Names() []string {
	cur := s.feeds.Load()
	if cur == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(*cur))
}

// snapshot copies the current set. Callers hold mu.
func (s *FeedServer) snapshot() feedSet {
	cur := s.feeds.Load()
	if cur == nil {
		return make(feedSet)
	}
	return maps.Clone(*cur)
}

// item builds the cache entry of name. Unchanged content keeps its previous
// Last-Modified so conditional requests keep answering 304. Callers hold mu.
func (s *FeedServer) item(name string, data []byte) *cacheItem {
	hash := sha256.Sum256(data)
	etag := fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:]))

	lastMod := time.Now().UTC().Format(http.TimeFormat)
	if cur := s.feeds.Load(); cur != nil {
		if prev, ok := (*cur)[name]; ok && prev.etag == etag {
			lastMod = prev.lastModified
		}
	}

	slog.Debug(config.MsgCacheUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeyFeed, name,
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, etag,
	)

	return &cacheItem{
		data:         data,
		contentType:  contentType(name),
		etag:         etag,
		lastModified: lastMod,
	}
}

func contentType(name string) string {
	if strings.HasSuffix(name, config.VCardExtension) {
		return config.MimeTextVCard
	}
	return config.MimeTextCalendar
}

// handleFeedRequest serves one feed with HTTP caching support.
func (s *FeedServer) handleFeedRequest(w http.ResponseWriter, r *http.Request) {
	// 1. Method Validation
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	// 2. Load Data (Atomic / Lock-Free)
	feeds := s.feeds.Load()

	// 3. Readiness Check
	if feeds == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, config.RouteFeeds)
	item, ok := (*feeds)[name]
	if !ok || strings.Contains(name, "/") {
		http.Error(w, config.HTTPMsgNotFound, http.StatusNotFound)
		return
	}

	// 4. Set Response Headers
	w.Header().Set(config.HeaderContentType, item.contentType)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, item.etag)
	w.Header().Set(config.HeaderLastModified, item.lastModified)

	// 5. Check Conditional Headers (Browser Caching)
	if match := r.Header.Get(config.HeaderIfNoneMatch); match == item.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if since := r.Header.Get(config.HeaderIfModifiedSince); since != "" {
		if clientTime, err := time.Parse(http.TimeFormat, since); err == nil {
			if serverTime, err := time.Parse(http.TimeFormat, item.lastModified); err == nil {
				// If server content is not newer than client cache, return 304.
				if !serverTime.After(clientTime) {
					w.WriteHeader(http.StatusNotModified)
					return
				}
			}
		}
	}

	// 6. Serve Content
	if r.Method == http.MethodGet {
		if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
			slog.Error(config.ErrWriteResp,
				config.LogKeyComponent, config.CompServer,
				config.LogKeyFeed, name,
				config.LogKeyError, err,
			)
		}
	}
}
