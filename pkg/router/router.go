package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// anyMethod registers a handler for every HTTP method
const anyMethod = "*"

// --- Colors ---
var (
	cyan   = color.New(color.FgCyan).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	blue   = color.New(color.FgBlue).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

type HandlerFunc func(http.ResponseWriter, *http.Request)

type Router struct {
	mux      *http.ServeMux
	mu       sync.RWMutex
	routes   map[string]HandlerFunc // key = METHOD:PATH
	paths    map[string]bool        // track registered paths
	patterns []string               // wildcard paths, most specific first
	out      io.Writer
	logger   *slog.Logger
	server   *http.Server
}

// Option configures a Router
type Option func(*Router)

// WithOutput sets where access lines are written
func WithOutput(w io.Writer) Option {
	return func(r *Router) { r.out = w }
}

// WithLogger sets the logger for server lifecycle events
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

func New(opts ...Option) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		routes: make(map[string]HandlerFunc),
		paths:  make(map[string]bool),
		out:    color.Output,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	// Catch-all handler for every path
	r.mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		if h := r.lookup(req.Method, req.URL.Path); h != nil {
			h(lrw, req)
		} else if r.knownPath(req.URL.Path) {
			// Path exists but method not allowed
			http.Error(lrw, "Method Not Allowed", http.StatusMethodNotAllowed)
		} else {
			http.Error(lrw, "Not Found", http.StatusNotFound)
		}

		fmt.Fprintf(r.out, "%s %s %s %s %s\n",
			cyan("["+start.Format("2006-01-02 15:04:05")+"]"),
			methodColor(req.Method)(req.Method),
			req.URL.Path,
			statusColor(lrw.statusCode)(lrw.statusCode),
			blue(fmt.Sprintf("(%v)", time.Since(start))),
		)
	})

	return r
}

// ServeHTTP makes the router an http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) lookup(method, path string) HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if h, ok := r.routes[method+":"+path]; ok {
		return h
	}
	if h, ok := r.routes[anyMethod+":"+path]; ok {
		return h
	}
	for _, pattern := range r.patterns {
		if !matchWildcardRoute(path, pattern) {
			continue
		}
		if h, ok := r.routes[method+":"+pattern]; ok {
			return h
		}
		if h, ok := r.routes[anyMethod+":"+pattern]; ok {
			return h
		}
	}
	return nil
}

func (r *Router) knownPath(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.paths[path] {
		return true
	}
	for _, pattern := range r.patterns {
		if matchWildcardRoute(path, pattern) {
			return true
		}
	}
	return false
}

// matchWildcardRoute checks if a request path matches a wildcard route pattern
func matchWildcardRoute(requestPath, routePattern string) bool {
	// Split both paths into segments
	requestSegments := strings.Split(strings.Trim(requestPath, "/"), "/")
	routeSegments := strings.Split(strings.Trim(routePattern, "/"), "/")

	// Handle single wildcard at the end (matches one or more remaining segments)
	if len(routeSegments) > 0 && routeSegments[len(routeSegments)-1] == "*" {
		if len(requestSegments) < len(routeSegments) {
			return false
		}
		for i := 0; i < len(routeSegments)-1; i++ {
			if routeSegments[i] != "*" && requestSegments[i] != routeSegments[i] {
				return false
			}
		}
		return true
	}

	if len(requestSegments) != len(routeSegments) {
		return false
	}
	for i, routeSegment := range routeSegments {
		if routeSegment == "*" {
			continue
		}
		if requestSegments[i] != routeSegment {
			return false
		}
	}
	return true
}

// --- Register paths ---
func (r *Router) register(method, path string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := method + ":" + path
	r.routes[key] = handler
	if !r.paths[path] && strings.Contains(path, "*") {
		r.patterns = append(r.patterns, path)
		sort.SliceStable(r.patterns, func(i, j int) bool {
			return specificity(r.patterns[i]) > specificity(r.patterns[j])
		})
	}
	r.paths[path] = true
}

// specificity ranks patterns: more literal segments first, then a fixed
// segment count before a trailing catch-all
func specificity(pattern string) int {
	score := 0
	segments := strings.Split(strings.Trim(pattern, "/"), "/")
	for _, s := range segments {
		if s != "*" {
			score += 10
		}
	}
	if segments[len(segments)-1] != "*" {
		score += 5
	}
	return score
}

func (r *Router) GET(path string, handler HandlerFunc)   { r.register(http.MethodGet, path, handler) }
func (r *Router) POST(path string, handler HandlerFunc)  { r.register(http.MethodPost, path, handler) }
func (r *Router) PUT(path string, handler HandlerFunc)   { r.register(http.MethodPut, path, handler) }
func (r *Router) PATCH(path string, handler HandlerFunc) { r.register(http.MethodPatch, path, handler) }
func (r *Router) DELETE(path string, handler HandlerFunc) {
	r.register(http.MethodDelete, path, handler)
}

// Handle mounts an http.Handler for every method on path
func (r *Router) Handle(path string, h http.Handler) {
	r.register(anyMethod, path, h.ServeHTTP)
}

// Getter methods for testing
func (r *Router) Routes() map[string]HandlerFunc {
	return r.routes
}

func (r *Router) Paths() map[string]bool {
	return r.paths
}

// --- Start server ---

// Start serves until Shutdown is called. It returns nil after a clean
// shutdown.
func (r *Router) Start(addr string) error {
	r.mu.Lock()
	r.server = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := r.server
	r.mu.Unlock()

	fmt.Fprintf(r.out, "Server started on %s\n", green("http://localhost"+addr))
	r.logger.Info("http server listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server started by Start
func (r *Router) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	srv := r.server
	r.mu.RUnlock()
	if srv == nil {
		return nil
	}
	r.logger.Info("http server shutting down")
	return srv.Shutdown(ctx)
}

// --- Logging response writer to capture status codes ---
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers work through the wrapper
func (lrw *loggingResponseWriter) Flush() {
	if f, ok := lrw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// --- Color helpers ---
func statusColor(code int) func(a ...interface{}) string {
	switch {
	case code >= 200 && code < 300:
		return green
	case code >= 300 && code < 400:
		return cyan
	case code >= 400 && code < 500:
		return yellow
	default:
		return red
	}
}

func methodColor(method string) func(a ...interface{}) string {
	switch method {
	case http.MethodGet:
		return green
	case http.MethodPost:
		return blue
	case http.MethodPut, http.MethodPatch:
		return yellow
	case http.MethodDelete:
		return red
	default:
		return cyan
	}
}
