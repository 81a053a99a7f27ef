package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/sheetviz/internal/analysis"
	"github.com/KaramelBytes/sheetviz/internal/dashboard/notifier"
	"github.com/KaramelBytes/sheetviz/internal/render"
)

const (
	sessionName    = "sheetviz"
	flashSuccess   = "success"
	flashError     = "error"
	uploadedText   = "File uploaded successfully!"
	debounceWindow = 100 * time.Millisecond
)

// ServerConfig holds configuration for the dashboard server.
type ServerConfig struct {
	Addr           string
	MaxUploadBytes int64
	SessionSecret  []byte
	// WatchFile is reloaded whenever it changes on disk. Empty disables watching.
	WatchFile string
	Logger    *slog.Logger
}

// Server is the HTTP surface of one Controller.
type Server struct {
	ctrl         *Controller
	cfg          ServerConfig
	sessionStore *sessions.CookieStore
	notifier     *notifier.Notifier
	logger       *slog.Logger
}

// NewServer creates a dashboard server.
func NewServer(ctrl *Controller, cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}
	sessionStore := sessions.NewCookieStore(cfg.SessionSecret)
	sessionStore.MaxAge(3600)
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	return &Server{
		ctrl:         ctrl,
		cfg:          cfg,
		sessionStore: sessionStore,
		notifier:     notifier.New(),
		logger:       cfg.Logger,
	}
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		requestLogger(s.logger),
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/", s.handlePage)
	r.Post("/upload", s.handleUpload)
	r.Post("/chart", s.handleChartSSE)
	r.Get("/chart.svg", s.handleFigure(render.SVG))
	r.Get("/chart.png", s.handleFigure(render.PNG))
	r.Get("/updates", s.handleUpdates)
	r.Get("/healthz", s.handleHealth)
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting dashboard", "addr", s.cfg.Addr)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cfg.WatchFile != "" {
		eg.Go(func() error {
			return s.watchFile(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down dashboard...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// LoadFile ingests a workbook from disk and pings open tabs.
func (s *Server) LoadFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	t, err := s.ctrl.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	s.notifier.Broadcast(t.Name, t.Rows())
	return nil
}

// watchFile reloads the watched workbook when it is written or replaced.
// The parent directory is watched because editors save by renaming.
func (s *Server) watchFile(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	target, err := filepath.Abs(s.cfg.WatchFile)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		s.logger.Error("failed to watch workbook", "file", target, "error", err)
		return nil
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if name, _ := filepath.Abs(event.Name); name != target {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceWindow, func() {
				s.logger.Debug("workbook changed, reloading", "file", target)
				if err := s.LoadFile(ctx, target); err != nil {
					s.logger.Error("reload failed", "file", target, "error", err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	// Seq is read before the overview: a load in between makes the tab
	// reload once instead of missing it.
	data := pageData{Title: "sheetviz", Seq: s.notifier.Seq()}
	data.Overview = s.ctrl.Overview()

	if session, err := s.sessionStore.Get(r, sessionName); err == nil {
		data.Flashes = flashStrings(session.Flashes(flashSuccess))
		data.Errors = flashStrings(session.Flashes(flashError))
		if len(data.Flashes)+len(data.Errors) > 0 {
			if err := session.Save(r, w); err != nil {
				s.logger.Warn("failed to save session", "error", err)
			}
		}
	}

	kind := analysis.Kinds[0]
	data.Kinds = kindOptions(kind)
	data.Widgets = s.ctrl.Options(kind)
	sig := defaultSignals(kind, data.Widgets)
	data.Signals = marshalSignals(sig)
	data.Loaded = data.Overview.State == Loaded
	data.Chart = viewOf(s.ctrl.EvaluateAs(r.Context(), sig.selection(), render.SVG))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, "page", data); err != nil {
		s.logger.Error("failed to render page", "error", err)
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	session, _ := s.sessionStore.Get(r, sessionName)

	fail := func(msg string) {
		session.AddFlash(msg, flashError)
		if err := session.Save(r, w); err != nil {
			s.logger.Warn("failed to save session", "error", err)
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || r.ContentLength > s.cfg.MaxUploadBytes {
			fail(fmt.Sprintf("upload exceeds the size limit of %d bytes", s.cfg.MaxUploadBytes))
			return
		}
		fail("no file selected")
		return
	}
	defer func() { _ = file.Close() }()

	t, err := s.ctrl.Upload(r.Context(), header.Filename, file)
	if err != nil {
		fail(err.Error())
		return
	}
	session.AddFlash(uploadedText, flashSuccess)
	if err := session.Save(r, w); err != nil {
		s.logger.Warn("failed to save session", "error", err)
	}
	s.notifier.Broadcast(t.Name, t.Rows())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleChartSSE re-evaluates the selection and patches the chart panel. With
// widgets=1 the kind changed: the widget set and its signals are reset first.
func (s *Server) handleChartSSE(w http.ResponseWriter, r *http.Request) {
	// Read signals BEFORE creating SSE (SSE consumes the request body)
	var sig signals
	readErr := datastar.ReadSignals(r, &sig)

	sse := datastar.NewSSE(w, r)
	if readErr != nil {
		_ = sse.ConsoleError(fmt.Errorf("read signals: %w", readErr))
		return
	}

	if r.URL.Query().Get("widgets") == "1" {
		kind, err := analysis.ParseKind(sig.Kind)
		if err != nil {
			s.patchChart(sse, chartView{Message: err.Error(), Level: "error"})
			return
		}
		wo := s.ctrl.Options(kind)
		sig = defaultSignals(kind, wo)
		if err := sse.MarshalAndPatchSignals(sig); err != nil {
			_ = sse.ConsoleError(err)
			return
		}
		html, err := fragment("widgets", wo)
		if err != nil {
			_ = sse.ConsoleError(err)
			return
		}
		if err := sse.PatchElements(html); err != nil {
			return
		}
	}

	out := s.ctrl.EvaluateAs(r.Context(), sig.selection(), render.SVG)
	if r.Context().Err() != nil {
		return
	}
	s.patchChart(sse, viewOf(out))
}

func (s *Server) patchChart(sse *datastar.ServerSentEventGenerator, v chartView) {
	html, err := fragment("chart", v)
	if err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	_ = sse.PatchElements(html)
}

// handleFigure serves the chart of the query-string selection as an image.
func (s *Server) handleFigure(f render.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sel, err := selectionFromQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		out := s.ctrl.EvaluateAs(r.Context(), sel, f)
		switch out.Kind {
		case OutcomePrompt:
			http.Error(w, out.Message(), http.StatusConflict)
		case OutcomeRejected, OutcomeFailed:
			http.Error(w, out.Message(), http.StatusUnprocessableEntity)
		default:
			w.Header().Set("Content-Type", f.ContentType())
			w.Header().Set("Content-Length", strconv.Itoa(len(out.Figure)))
			_, _ = w.Write(out.Figure)
		}
	}
}

// handleUpdates is the long-lived SSE endpoint. Every open tab reloads when a
// dataset newer than the one it rendered (?seq=) is loaded.
func (s *Server) handleUpdates(w http.ResponseWriter, r *http.Request) {
	seen, err := strconv.ParseUint(r.URL.Query().Get("seq"), 10, 64)
	if err != nil {
		seen = s.notifier.Seq()
	}
	sse := datastar.NewSSE(w, r)

	updates := s.notifier.Subscribe(seen)
	defer s.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case load := <-updates:
			s.logger.Debug("dataset changed, reloading tab", "file", load.Name, "rows", load.Rows, "seq", load.Seq)
			if err := sse.ExecuteScript("window.location.reload()"); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"state":  s.ctrl.State().String(),
	})
}

// selectionFromQuery reads kind, column, category, value, values (repeated or
// comma separated), n and threshold. Missing numbers take the widget defaults.
func selectionFromQuery(r *http.Request) (analysis.Selection, error) {
	q := r.URL.Query()
	sel := analysis.Selection{
		Kind:      q.Get("kind"),
		Column:    q.Get("column"),
		Category:  q.Get("category"),
		Value:     q.Get("value"),
		N:         analysis.DefaultTopN,
		Threshold: analysis.DefaultThreshold,
	}
	for _, v := range q["values"] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				sel.Values = append(sel.Values, part)
			}
		}
	}
	if v := q.Get("n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return sel, fmt.Errorf("invalid n: %q", v)
		}
		sel.N = n
	}
	if v := q.Get("threshold"); v != "" {
		th, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return sel, fmt.Errorf("invalid threshold: %q", v)
		}
		sel.Threshold = th
	}
	return sel, nil
}

func flashStrings(flashes []any) []string {
	out := make([]string, 0, len(flashes))
	for _, f := range flashes {
		if s, ok := f.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Debug("request",
					"id", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"elapsed", time.Since(start),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
