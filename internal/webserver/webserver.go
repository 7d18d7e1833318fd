package webserver

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/zsprackett/timestream/internal/db"
	"github.com/zsprackett/timestream/internal/forecast"
	"github.com/zsprackett/timestream/internal/stream"
)

type TLSConfig struct {
	Mode     string
	CertFile string
	KeyFile  string
	CacheDir string
}

type AuthConfig struct {
	// JWTSecret enables bearer auth on catalog writes when non-empty.
	JWTSecret string
}

type Config struct {
	Port int
	Host string
	TLS  TLSConfig
	Auth AuthConfig
}

// shutdownGrace bounds how long Serve waits for in-flight requests once its
// context is cancelled.
const shutdownGrace = 5 * time.Second

type Server struct {
	store  *db.DB
	loop   *stream.Loop
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func New(store *db.DB, loop *stream.Loop, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:  store,
		loop:   loop,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/sse/time", s.handleTimeStream)
	mux.HandleFunc("GET /api/ws/time", s.handleTimeSocket)
	mux.HandleFunc("GET /api/books", s.handleListBooks)
	mux.HandleFunc("GET /api/books/{id}", s.handleGetBook)
	mux.Handle("POST /api/books", s.requireToken(http.HandlerFunc(s.handleAddBook)))
	mux.HandleFunc("GET /api/weatherforecast", s.handleForecast)
	mux.Handle("GET /", http.FileServer(staticFiles()))
	return s.logRequests(mux)
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. Every request
// context derives from ctx, so cancelling it also ends every live stream
// before the graceful shutdown waits on them.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	tlsCfg, err := serverTLS(s.cfg.TLS)
	if err != nil {
		ln.Close()
		return fmt.Errorf("tls: %w", err)
	}
	if tlsCfg != nil {
		ln = tls.NewListener(ln, tlsCfg)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("webserver listening", "addr", ln.Addr().String(), "tls", tlsCfg != nil)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("webserver stopped")
	return nil
}

type booksResponse struct {
	Books []*db.Book `json:"books"`
}

type addBookRequest struct {
	Title         string    `json:"title"`
	PublishedYear int       `json:"published_year"`
	Author        db.Author `json:"author"`
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	var (
		books []*db.Book
		err   error
	)
	if country := r.URL.Query().Get("country"); country != "" {
		books, err = s.store.SearchBooksByAuthorCountry(country)
	} else {
		books, err = s.store.LoadBooks()
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("X-Catalog-Modified", strconv.FormatInt(s.store.LastModified(), 10))
	writeJSON(w, http.StatusOK, booksResponse{Books: books})
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid book id", http.StatusBadRequest)
		return
	}
	book, err := s.store.GetBook(id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleAddBook(w http.ResponseWriter, r *http.Request) {
	var body addBookRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}
	book, err := s.store.AddBook(body.Title, body.PublishedYear, body.Author)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.logger.Info("book added", "id", book.ID, "title", book.Title,
		"by", subject(r.Context()), "request_id", requestID(r.Context()))
	writeJSON(w, http.StatusCreated, book)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, forecast.Generate(s.now(), nil))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
