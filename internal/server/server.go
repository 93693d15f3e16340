package server

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"noema/app"
	"noema/internal"
)

// Server exposes the artifacts of a pipeline run over HTTP so a run can be
// inspected locally: the rendered report at /, raw artifacts under
// /reports/.
type Server struct {
	router *chi.Mux
	outDir string
	logger *internal.Logger
}

// New builds the report server over an output directory.
func New(outDir string, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		router: chi.NewRouter(),
		outDir: outDir,
		logger: logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Handle("/reports/*", http.StripPrefix("/reports/",
		http.FileServer(http.Dir(s.outDir))))
	// Plot references inside report.html are relative ("./img/...").
	s.router.Handle("/img/*", http.StripPrefix("/img/",
		http.FileServer(http.Dir(filepath.Join(s.outDir, "img")))))
}

// handleIndex serves the pre-rendered report page, falling back to an
// on-the-fly render of REPORT.md, then to an empty state.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if page, err := os.ReadFile(filepath.Join(s.outDir, "report.html")); err == nil {
		w.Write(page)
		return
	}
	if md, err := os.ReadFile(filepath.Join(s.outDir, "REPORT.md")); err == nil {
		w.Write(app.RenderHTML(string(md)))
		return
	}
	w.Write([]byte("<p>No report has been generated yet. Run <code>noema analyze</code> first.</p>"))
}

// Handler returns the underlying router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	s.logger.Info("[Server] serving %s on %s", s.outDir, addr)
	return http.ListenAndServe(addr, s.router)
}
