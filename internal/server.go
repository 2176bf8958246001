package internal

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"construction-api/internal/config"
	"construction-api/internal/store"
)

//go:embed openapi static
var assetsFS embed.FS

const dbPingTimeout = 2 * time.Second

type Server struct {
	Store   *store.DB
	Router  *chi.Mux
	Metrics *Metrics
	Logger  *zap.Logger

	cfg *config.Config
}

// NewServer wires the router around an already opened store.
func NewServer(db *store.DB, cfg *config.Config, logger *zap.Logger) *Server {
	s := &Server{
		Store:   db,
		Router:  chi.NewRouter(),
		Metrics: NewMetrics(),
		Logger:  logger,
		cfg:     cfg,
	}

	s.Router.Use(requestID)
	s.Router.Use(requestLogger(logger))
	s.Router.Use(recoverer(logger))
	s.Router.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{requestIDHeader},
	}).Handler)

	// Mount metrics if enabled
	if cfg.EnableMetrics {
		s.Router.Use(s.Metrics.Middleware())
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}

	s.Router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	s.Router.Get("/dbping", s.dbPing)
	s.mountDocs(s.Router)

	projects := instrument(s.Metrics, store.ProjectsCollection, db.Projects)
	suppliers := instrument(s.Metrics, store.SuppliersCollection, db.Suppliers)
	s.Router.Route("/projects", newProjectHandler(projects, logger).routes)
	s.Router.Route("/suppliers", newSupplierHandler(suppliers, logger).routes)

	s.mountStatic(s.Router)

	return s
}

// Close releases the store connection.
func (s *Server) Close(ctx context.Context) error {
	if s.Store != nil {
		return s.Store.Close(ctx)
	}
	return nil
}

func (s *Server) dbPing(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), dbPingTimeout)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		s.Logger.Error("Store ping failed", zap.String("driver", s.Store.Driver), zap.Error(err))
		http.Error(w, "db: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if _, err := w.Write([]byte("db: ok")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// mountStatic serves the landing page and anything else under static/.
func (s *Server) mountStatic(mux *chi.Mux) {
	static, err := fs.Sub(assetsFS, "static")
	if err != nil {
		panic(err)
	}
	mux.Handle("/*", http.FileServer(http.FS(static)))
}

// mountDocs serves the OpenAPI spec and Swagger UI
func (s *Server) mountDocs(mux *chi.Mux) {
	if !s.cfg.EnableSwagger {
		return
	}

	// Serve the raw YAML
	mux.HandleFunc("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		data, err := assetsFS.ReadFile("openapi/openapi.yaml")
		if err != nil {
			http.Error(w, "Failed to read OpenAPI spec", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/x-yaml")
		if _, err := w.Write(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	mux.HandleFunc("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(swaggerPage))
	})
}

const swaggerPage = `<!doctype html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Construction Management API - Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css">
    <style>
        body { margin: 0; background: #f7f7f7; }
        .swagger-ui .topbar { background: #3d2c12; border-bottom: 3px solid #f59e0b; }
        .swagger-ui .topbar .download-url-wrapper { display: none; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            window.ui = SwaggerUIBundle({
                url: '/openapi.yaml',
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [SwaggerUIBundle.presets.apis],
                tryItOutEnabled: true
            });
        };
    </script>
</body>
</html>`
