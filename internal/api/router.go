package api

import (
	"net/http"
	"time"

	"librarian/internal/api/handler"
	"librarian/internal/api/middleware"
	"librarian/internal/app/service"
	"librarian/internal/common/security"
	"librarian/internal/domain/model"
	"librarian/internal/platform/config"
	"librarian/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

func NewRouter(
	cfg *config.Config,
	log zerolog.Logger,
	tokens *security.TokenService,
	authService *service.AuthService,
	bookService *service.BookService,
	borrowService *service.BorrowService,
	reportService *service.ReportService,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(logger.RequestLogger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticated := middleware.Authenticator(tokens)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(api chi.Router) {
		authHandler := handler.NewAuthHandler(authService, cfg.RefreshTokenTTL, cfg.Environment == "production")
		api.Route("/auth", func(auth chi.Router) {
			authHandler.RegisterRoutes(auth)
			auth.Group(func(protected chi.Router) {
				protected.Use(authenticated)
				authHandler.RegisterProtectedRoutes(protected)
			})
		})

		bookHandler := handler.NewBookHandler(bookService)
		api.Route("/book", func(book chi.Router) {
			bookHandler.RegisterPublicRoutes(book)
			book.Group(func(admin chi.Router) {
				admin.Use(authenticated, middleware.RequireRole(model.RoleAdmin))
				bookHandler.RegisterAdminRoutes(admin)
			})
		})

		borrowHandler := handler.NewBorrowHandler(borrowService)
		api.Route("/borrow", func(borrow chi.Router) {
			borrow.Use(authenticated, middleware.RequireRole(model.RoleMember))
			borrowHandler.RegisterRoutes(borrow)
		})

		reportHandler := handler.NewReportHandler(reportService)
		api.Route("/report", reportHandler.RegisterRoutes)
	})

	return r
}
