package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/ahmadjon09/Shoemaster-sub000/internal/auth"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/cache"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/handlers"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/httpx"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/models"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/notify"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, productCache *cache.ProductCache, notifier notify.Notifier) http.Handler {
	mux := http.NewServeMux()

	// RequireAuth checks that the session's user still exists.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	authHandler := handlers.NewAuthHandler(db)
	authHandler.Register(mux)

	protected := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(auth.RequireAuth(h))
	}

	productSvc := services.NewProductService(db, notifier)
	ph := handlers.NewProductHandler(db, productSvc, productCache)
	mux.Handle("POST /products/create", protected(ph.Create))
	mux.Handle("GET /products/check", protected(ph.Check))
	mux.Handle("GET /products", protected(ph.List))
	mux.Handle("PUT /products/{id}", protected(ph.Update))
	mux.Handle("DELETE /products/{id}", protected(ph.Delete))

	orderSvc := services.NewOrderService(db, notifier)
	oh := handlers.NewOrderHandler(db, orderSvc, productCache)
	mux.Handle("POST /orders/new", protected(oh.Create))
	mux.Handle("GET /orders", protected(oh.List))
	mux.Handle("GET /orders/{id}", protected(oh.Get))
	mux.Handle("PUT /orders/{id}", protected(oh.Update))
	mux.Handle("DELETE /orders/{id}", protected(oh.Cancel))

	ch := handlers.NewClientHandler(db)
	mux.Handle("GET /clients", protected(ch.List))
	mux.Handle("POST /clients", protected(ch.Create))

	uh := handlers.NewUserHandler(db)
	mux.Handle("GET /users", protected(uh.List))
	mux.Handle("PUT /users/{id}", protected(uh.Update))

	return withRecover(withLogging(mux))
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
