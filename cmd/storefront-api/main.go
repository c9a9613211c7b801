package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trellis-commerce/storefront-api/internal/api/handlers"
	"github.com/trellis-commerce/storefront-api/internal/api/middleware"
	"github.com/trellis-commerce/storefront-api/internal/cache"
	"github.com/trellis-commerce/storefront-api/internal/config"
	"github.com/trellis-commerce/storefront-api/internal/health"
	"github.com/trellis-commerce/storefront-api/internal/metrics"
	repository "github.com/trellis-commerce/storefront-api/internal/repositories"
	service "github.com/trellis-commerce/storefront-api/internal/services"
	"github.com/trellis-commerce/storefront-api/internal/token"
	"github.com/trellis-commerce/storefront-api/pkg/sendgrid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {

	// Logger setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load config
	cfg := config.MustLoad()

	// Database setup
	repos, err := repository.New(cfg)
	if err != nil {
		slog.Error("error accessing the database", "error", err.Error())
		os.Exit(1)
	}

	defer func() {
		if err := repos.Close(); err != nil {
			slog.Error("error closing database connection", slog.String("error", err.Error()))
		} else {
			slog.Info("database connection closed")
		}
	}()

	// Redis setup
	redisClient, err := repository.NewRedisClient(cfg)
	if err != nil {
		slog.Error("error accessing the redis instance", "error", err.Error())
		os.Exit(1)
	}

	rateLimiter := repository.NewRateLimitRepo(redisClient, &cfg.RateLimit)
	productCache := cache.NewRedisCache(redisClient, cfg.Cache.DefaultTTL)

	tokens := token.New([]byte(cfg.Security.JWTKey), cfg.Security.JWTExpiry)
	emailSender := sendgrid.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	imageClient := &http.Client{Timeout: cfg.ImageCheck.Timeout}

	userService := service.NewUserService(repos.User, repos.Order, rateLimiter, tokens)
	userHandler := handlers.NewUserHandler(userService, repos.User)
	productService := service.NewProductService(repos.Product, productCache, cfg.Cache.DefaultTTL)
	productHandler := handlers.NewProductHandler(productService, repos.Product, imageClient)
	cartService := service.NewCartService(repos.Cart, repos.Product)
	cartHandler := handlers.NewCartHandler(cartService, repos.Product)
	orderService := service.NewOrderService(repos.Order, repos.User, emailSender)
	orderHandler := handlers.NewOrderHandler(orderService)
	authMiddleware := middleware.NewAuthMiddleware(tokens)

	healthHandler, err := health.NewHealthHandler(cfg)
	if err != nil {
		slog.Error("error building health checks", "error", err.Error())
		os.Exit(1)
	}

	validUserID := handlers.ValidateUserID(repos.User)
	validProductID := handlers.ValidateProductID(repos.Product)
	validOrderItemID := handlers.ValidateOrderItemID(repos.Cart)
	validOrderID := handlers.ValidateOrderID(repos.Order)

	slog.Info("storage initialized", slog.String("env", cfg.Env), slog.String("version", "1.0.0"))

	// Setup router
	routerMux := http.NewServeMux()
	routerMux.HandleFunc("GET /status", handlers.Status())
	routerMux.Handle("GET /health", healthHandler.Handler())
	routerMux.Handle("GET /metrics", metrics.Handler())

	routerMux.HandleFunc("POST /users/register", userHandler.Register())
	routerMux.HandleFunc("POST /users/login", userHandler.Login())
	routerMux.HandleFunc("GET /users", authMiddleware.Authenticate(authMiddleware.RequireAdmin(userHandler.ListUsers())))
	routerMux.HandleFunc("GET /users/{userId}", authMiddleware.Authenticate(validUserID(userHandler.GetUser())))
	routerMux.HandleFunc("PUT /users/{userId}", authMiddleware.Authenticate(validUserID(userHandler.UpdateUser())))
	routerMux.HandleFunc("DELETE /users/{userId}", authMiddleware.Authenticate(validUserID(userHandler.DeleteUser())))

	routerMux.HandleFunc("GET /products", productHandler.ListProducts())
	routerMux.HandleFunc("GET /products/{productId}", validProductID(productHandler.GetProduct()))
	routerMux.HandleFunc("POST /products", authMiddleware.Authenticate(authMiddleware.RequireAdmin(productHandler.CreateProduct())))
	routerMux.HandleFunc("PUT /products/{productId}", authMiddleware.Authenticate(authMiddleware.RequireAdmin(validProductID(productHandler.UpdateProduct()))))
	routerMux.HandleFunc("DELETE /products/{productId}", authMiddleware.Authenticate(authMiddleware.RequireAdmin(validProductID(productHandler.DeleteProduct()))))

	routerMux.HandleFunc("GET /users/{userId}/orderitems", authMiddleware.Authenticate(validUserID(cartHandler.ListCartItems())))
	routerMux.HandleFunc("POST /users/{userId}/orderitems", authMiddleware.Authenticate(validUserID(cartHandler.AddCartItem())))
	routerMux.HandleFunc("GET /users/{userId}/orderitems/{orderItemId}", authMiddleware.Authenticate(validUserID(validOrderItemID(cartHandler.GetCartItem()))))
	routerMux.HandleFunc("PUT /users/{userId}/orderitems/{orderItemId}", authMiddleware.Authenticate(validUserID(validOrderItemID(cartHandler.UpdateCartItem()))))
	routerMux.HandleFunc("DELETE /users/{userId}/orderitems/{orderItemId}", authMiddleware.Authenticate(validUserID(validOrderItemID(cartHandler.DeleteCartItem()))))

	routerMux.HandleFunc("GET /users/{userId}/orders", authMiddleware.Authenticate(validUserID(orderHandler.ListOrders())))
	routerMux.HandleFunc("POST /users/{userId}/orders", authMiddleware.Authenticate(validUserID(orderHandler.CreateOrder())))
	routerMux.HandleFunc("GET /users/{userId}/orders/{orderId}", authMiddleware.Authenticate(validUserID(validOrderID(orderHandler.GetOrder()))))

	// Middleware chaining
	var handler http.Handler = routerMux
	handler = otelhttp.NewHandler(handler, "storefront-api")
	handler = middleware.Logging(handler)
	handler = metrics.Middleware(handler)

	// Setup http server
	server := http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}

	slog.Info("server is starting", slog.String("address", cfg.Addr))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("failed to start server", slog.Any("error", err.Error()))
		}
	}()

	<-done

	slog.Warn("shutdown signal received, stopping server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown encountered an issue", slog.String("error", err.Error()))
	} else {
		slog.Info("server shut down gracefully")
	}

	if err := redisClient.Close(); err != nil {
		slog.Error("error closing redis connection", slog.String("error", err.Error()))
	}
}
