package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/engineer-developer/marketplace/internal/auth"
	"github.com/engineer-developer/marketplace/internal/banner"
	"github.com/engineer-developer/marketplace/internal/basket"
	"github.com/engineer-developer/marketplace/internal/category"
	"github.com/engineer-developer/marketplace/internal/config"
	"github.com/engineer-developer/marketplace/internal/database"
	"github.com/engineer-developer/marketplace/internal/logging"
	"github.com/engineer-developer/marketplace/internal/order"
	"github.com/engineer-developer/marketplace/internal/product"
	"github.com/engineer-developer/marketplace/internal/tag"
	"github.com/engineer-developer/marketplace/internal/user"
)

type publicRoutes interface {
	RegisterPublicRoutes(r fiber.Router)
}

type protectedRoutes interface {
	RegisterProtectedRoutes(r fiber.Router)
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Money is sent as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal("migrate database", zap.Error(err))
	}

	deny := auth.NewDenylist()
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)

	userService := user.NewService(user.NewPostgresRepository(db), log)
	categoryService := category.NewService(category.NewPostgresRepository(db))
	tagService := tag.NewService(tag.NewPostgresRepository(db), categoryService)
	productService := product.NewService(product.NewPostgresRepository(db), categoryService, log)
	bannerService := banner.NewService(categoryService, productService, log)
	basketService := basket.NewService(basket.NewPostgresRepository(db), productService, log)
	orderService := order.NewService(order.NewPostgresRepository(db), productService, userService, basketService, order.NewCardValidator(), log)

	app := fiber.New(fiber.Config{
		ProxyHeader:  fiber.HeaderXForwardedFor,
		ErrorHandler: errorHandler(log),
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: cfg.AllowOrigins != "*",
	}))
	app.Use(logging.RequestLogger(log))
	app.Static("/media", cfg.MediaDir)

	handlers := []any{
		user.NewHandler(userService, issuer, deny, cfg.MediaDir, log),
		category.NewHandler(categoryService, log),
		tag.NewHandler(tagService, log),
		banner.NewHandler(bannerService, log),
		product.NewHandler(productService, userService, log),
		basket.NewHandler(basketService, cfg.SessionCookie, cfg.SessionTTL, log),
		order.NewHandler(orderService, log),
	}

	// Public routes see the caller when a valid token is sent.
	app.Use(auth.Optional(cfg.JWTSecret, deny))
	for _, h := range handlers {
		if p, ok := h.(publicRoutes); ok {
			p.RegisterPublicRoutes(app)
		}
	}

	// Everything registered after this point requires a token.
	protected := app.Group("", auth.Required(cfg.JWTSecret, deny))
	for _, h := range handlers {
		if p, ok := h.(protectedRoutes); ok {
			p.RegisterProtectedRoutes(protected)
		}
	}

	go basketService.RunJanitor(ctx, cfg.JanitorInterval, cfg.SessionTTL)

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdown); err != nil {
			log.Error("shutdown", zap.Error(err))
		}
	}()

	log.Info("starting server", zap.String("addr", cfg.Addr))
	if err := app.Listen(cfg.Addr); err != nil {
		log.Error("server stopped", zap.Error(err))
	}
}

func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{"message": err.Error()})
	}
}
