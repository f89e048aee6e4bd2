package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-memberships/app/controller"
	membershipsgrpc "github.com/vibast-solutions/ms-go-memberships/app/grpc"
	"github.com/vibast-solutions/ms-go-memberships/app/locker"
	"github.com/vibast-solutions/ms-go-memberships/app/middleware"
	"github.com/vibast-solutions/ms-go-memberships/app/provider"
	"github.com/vibast-solutions/ms-go-memberships/app/repository"
	"github.com/vibast-solutions/ms-go-memberships/app/service"
	"github.com/vibast-solutions/ms-go-memberships/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start both HTTP (Echo) and gRPC servers for the memberships service.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// services is the wired service layer shared by serve, the job commands and
// the scheduler.
type services struct {
	orders        *service.OrderService
	inviteCodes   *service.InviteCodeService
	settings      *service.SettingsService
	email         *service.EmailService
	subscriptions *service.SubscriptionService
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, svc, cleanup := mustCreateServices()
	defer cleanup()

	authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), cfg.InternalEndpoints.AuthGRPCAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
	}
	defer authGRPCClient.Close()

	internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
	echoInternalAuthMiddleware := authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService)
	grpcInternalAuthMiddleware := authmiddleware.NewGRPCInternalAuthMiddleware(internalAuthService)

	sessions := middleware.NewSessionMiddleware(cfg.Auth.JWTSecret, cfg.Auth.AdminUsername)
	e := setupHTTPServer(svc, sessions, echoInternalAuthMiddleware, cfg.App.ServiceName)
	grpcSrv, lis := setupGRPCServer(cfg, membershipsgrpc.NewServer(svc.orders, svc.inviteCodes, svc.settings), grpcInternalAuthMiddleware, cfg.App.ServiceName)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	go func() {
		logrus.WithField("addr", lis.Addr().String()).Info("Starting gRPC server")
		if err := grpcSrv.Serve(lis); err != nil {
			logrus.WithError(err).Fatal("gRPC server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}
	grpcSrv.GracefulStop()

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	svc *services,
	sessions *middleware.SessionMiddleware,
	internalAuthMiddleware *authmiddleware.EchoInternalAuthMiddleware,
	appServiceName string,
) *echo.Echo {
	orderController := controller.NewOrderController(svc.orders)
	paymentController := controller.NewPaymentController(svc.orders, svc.settings)
	settingsController := controller.NewSettingsController(svc.settings, svc.email)
	inviteCodeController := controller.NewInviteCodeController(svc.inviteCodes, svc.settings)
	subscriptionController := controller.NewSubscriptionController(svc.subscriptions)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
				"request_id": v.RequestID,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", orderController.Health)

	orders := e.Group("/orders")
	orders.POST("", orderController.CreateOrder, sessions.Optional())
	orders.GET("", orderController.ListOrders, sessions.Optional())
	orders.GET("/:id", orderController.GetOrder, sessions.Optional())

	payment := e.Group("/payment")
	payment.GET("/status", paymentController.Status)
	payment.POST("/qrcode", paymentController.CreateQRCode)
	payment.POST("/query", paymentController.QueryOrder)
	payment.POST("/callback/xorpay", paymentController.XorPayCallback)
	payment.GET("/callback/xorpay", paymentController.XorPayCallbackInfo)
	payment.POST("/refund", paymentController.Refund, sessions.RequireAdmin())
	payment.GET("/diagnose", paymentController.Diagnose, sessions.RequireAdmin())

	inviteCodes := e.Group("/invite-codes")
	inviteCodes.POST("/verify", inviteCodeController.VerifyInviteCode)
	inviteCodes.GET("/stock", inviteCodeController.Stock)
	inviteCodes.POST("/redeem", inviteCodeController.RedeemInviteCode, sessions.RequireUser())

	e.GET("/membership", inviteCodeController.GetMembership, sessions.RequireUser())
	e.GET("/membership/config", settingsController.GetMembershipConfig)

	subscriptions := e.Group("/subscriptions", sessions.RequireUser())
	subscriptions.GET("", subscriptionController.ListSubscriptions)
	subscriptions.POST("", subscriptionController.CreateSubscription)
	subscriptions.PATCH("/:id", subscriptionController.UpdateSubscription)
	subscriptions.DELETE("/:id", subscriptionController.DeleteSubscription)

	admin := e.Group("/admin", sessions.RequireAdmin())
	admin.GET("/payment-config", settingsController.GetPaymentConfig)
	admin.PUT("/payment-config", settingsController.SavePaymentConfig)
	admin.GET("/email-config", settingsController.GetEmailConfig)
	admin.PUT("/email-config", settingsController.SaveEmailConfig)
	admin.POST("/email-config/test", settingsController.SendTestEmail)
	admin.GET("/purchase-limits", settingsController.GetPurchaseLimits)
	admin.PUT("/purchase-limits", settingsController.SavePurchaseLimits)
	admin.PUT("/membership-config", settingsController.SaveMembershipConfig)
	admin.GET("/invite-codes", inviteCodeController.ListInviteCodes)
	admin.POST("/invite-codes", inviteCodeController.GenerateInviteCodes)
	admin.DELETE("/invite-codes/:code", inviteCodeController.DeleteInviteCode)

	internal := e.Group("/internal", internalAuthMiddleware.RequireInternalAccess(appServiceName))
	internal.GET("/memberships/:username", inviteCodeController.GetMembershipInternal)

	return e
}

func setupGRPCServer(
	cfg *config.Config,
	membershipsServer *membershipsgrpc.Server,
	internalAuthMiddleware *authmiddleware.GRPCInternalAuthMiddleware,
	appServiceName string,
) (*grpc.Server, net.Listener) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			membershipsgrpc.RecoveryInterceptor(),
			membershipsgrpc.RequestIDInterceptor(),
			membershipsgrpc.LoggingInterceptor(),
			internalAuthMiddleware.UnaryRequireInternalAccess(appServiceName),
		),
	)
	membershipsgrpc.RegisterMembershipsServiceServer(grpcSrv, membershipsServer)

	return grpcSrv, lis
}

func mustCreateServices() (*config.Config, *services, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping redis")
	}

	locks := locker.NewRedisLocker(rdb, locker.Config{
		Prefix: cfg.Redis.KeyPrefix,
		TTL:    cfg.Memberships.LockTTL,
	}, logrus.WithField("module", "locker"))

	settingsService := service.NewSettingsService(repository.NewSettingsRepository(rdb, cfg.Redis.KeyPrefix), cfg.Email)
	emailService := service.NewEmailService(settingsService, cfg.App.SiteName, nil)

	xorPay := provider.NewXorPayProvider(provider.XorPayConfig{
		Endpoints:   cfg.XorPay.Endpoints,
		HTTPTimeout: cfg.XorPay.HTTPTimeout,
	})

	codeRepo := repository.NewInviteCodeRepository(db)
	orderService := service.NewOrderService(service.OrderServiceDeps{
		Orders:    repository.NewOrderRepository(db),
		Codes:     codeRepo,
		Events:    repository.NewOrderEventRepository(db),
		Callbacks: repository.NewGatewayCallbackRepository(db),
		Settings:  settingsService,
		Locks:     locks,
		Providers: provider.NewRegistry(xorPay),
		Mailer:    emailService,
		Diagnoser: xorPay,
		App:       cfg.App,
		Config:    cfg.Memberships,
	})
	inviteCodeService := service.NewInviteCodeService(
		codeRepo,
		repository.NewMembershipRepository(db),
		settingsService,
		locks,
		cfg.Memberships,
	)

	svc := &services{
		orders:        orderService,
		inviteCodes:   inviteCodeService,
		settings:      settingsService,
		email:         emailService,
		subscriptions: service.NewSubscriptionService(repository.NewSubscriptionRepository(db)),
	}

	cleanup := func() {
		if err := rdb.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close redis client")
		}
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, svc, cleanup
}
