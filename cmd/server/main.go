package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/ofa-alumni/ofatechdotorg/api/handler"
	"github.com/ofa-alumni/ofatechdotorg/internal/config"
	"github.com/ofa-alumni/ofatechdotorg/internal/identity"
	"github.com/ofa-alumni/ofatechdotorg/internal/infrastructure/monitor"
	"github.com/ofa-alumni/ofatechdotorg/internal/middleware"
	"github.com/ofa-alumni/ofatechdotorg/internal/router"
	"github.com/ofa-alumni/ofatechdotorg/internal/services/lifecycle"
	"github.com/ofa-alumni/ofatechdotorg/pkg/httpcontext"
	"github.com/ofa-alumni/ofatechdotorg/pkg/logger"
	authUC "github.com/ofa-alumni/ofatechdotorg/usecase/auth"
	directoryUC "github.com/ofa-alumni/ofatechdotorg/usecase/directory"
	invitationUC "github.com/ofa-alumni/ofatechdotorg/usecase/invitation"
	profileUC "github.com/ofa-alumni/ofatechdotorg/usecase/profile"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	appCtx, cancel := manager.Listen(context.Background())
	defer cancel()

	store, err := openStore(appCtx, cfg, manager, zapLogger)
	if err != nil {
		zapLogger.Fatal("directory store unavailable", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}

	cache, err := openCache(appCtx, cfg, manager, zapLogger)
	if err != nil {
		zapLogger.Fatal("cache unavailable", zap.String("driver", cfg.Cache.Driver), zap.Error(err))
	}

	sender, err := newSender(cfg, manager, zapLogger)
	if err != nil {
		zapLogger.Fatal("mail transport unavailable", zap.String("transport", cfg.Mail.Transport), zap.Error(err))
	}

	mail, err := openOutbox(cfg, sender, manager, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to open mail outbox", zap.Error(err))
	}

	mon := monitor.New(monitor.Checks{
		Store:  store.ping,
		Cache:  cache.ping,
		Outbox: mail.sizer,
	}, 10*time.Second, zapLogger)
	mon.Start()
	manager.RegisterFunc("monitor", mon.Stop)

	provider := identity.NewProvider(identity.Config{
		LoginURL:  cfg.Identity.LoginURL,
		LogoutURL: cfg.Identity.LogoutURL,
		Secret:    cfg.Identity.Secret,
		Issuer:    cfg.Identity.Issuer,
		PublicURL: cfg.HTTP.PublicURL,
	})

	authUseCase := authUC.New(cache.sessions, cfg.Session.TTL, zapLogger)
	directoryUseCase := directoryUC.New(store.people, cache.directory, zapLogger)
	profileUseCase := profileUC.New(store.people, directoryUseCase, zapLogger)
	invitationUseCase := invitationUC.New(
		store.invitations,
		store.people,
		sender,
		mail.outbox,
		invitationUC.Config{
			BaseURL:            cfg.HTTP.PublicURL,
			ReinviteAfterClaim: cfg.Invitation.ReinviteAfterClaim,
			BootstrapToken:     cfg.Invitation.BootstrapToken,
		},
		zapLogger,
	)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth: apiHandler.NewAuthHandler(authUseCase, profileUseCase, provider, apiHandler.CookieConfig{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.Secure,
		}, ctxAdapter, zapLogger),
		Profile:    apiHandler.NewProfileHandler(profileUseCase, ctxAdapter, zapLogger),
		Directory:  apiHandler.NewDirectoryHandler(directoryUseCase, profileUseCase, ctxAdapter, zapLogger),
		Invitation: apiHandler.NewInvitationHandler(invitationUseCase, profileUseCase, ctxAdapter, zapLogger),
		Health:     apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	auth := middleware.NewAuth(middleware.AuthConfig{
		CookieName: cfg.Session.CookieName,
		Sessions:   authUseCase,
		Tokens:     provider,
		LoginURL:   provider.LoginURL,
		Adapter:    ctxAdapter,
		Logger:     zapLogger,
	})
	r := router.New(handlers, auth)

	server := &fasthttp.Server{
		Handler:            r.Handler,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		Concurrency:        cfg.HTTP.MaxConn,
		Name:               cfg.AppName,
		MaxRequestBodySize: 1 << 20,
	}

	go func() {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("store", cfg.Store.Driver),
			zap.String("cache", cfg.Cache.Driver),
			zap.String("mail", cfg.Mail.Transport))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Error("server crashed", zap.Error(err))
			cancel()
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
