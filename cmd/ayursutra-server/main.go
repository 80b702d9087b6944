package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	goauth2 "golang.org/x/oauth2"

	oa "github.com/ayursutra/ayurauth"
	"github.com/ayursutra/ayurauth/codesvc"
	authoauth2 "github.com/ayursutra/ayurauth/oauth2"
	"github.com/ayursutra/ayurauth/stores"
	gormstores "github.com/ayursutra/ayurauth/stores/gorm"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sessionManager := scs.New()
	sessionManager.Lifetime = time.Duration(oa.MarkerMaxAge) * time.Second
	sessions := stores.NewSCSSessionStore(sessionManager)

	// Code store: redis when available, in-process otherwise.
	var codeStore oa.CodeStore = stores.NewMemoryCodeStore()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory code store", zap.Error(err))
		} else {
			codeStore = stores.NewRedisCodeStore(redisClient)
		}
		cancel()
	}

	var sender oa.CodeSender = &oa.ConsoleCodeSender{}
	if cfg.SMTPHost != "" {
		smtpSender, err := oa.NewSMTPCodeSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed, codes go to the log", zap.Error(err))
		} else {
			sender = smtpSender
		}
	}

	codeService := codesvc.New(logger, codeStore, sender)

	// Backend and code channel are fixed here, once, for the life of
	// the process. Nothing downstream branches on the mode again.
	var (
		backend     oa.IdentityBackend
		codes       oa.CodeChannel
		verifyToken func(token string) error
	)
	if cfg.IdentityBaseURL != "" {
		backend = oa.NewRESTBackend(cfg.IdentityBaseURL, cfg.IdentityAPIKey, sessions)
		codeServiceURL := cfg.CodeServiceURL
		if codeServiceURL == "" {
			codeServiceURL = fmt.Sprintf("http://127.0.0.1:%s", cfg.HTTPPort)
		}
		codes = oa.NewRemoteCodeChannel(codeServiceURL)
		logger.Info("running in provider mode", zap.String("identity", cfg.IdentityBaseURL))
	} else {
		db, err := gormstores.Open(cfg.SQLitePath)
		if err != nil {
			logger.Fatal("opening account database", zap.Error(err))
		}
		if err := gormstores.AutoMigrate(db); err != nil {
			logger.Fatal("migrating account database", zap.Error(err))
		}
		demo := oa.NewDemoBackend(gormstores.NewAccountStore(db), sessions, cfg.JWTSecret)
		backend = demo
		codes = oa.NewLocalCodeChannel(codeStore, sender)
		verifyToken = demo.VerifyToken
		logger.Info("running in demo mode", zap.String("sqlite", cfg.SQLitePath))
	}

	flow := oa.NewFlow(backend, codes, sessions)
	handlers := oa.NewAuthHandlers(flow)

	guard := &oa.RouteGuard{VerifyToken: verifyToken}
	guard.EnsureReasonableDefaults()

	router := mux.NewRouter()
	router.HandleFunc("/auth/signin", handlers.HandleSignin).Methods(http.MethodPost)
	router.HandleFunc("/auth/signup", handlers.HandleSignup).Methods(http.MethodPost)
	router.HandleFunc("/auth/verify", handlers.HandleVerify).Methods(http.MethodPost)
	router.HandleFunc("/auth/resend", handlers.HandleResend).Methods(http.MethodPost)
	router.HandleFunc("/auth/logout", handlers.HandleLogout).Methods(http.MethodPost)
	router.HandleFunc("/auth/session", handlers.HandleSession).Methods(http.MethodGet)

	google := authoauth2.NewGoogleOAuth2(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL,
		func(provider string, token *goauth2.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
			handlers.HandleSocialSignin(userInfo, w, r)
		})
	if google.Configured() {
		router.HandleFunc("/auth/google", google.HandleRedirect)
		router.HandleFunc("/auth/google/callback", google.HandleCallback)
	} else {
		logger.Info("google sign-in not configured")
	}

	router.PathPrefix("/verification/").Handler(codeService.Router())

	for _, prefix := range guard.ProtectedPrefixes {
		router.PathPrefix(prefix).Handler(placeholderPage(prefix))
	}
	router.HandleFunc("/signin", placeholderPage("/signin").ServeHTTP)

	handler := sessionManager.LoadAndSave(guard.Handler(router))

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		ctxTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxTimeout); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}

// placeholderPage stands in for the real application views behind the
// route guard.
func placeholderPage(path string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<html><body><h1>AyurSutra</h1><p>%s</p></body></html>", path)
	})
}
