// Command mock-upstream serves the demo POS collections so the passbook
// backend can run without the real POS API. It signs tokens with the same
// AUTH_SECRET the backend verifies.
package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"passbook/backend/internal/domain"
	"passbook/backend/internal/httpapi"
	"passbook/backend/internal/logging"
	"passbook/backend/internal/upstream"
	"passbook/backend/internal/upstream/fake"
)

type mockConfig struct {
	Addr       string `env:"MOCK_UPSTREAM_ADDR" envDefault:":8081"`
	AuthSecret string `env:"AUTH_SECRET,required"`
	TokenTTL   int    `env:"ACCESS_TOKEN_TTL_MINUTES" envDefault:"480"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"LOG_FORMAT" envDefault:"text"`
}

var demoUsers = []struct {
	username, password, role string
}{
	{"admin", "admin-pass", "admin"},
	{"manajer", "manager-pass", "manager"},
	{"kasir1", "cashier-pass", "cashier"},
}

func main() {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[mockConfig]()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("invalid logging configuration")
	}

	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.TokenTTL)*time.Minute, "")
	for _, u := range demoUsers {
		if err := auth.AddUser(u.username, u.password, u.role); err != nil {
			logger.WithError(err).Fatal("seed demo user")
		}
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(auth, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.Addr).Info("mock upstream listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	_ = server.Close()
}

// newHandler mounts the demo collections under /api and a login endpoint
// that exchanges demo credentials for a bearer token.
func newHandler(auth *httpapi.AuthManager, logger logrus.FieldLogger) http.Handler {
	paths := upstream.DefaultPaths()
	srv := fake.New(paths.BankTransactions)
	srv.Load(fake.Demo(), paths.For, paths.Products)
	srv.Authorize(func(token string) bool {
		_, err := auth.ParseToken(token)
		return err == nil
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req domain.LoginRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
			return
		}
		resp, err := auth.Login(req)
		if err != nil {
			logger.WithField("username", req.Username).Warn("login rejected")
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})
	mux.Handle("/api/", http.StripPrefix("/api", srv.Handler()))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Debug("request")
		mux.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
