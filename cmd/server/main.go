package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/soaringjerry/BariCheck/internal/api"
	"github.com/soaringjerry/BariCheck/internal/metrics"
	"github.com/soaringjerry/BariCheck/internal/middleware"
	"github.com/soaringjerry/BariCheck/internal/questionnaire"
	"github.com/soaringjerry/BariCheck/internal/services"
	"github.com/soaringjerry/BariCheck/internal/utils"
)

func main() {
	addr := utils.SafeEnv("BARI_ADDR", ":8080")
	commit := utils.SafeEnv("BARI_COMMIT", "")
	buildTime := utils.SafeEnv("BARI_BUILD_TIME", "")
	configPath := utils.SafeEnv("BARI_CONFIG_PATH", "config/questions.yaml")

	doc, err := questionnaire.Load(configPath)
	if err != nil {
		log.Fatalf("load questionnaire: %v", err)
	}
	log.Printf("questionnaire %q v%s loaded from %s (%d questions)",
		doc.Metadata.Title, doc.Metadata.Version, configPath, len(doc.Questions))

	store, closeStore, err := openStore(utils.SafeEnv("BARI_SQLITE_PATH", ""), utils.SafeEnv("BARI_MIGRATIONS_DIR", ""))
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Printf("warning: failed to close store: %v", err)
		}
	}()

	recorder := metrics.NewRecorder()
	opts := api.Options{Observer: recorder}
	if secret := utils.SafeEnv("BARI_RECEIPT_SECRET", ""); secret != "" {
		signer, err := services.NewReceiptSigner([]byte(secret), utils.SafeEnvDuration("BARI_RECEIPT_TTL", 720*time.Hour))
		if err != nil {
			log.Fatalf("receipts: %v", err)
		}
		opts.Receipts = signer
	} else {
		log.Printf("receipts: BARI_RECEIPT_SECRET not set, receipts disabled")
	}
	if key := utils.SafeEnv("BARI_PSEUDONYM_KEY", ""); key != "" {
		p, err := services.NewPseudonymizer([]byte(key))
		if err != nil {
			log.Fatalf("pseudonyms: %v", err)
		}
		opts.Pseudonyms = p
	}

	mux := http.NewServeMux()
	api.NewRouter(doc, store, opts).Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "BariCheck API",
			"questions":  len(doc.Questions),
			"commit":     commit,
			"build_time": buildTime,
		})
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":     commit,
			"build_time": buildTime,
			"config":     doc.Metadata.Version,
		})
	})
	mux.Handle("/metrics", recorder.Handler())

	handler := middleware.Chain(mux,
		middleware.RequestLogger,
		middleware.CORS(utils.SafeEnvList("BARI_CORS_ORIGINS")),
		middleware.SecureHeaders,
		middleware.NoStore,
	)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("BariCheck server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server error: %v", err)
	}
}
