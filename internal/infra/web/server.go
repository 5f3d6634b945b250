package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-crypto-shop/internal/domain"
	"telegram-crypto-shop/internal/domain/ports/adapter"
	"telegram-crypto-shop/internal/infra/payment"
	"telegram-crypto-shop/internal/usecase"
)

const signatureHeader = "crypto-pay-api-signature"

// Server exposes the Crypto Pay webhook plus health and metrics endpoints.
type Server struct {
	httpServer *http.Server
	purchases  usecase.PurchaseUseCase
	token      string
	log        *zerolog.Logger
}

func NewServer(port int, webhookPath, gatewayToken string, purchases usecase.PurchaseUseCase, logger *zerolog.Logger) *Server {
	s := &Server{
		purchases: purchases,
		token:     gatewayToken,
		log:       logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Post(webhookPath, s.handleCryptoPayWebhook)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}
	return s
}

// Start blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("webhook server listening")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// webhookUpdate is the Crypto Pay delivery envelope. Only invoice_paid is
// produced today; any other update type is acknowledged and dropped.
type webhookUpdate struct {
	UpdateType string `json:"update_type"`
	Payload    struct {
		InvoiceID int64  `json:"invoice_id"`
		Status    string `json:"status"`
		Asset     string `json:"asset"`
		Amount    string `json:"amount"`
		PaidAt    string `json:"paid_at"`
	} `json:"payload"`
}

func (s *Server) handleCryptoPayWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	if !payment.VerifyWebhookSignature(s.token, body, r.Header.Get(signatureHeader)) {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("webhook signature mismatch")
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	var upd webhookUpdate
	if err := json.Unmarshal(body, &upd); err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}
	if upd.UpdateType != "invoice_paid" {
		s.log.Debug().Str("update_type", upd.UpdateType).Msg("webhook update ignored")
		w.WriteHeader(http.StatusOK)
		return
	}

	n := adapter.PaidNotification{
		GatewayInvoiceID: upd.Payload.InvoiceID,
		Asset:            upd.Payload.Asset,
		Amount:           upd.Payload.Amount,
	}
	if upd.Payload.PaidAt != "" {
		if t, perr := time.Parse(time.RFC3339, upd.Payload.PaidAt); perr == nil {
			n.PaidAt = t
		}
	}

	applied, err := s.purchases.MarkPaid(r.Context(), n)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// An invoice we never issued; acknowledging stops pointless retries.
		s.log.Warn().Int64("invoice_id", n.GatewayInvoiceID).Msg("paid notification for unknown invoice")
		w.WriteHeader(http.StatusOK)
	case err != nil:
		s.log.Error().Err(err).Int64("invoice_id", n.GatewayInvoiceID).Msg("paid notification failed")
		// 5xx makes the gateway redeliver once storage recovers.
		http.Error(w, "internal error", http.StatusInternalServerError)
	default:
		if !applied {
			s.log.Info().Int64("invoice_id", n.GatewayInvoiceID).Msg("paid notification already applied")
		}
		w.WriteHeader(http.StatusOK)
	}
}
