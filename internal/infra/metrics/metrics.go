// File: internal/infra/metrics/metrics.go
package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Inbound updates processed, by event kind.",
		},
		[]string{"kind"},
	)

	usersCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_users_created_total",
			Help: "New user records created on first contact.",
		},
	)

	invoicesCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shop_invoices_created_total",
			Help: "Invoices successfully created on the payment gateway.",
		},
	)

	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_payments_total",
			Help: "Paid notifications by outcome (applied/duplicate/failed).",
		},
		[]string{"outcome"},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			updatesTotal, usersCreatedTotal, invoicesCreatedTotal, paymentsTotal,
		)
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncUpdate(kind string)     { updatesTotal.WithLabelValues(norm(kind)).Inc() }
func IncUserCreated()           { usersCreatedTotal.Inc() }
func IncInvoiceCreated()        { invoicesCreatedTotal.Inc() }
func IncPayment(outcome string) { paymentsTotal.WithLabelValues(norm(outcome)).Inc() }
