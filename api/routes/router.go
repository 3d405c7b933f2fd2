package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tillworks/tillpoint-backend/api/controllers"
	"github.com/tillworks/tillpoint-backend/api/middleware"
	cartsvc "github.com/tillworks/tillpoint-backend/internal/cart"
	ordersvc "github.com/tillworks/tillpoint-backend/internal/orders"
	paymentsvc "github.com/tillworks/tillpoint-backend/internal/payments"
	sessionsvc "github.com/tillworks/tillpoint-backend/internal/sessions"
	terminalsvc "github.com/tillworks/tillpoint-backend/internal/terminals"
	zreportsvc "github.com/tillworks/tillpoint-backend/internal/zreport"
	"github.com/tillworks/tillpoint-backend/pkg/config"
	"github.com/tillworks/tillpoint-backend/pkg/logger"
)

// Deps carries everything the HTTP surface needs. Pingers may be nil when a
// backing service is not configured.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	Pingers map[string]controllers.Pinger

	Carts     cartsvc.Service
	Orders    ordersvc.Service
	Payments  paymentsvc.Service
	Sessions  sessionsvc.Service
	Terminals terminalsvc.Service
	ZReports  zreportsvc.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/terminals", func(r chi.Router) {
			r.Post("/", controllers.TerminalRegister(deps.Terminals, logg))
			r.Get("/", controllers.TerminalList(deps.Terminals, logg))
			r.Get("/{terminalId}", controllers.TerminalGet(deps.Terminals, logg))
			r.Post("/{terminalId}/activate", controllers.TerminalActivate(deps.Terminals, logg))
			r.Post("/{terminalId}/deactivate", controllers.TerminalDeactivate(deps.Terminals, logg))

			r.Route("/{terminalId}/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(deps.Carts, logg))
				r.Delete("/", controllers.CartClear(deps.Carts, logg))
				r.Get("/totals", controllers.CartTotals(deps.Carts, logg))
				r.Post("/items", controllers.CartAddItem(deps.Carts, logg))
				r.Put("/items/{lineNumber}", controllers.CartUpdateItem(deps.Carts, logg))
				r.Delete("/items/{lineNumber}", controllers.CartRemoveItem(deps.Carts, logg))
				r.Put("/discount", controllers.CartSetDiscount(deps.Carts, logg))
				r.Put("/customer", controllers.CartSetCustomer(deps.Carts, logg))
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderGet(deps.Orders, logg))
			r.Post("/{orderId}/hold", controllers.OrderHold(deps.Orders, logg))
			r.Post("/{orderId}/resume", controllers.OrderResume(deps.Orders, logg))
			r.Post("/{orderId}/void", controllers.OrderVoid(deps.Orders, logg))
			r.Post("/{orderId}/refund", controllers.OrderRefund(deps.Orders, logg))

			r.Route("/{orderId}/payments", func(r chi.Router) {
				r.Post("/", controllers.PaymentAdd(deps.Payments, logg))
				r.Post("/{paymentId}/settle", controllers.PaymentSettle(deps.Payments, logg))
				r.Post("/{paymentId}/fail", controllers.PaymentFail(deps.Payments, logg))
				r.Delete("/{paymentId}", controllers.PaymentRemove(deps.Payments, logg))
			})
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", controllers.SessionOpen(deps.Sessions, logg))
			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", controllers.SessionGet(deps.Sessions, logg))
				r.Get("/orders", controllers.OrdersBySession(deps.Orders, logg))
				r.Post("/movements", controllers.SessionMovement(deps.Sessions, logg))
				r.Post("/suspend", controllers.SessionSuspend(deps.Sessions, logg))
				r.Post("/resume", controllers.SessionResume(deps.Sessions, logg))
				r.Post("/close", controllers.SessionClose(deps.Sessions, logg))
				r.Post("/z-report", controllers.ZReportGenerate(deps.ZReports, logg))
				r.Get("/z-report/preview", controllers.ZReportPreview(deps.ZReports, logg))
			})
		})

		r.Get("/z-reports/{reportId}", controllers.ZReportGet(deps.ZReports, logg))
	})

	return r
}
