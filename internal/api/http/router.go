package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"boardgame-rental-backend/internal/config"
	"boardgame-rental-backend/internal/metrics"
	"boardgame-rental-backend/internal/security"
	"boardgame-rental-backend/internal/service"
)

// Deps is everything the HTTP surface is built from.
type Deps struct {
	Inventory    service.InventoryService
	Rentals      service.RentalService
	Orders       service.OrderService
	Auth         service.AuthService
	Snapshots    service.SnapshotService
	TokenManager security.TokenManager
	Hub          Subscriber
	RateLimiter  *RateLimiter // nil disables rate limiting
}

// NewRouter wires every route. Route names key the security table in config.
func NewRouter(d Deps) *mux.Router {
	router := mux.NewRouter()

	games := NewGameHandler(d.Inventory)
	rentals := NewRentalHandler(d.Rentals)
	orders := NewOrderHandler(d.Orders)
	auth := NewAuthHandler(d.Auth)
	ws := NewWSHandler(d.TokenManager, d.Snapshots, d.Hub)

	router.HandleFunc("/healthz", healthz).Methods(http.MethodGet).Name(config.RouteHealth)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet).Name(config.RouteMetrics)
	router.HandleFunc("/ws", ws.Serve).Methods(http.MethodGet).Name(config.RouteSubscribe)

	router.HandleFunc("/auth/login", auth.Login).Methods(http.MethodPost).Name(config.RouteLogin)
	router.HandleFunc("/users", auth.CreateUser).Methods(http.MethodPost).Name(config.RouteCreateUser)

	router.HandleFunc("/games", games.List).Methods(http.MethodGet).Name(config.RouteListGames)
	router.HandleFunc("/games", games.Create).Methods(http.MethodPost).Name(config.RouteCreateGame)
	router.HandleFunc("/games/{id:[0-9]+}", games.Get).Methods(http.MethodGet).Name(config.RouteGetGame)
	router.HandleFunc("/games/{id:[0-9]+}", games.Update).Methods(http.MethodPatch).Name(config.RouteUpdateGame)
	router.HandleFunc("/games/{id:[0-9]+}", games.Delete).Methods(http.MethodDelete).Name(config.RouteDeleteGame)
	router.HandleFunc("/games/{id:[0-9]+}/adjust", games.Adjust).Methods(http.MethodPost).Name(config.RouteAdjustGame)
	router.HandleFunc("/games/{id:[0-9]+}/reconcile", games.Reconcile).Methods(http.MethodGet).Name(config.RouteReconcileGame)

	router.HandleFunc("/rentals", rentals.List).Methods(http.MethodGet).Name(config.RouteListRentals)
	router.HandleFunc("/rentals", rentals.Create).Methods(http.MethodPost).Name(config.RouteCreateRental)
	router.HandleFunc("/rentals/{id:[0-9]+}", rentals.Get).Methods(http.MethodGet).Name(config.RouteGetRental)
	router.HandleFunc("/rentals/{id:[0-9]+}", rentals.Delete).Methods(http.MethodDelete).Name(config.RouteDeleteRental)
	router.HandleFunc("/rentals/{id:[0-9]+}/return", rentals.Return).Methods(http.MethodPatch).Name(config.RouteReturnRental)

	router.HandleFunc("/orders", orders.List).Methods(http.MethodGet).Name(config.RouteListOrders)
	router.HandleFunc("/orders", orders.Create).Methods(http.MethodPost).Name(config.RouteCreateOrder)
	router.HandleFunc("/orders/{id:[0-9]+}", orders.Get).Methods(http.MethodGet).Name(config.RouteGetOrder)
	router.HandleFunc("/orders/{id:[0-9]+}/accept", orders.Accept).Methods(http.MethodPatch).Name(config.RouteAcceptOrder)
	router.HandleFunc("/orders/{id:[0-9]+}/cancel", orders.Cancel).Methods(http.MethodPatch).Name(config.RouteCancelOrder)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "route not found"})
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	router.Use(requestLogger, metrics.Middleware, NewAuthMiddleware(d.TokenManager).Handler)
	if d.RateLimiter != nil {
		router.Use(d.RateLimiter.Handler)
	}
	return router
}

func healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
