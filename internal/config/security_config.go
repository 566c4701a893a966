package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
)

// Route names, shared by the router and the security table.
const (
	RouteHealth  = "health"
	RouteMetrics = "metrics"
	RouteLogin   = "auth.login"

	RouteCreateUser = "users.create"

	RouteListGames     = "games.list"
	RouteGetGame       = "games.get"
	RouteCreateGame    = "games.create"
	RouteUpdateGame    = "games.update"
	RouteDeleteGame    = "games.delete"
	RouteReconcileGame = "games.reconcile"
	RouteAdjustGame    = "games.adjust"

	RouteListRentals  = "rentals.list"
	RouteGetRental    = "rentals.get"
	RouteCreateRental = "rentals.create"
	RouteReturnRental = "rentals.return"
	RouteDeleteRental = "rentals.delete"

	RouteListOrders  = "orders.list"
	RouteGetOrder    = "orders.get"
	RouteCreateOrder = "orders.create"
	RouteAcceptOrder = "orders.accept"
	RouteCancelOrder = "orders.cancel"

	// The push channel authenticates itself during the upgrade so it can
	// close the socket with a policy-violation frame.
	RouteSubscribe = "ws.subscribe"
)

// EndpointSecurityConfig maps route names to their required security level.
// Role checks happen in the services; this table only decides whether a
// credential must be present at all.
var EndpointSecurityConfig = map[string]SecurityLevel{
	RouteHealth:    SecurityPublic,
	RouteMetrics:   SecurityPublic,
	RouteLogin:     SecurityPublic,
	RouteSubscribe: SecurityPublic,

	RouteCreateUser: SecurityAccess,

	RouteListGames:     SecurityAccess,
	RouteGetGame:       SecurityAccess,
	RouteCreateGame:    SecurityAccess,
	RouteUpdateGame:    SecurityAccess,
	RouteDeleteGame:    SecurityAccess,
	RouteReconcileGame: SecurityAccess,
	RouteAdjustGame:    SecurityAccess,

	RouteListRentals:  SecurityAccess,
	RouteGetRental:    SecurityAccess,
	RouteCreateRental: SecurityAccess,
	RouteReturnRental: SecurityAccess,
	RouteDeleteRental: SecurityAccess,

	RouteListOrders:  SecurityAccess,
	RouteGetOrder:    SecurityAccess,
	RouteCreateOrder: SecurityAccess,
	RouteAcceptOrder: SecurityAccess,
	RouteCancelOrder: SecurityAccess,
}

// GetSecurityLevel returns the security level for a given route
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAccess
}
