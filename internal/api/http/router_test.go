package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardgame-rental-backend/internal/broadcast"
	"boardgame-rental-backend/internal/domain"
	"boardgame-rental-backend/internal/repository/memory"
	"boardgame-rental-backend/internal/security"
	"boardgame-rental-backend/internal/service"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type apiFixture struct {
	t      *testing.T
	store  *memory.Store
	tokens security.TokenManager
	hub    *broadcast.Hub
	server *httptest.Server

	adminToken string
	staffToken string
	userToken  string
	userID     int32
}

func newAPIFixture(t *testing.T, limiter *RateLimiter) *apiFixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	tokens := security.NewTokenManager(testSecret, time.Hour)
	hub := broadcast.NewHub(16)
	outbox := broadcast.NewOutbox(64, hub)
	outbox.Start()

	auth := service.NewAuthService(store.Repositories, tokens)
	router := NewRouter(Deps{
		Inventory:    service.NewInventoryService(store, store.Repositories, outbox),
		Rentals:      service.NewRentalService(store, store.Repositories, outbox),
		Orders:       service.NewOrderService(store, store.Repositories, outbox),
		Auth:         auth,
		Snapshots:    service.NewSnapshotService(store),
		TokenManager: tokens,
		Hub:          hub,
		RateLimiter:  limiter,
	})
	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		outbox.Close()
		hub.Close()
	})

	f := &apiFixture{t: t, store: store, tokens: tokens, hub: hub, server: server}

	admin, err := auth.EnsureAdmin(ctx, "admin@example.com", "admin-password")
	require.NoError(t, err)
	f.adminToken = f.token(admin)

	adminCaller := domain.Caller{UserID: admin.ID, Role: admin.Role}
	staff, err := auth.CreateUser(ctx, adminCaller, service.NewUser{
		Email: "staff@example.com", Name: "Staff", Role: "RENTAL_STAFF", Password: "staff-password",
	})
	require.NoError(t, err)
	f.staffToken = f.token(staff)

	user, err := auth.CreateUser(ctx, adminCaller, service.NewUser{
		Email: "ann@example.com", Name: "Ann", Role: "USER", Password: "user-password", BorrowerIndex: "123456",
	})
	require.NoError(t, err)
	f.userToken = f.token(user)
	f.userID = user.ID
	return f
}

func (f *apiFixture) token(u *domain.User) string {
	f.t.Helper()
	token, err := f.tokens.GenerateAccessToken(u)
	require.NoError(f.t, err)
	return token
}

func (f *apiFixture) do(method, path, token string, body any) *http.Response {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(f.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.server.Client().Do(req)
	require.NoError(f.t, err)
	f.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (f *apiFixture) createGame(title string, amount int32) domain.Game {
	f.t.Helper()
	resp := f.do(http.MethodPost, "/games", f.adminToken, domain.GameSpec{Title: title, Amount: amount})
	require.Equal(f.t, http.StatusCreated, resp.StatusCode)
	return decode[domain.Game](f.t, resp)
}

func TestRouter_PublicAndProtectedRoutes(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp := f.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))

	resp = f.do(http.MethodGet, "/games", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(http.MethodGet, "/games", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(http.MethodGet, "/games", f.userToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]domain.Game](t, resp))

	resp = f.do(http.MethodGet, "/nowhere", f.userToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_Login(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp := f.do(http.MethodPost, "/auth/login", "", loginRequest{Email: "ann@example.com", Password: "user-password"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[loginResponse](t, resp)
	assert.Equal(t, "Bearer", body.TokenType)
	assert.Equal(t, domain.RoleUser, body.User.Role)

	resp = f.do(http.MethodGet, "/games", body.AccessToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(http.MethodPost, "/auth/login", "", loginRequest{Email: "ann@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_CreateUserRequiresAdmin(t *testing.T) {
	f := newAPIFixture(t, nil)
	input := service.NewUser{Email: "bob@example.com", Name: "Bob", Role: "USER", Password: "bob-password"}

	resp := f.do(http.MethodPost, "/users", f.staffToken, input)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(http.MethodPost, "/users", f.adminToken, input)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(http.MethodPost, "/users", f.adminToken, input)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRouter_GameAdministration(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp := f.do(http.MethodPost, "/games", f.staffToken, domain.GameSpec{Title: "Catan", Amount: 2})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	game := f.createGame("Catan", 2)
	assert.Equal(t, int32(2), game.Quantity)

	resp = f.do(http.MethodPost, "/games", f.adminToken, domain.GameSpec{Title: "catan", Amount: 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = f.do(http.MethodPost, "/games", f.adminToken, map[string]any{"title": "Dixit", "copies": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	desc := "trading and building"
	resp = f.do(http.MethodPatch, "/games/"+itoa(game.ID), f.adminToken, domain.GamePatch{Description: &desc})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, desc, decode[domain.Game](t, resp).Description)

	resp = f.do(http.MethodPost, "/games/"+itoa(game.ID)+"/adjust", f.adminToken, adjustRequest{Delta: 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(http.MethodGet, "/games/"+itoa(game.ID)+"/reconcile", f.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[domain.StockReport](t, resp).Consistent)

	resp = f.do(http.MethodDelete, "/games/"+itoa(game.ID), f.adminToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(http.MethodGet, "/games/"+itoa(game.ID), f.userToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_RentalLifecycle(t *testing.T) {
	f := newAPIFixture(t, nil)
	game := f.createGame("Azul", 1)

	resp := f.do(http.MethodPost, "/rentals", f.staffToken, createRentalRequest{Index: "abc", GameID: game.ID})
	assert.Equal(t, http.StatusNotAcceptable, resp.StatusCode)

	resp = f.do(http.MethodPost, "/rentals", f.userToken, createRentalRequest{Index: "123456", GameID: game.ID})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(http.MethodPost, "/rentals", f.staffToken, createRentalRequest{Index: "123456", GameID: game.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	rental := decode[domain.Rental](t, resp)
	assert.Nil(t, rental.ReturnedAt)

	resp = f.do(http.MethodPost, "/rentals", f.staffToken, createRentalRequest{Index: "SD1234", GameID: game.ID})
	assert.Equal(t, http.StatusNotAcceptable, resp.StatusCode)

	resp = f.do(http.MethodGet, "/rentals?active=true", f.userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]domain.Rental](t, resp), 1)

	resp = f.do(http.MethodGet, "/rentals?active=maybe", f.userToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(http.MethodPatch, "/rentals/"+itoa(rental.ID)+"/return", f.staffToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, decode[domain.Rental](t, resp).ReturnedAt)

	resp = f.do(http.MethodPatch, "/rentals/"+itoa(rental.ID)+"/return", f.staffToken, nil)
	assert.Equal(t, http.StatusNotAcceptable, resp.StatusCode)

	resp = f.do(http.MethodGet, "/games/"+itoa(game.ID), f.userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), decode[domain.Game](t, resp).Quantity)

	resp = f.do(http.MethodDelete, "/rentals/"+itoa(rental.ID), f.staffToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(http.MethodGet, "/rentals/"+itoa(rental.ID), f.staffToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_OrderWorkflow(t *testing.T) {
	f := newAPIFixture(t, nil)
	game := f.createGame("Carcassonne", 1)
	soldOut := f.createGame("Root", 1)

	resp := f.do(http.MethodPost, "/rentals", f.staffToken, createRentalRequest{Index: "SD0001", GameID: soldOut.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(http.MethodPost, "/orders", f.userToken, createOrderRequest{GameID: soldOut.ID})
	assert.Equal(t, http.StatusNotAcceptable, resp.StatusCode)

	resp = f.do(http.MethodPost, "/orders", f.userToken, createOrderRequest{GameID: game.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	order := decode[domain.Order](t, resp)
	assert.Equal(t, domain.OrderStatusWaiting, order.Status)
	assert.Equal(t, f.userID, order.UserID)

	resp = f.do(http.MethodGet, "/orders?status=waiting", f.userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]domain.Order](t, resp), 1)

	resp = f.do(http.MethodPatch, "/orders/"+itoa(order.ID)+"/accept", f.userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(http.MethodPatch, "/orders/"+itoa(order.ID)+"/accept", f.staffToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	accepted := decode[domain.Order](t, resp)
	assert.Equal(t, domain.OrderStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.RentalID)

	resp = f.do(http.MethodPatch, "/orders/"+itoa(order.ID)+"/cancel", f.userToken, nil)
	assert.Equal(t, http.StatusNotAcceptable, resp.StatusCode)

	resp = f.do(http.MethodGet, "/games/"+itoa(game.ID), f.userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(0), decode[domain.Game](t, resp).Quantity)
}

func TestRouter_RateLimit(t *testing.T) {
	f := newAPIFixture(t, NewRateLimiter(1, 1))

	resp := f.do(http.MethodGet, "/games", f.userToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(http.MethodGet, "/games", f.userToken, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// Buckets are per caller.
	resp = f.do(http.MethodGet, "/games", f.staffToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	cases := map[domain.ErrorKind]int{
		domain.KindNotFound:      http.StatusNotFound,
		domain.KindInvalidInput:  http.StatusBadRequest,
		domain.KindNotAcceptable: http.StatusNotAcceptable,
		domain.KindConflict:      http.StatusConflict,
		domain.KindUnauthorized:  http.StatusUnauthorized,
		domain.KindForbidden:     http.StatusForbidden,
		domain.KindInternal:      http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, statusFor(kind), kind)
	}
}

func itoa(id int32) string {
	return strconv.Itoa(int(id))
}
