package api

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tradejournal/internal/config"
	"tradejournal/internal/db"
	"tradejournal/internal/handlers"
	"tradejournal/internal/models"
	"tradejournal/internal/websocket"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func newTestServer(t *testing.T) *httptest.Server {
	server, _ := newTestEnv(t, nil)
	return server
}

// newTestEnv wires the full router over an in-memory database, optionally
// with a live Redis backing the stats cache.
func newTestEnv(t *testing.T, redisClient *redis.Client) (*httptest.Server, *websocket.Hub) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	cfg := &config.Config{
		Redis: config.RedisConfig{
			StatsTTL: time.Minute,
		},
		JWT: config.JWTConfig{
			SecretKey: []byte("test-secret"),
			TokenTTL:  time.Hour,
		},
	}
	log := zap.NewNop()

	hub := websocket.NewHub(log)
	go hub.Run()

	server := httptest.NewServer(SetupRouter(gdb, redisClient, hub, cfg, log))
	t.Cleanup(server.Close)
	return server, hub
}

// newClient returns an HTTP client with a cookie jar so the session cookie
// set at login rides along on subsequent requests.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func register(t *testing.T, client *http.Client, base, username, email string) {
	t.Helper()
	resp, env := doJSON(t, client, http.MethodPost, base+"/api/register", map[string]string{
		"username": username,
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, env.Success)
}

func createTrade(t *testing.T, client *http.Client, base string, payload map[string]interface{}) models.Trade {
	t.Helper()
	resp, env := doJSON(t, client, http.MethodPost, base+"/api/trades", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var trade models.Trade
	require.NoError(t, json.Unmarshal(env.Data, &trade))
	return trade
}

func tradePayload(instrument string) map[string]interface{} {
	return map[string]interface{}{
		"instrument":    instrument,
		"direction":     "long",
		"entryDatetime": "2024-10-02T09:15:00Z",
		"entryPrice":    62000,
		"positionSize":  0.5,
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)
	resp, err := http.Get(server.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "tradejournal", body["service"])
}

func TestAuthFlow(t *testing.T) {
	server := newTestServer(t)
	client := newClient(t)

	// Protected routes reject anonymous requests.
	resp, env := doJSON(t, client, http.MethodGet, server.URL+"/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, env.Success)

	register(t, client, server.URL, "trader1", "trader1@example.com")

	// The register response already set the session cookie.
	resp, env = doJSON(t, client, http.MethodGet, server.URL+"/api/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me struct {
		User models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "trader1@example.com", me.User.Email)

	// Logout clears it.
	resp, _ = doJSON(t, client, http.MethodPost, server.URL+"/api/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, client, http.MethodGet, server.URL+"/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Login by username works too.
	resp, _ = doJSON(t, client, http.MethodPost, server.URL+"/api/login", map[string]string{
		"identifier": "trader1",
		"password":   "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, client, http.MethodGet, server.URL+"/api/me", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	server := newTestServer(t)
	client := newClient(t)
	register(t, client, server.URL, "trader1", "trader1@example.com")

	resp, env := doJSON(t, client, http.MethodPost, server.URL+"/api/login", map[string]string{
		"identifier": "trader1@example.com",
		"password":   "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid credentials", env.Message)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	server := newTestServer(t)
	client := newClient(t)
	register(t, client, server.URL, "trader1", "trader1@example.com")

	resp, env := doJSON(t, newClient(t), http.MethodPost, server.URL+"/api/register", map[string]string{
		"username": "trader2",
		"email":    "trader1@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.False(t, env.Success)
}

func TestTradeValidationMessages(t *testing.T) {
	server := newTestServer(t)
	client := newClient(t)
	register(t, client, server.URL, "trader1", "trader1@example.com")

	cases := []struct {
		mutate  func(map[string]interface{})
		message string
	}{
		{func(p map[string]interface{}) { p["instrument"] = "  " }, "Instrument is required"},
		{func(p map[string]interface{}) { p["direction"] = "sideways" }, "Direction must be long or short"},
		{func(p map[string]interface{}) { delete(p, "entryDatetime") }, "Entry datetime is required"},
		{func(p map[string]interface{}) { p["entryDatetime"] = "not-a-date" }, "Entry datetime is invalid"},
		{func(p map[string]interface{}) { delete(p, "entryPrice") }, "Entry price is required"},
		{func(p map[string]interface{}) { delete(p, "positionSize") }, "Position size is required"},
		{func(p map[string]interface{}) { p["realizedPnl"] = 100 }, "Exit price, PnL, and R multiple require an exit datetime"},
		{func(p map[string]interface{}) { p["platform"] = strings.Repeat("x", 61) }, "Platform must be shorter than 60 characters"},
	}

	for _, tc := range cases {
		payload := tradePayload("BTCUSDT")
		tc.mutate(payload)
		resp, env := doJSON(t, client, http.MethodPost, server.URL+"/api/trades", payload)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, tc.message)
		assert.Equal(t, tc.message, env.Message)
	}
}

func TestTradeLifecycleOverHTTP(t *testing.T) {
	server := newTestServer(t)
	client := newClient(t)
	register(t, client, server.URL, "trader1", "trader1@example.com")

	trade := createTrade(t, client, server.URL, tradePayload("BTCUSDT"))
	assert.Nil(t, trade.ExitDatetime)

	// Close it with a full-payload update.
	payload := tradePayload("BTCUSDT")
	payload["exitDatetime"] = "2024-10-04T12:45:00Z"
	payload["exitPrice"] = 64850
	payload["realizedPnl"] = 1425
	payload["rMultiple"] = 2.3
	resp, env := doJSON(t, client, http.MethodPut, fmt.Sprintf("%s/api/trades/%d", server.URL, trade.ID), payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.Trade
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	require.NotNil(t, updated.RealizedPnl)
	assert.InDelta(t, 1425, *updated.RealizedPnl, 1e-9)

	resp, _ = doJSON(t, client, http.MethodDelete, fmt.Sprintf("%s/api/trades/%d", server.URL, trade.ID), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, client, http.MethodGet, fmt.Sprintf("%s/api/trades/%d", server.URL, trade.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCrossUserAccessIsNotFound(t *testing.T) {
	server := newTestServer(t)
	owner := newClient(t)
	intruder := newClient(t)
	register(t, owner, server.URL, "owner", "owner@example.com")
	register(t, intruder, server.URL, "intruder", "intruder@example.com")

	trade := createTrade(t, owner, server.URL, tradePayload("BTCUSDT"))

	resp, env := doJSON(t, intruder, http.MethodGet, fmt.Sprintf("%s/api/trades/%d", server.URL, trade.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Trade not found", env.Message)

	resp, _ = doJSON(t, intruder, http.MethodDelete, fmt.Sprintf("%s/api/trades/%d", server.URL, trade.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// A foreign strategy reference reads as not found as well.
	resp, env = doJSON(t, owner, http.MethodPost, server.URL+"/api/strategies", map[string]interface{}{"name": "Private"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var strategy models.Strategy
	require.NoError(t, json.Unmarshal(env.Data, &strategy))

	payload := tradePayload("ETHUSDT")
	payload["strategyId"] = strategy.ID
	resp, env = doJSON(t, intruder, http.MethodPost, server.URL+"/api/trades", payload)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Strategy not found", env.Message)
}

func TestStrategyLifecycleOverHTTP(t *testing.T) {
	server := newTestServer(t)
	client := newClient(t)
	register(t, client, server.URL, "trader1", "trader1@example.com")

	resp, env := doJSON(t, client, http.MethodPost, server.URL+"/api/strategies", map[string]interface{}{
		"name":      "Breakout",
		"shortCode": "BRK_H4",
		"technicals": []map[string]interface{}{
			{"indicator": "Volume", "condition": "Spike on breakout", "displayOrder": 2},
			{"indicator": "Support/Resistance", "condition": "Key level tested 3+ times", "displayOrder": 1, "isRequired": true},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var strategy models.Strategy
	require.NoError(t, json.Unmarshal(env.Data, &strategy))
	require.Len(t, strategy.Technicals, 2)
	assert.Equal(t, "Support/Resistance", strategy.Technicals[0].Indicator)

	// Duplicate name conflicts.
	resp, env = doJSON(t, client, http.MethodPost, server.URL+"/api/strategies", map[string]interface{}{"name": "Breakout"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Strategy with this name already exists", env.Message)

	// Archive it.
	resp, env = doJSON(t, client, http.MethodPut, fmt.Sprintf("%s/api/strategies/%d", server.URL, strategy.ID), map[string]interface{}{
		"isActive":       false,
		"archivedReason": "Underperforming",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var archived models.Strategy
	require.NoError(t, json.Unmarshal(env.Data, &archived))
	assert.False(t, archived.IsActive)

	// Delete nulls the trade reference instead of deleting the trade.
	payload := tradePayload("BTCUSDT")
	payload["strategyId"] = strategy.ID
	trade := createTrade(t, client, server.URL, payload)

	resp, _ = doJSON(t, client, http.MethodDelete, fmt.Sprintf("%s/api/strategies/%d", server.URL, strategy.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = doJSON(t, client, http.MethodGet, fmt.Sprintf("%s/api/trades/%d", server.URL, trade.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var kept models.Trade
	require.NoError(t, json.Unmarshal(env.Data, &kept))
	assert.Nil(t, kept.StrategyID)
}

func TestStatsEndpoint(t *testing.T) {
	server := newTestServer(t)
	client := newClient(t)
	register(t, client, server.URL, "trader1", "trader1@example.com")

	win := tradePayload("BTCUSDT")
	win["exitDatetime"] = "2024-10-04T12:45:00Z"
	win["realizedPnl"] = 100
	win["rMultiple"] = 2
	loss := tradePayload("AAPL")
	loss["exitDatetime"] = "2024-10-05T12:45:00Z"
	loss["realizedPnl"] = -50
	loss["rMultiple"] = -1
	createTrade(t, client, server.URL, win)
	createTrade(t, client, server.URL, loss)
	createTrade(t, client, server.URL, tradePayload("SPX500"))

	resp, env := doJSON(t, client, http.MethodGet, server.URL+"/api/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var overview handlers.StatsOverview
	require.NoError(t, json.Unmarshal(env.Data, &overview))
	assert.Equal(t, 3, overview.Summary.Total)
	assert.Equal(t, 1, overview.Summary.Open)
	assert.Equal(t, 2, overview.Summary.Closed)
	assert.InDelta(t, 50, overview.Summary.WinRate, 1e-9)
	assert.InDelta(t, 50, overview.Summary.TotalPnl, 1e-9)
	assert.InDelta(t, 0.5, overview.Summary.AvgR, 1e-9)
	require.NotEmpty(t, overview.TopInstruments)
	assert.Equal(t, "BTCUSDT", overview.TopInstruments[0].Instrument)
	require.Len(t, overview.MonthlyPnl, 1)
	assert.Equal(t, "Oct 2024", overview.MonthlyPnl[0].Label)
}

func TestStrategyStatsEndpoint(t *testing.T) {
	server := newTestServer(t)
	client := newClient(t)
	register(t, client, server.URL, "trader1", "trader1@example.com")

	resp, env := doJSON(t, client, http.MethodPost, server.URL+"/api/strategies", map[string]interface{}{"name": "Breakout"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var strategy models.Strategy
	require.NoError(t, json.Unmarshal(env.Data, &strategy))

	payload := tradePayload("BTCUSDT")
	payload["strategyId"] = strategy.ID
	payload["exitDatetime"] = "2024-10-04T12:45:00Z"
	payload["realizedPnl"] = 1425
	createTrade(t, client, server.URL, payload)
	createTrade(t, client, server.URL, tradePayload("AAPL")) // untagged

	resp, env = doJSON(t, client, http.MethodGet, fmt.Sprintf("%s/api/strategies/%d/stats", server.URL, strategy.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats struct {
		Total    int     `json:"total"`
		TotalPnl float64 `json:"totalPnl"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 1, stats.Total)
	assert.InDelta(t, 1425, stats.TotalPnl, 1e-9)

	// Not yours, not there.
	intruder := newClient(t)
	register(t, intruder, server.URL, "intruder", "intruder@example.com")
	resp, _ = doJSON(t, intruder, http.MethodGet, fmt.Sprintf("%s/api/strategies/%d/stats", server.URL, strategy.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocketEventsStayWithTheirOwner(t *testing.T) {
	server, hub := newTestEnv(t, nil)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	// Anonymous sockets are refused before the upgrade.
	_, resp, err := gws.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	owner := newClient(t)
	other := newClient(t)
	register(t, owner, server.URL, "owner", "owner@example.com")
	register(t, other, server.URL, "other", "other@example.com")

	dial := func(client *http.Client) *gws.Conn {
		dialer := gws.Dialer{Jar: client.Jar}
		conn, _, err := dialer.Dial(wsURL, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}
	ownerConn := dial(owner)
	otherConn := dial(other)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	createTrade(t, owner, server.URL, tradePayload("BTCUSDT"))

	require.NoError(t, ownerConn.SetReadDeadline(time.Now().Add(time.Second)))
	var msg models.Message
	require.NoError(t, ownerConn.ReadJSON(&msg))
	assert.Equal(t, websocket.EventTradeCreated, msg.Type)

	// The other user's socket must stay silent.
	require.NoError(t, otherConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond)))
	_, _, err = otherConn.ReadMessage()
	require.Error(t, err)
}

func TestStatsCacheServedAndInvalidatedOverHTTP(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })
	server, _ := newTestEnv(t, redisClient)

	client := newClient(t)
	register(t, client, server.URL, "trader1", "trader1@example.com")

	first := tradePayload("BTCUSDT")
	first["exitDatetime"] = "2024-10-04T12:45:00Z"
	first["realizedPnl"] = 100
	createTrade(t, client, server.URL, first)

	resp, env := doJSON(t, client, http.MethodGet, server.URL+"/api/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var overview handlers.StatsOverview
	require.NoError(t, json.Unmarshal(env.Data, &overview))
	require.Equal(t, 1, overview.Summary.Total)
	assert.True(t, mr.Exists("stats:user:1"))

	// A trade write drops the entry so the next read recomputes.
	createTrade(t, client, server.URL, tradePayload("ETHUSDT"))
	assert.False(t, mr.Exists("stats:user:1"))

	resp, env = doJSON(t, client, http.MethodGet, server.URL+"/api/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &overview))
	assert.Equal(t, 2, overview.Summary.Total)
}

func TestTradeCSVExport(t *testing.T) {
	server := newTestServer(t)
	client := newClient(t)
	register(t, client, server.URL, "trader1", "trader1@example.com")

	closed := tradePayload("BTCUSDT")
	closed["exitDatetime"] = "2024-10-04T12:45:00Z"
	closed["exitPrice"] = 64850
	closed["realizedPnl"] = 1425
	closed["rMultiple"] = 2.3
	closed["platform"] = "Binance"
	createTrade(t, client, server.URL, closed)
	createTrade(t, client, server.URL, tradePayload("SPX500"))

	resp, err := client.Get(server.URL + "/api/trades/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "trades.csv")

	records, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Instrument", records[0][0])
	assert.Equal(t, "Strategy", records[0][10])

	// Newest entry first; both seeded trades share the entry date, so just
	// check the closed row's values landed in the right columns.
	var btcRow []string
	for _, row := range records[1:] {
		if row[0] == "BTCUSDT" {
			btcRow = row
		}
	}
	require.NotNil(t, btcRow)
	assert.Equal(t, "Binance", btcRow[1])
	assert.Equal(t, "long", btcRow[2])
	assert.Equal(t, "1425", btcRow[8])
	assert.Equal(t, "2.3", btcRow[9])
}
