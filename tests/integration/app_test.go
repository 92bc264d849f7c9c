package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	httpHandler "auto-savings-vault/internal/adapter/http/handler"
	"auto-savings-vault/internal/adapter/metrics"
	memStorage "auto-savings-vault/internal/adapter/storage/memory"
	redisStorage "auto-savings-vault/internal/adapter/storage/redis"
	"auto-savings-vault/internal/core/guard"
	"auto-savings-vault/internal/core/pda"
	"auto-savings-vault/internal/core/ports"
	"auto-savings-vault/internal/service"
	"auto-savings-vault/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// testApp runs the full HTTP stack over the in-memory ledger store, with
// nonces, rate limits and the idempotency cache held in miniredis.
type testApp struct {
	server    *httptest.Server
	redis     *miniredis.Miniredis
	store     *memStorage.Store
	auditRepo *memStorage.AuditRepo
	auditSvc  *service.AuditServiceImpl
	deriver   *pda.Deriver
	authority solana.PrivateKey
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	log := logger.New("error", false)
	store := memStorage.NewStore()
	auditRepo := memStorage.NewAuditRepo(store)
	deriver := pda.NewDeriver(solana.MustPublicKeyFromBase58("8Ds6CcX7F8hEuUuoGyXQnk9CkPtC4Bb8JP3kJAnJpXPy"))
	m := metrics.New()

	deps := service.LedgerDeps{
		Transactor: store,
		Deriver:    deriver,
		Guard:      guard.New(guard.Features{Pause: true, TVLCap: true}),
		Cache:      redisStorage.NewIdempotencyCache(rdb),
		Metrics:    m,
		Log:        log,
	}

	sigSvc := service.NewEd25519SignatureService()
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", time.Hour, "test-issuer")
	auditSvc := service.NewAuditService(auditRepo, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		SavingsSvc:     service.NewSavingsService(deps),
		TreasurySvc:    service.NewTreasuryService(deps),
		AllocationSvc:  service.NewAllocationService(deps),
		TokenVaultSvc:  service.NewTokenVaultService(deps),
		ReportingSvc:   service.NewReportingService(store, deriver),
		AuthSvc:        service.NewAuthService(sigSvc, tokenSvc),
		SigSvc:         sigSvc,
		NonceStore:     redisStorage.NewNonceStore(rdb),
		TokenSvc:       tokenSvc,
		RateLimiter:    redisStorage.NewRateLimitStore(rdb),
		HealthCheckers: []ports.HealthChecker{store, redisStorage.NewHealthCheck(rdb)},
		AuditSvc:       auditSvc,
		Metrics:        m,
		Logger:         log,
	})

	app := &testApp{
		server:    httptest.NewServer(router),
		redis:     mr,
		store:     store,
		auditRepo: auditRepo,
		auditSvc:  auditSvc,
		deriver:   deriver,
		authority: solana.NewWallet().PrivateKey,
	}
	t.Cleanup(app.close)
	return app
}

func (a *testApp) close() {
	a.server.Close()
	a.auditSvc.Wait()
	a.redis.Close()
}

// apiResult is a decoded response envelope. Data is set for object payloads,
// List for array payloads.
type apiResult struct {
	Status    int
	Data      map[string]interface{}
	List      []map[string]interface{}
	Total     int64
	ErrorCode string
}

// signed sends a request signed by wallet over METHOD|PATH|TIMESTAMP|NONCE|BODY.
func (a *testApp) signed(t *testing.T, wallet solana.PrivateKey, method, path string, body interface{}) apiResult {
	t.Helper()

	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}

	ts := time.Now().Unix()
	nonce := uuid.NewString()
	canonical := service.NewEd25519SignatureService().BuildCanonicalString(method, path, ts, nonce, string(raw))
	sig, err := wallet.Sign([]byte(canonical))
	require.NoError(t, err)

	req, err := http.NewRequest(method, a.server.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signer", wallet.PublicKey().String())
	req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Nonce", nonce)
	req.Header.Set("X-Signature", sig.String())
	return a.do(t, req)
}

// get sends an unsigned read, with a session token when one is given.
func (a *testApp) get(t *testing.T, token, path string) apiResult {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.server.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return a.do(t, req)
}

// login opens a read session for wallet.
func (a *testApp) login(t *testing.T, wallet solana.PrivateKey) string {
	t.Helper()
	ts := time.Now().Unix()
	sig, err := wallet.Sign([]byte(service.LoginPayload(wallet.PublicKey(), ts)))
	require.NoError(t, err)

	raw, _ := json.Marshal(map[string]interface{}{
		"signer":    wallet.PublicKey().String(),
		"timestamp": ts,
		"signature": sig.String(),
	})
	req, err := http.NewRequest(http.MethodPost, a.server.URL+"/api/v1/auth/login", bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	res := a.do(t, req)
	require.Equal(t, http.StatusOK, res.Status)
	token, _ := res.Data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func (a *testApp) do(t *testing.T, req *http.Request) apiResult {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelope struct {
		Data json.RawMessage `json:"data"`
		Page *struct {
			Total int64 `json:"total"`
		} `json:"page"`
		ErrorCode string `json:"error_code"`
	}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &envelope), string(raw))
	}

	res := apiResult{Status: resp.StatusCode, ErrorCode: envelope.ErrorCode}
	if envelope.Page != nil {
		res.Total = envelope.Page.Total
	}
	switch {
	case bytes.HasPrefix(envelope.Data, []byte("{")):
		require.NoError(t, json.Unmarshal(envelope.Data, &res.Data))
	case bytes.HasPrefix(envelope.Data, []byte("[")):
		require.NoError(t, json.Unmarshal(envelope.Data, &res.List))
	}
	return res
}

// bootstrap initializes the treasury under the app authority, funds a new
// wallet with credit base units and opens its user ledger at rate.
func (a *testApp) bootstrap(t *testing.T, credit uint64, rate int) solana.PrivateKey {
	t.Helper()

	if res := a.get(t, "", "/api/v1/treasury"); res.Status == http.StatusNotFound {
		res := a.signed(t, a.authority, http.MethodPost, "/api/v1/treasury", nil)
		require.Equal(t, http.StatusCreated, res.Status, res.ErrorCode)
	}

	user := solana.NewWallet().PrivateKey
	res := a.signed(t, a.authority, http.MethodPost,
		"/api/v1/wallets/"+user.PublicKey().String()+"/credit",
		map[string]interface{}{"amount": credit})
	require.Equal(t, http.StatusOK, res.Status, res.ErrorCode)

	res = a.signed(t, user, http.MethodPost, "/api/v1/users", map[string]interface{}{"savings_rate": rate})
	require.Equal(t, http.StatusCreated, res.Status, res.ErrorCode)
	return user
}

func num(t *testing.T, data map[string]interface{}, key string) uint64 {
	t.Helper()
	v, ok := data[key].(float64)
	require.True(t, ok, "missing numeric field %q in %v", key, data)
	return uint64(v)
}
