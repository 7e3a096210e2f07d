package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"

	"gangway/internal/accounts"
	"gangway/internal/membership"
	"gangway/internal/sessions"
	"gangway/pkg/auth"
	"gangway/pkg/clients"
	"gangway/pkg/clients/patreon"
	"gangway/pkg/ctxkeys"
)

var testSecret = []byte("handlers-test-secret")

var accountCols = []string{
	"id", "tenant_id", "name", "email", "patreon_id", "patreon_token",
	"pledge_cents", "is_admin", "banned_at", "logged_out_at", "created_at", "updated_at",
}

func accountRow(id string, pledge int, banned bool) *sqlmock.Rows {
	var bannedAt interface{}
	if banned {
		bannedAt = time.Now()
	}
	return sqlmock.NewRows(accountCols).AddRow(
		id, nil, "Pat Ron", "pat@example.com", "patron-9", "tok",
		pledge, false, bannedAt, nil, time.Now(), time.Now())
}

type staticProvider struct {
	cents int
	err   error
}

func (p *staticProvider) EntitledCents(ctx context.Context, accessToken string) (int, error) {
	return p.cents, p.err
}

// setup wires the package globals against a sqlmock database and a static
// membership provider. Re-run per test; the globals are package state.
func setup(t *testing.T, cents int) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger, _ := test.NewNullLogger()
	repo := accounts.NewRepo(db, logger)
	registry := sessions.NewRegistry(db, logger)
	verifier := membership.NewVerifier(&staticProvider{cents: cents}, membership.NewMemoryStore(0), logger, membership.Metrics{})

	Init(db, logger, repo, registry, verifier, nil, testSecret, time.Hour, nil)
	return mock
}

func membershipRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(auth.IdentityMiddleware(testSecret))
	router.GET("/auth/membership", MembershipStatus)
	return router
}

func TestMembershipStatusAnonymous(t *testing.T) {
	setup(t, 0)
	router := membershipRouter()

	req := httptest.NewRequest(http.MethodGet, "/auth/membership", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"valid":false`) {
		t.Fatalf("expected invalid membership, got %s", w.Body.String())
	}
}

func TestMembershipStatusValid(t *testing.T) {
	mock := setup(t, 500)
	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id").
		WithArgs("acct-1").
		WillReturnRows(accountRow("acct-1", 500, false))

	router := membershipRouter()
	token, _ := auth.GenerateJWT("acct-1", "", "pat@example.com", "member", time.Hour, testSecret)
	req := httptest.NewRequest(http.MethodGet, "/auth/membership", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), `"valid":true`) {
		t.Fatalf("expected valid membership, got %s", w.Body.String())
	}
}

func TestMembershipStatusLapsedTerminatesSessions(t *testing.T) {
	mock := setup(t, 0)
	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id").
		WithArgs("acct-1").
		WillReturnRows(accountRow("acct-1", 0, false))
	mock.ExpectExec("UPDATE session_records SET is_active = FALSE").
		WithArgs("acct-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE accounts SET logged_out_at = NOW").
		WithArgs("acct-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	router := membershipRouter()
	token, _ := auth.GenerateJWT("acct-1", "", "pat@example.com", "member", time.Hour, testSecret)
	req := httptest.NewRequest(http.MethodGet, "/auth/membership", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), `"valid":false`) {
		t.Fatalf("expected invalid membership, got %s", w.Body.String())
	}

	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.Value == "" {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("expected the session cookie to be cleared")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func videosRouter(tenantID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/videos", func(c *gin.Context) {
		if tenantID != "" {
			c.Request = c.Request.WithContext(ctxkeys.WithTenantID(c.Request.Context(), tenantID))
		}
		ListVideos(c)
	})
	return router
}

var videoCols = []string{"id", "tenant_id", "title", "description", "category_id", "is_published", "created_at", "updated_at"}

func TestListVideosTenantScoped(t *testing.T) {
	mock := setup(t, 0)
	mock.ExpectQuery("SELECT (.+) FROM videos WHERE is_published = TRUE AND tenant_id").
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows(videoCols).
			AddRow("v1", "tenant-1", "First", nil, nil, true, time.Now(), time.Now()))

	router := videosRouter("tenant-1")
	req := httptest.NewRequest(http.MethodGet, "/videos", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"tenant_id":"tenant-1"`) {
		t.Fatalf("expected tenant-1 videos, got %s", w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListVideosCentralScopeSeesAllTenants(t *testing.T) {
	mock := setup(t, 0)
	mock.ExpectQuery("SELECT (.+) FROM videos WHERE is_published = TRUE ORDER BY").
		WillReturnRows(sqlmock.NewRows(videoCols).
			AddRow("v1", "tenant-1", "First", nil, nil, true, time.Now(), time.Now()).
			AddRow("v2", "tenant-2", "Second", nil, nil, true, time.Now(), time.Now()))

	router := videosRouter("")
	req := httptest.NewRequest(http.MethodGet, "/videos", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var body struct {
		Videos []json.RawMessage `json:"videos"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(body.Videos) != 2 {
		t.Fatalf("expected 2 videos in central scope, got %d", len(body.Videos))
	}
}

func TestGetVideoForeignTenantReadsAsNotFound(t *testing.T) {
	mock := setup(t, 0)
	mock.ExpectQuery("SELECT (.+) FROM videos WHERE id = (.+) AND tenant_id").
		WithArgs("v9", "tenant-1").
		WillReturnError(sql.ErrNoRows)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/videos/:id", func(c *gin.Context) {
		c.Request = c.Request.WithContext(ctxkeys.WithTenantID(c.Request.Context(), "tenant-1"))
		GetVideo(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/videos/v9", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a foreign tenant's video, got %d", w.Code)
	}
}

// callbackFixture stands in for the Patreon OAuth and API endpoints.
func callbackFixture(t *testing.T, cents int) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/token"):
			_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600,"token_type":"Bearer"}`))
		case strings.HasPrefix(r.URL.Path, "/identity"):
			_, _ = w.Write([]byte(`{"data":{"id":"patron-9","attributes":{"full_name":"Pat Ron","email":"pat@example.com"}}}`))
		case strings.Contains(r.URL.Path, "/campaigns/"):
			fmt.Fprintf(w, `{"data":[{"id":"m1","type":"member","attributes":{"currently_entitled_amount_cents":%d}}]}`, cents)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(upstream.Close)

	retryCfg := clients.DefaultRetryConfig()
	retryCfg.MaxRetries = 0
	logger, _ := test.NewNullLogger()
	client := patreon.NewClient(patreon.Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		CampaignID:   "12345",
		RedirectURL:  "https://example.com/callback",
		APIBaseURL:   upstream.URL,
		AuthURL:      upstream.URL + "/authorize",
		TokenURL:     upstream.URL + "/token",
		Logger:       logger,
		RetryConfig:  &retryCfg,
	})

	repo := accounts.NewRepo(db, logger)
	registry := sessions.NewRegistry(db, logger)
	verifier := membership.NewVerifier(client, membership.NewMemoryStore(0), logger, membership.Metrics{})
	Init(db, logger, repo, registry, verifier, client, testSecret, time.Hour, nil)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/auth/patreon/callback", PatreonCallback)
	return mock, router
}

func callbackRequest() *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/auth/patreon/callback?code=the-code&state=st-1", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "st-1"})
	return req
}

func TestPatreonCallbackIssuesSession(t *testing.T) {
	mock, router := callbackFixture(t, 500)
	mock.ExpectQuery("INSERT INTO accounts").
		WillReturnRows(accountRow("acct-1", 500, false))
	mock.ExpectQuery("INSERT INTO session_records").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sess-1"))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM session_records").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, callbackRequest())

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.Value != "" {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("expected a session cookie")
	}
	claims, err := auth.ValidateJWT(sessionCookie.Value, testSecret)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if claims.UserID != "acct-1" {
		t.Fatalf("expected acct-1 principal, got %s", claims.UserID)
	}
}

func TestPatreonCallbackUnpaidGetsNoSession(t *testing.T) {
	mock, router := callbackFixture(t, 100)
	mock.ExpectQuery("INSERT INTO accounts").
		WillReturnRows(accountRow("acct-1", 100, false))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, callbackRequest())

	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d: %s", w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.Value != "" {
			t.Fatal("an unpaid login must not receive a session cookie")
		}
	}
}

func TestPatreonCallbackBannedAccount(t *testing.T) {
	mock, router := callbackFixture(t, 500)
	mock.ExpectQuery("INSERT INTO accounts").
		WillReturnRows(accountRow("acct-1", 500, true))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, callbackRequest())

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a banned account, got %d", w.Code)
	}
}

func TestPatreonCallbackStateMismatch(t *testing.T) {
	_, router := callbackFixture(t, 500)

	req := httptest.NewRequest(http.MethodGet, "/auth/patreon/callback?code=c&state=evil", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "st-1"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on state mismatch, got %d", w.Code)
	}
}
