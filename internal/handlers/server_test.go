package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fapagri/console/internal/api"
	"github.com/fapagri/console/internal/apitest"
	"github.com/fapagri/console/internal/config"
	"github.com/fapagri/console/internal/db"
	"github.com/fapagri/console/internal/handlers"
)

type harness struct {
	t        *testing.T
	upstream *apitest.Server
	store    *db.Store
	srv      *httptest.Server
	client   *http.Client
	ana      api.User
}

func newHarness(t *testing.T, opts ...func(*config.Config)) *harness {
	t.Helper()
	upstream := apitest.Start(t)
	name := "Ana Putri"
	ana := upstream.AddUser(api.User{Username: "ana", Email: "ana@fapagri.id", FullName: &name, Role: "admin", IsActive: true}, "secret")

	cfg := config.Default()
	cfg.APIURL = upstream.URL()
	for _, opt := range opts {
		opt(&cfg)
	}

	store, err := db.Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	client, err := api.New(cfg.APIURL)
	require.NoError(t, err)

	srv := httptest.NewServer(handlers.New(cfg, store, client, zap.NewNop()).Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &harness{
		t:        t,
		upstream: upstream,
		store:    store,
		srv:      srv,
		ana:      ana,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type response struct {
	*http.Response
	Body string
}

func (h *harness) do(req *http.Request) response {
	h.t.Helper()
	resp, err := h.client.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return response{Response: resp, Body: string(body)}
}

func (h *harness) get(path string) response {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.srv.URL+path, nil)
	require.NoError(h.t, err)
	return h.do(req)
}

// fragment requests path the way htmx does.
func (h *harness) fragment(path string) response {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.srv.URL+path, nil)
	require.NoError(h.t, err)
	req.Header.Set("HX-Request", "true")
	return h.do(req)
}

func (h *harness) post(path string, form url.Values) response {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(req)
}

func (h *harness) signIn() {
	h.t.Helper()
	resp := h.post("/login", url.Values{"username": {"ana"}, "password": {"secret"}})
	require.Equal(h.t, http.StatusSeeOther, resp.StatusCode, resp.Body)
	require.Equal(h.t, "/dashboard", resp.Header.Get("Location"))
}

func (r response) doc(t *testing.T) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(r.Body))
	require.NoError(t, err)
	return doc
}

func inputValue(doc *goquery.Document, name string) string {
	v, _ := doc.Find(`[name="` + name + `"]`).First().Attr("value")
	return v
}

func TestGuardRedirectsSignedOutBrowser(t *testing.T) {
	h := newHarness(t)
	h.upstream.AddPlantation(api.Plantation{Name: "Kebun A"})

	for _, path := range []string{
		"/", "/dashboard", "/dashboard/cards", "/plantations", "/plantations/list",
		"/employees", "/employees/list", "/harvests", "/harvests/list", "/harvests/export.xlsx",
	} {
		t.Run(path, func(t *testing.T) {
			resp := h.get(path)
			assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
			assert.Equal(t, "/login", resp.Header.Get("Location"))
			assert.NotContains(t, resp.Body, "Kebun A")
		})
	}

	resp := h.fragment("/plantations/list")
	assert.Equal(t, "/login", resp.Header.Get("HX-Redirect"))
	assert.NotContains(t, resp.Body, "plantation-row")

	resp = h.post("/plantations", url.Values{"name": {"Sneaky"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Zero(t, h.upstream.Count(http.MethodPost, "/plantations/"))
	assert.Zero(t, h.upstream.Count(http.MethodGet, "/plantations/"))
}

func TestGuardAdmitsSignedInBrowser(t *testing.T) {
	h := newHarness(t)
	h.signIn()

	for _, path := range []string{"/dashboard", "/plantations", "/employees", "/harvests"} {
		resp := h.get(path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Empty(t, resp.Header.Get("Location"), path)
	}

	resp := h.get("/")
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	resp = h.get("/login")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestSignInSurvivesNewPageLoads(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	h.get("/dashboard")
	h.get("/plantations")

	// One validation per page load, each with the stored token.
	me, ok := h.upstream.Last(http.MethodGet, "/auth/me")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(me.Auth, "Bearer tok-"))
	assert.Equal(t, 3, h.upstream.Count(http.MethodGet, "/auth/me"))
}

func TestLoginFailureKeepsUsername(t *testing.T) {
	h := newHarness(t)

	resp := h.post("/login", url.Values{"username": {"ana"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	doc := resp.doc(t)
	assert.Equal(t, "ana", inputValue(doc, "username"))
	assert.Contains(t, doc.Find(".form-error").Text(), "Incorrect username or password")

	resp = h.get("/dashboard")
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestLoginUpstreamDown(t *testing.T) {
	h := newHarness(t)
	h.upstream.Fail(http.MethodPost, "/auth/login", http.StatusServiceUnavailable, "maintenance")

	resp := h.post("/login", url.Values{"username": {"ana"}, "password": {"secret"}})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, resp.doc(t).Find(".form-error").Text(), "maintenance")
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	before := len(h.upstream.Requests())

	resp := h.post("/logout", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Len(t, h.upstream.Requests(), before, "sign out stays local")

	resp = h.get("/dashboard")
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	// Signing out twice is harmless.
	resp = h.post("/logout", nil)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestRejectedTokenSignsOut(t *testing.T) {
	h := newHarness(t)
	h.signIn()

	h.upstream.Fail(http.MethodGet, "/plantations/", http.StatusUnauthorized, "Could not validate credentials")
	resp := h.fragment("/plantations/list")
	assert.Equal(t, "/login", resp.Header.Get("HX-Redirect"))

	h.upstream.Recover(http.MethodGet, "/plantations/")
	resp = h.get("/plantations")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestExpiredTokenRedirects(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	h.upstream.RevokeTokens()

	resp := h.get("/dashboard")
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestShellNavigation(t *testing.T) {
	h := newHarness(t)
	h.signIn()

	doc := h.get("/plantations").doc(t)
	sidebar := doc.Find(".sidebar")
	assert.Equal(t, 4, sidebar.Find(".nav a").Length())
	assert.Equal(t, "Plantations", sidebar.Find(".nav a.active").Text())
	assert.Equal(t, "Ana Putri", sidebar.Find(".user-name").Text())
	assert.Equal(t, "Admin", sidebar.Find(".user-role").Text())
	assert.Equal(t, 1, sidebar.Find(`form[action="/logout"]`).Length())
	assert.Zero(t, doc.Find(".mobile-menu").Length())
	href, _ := doc.Find(".menu-toggle").Attr("href")
	assert.Equal(t, "/plantations?menu=open", href)

	doc = h.get("/plantations?menu=open").doc(t)
	assert.Equal(t, 1, doc.Find(".mobile-menu").Length())
	assert.Equal(t, "Plantations", doc.Find(".mobile-menu .nav a.active").Text())
	href, _ = doc.Find(".menu-toggle").Attr("href")
	assert.Equal(t, "/plantations", href)

	// Only exact paths are active.
	doc = h.get("/plantations/missing/delete").doc(t)
	assert.Zero(t, doc.Find(".sidebar .nav a.active").Length())
}

func TestDisplayNameFallsBackToUsername(t *testing.T) {
	h := newHarness(t)
	h.upstream.AddUser(api.User{Username: "budi", Role: "field_worker"}, "pw")
	resp := h.post("/login", url.Values{"username": {"budi"}, "password": {"pw"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	doc := h.get("/dashboard").doc(t)
	assert.Equal(t, "budi", doc.Find(".sidebar .user-name").Text())
	assert.Equal(t, "Field worker", doc.Find(".sidebar .user-role").Text())
}

func TestNotFound(t *testing.T) {
	h := newHarness(t)
	resp := h.get("/nowhere")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	resp := h.get("/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report map[string]string
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &report))
	assert.Equal(t, "ok", report["status"])
	assert.Equal(t, "ok", report["storage"])
	assert.Equal(t, h.upstream.URL(), report["api"])

	require.NoError(t, h.store.Close())
	resp = h.get("/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestBrowserCookie(t *testing.T) {
	h := newHarness(t)
	resp := h.get("/login")

	var browser *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "fapagri_browser" {
			browser = c
		}
	}
	require.NotNil(t, browser)
	assert.True(t, browser.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, browser.SameSite)
	assert.Equal(t, 30*24*60*60, browser.MaxAge)

	// The jar sends it back; no new id is minted.
	resp = h.get("/login")
	assert.Empty(t, resp.Cookies())
}

func TestAssetsAndHealthMintNoBrowserID(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/healthz", "/static/console.css"} {
		resp := h.get(path)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Empty(t, resp.Header.Values("Set-Cookie"), path)
	}

	resp := h.get("/login")
	assert.NotEmpty(t, resp.Header.Values("Set-Cookie"))
}

func TestCSRF(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.Security.CSRFKey = "0123456789abcdef0123456789abcdef"
	})

	resp := h.post("/login", url.Values{"username": {"ana"}, "password": {"secret"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, h.upstream.Count(http.MethodPost, "/auth/login"))

	doc := h.get("/login").doc(t)
	token, ok := doc.Find(`input[name="gorilla.csrf.Token"]`).Attr("value")
	require.True(t, ok)
	require.NotEmpty(t, token)

	resp = h.post("/login", url.Values{
		"username":           {"ana"},
		"password":           {"secret"},
		"gorilla.csrf.Token": {token},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
}
