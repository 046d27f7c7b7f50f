package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/TremiDkhar/sitelink/internal/domain"
	"github.com/TremiDkhar/sitelink/internal/httpserver/deps"
	"github.com/TremiDkhar/sitelink/internal/links"
	"github.com/TremiDkhar/sitelink/internal/logger"
	"github.com/TremiDkhar/sitelink/internal/metrics"
	"github.com/TremiDkhar/sitelink/internal/peer"
	"github.com/TremiDkhar/sitelink/internal/protocol"
	"github.com/TremiDkhar/sitelink/internal/registry"
)

const (
	testPrefix = "/wp-json/dt-public/v1"
	checkURL   = testPrefix + "/sites/site_link_check"
	testSecret = "0123456789abcdef0123456789abcdef"
)

var testNow = time.Date(2026, 10, 19, 14, 30, 0, 0, time.UTC)

type memStore struct {
	mu      sync.Mutex
	records map[string]*domain.SiteLinkRecord
	loadErr error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*domain.SiteLinkRecord)}
}

func (m *memStore) SaveRecord(ctx context.Context, record *domain.SiteLinkRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = record.Clone()
	return nil
}

func (m *memStore) GetRecord(ctx context.Context, id string) (*domain.SiteLinkRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (m *memStore) DeleteRecord(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

func (m *memStore) LoadAll(ctx context.Context) ([]*domain.SiteLinkRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]*domain.SiteLinkRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (m *memStore) Ping(ctx context.Context) error { return nil }

type env struct {
	router  http.Handler
	store   *memStore
	links   *links.Manager
	service *protocol.Service
	trigger chan struct{}
}

func newEnv(t *testing.T, localSite string, peerClient *http.Client, burst int) *env {
	t.Helper()
	log := logger.Nop()
	store := newMemStore()
	m := metrics.NewMetrics()
	reg := registry.New(store, log, registry.WithObserver(m))
	if _, err := reg.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	clock := func() time.Time { return testNow }
	svc := protocol.NewService(reg, localSite, domain.DigestMD5,
		protocol.WithClock(clock), protocol.WithObserver(m))
	mgr := links.NewManager(store, reg, localSite, domain.DigestMD5, log)

	opts := []peer.Option{}
	if peerClient != nil {
		opts = append(opts, peer.WithHTTPClient(peerClient))
	}
	trigger := make(chan struct{}, 1)

	d := deps.Deps{
		Logger:            log,
		StartTime:         testNow.Add(-time.Minute),
		TimeNow:           clock,
		APIPrefix:         testPrefix,
		CheckBurst:        burst,
		CheckRefillPerMin: 1,
		Protocol:          svc,
		Links:             mgr,
		Peer:              peer.NewClient(testPrefix, time.Second, log, opts...),
		Registry:          reg,
		Store:             store,
		Metrics:           m.Handler(),
		ReloadTrigger:     trigger,
		PeerCheckTimeout:  time.Second,
	}
	return &env{router: NewRouter(d), store: store, links: mgr, service: svc, trigger: trigger}
}

func (e *env) link(t *testing.T, site1, site2 string) *domain.SiteLinkRecord {
	t.Helper()
	secret := testSecret
	res, err := e.links.Save(context.Background(), links.Input{
		Label:  strPtr("peer"),
		Secret: &secret,
		Site1:  &site1,
		Site2:  &site2,
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if res.LockErr != nil {
		t.Fatalf("Save() lock error = %v", res.LockErr)
	}
	return res.Record
}

func (e *env) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func strPtr(s string) *string { return &s }

func checkRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, checkURL, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBool(t *testing.T, rec *httptest.ResponseRecorder) bool {
	t.Helper()
	var v bool
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("response %q is not a JSON boolean: %v", rec.Body.String(), err)
	}
	return v
}

func TestSiteLinkCheck(t *testing.T) {
	e := newEnv(t, "a.example", nil, 100)
	record := e.link(t, "a.example", "b.example")
	valid := domain.DigestMD5.IssueToken(record.LinkID, testNow)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantLinked bool
	}{
		{"valid token", `{"transfer_token":"` + valid + `"}`, http.StatusOK, true},
		{"unknown token", `{"transfer_token":"deadbeef"}`, http.StatusOK, false},
		{"empty token", `{"transfer_token":""}`, http.StatusOK, false},
		{"previous hour", `{"transfer_token":"` + domain.DigestMD5.IssueToken(record.LinkID, testNow.Add(-time.Hour)) + `"}`, http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(checkRequest(tt.body))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := decodeBool(t, rec); got != tt.wantLinked {
				t.Errorf("linked = %v, want %v", got, tt.wantLinked)
			}
		})
	}
}

func TestSiteLinkCheckFormBody(t *testing.T) {
	e := newEnv(t, "a.example", nil, 100)
	record := e.link(t, "a.example", "b.example")

	body := "transfer_token=" + domain.DigestMD5.IssueToken(record.LinkID, testNow)
	req := httptest.NewRequest(http.MethodPost, checkURL, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if !decodeBool(t, e.do(req)) {
		t.Error("form-encoded token should verify")
	}
}

func TestSiteLinkCheckMalformed(t *testing.T) {
	e := newEnv(t, "a.example", nil, 100)

	for _, body := range []string{`{}`, `{"token":"x"}`, `not json`} {
		rec := e.do(checkRequest(body))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
			continue
		}
		var payload struct {
			Code string `json:"code"`
			Data struct {
				Status int `json:"status"`
			} `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("error payload: %v", err)
		}
		if payload.Code != "site_check_error" || payload.Data.Status != 400 {
			t.Errorf("body %q: payload = %+v", body, payload)
		}
	}
}

func TestSiteLinkCheckRateLimited(t *testing.T) {
	e := newEnv(t, "a.example", nil, 2)

	for i := 0; i < 2; i++ {
		if rec := e.do(checkRequest(`{"transfer_token":"x"}`)); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
	}
	rec := e.do(checkRequest(`{"transfer_token":"x"}`))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestCORSGate(t *testing.T) {
	e := newEnv(t, "a.example", nil, 100)
	e.link(t, "a.example", "b.example")

	tests := []struct {
		name   string
		origin string
		want   string
	}{
		{"linked remote", "https://b.example", "https://b.example"},
		{"http scheme", "http://b.example", ""},
		{"different case", "https://B.example", ""},
		{"local site", "https://a.example", ""},
		{"stranger", "https://evil.example", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := checkRequest(`{"transfer_token":"x"}`)
			req.Header.Set("Origin", tt.origin)
			rec := e.do(req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Fatalf("Allow-Origin = %q, want %q", got, tt.want)
			}
			if tt.want == "" {
				return
			}
			h := rec.Header()
			if h.Get("Access-Control-Allow-Methods") != "GET, POST, HEAD, OPTIONS" {
				t.Errorf("Allow-Methods = %q", h.Get("Access-Control-Allow-Methods"))
			}
			if h.Get("Access-Control-Allow-Credentials") != "true" {
				t.Errorf("Allow-Credentials = %q", h.Get("Access-Control-Allow-Credentials"))
			}
			if h.Get("Access-Control-Expose-Headers") != "Link" {
				t.Errorf("Expose-Headers = %q", h.Get("Access-Control-Expose-Headers"))
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	e := newEnv(t, "a.example", nil, 100)
	e.link(t, "a.example", "b.example")

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, checkURL, nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", "POST")
		return e.do(req)
	}

	rec := preflight("https://b.example")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("authorised preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Headers") != "Content-Type" {
		t.Errorf("Allow-Headers = %q", rec.Header().Get("Access-Control-Allow-Headers"))
	}

	rec = preflight("https://evil.example")
	if rec.Code == http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("unauthorised preflight answered: status %d", rec.Code)
	}
}

func TestCORSClosedAfterReset(t *testing.T) {
	e := newEnv(t, "a.example", nil, 100)
	record := e.link(t, "a.example", "b.example")

	if _, err := e.links.Reset(context.Background(), record.ID); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	req := checkRequest(`{"transfer_token":"x"}`)
	req.Header.Set("Origin", "https://b.example")
	if got := e.do(req).Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q after reset, want none", got)
	}
}

func TestCORSNotOnAdminOrOps(t *testing.T) {
	e := newEnv(t, "a.example", nil, 100)
	e.link(t, "a.example", "b.example")

	body := `{"label":"Injected","site1":"a.example","site2":"c.example"}`
	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"admin preflight", http.MethodOptions, "/admin/links/", ""},
		{"admin write", http.MethodPost, "/admin/links/", body},
		{"admin list", http.MethodGet, "/admin/links", ""},
		{"readyz", http.MethodGet, "/readyz", ""},
		{"metrics", http.MethodGet, "/metrics", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Origin", "https://b.example")
			if tt.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", "POST")
				req.Header.Set("Access-Control-Request-Headers", "Content-Type")
			}
			rec := e.do(req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
				t.Errorf("Allow-Origin = %q, want none", got)
			}
			if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "" {
				t.Errorf("Allow-Credentials = %q, want none", got)
			}
			if tt.method == http.MethodOptions && rec.Code == http.StatusNoContent {
				t.Error("admin preflight must not be answered")
			}
		})
	}
}

func TestAdminLinksLifecycle(t *testing.T) {
	e := newEnv(t, "a.example", nil, 100)

	body := `{"label":"Partner","secret":"` + testSecret + `","site1":"https://a.example/","site2":"b.example"}`
	rec := e.do(httptest.NewRequest(http.MethodPost, "/admin/links", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), testSecret) {
		t.Fatal("admin response leaked the secret")
	}

	var created struct {
		ID     string `json:"id"`
		Site1  string `json:"site1"`
		Locked bool   `json:"locked"`
		Remote string `json:"remote"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !created.Locked || created.Remote != "b.example" || created.Site1 != "a.example" {
		t.Errorf("created = %+v", created)
	}

	rec = e.do(httptest.NewRequest(http.MethodGet, "/admin/links", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), created.ID) {
		t.Errorf("list status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Locked records refuse new link material.
	edit := `{"id":"` + created.ID + `","site2":"c.example"}`
	rec = e.do(httptest.NewRequest(http.MethodPost, "/admin/links", strings.NewReader(edit)))
	if rec.Code != http.StatusConflict {
		t.Errorf("edit locked status = %d, want 409", rec.Code)
	}

	rec = e.do(httptest.NewRequest(http.MethodPost, "/admin/links/"+created.ID+"/reset", nil))
	if rec.Code != http.StatusOK || strings.Contains(rec.Body.String(), `"locked":true`) {
		t.Errorf("reset status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = e.do(httptest.NewRequest(http.MethodDelete, "/admin/links/"+created.ID, nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}

	rec = e.do(httptest.NewRequest(http.MethodGet, "/admin/links/"+created.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("get deleted status = %d, want 404", rec.Code)
	}
}

func TestAdminSaveReportsStaleRegistry(t *testing.T) {
	e := newEnv(t, "a.example", nil, 100)
	e.store.mu.Lock()
	e.store.loadErr = errors.New("redis down")
	e.store.mu.Unlock()

	body := `{"label":"Partner","secret":"` + testSecret + `","site1":"a.example","site2":"b.example"}`
	rec := e.do(httptest.NewRequest(http.MethodPost, "/admin/links", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created struct {
		ID      string `json:"id"`
		Locked  bool   `json:"locked"`
		Warning string `json:"warning"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !created.Locked || created.Warning == "" {
		t.Errorf("created = %+v, want a locked record with a warning", created)
	}
	if _, err := e.links.Get(context.Background(), created.ID); err != nil {
		t.Errorf("record should be persisted: %v", err)
	}

	rec = e.do(httptest.NewRequest(http.MethodDelete, "/admin/links/"+created.ID, nil))
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "registry_stale") {
		t.Errorf("delete status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestAdminRejectsUnknownFields(t *testing.T) {
	e := newEnv(t, "a.example", nil, 100)
	rec := e.do(httptest.NewRequest(http.MethodPost, "/admin/links", strings.NewReader(`{"link_id":"x"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAdminTimestamp(t *testing.T) {
	e := newEnv(t, "a.example", nil, 100)
	rec := e.do(httptest.NewRequest(http.MethodGet, "/admin/timestamp", nil))

	var got struct {
		Bucket string `json:"bucket"`
		Digest string `json:"digest"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Bucket != "2026-10-1914" || got.Digest != "md5" {
		t.Errorf("timestamp = %+v", got)
	}
}

func TestLinkStatusAgainstPeer(t *testing.T) {
	var remote http.Handler
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remote.ServeHTTP(w, r)
	}))
	defer ts.Close()
	remoteHost := strings.TrimPrefix(ts.URL, "https://")

	b := newEnv(t, remoteHost, nil, 100)
	b.link(t, "a.example", remoteHost)
	remote = b.router

	a := newEnv(t, "a.example", ts.Client(), 100)
	record := a.link(t, "a.example", remoteHost)

	rec := a.do(httptest.NewRequest(http.MethodGet, "/admin/links/"+record.ID+"/status", nil))
	var got struct {
		Remote string `json:"remote"`
		Linked bool   `json:"linked"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v (%s)", err, rec.Body.String())
	}
	if !got.Linked || got.Remote != remoteHost || got.Error != "" {
		t.Errorf("status = %+v", got)
	}
}

func TestLinkStatusNotLocked(t *testing.T) {
	e := newEnv(t, "a.example", nil, 100)
	res, err := e.links.Save(context.Background(), links.Input{Label: strPtr("draft")})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rec := e.do(httptest.NewRequest(http.MethodGet, "/admin/links/"+res.Record.ID+"/status", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestOpsEndpoints(t *testing.T) {
	e := newEnv(t, "a.example", nil, 100)

	if rec := e.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
	if rec := e.do(httptest.NewRequest(http.MethodGet, "/readyz", nil)); rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec := e.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "sitelink_registry_links") {
		t.Errorf("metrics status = %d", rec.Code)
	}

	if rec := e.do(httptest.NewRequest(http.MethodPost, "/reload", nil)); rec.Code != http.StatusAccepted {
		t.Errorf("first reload status = %d, want 202", rec.Code)
	}
	if rec := e.do(httptest.NewRequest(http.MethodPost, "/reload", nil)); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second reload status = %d, want 429", rec.Code)
	}
}
