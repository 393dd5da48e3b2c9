package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pwauto/pkg/automation"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) EnsureInstalled(ctx context.Context, progress automation.ProgressFunc) error {
	return m.Called(ctx, progress).Error(0)
}

func (m *mockService) Browser(ctx context.Context) (playwright.Browser, error) {
	args := m.Called(ctx)
	b, _ := args.Get(0).(playwright.Browser)
	return b, args.Error(1)
}

func (m *mockService) GetElement(ctx context.Context, req automation.ElementRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockService) GetElementList(ctx context.Context, req automation.ElementListRequest) ([]string, error) {
	args := m.Called(ctx, req)
	v, _ := args.Get(0).([]string)
	return v, args.Error(1)
}

func (m *mockService) Screenshot(ctx context.Context, req automation.ScreenshotRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockService) Close() error {
	return m.Called().Error(0)
}

func newTestServer(t *testing.T, svc automation.Service, hosts ...string) http.Handler {
	t.Helper()
	if len(hosts) == 0 {
		hosts = []string{"*"}
	}
	s, err := New(svc, Options{AllowedHosts: hosts, Gatherer: prometheus.NewRegistry()})
	require.NoError(t, err)
	return s.Handler()
}

func get(t *testing.T, h http.Handler, path string, params url.Values, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	target := path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestGetElement_Success(t *testing.T) {
	svc := &mockService{}
	svc.On("GetElement", mock.Anything, automation.ElementRequest{
		URL:       "https://example.com/page",
		Selector:  "#title",
		ReadyText: "Hello",
		State:     automation.WaitAttached,
		Attribute: automation.AttributeText,
		Cookies:   "a=1",
	}).Return("Hello world", nil)

	rec := get(t, newTestServer(t, svc), "/Playwright/GetElement", url.Values{
		"url":       {"https://example.com/page"},
		"selector":  {"#title"},
		"readyText": {"Hello"},
		"state":     {"Attached"},
		"cookies":   {"a=1"},
	}, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Hello world", decode[string](t, rec))
	svc.AssertExpectations(t)
}

func TestGetElement_CallerCookiesNotForwarded(t *testing.T) {
	svc := &mockService{}
	svc.On("GetElement", mock.Anything, mock.MatchedBy(func(req automation.ElementRequest) bool {
		return req.Cookies == "" && req.State == automation.WaitVisible
	})).Return("ok", nil)

	rec := get(t, newTestServer(t, svc), "/Playwright/GetElement", url.Values{
		"url":      {"https://evil.example.net/"},
		"selector": {"h1"},
	}, http.Header{"Cookie": {"pwauto_session=s3cr3t; sso=abc"}})

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestGetElement_ForwardCookieHeader(t *testing.T) {
	svc := &mockService{}
	svc.On("GetElement", mock.Anything, mock.MatchedBy(func(req automation.ElementRequest) bool {
		return req.Cookies == "theme=dark"
	})).Return("ok", nil)

	rec := get(t, newTestServer(t, svc), "/Playwright/GetElement", url.Values{
		"url":      {"https://example.com"},
		"selector": {"p"},
	}, http.Header{
		"Cookie":            {"pwauto_session=s3cr3t"},
		ForwardCookieHeader: {"theme=dark"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestGetElementList_CallerCookiesNotForwarded(t *testing.T) {
	svc := &mockService{}
	svc.On("GetElementList", mock.Anything, mock.MatchedBy(func(req automation.ElementListRequest) bool {
		return req.Cookies == ""
	})).Return([]string{}, nil)

	rec := get(t, newTestServer(t, svc), "/Playwright/GetElementList", url.Values{
		"url":      {"https://example.com"},
		"selector": {"a"},
	}, http.Header{"Cookie": {"sso=abc"}})

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestGetElement_Clean(t *testing.T) {
	svc := &mockService{}
	svc.On("GetElement", mock.Anything, mock.Anything).
		Return(`<p onclick="x()">Hi</p><script>bad()</script>`, nil)

	rec := get(t, newTestServer(t, svc), "/Playwright/GetElement", url.Values{
		"url":       {"https://example.com"},
		"selector":  {"main"},
		"attribute": {"html"},
		"clean":     {"true"},
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<p>Hi</p>", decode[string](t, rec))
}

func TestGetElement_CleanIgnoredForText(t *testing.T) {
	svc := &mockService{}
	svc.On("GetElement", mock.Anything, mock.Anything).Return("<b>raw</b>", nil)

	rec := get(t, newTestServer(t, svc), "/Playwright/GetElement", url.Values{
		"url":      {"https://example.com"},
		"selector": {"main"},
		"clean":    {"true"},
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<b>raw</b>", decode[string](t, rec))
}

func TestGetElement_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		params url.Values
		status int
	}{
		{"missing url", url.Values{"selector": {"p"}}, http.StatusBadRequest},
		{"missing selector", url.Values{"url": {"https://example.com"}}, http.StatusBadRequest},
		{"bad scheme", url.Values{"url": {"file:///etc/passwd"}, "selector": {"p"}}, http.StatusBadRequest},
		{"bad state", url.Values{"url": {"https://example.com"}, "selector": {"p"}, "state": {"shiny"}}, http.StatusBadRequest},
		{"bad clean", url.Values{"url": {"https://example.com"}, "selector": {"p"}, "clean": {"maybe"}}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{}
			rec := get(t, newTestServer(t, svc), "/Playwright/GetElement", tt.params, nil)
			assert.Equal(t, tt.status, rec.Code)
			body := decode[errorResponse](t, rec)
			assert.Equal(t, tt.status, body.Status)
			assert.NotEmpty(t, body.Error)
			svc.AssertNotCalled(t, "GetElement", mock.Anything, mock.Anything)
		})
	}
}

func TestGetElement_HostNotAllowed(t *testing.T) {
	svc := &mockService{}
	h := newTestServer(t, svc, "*.example.com")

	rec := get(t, h, "/Playwright/GetElement", url.Values{
		"url":      {"https://evil.test/"},
		"selector": {"p"},
	}, nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	svc.AssertNotCalled(t, "GetElement", mock.Anything, mock.Anything)
}

func TestGetElement_Failure(t *testing.T) {
	svc := &mockService{}
	svc.On("GetElement", mock.Anything, mock.Anything).Return("", errors.New("element not ready"))

	rec := get(t, newTestServer(t, svc), "/Playwright/GetElement", url.Values{
		"url":      {"https://example.com"},
		"selector": {"p"},
	}, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "GetElement failed: element not ready", decode[errorResponse](t, rec).Error)
}

func TestGetElementList(t *testing.T) {
	svc := &mockService{}
	svc.On("GetElementList", mock.Anything, automation.ElementListRequest{
		URL:       "https://example.com",
		Selector:  "a",
		Attribute: automation.DefaultListAttribute,
	}).Return([]string{"/one", "/two"}, nil)

	rec := get(t, newTestServer(t, svc), "/Playwright/GetElementList", url.Values{
		"url":      {"https://example.com"},
		"selector": {"a"},
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"/one", "/two"}, decode[[]string](t, rec))
	svc.AssertExpectations(t)
}

func TestGetElementList_EmptyIsArray(t *testing.T) {
	svc := &mockService{}
	svc.On("GetElementList", mock.Anything, mock.Anything).Return(nil, nil)

	rec := get(t, newTestServer(t, svc), "/Playwright/GetElementList", url.Values{
		"url":      {"https://example.com"},
		"selector": {"a"},
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestGetElementList_Failure(t *testing.T) {
	svc := &mockService{}
	svc.On("GetElementList", mock.Anything, mock.Anything).Return(nil, errors.New("page closed"))

	rec := get(t, newTestServer(t, svc), "/Playwright/GetElementList", url.Values{
		"url":      {"https://example.com"},
		"selector": {"a"},
	}, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "GetElementList failed: page closed", decode[errorResponse](t, rec).Error)
}

func TestScreenshot(t *testing.T) {
	svc := &mockService{}
	svc.On("Screenshot", mock.Anything, automation.ScreenshotRequest{
		URL:      "https://example.com",
		FullPage: true,
	}).Return("screenshots/shot.png", nil)

	rec := get(t, newTestServer(t, svc), "/Playwright/Screenshot", url.Values{
		"url":      {"https://example.com"},
		"fullPage": {"true"},
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "screenshots/shot.png", decode[string](t, rec))
	svc.AssertExpectations(t)
}

func TestScreenshot_Failure(t *testing.T) {
	svc := &mockService{}
	svc.On("Screenshot", mock.Anything, mock.Anything).Return("", errors.New("boom"))

	rec := get(t, newTestServer(t, svc), "/Playwright/Screenshot", url.Values{
		"url": {"https://example.com"},
	}, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Screenshot failed: boom", decode[errorResponse](t, rec).Error)
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "pwauto_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	s, err := New(&mockService{}, Options{AllowedHosts: []string{"*"}, Gatherer: reg})
	require.NoError(t, err)
	h := s.Handler()

	rec := get(t, h, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = get(t, h, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pwauto_test_total 1")
}

func TestNew_InvalidHostPattern(t *testing.T) {
	_, err := New(&mockService{}, Options{AllowedHosts: []string{"[unclosed"}})
	assert.Error(t, err)
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(t, &mockService{})
	req := httptest.NewRequest(http.MethodPost, "/Playwright/GetElement", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
