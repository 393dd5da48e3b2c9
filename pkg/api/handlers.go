package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/entrhq/pwauto/pkg/automation"
)

// ForwardCookieHeader carries cookies meant for the target page. The caller's
// own Cookie header belongs to this service and is never forwarded.
const ForwardCookieHeader = "X-Forward-Cookie"

// requestCookies returns the cookies query parameter, or ForwardCookieHeader
// when the parameter is absent.
func requestCookies(r *http.Request) string {
	if c := r.URL.Query().Get("cookies"); c != "" {
		return c
	}
	return r.Header.Get(ForwardCookieHeader)
}

func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return v, nil
}

// checkTarget validates the url parameter. It writes the response and
// returns false when the request must stop.
func (s *Server) checkTarget(w http.ResponseWriter, rawURL string) bool {
	if strings.TrimSpace(rawURL) == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return false
	}

	allowed, err := s.hosts.AllowURL(rawURL)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if !allowed {
		respondError(w, http.StatusForbidden, "host not allowed")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetElement(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := automation.ElementRequest{
		URL:       q.Get("url"),
		Selector:  q.Get("selector"),
		ReadyText: q.Get("readyText"),
		State:     automation.WaitState(strings.ToLower(q.Get("state"))),
		Attribute: q.Get("attribute"),
		Cookies:   requestCookies(r),
	}.WithDefaults()

	if !s.checkTarget(w, req.URL) {
		return
	}
	if req.Selector == "" {
		respondError(w, http.StatusBadRequest, "selector is required")
		return
	}
	if !req.State.Valid() {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid state: %q", req.State))
		return
	}
	clean, err := boolParam(r, "clean")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	value, err := s.svc.GetElement(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "GetElement failed: "+err.Error())
		return
	}

	if clean && req.Attribute == automation.AttributeHTML {
		cleaned, truncated, err := CleanMarkup(value, s.cleanLength)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "GetElement failed: "+err.Error())
			return
		}
		if truncated {
			w.Header().Set("X-Content-Truncated", "true")
		}
		value = cleaned
	}

	respondJSON(w, http.StatusOK, value)
}

func (s *Server) handleGetElementList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := automation.ElementListRequest{
		URL:       q.Get("url"),
		Selector:  q.Get("selector"),
		Attribute: q.Get("attribute"),
		Cookies:   requestCookies(r),
	}.WithDefaults()

	if !s.checkTarget(w, req.URL) {
		return
	}
	if req.Selector == "" {
		respondError(w, http.StatusBadRequest, "selector is required")
		return
	}

	values, err := s.svc.GetElementList(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "GetElementList failed: "+err.Error())
		return
	}
	if values == nil {
		values = []string{}
	}

	respondJSON(w, http.StatusOK, values)
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	req := automation.ScreenshotRequest{
		URL:     r.URL.Query().Get("url"),
		Cookies: requestCookies(r),
	}
	if !s.checkTarget(w, req.URL) {
		return
	}

	fullPage, err := boolParam(r, "fullPage")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.FullPage = fullPage

	path, err := s.svc.Screenshot(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Screenshot failed: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, path)
}
