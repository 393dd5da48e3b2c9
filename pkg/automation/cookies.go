package automation

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// reservedCookie is never forwarded to the browser.
const reservedCookie = "token"

// Cookie is a single name/value pair parsed from a cookie header.
type Cookie struct {
	Name  string
	Value string
}

// ParseCookies parses a "name=value; name2=value2" header. Pairs without a
// name are skipped, as is the reserved "token" cookie.
func ParseCookies(header string) []Cookie {
	var cookies []Cookie
	for _, part := range strings.Split(header, ";") {
		pair := strings.TrimSpace(part)
		idx := strings.IndexByte(pair, '=')
		if idx <= 0 {
			continue
		}

		name := strings.TrimSpace(pair[:idx])
		value := strings.TrimSpace(pair[idx+1:])
		if name == "" || name == reservedCookie {
			continue
		}
		cookies = append(cookies, Cookie{Name: name, Value: value})
	}
	return cookies
}

// originOf returns scheme://host[:port] for rawURL.
func originOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid url %q: scheme and host are required", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

// cookiesForURL scopes the parsed header to the origin of rawURL. An empty
// header or URL yields no cookies.
func cookiesForURL(header, rawURL string) ([]playwright.OptionalCookie, error) {
	if strings.TrimSpace(header) == "" || strings.TrimSpace(rawURL) == "" {
		return nil, nil
	}

	origin, err := originOf(rawURL)
	if err != nil {
		return nil, err
	}

	parsed := ParseCookies(header)
	cookies := make([]playwright.OptionalCookie, 0, len(parsed))
	for _, c := range parsed {
		cookies = append(cookies, playwright.OptionalCookie{
			Name:  c.Name,
			Value: c.Value,
			URL:   playwright.String(origin),
		})
	}
	return cookies, nil
}
