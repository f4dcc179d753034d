// Utilities for loading browser session exports.
package shared

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Session holds the cookies recovered from a browser export. The sp_dc
// cookie is what authenticates catalog reads and playlist mutations.
type Session struct {
	cookies map[string]string
}

// LoadSession reads a serialized cookie dump from path and produces a Session.
//
// Three on-disk forms are accepted: a JSON object of name/value pairs, the
// array-of-objects format produced by cookie-export browser extensions,
// and Netscape cookies.txt. A copied cURL command works too; its -b flag or
// Cookie header is used. A missing file wraps [ErrMissingCookies].
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingCookies, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCookies, err)
	}

	cookies := ParseCookieExport(data)
	if len(cookies) == 0 {
		return nil, fmt.Errorf("%w: no cookies found in %s", ErrInvalidCookies, path)
	}

	return &Session{cookies: cookies}, nil
}

// NewSession creates a Session directly from a cookie map. Used by tests and
// by callers that already hold cookie values.
func NewSession(cookies map[string]string) *Session {
	c := make(map[string]string, len(cookies))
	for k, v := range cookies {
		c[k] = v
	}
	return &Session{cookies: c}
}

// Cookie returns the value of the named cookie, or "" when absent.
func (s *Session) Cookie(name string) string {
	return s.cookies[name]
}

// SpDC returns the sp_dc session cookie.
func (s *Session) SpDC() string {
	return s.cookies["sp_dc"]
}

// Cookies returns a copy of all loaded cookies.
func (s *Session) Cookies() map[string]string {
	c := make(map[string]string, len(s.cookies))
	for k, v := range s.cookies {
		c[k] = v
	}
	return c
}

// ParseCookieExport extracts cookies from raw export bytes, detecting the
// format. Unparseable input yields an empty map.
func ParseCookieExport(data []byte) map[string]string {
	trimmed := strings.TrimSpace(string(data))

	if strings.HasPrefix(trimmed, "{") {
		return parseJSONObject(data)
	}
	if strings.HasPrefix(trimmed, "[") {
		return parseJSONArray(data)
	}
	if strings.HasPrefix(trimmed, "curl") || strings.Contains(trimmed, "-b '") || strings.Contains(trimmed, "-b \"") {
		return parseCurlCookies(trimmed)
	}
	return parseNetscape(trimmed)
}

func parseJSONObject(data []byte) map[string]string {
	var cookies map[string]string
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil
	}
	return cookies
}

func parseJSONArray(data []byte) map[string]string {
	var entries []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}

	cookies := make(map[string]string)
	for _, e := range entries {
		if e.Name != "" {
			cookies[e.Name] = e.Value
		}
	}
	return cookies
}

// parseNetscape reads cookies.txt lines: seven tab-separated fields with the
// cookie name and value in the last two.
func parseNetscape(content string) map[string]string {
	cookies := make(map[string]string)

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}

		name := strings.TrimSpace(fields[5])
		if name != "" {
			cookies[name] = strings.TrimSpace(fields[6])
		}
	}

	return cookies
}

// parseCurlCookies extracts the cookie string from a copied cURL command,
// preferring the -b flag over a Cookie header.
func parseCurlCookies(curlCmd string) map[string]string {
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	var cookieHeader string

	cookieRegex := regexp.MustCompile(`-b\s+'([^']+)'|-b\s+"([^"]+)"`)
	if matches := cookieRegex.FindStringSubmatch(curlCmd); len(matches) > 1 {
		if matches[1] != "" {
			cookieHeader = matches[1]
		} else {
			cookieHeader = matches[2]
		}
	}

	if cookieHeader == "" {
		headerRegex := regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
		for _, match := range headerRegex.FindAllStringSubmatch(curlCmd, -1) {
			headerLine := match[1]
			if headerLine == "" {
				headerLine = match[2]
			}
			if strings.HasPrefix(strings.ToLower(headerLine), "cookie:") {
				parts := strings.SplitN(headerLine, ":", 2)
				if len(parts) == 2 {
					cookieHeader = strings.TrimSpace(parts[1])
				}
				break
			}
		}
	}

	cookies := make(map[string]string)
	for _, pair := range strings.Split(cookieHeader, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 && parts[0] != "" {
			cookies[parts[0]] = parts[1]
		}
	}

	return cookies
}
