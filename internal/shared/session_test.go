package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseCookieExport(t *testing.T) {
	t.Run("JSON Object", func(t *testing.T) {
		cookies := ParseCookieExport([]byte(`{"sp_dc": "AQBf", "sp_key": "ab-12"}`))

		if cookies["sp_dc"] != "AQBf" {
			t.Errorf("expected sp_dc AQBf, got %s", cookies["sp_dc"])
		}
		if cookies["sp_key"] != "ab-12" {
			t.Errorf("expected sp_key ab-12, got %s", cookies["sp_key"])
		}
	})

	t.Run("JSON Array", func(t *testing.T) {
		data := `[
	{"name": "sp_dc", "value": "AQBf", "domain": ".spotify.com"},
	{"name": "sp_t", "value": "tok", "domain": ".spotify.com"},
	{"name": "", "value": "dropped"}
]`
		cookies := ParseCookieExport([]byte(data))

		if len(cookies) != 2 {
			t.Fatalf("expected 2 cookies, got %d", len(cookies))
		}
		if cookies["sp_dc"] != "AQBf" {
			t.Errorf("expected sp_dc AQBf, got %s", cookies["sp_dc"])
		}
	})

	t.Run("Netscape", func(t *testing.T) {
		data := "# Netscape HTTP Cookie File\n" +
			".spotify.com\tTRUE\t/\tTRUE\t1735689600\tsp_dc\tAQBf\n" +
			".spotify.com\tTRUE\t/\tTRUE\t1735689600\tsp_key\tab-12\n" +
			"not a cookie line\n"
		cookies := ParseCookieExport([]byte(data))

		if len(cookies) != 2 {
			t.Fatalf("expected 2 cookies, got %d", len(cookies))
		}
		if cookies["sp_dc"] != "AQBf" {
			t.Errorf("expected sp_dc AQBf, got %s", cookies["sp_dc"])
		}
	})

	t.Run("Curl Cookie Flag", func(t *testing.T) {
		data := `curl 'https://open.spotify.com/' \
  -b 'sp_dc=AQBf; sp_key=ab-12' \
  -H 'accept: text/html'`
		cookies := ParseCookieExport([]byte(data))

		if cookies["sp_dc"] != "AQBf" {
			t.Errorf("expected sp_dc AQBf, got %s", cookies["sp_dc"])
		}
		if cookies["sp_key"] != "ab-12" {
			t.Errorf("expected sp_key ab-12, got %s", cookies["sp_key"])
		}
	})

	t.Run("Curl Cookie Header", func(t *testing.T) {
		data := `curl 'https://open.spotify.com/' -H 'cookie: sp_dc=AQBf; sp_t=tok'`
		cookies := ParseCookieExport([]byte(data))

		if cookies["sp_dc"] != "AQBf" {
			t.Errorf("expected sp_dc AQBf, got %s", cookies["sp_dc"])
		}
		if cookies["sp_t"] != "tok" {
			t.Errorf("expected sp_t tok, got %s", cookies["sp_t"])
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		if cookies := ParseCookieExport([]byte("not cookies at all")); len(cookies) != 0 {
			t.Errorf("expected no cookies, got %v", cookies)
		}
	})
}

func TestLoadSession(t *testing.T) {
	t.Run("Reads Cookie File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cookies.json")
		if err := os.WriteFile(path, []byte(`{"sp_dc": "AQBf"}`), 0600); err != nil {
			t.Fatalf("failed to write cookie file: %v", err)
		}

		session, err := LoadSession(path)
		if err != nil {
			t.Fatalf("failed to load session: %v", err)
		}

		if session.SpDC() != "AQBf" {
			t.Errorf("expected sp_dc AQBf, got %s", session.SpDC())
		}
	})

	t.Run("Missing File", func(t *testing.T) {
		_, err := LoadSession(filepath.Join(t.TempDir(), "absent.txt"))
		if !errors.Is(err, ErrMissingCookies) {
			t.Errorf("expected ErrMissingCookies, got %v", err)
		}
	})

	t.Run("Empty Export", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cookies.txt")
		if err := os.WriteFile(path, []byte("# just a comment\n"), 0600); err != nil {
			t.Fatalf("failed to write cookie file: %v", err)
		}

		_, err := LoadSession(path)
		if !errors.Is(err, ErrInvalidCookies) {
			t.Errorf("expected ErrInvalidCookies, got %v", err)
		}
	})
}

func TestSession(t *testing.T) {
	session := NewSession(map[string]string{"sp_dc": "AQBf", "sp_key": "ab-12"})

	t.Run("Cookie", func(t *testing.T) {
		if got := session.Cookie("sp_key"); got != "ab-12" {
			t.Errorf("expected ab-12, got %s", got)
		}
		if got := session.Cookie("absent"); got != "" {
			t.Errorf("expected empty value for absent cookie, got %s", got)
		}
	})

	t.Run("Cookies Returns a Copy", func(t *testing.T) {
		cookies := session.Cookies()
		cookies["sp_dc"] = "mutated"

		if session.SpDC() != "AQBf" {
			t.Error("mutating the returned map should not affect the session")
		}
	})
}
