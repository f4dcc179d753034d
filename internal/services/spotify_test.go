package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/spx/internal/shared"
	tu "github.com/desertthunder/spx/internal/testing"
	"golang.org/x/time/rate"
)

func testSession() *shared.Session {
	return shared.NewSession(map[string]string{"sp_dc": "dc-value", "sp_t": "device-123"})
}

// testService wires a SpotifyService to a local server that grants tokens
// and routes query posts to the given handler.
func testService(t *testing.T, query http.HandlerFunc) *SpotifyService {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("totp") == "" || r.URL.Query().Get("totpVer") != "61" {
			t.Error("expected totp query parameters")
		}
		if c, err := r.Cookie("sp_dc"); err != nil || c.Value != "dc-value" {
			t.Error("expected session cookies forwarded to the token endpoint")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"accessToken":                      "access-token",
			"clientId":                         "client-id",
			"accessTokenExpirationTimestampMs": time.Now().Add(time.Hour).UnixMilli(),
		})
	})
	mux.HandleFunc("/v1/clienttoken", func(w http.ResponseWriter, r *http.Request) {
		var grant clientGrantRequest
		if err := json.NewDecoder(r.Body).Decode(&grant); err != nil {
			t.Errorf("expected client token payload, got %v", err)
		}
		if grant.ClientData.ClientID != "client-id" {
			t.Errorf("expected client id forwarded, got %q", grant.ClientData.ClientID)
		}
		if grant.ClientData.JSSDKData.DeviceID != "device-123" {
			t.Errorf("expected device id from sp_t cookie, got %q", grant.ClientData.JSSDKData.DeviceID)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"response_type": "RESPONSE_GRANTED_TOKEN_RESPONSE",
			"granted_token": map[string]any{"token": "granted", "expires_after_seconds": 1209600},
		})
	})
	mux.HandleFunc("/pathfinder/v2/query", query)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	svc := NewSpotifyService(SpotifyOpts{Session: testSession(), Limiter: rate.NewLimiter(rate.Inf, 1)})
	svc.tokenURL = server.URL + "/api/token"
	svc.clientURL = server.URL + "/v1/clienttoken"
	svc.queryURL = server.URL + "/pathfinder/v2/query"
	return svc
}

type queryPayload struct {
	OperationName string `json:"operationName"`
	Variables     struct {
		URI        string `json:"uri"`
		Offset     int    `json:"offset"`
		Limit      int    `json:"limit"`
		SearchTerm string `json:"searchTerm"`
	} `json:"variables"`
}

func decodeQuery(t *testing.T, r *http.Request) queryPayload {
	t.Helper()
	var payload queryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		t.Fatalf("expected query payload, got %v", err)
	}
	return payload
}

func trackRow(i int, name string) map[string]any {
	return map[string]any{
		"itemV2": map[string]any{
			"data": map[string]any{
				"__typename":    "Track",
				"name":          name,
				"uri":           fmt.Sprintf("spotify:track:ID%06d", i),
				"trackDuration": map[string]any{"totalMilliseconds": 180000},
				"artists": map[string]any{"items": []map[string]any{
					{"profile": map[string]any{"name": "Artist"}},
				}},
				"albumOfTrack": map[string]any{
					"__typename": "Album",
					"name":       "Album",
					"coverArt":   map[string]any{"sources": []map[string]any{{"url": "https://img/1"}}},
				},
			},
		},
	}
}

func playlistPage(total int, names ...string) map[string]any {
	items := make([]map[string]any, 0, len(names))
	for i, name := range names {
		items = append(items, trackRow(i, name))
	}
	return map[string]any{
		"data": map[string]any{
			"playlistV2": map[string]any{
				"__typename":  "Playlist",
				"name":        "Test Playlist",
				"description": "a test playlist",
				"uri":         "spotify:playlist:pl1",
				"ownerV2":     map[string]any{"data": map[string]any{"name": "Owner"}},
				"images": map[string]any{"items": []map[string]any{
					{"sources": []map[string]any{{"url": "https://img/cover"}}},
				}},
				"content": map[string]any{"totalCount": total, "items": items},
			},
		},
	}
}

func searchPage(names ...string) map[string]any {
	items := make([]map[string]any, 0, len(names))
	for i, name := range names {
		data := map[string]any{}
		if name != "" {
			data = map[string]any{
				"__typename":   "Track",
				"name":         name,
				"uri":          fmt.Sprintf("spotify:track:S%06d", i),
				"duration":     map[string]any{"totalMilliseconds": 200000},
				"artists":      map[string]any{"items": []map[string]any{{"profile": map[string]any{"name": "Artist"}}}},
				"albumOfTrack": map[string]any{"__typename": "Album", "name": "Album"},
			}
		}
		items = append(items, map[string]any{"item": map[string]any{"data": data}})
	}
	return map[string]any{
		"data": map[string]any{
			"searchV2": map[string]any{"tracksV2": map[string]any{"items": items}},
		},
	}
}

func pageNames(prefix string, n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s-%03d", prefix, i)
	}
	return names
}

func TestGenerateTOTP(t *testing.T) {
	t.Run("Deterministic For A Fixed Time", func(t *testing.T) {
		at := time.Unix(1700000000, 0)

		first, err := generateTOTP(totpVersion, at)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		second, err := generateTOTP(totpVersion, at)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if first != second {
			t.Errorf("expected a stable code for a fixed time, got %q and %q", first, second)
		}
		if len(first) != 6 {
			t.Errorf("expected a 6 digit code, got %q", first)
		}
	})

	t.Run("Unknown Version", func(t *testing.T) {
		if _, err := generateTOTP(999, time.Now()); !errors.Is(err, shared.ErrTokenExchange) {
			t.Errorf("expected ErrTokenExchange, got %v", err)
		}
	})
}

func TestNewSpotifyService(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		svc := NewSpotifyService(SpotifyOpts{})

		if svc.httpClient == nil || svc.limiter == nil || svc.logger == nil {
			t.Fatal("expected defaults for client, limiter, and logger")
		}
		if svc.tokenURL != webTokenURL || svc.queryURL != pathfinderURL {
			t.Error("expected production endpoints by default")
		}
		if svc.Name() != "Spotify" {
			t.Errorf("expected service name Spotify, got %s", svc.Name())
		}
	})

	t.Run("Catalog Interface", func(t *testing.T) {
		var _ Catalog = NewSpotifyService(SpotifyOpts{})
	})

	t.Run("No Session", func(t *testing.T) {
		svc := NewSpotifyService(SpotifyOpts{})
		if _, err := svc.PlaylistInfo(context.Background(), "pl1", 10, 0); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestSpotifyService(t *testing.T) {
	ctx := context.Background()

	t.Run("Token Exchange", func(t *testing.T) {
		svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer access-token" {
				t.Errorf("expected bearer header, got %q", r.Header.Get("Authorization"))
			}
			if r.Header.Get("Client-Token") != "granted" {
				t.Errorf("expected client token header, got %q", r.Header.Get("Client-Token"))
			}
			if r.Header.Get("Spotify-App-Version") != appVersion {
				t.Errorf("expected app version header, got %q", r.Header.Get("Spotify-App-Version"))
			}
			json.NewEncoder(w).Encode(playlistPage(0))
		})

		if _, err := svc.PlaylistInfo(ctx, "pl1", 10, 0); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if svc.accessToken != "access-token" || svc.clientToken != "granted" {
			t.Error("expected tokens cached on the service")
		}
	})

	t.Run("Stale Cookies", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{})
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		svc := NewSpotifyService(SpotifyOpts{Session: testSession()})
		svc.tokenURL = server.URL + "/api/token"

		if _, err := svc.PlaylistInfo(ctx, "pl1", 10, 0); !errors.Is(err, shared.ErrTokenExchange) {
			t.Errorf("expected ErrTokenExchange, got %v", err)
		}
	})

	t.Run("PlaylistInfo", func(t *testing.T) {
		svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
			payload := decodeQuery(t, r)
			if payload.OperationName != "fetchPlaylist" {
				t.Errorf("expected fetchPlaylist, got %q", payload.OperationName)
			}
			if payload.Variables.URI != "spotify:playlist:pl1" {
				t.Errorf("expected playlist uri, got %q", payload.Variables.URI)
			}
			json.NewEncoder(w).Encode(playlistPage(2, "One", "Two"))
		})

		chunk, err := svc.PlaylistInfo(ctx, "pl1", 25, 0)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if chunk.TotalCount != 2 || len(chunk.Items) != 2 {
			t.Fatalf("expected 2 rows, got %d of %d", len(chunk.Items), chunk.TotalCount)
		}
		if track := ExtractTrack(chunk.Items[1].ItemV2.Data); track.Name != "Two" {
			t.Errorf("expected second row Two, got %q", track.Name)
		}
	})

	t.Run("PlaylistChunks Paginates", func(t *testing.T) {
		calls := 0
		svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			payload := decodeQuery(t, r)
			switch payload.Variables.Offset {
			case 0:
				json.NewEncoder(w).Encode(playlistPage(150, pageNames("p0", 100)...))
			case 100:
				json.NewEncoder(w).Encode(playlistPage(150, pageNames("p1", 50)...))
			default:
				t.Errorf("unexpected offset %d", payload.Variables.Offset)
			}
		})

		chunks, err := svc.PlaylistChunks(ctx, "pl1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(chunks) != 2 {
			t.Fatalf("expected 2 chunks, got %d", len(chunks))
		}
		if calls != 2 {
			t.Errorf("expected 2 query calls, got %d", calls)
		}
		if len(chunks[0].Items) != 100 || len(chunks[1].Items) != 50 {
			t.Errorf("expected 100 and 50 rows, got %d and %d", len(chunks[0].Items), len(chunks[1].Items))
		}
	})

	t.Run("PlaylistChunks Keeps Partial Pages", func(t *testing.T) {
		svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
			payload := decodeQuery(t, r)
			if payload.Variables.Offset == 0 {
				json.NewEncoder(w).Encode(playlistPage(250, pageNames("p0", 100)...))
				return
			}
			http.Error(w, "upstream fell over", http.StatusBadGateway)
		})

		chunks, err := svc.PlaylistChunks(ctx, "pl1")
		if err != nil {
			t.Fatalf("expected partial result without error, got %v", err)
		}
		if len(chunks) != 1 || len(chunks[0].Items) != 100 {
			t.Fatalf("expected the first page kept, got %d chunks", len(chunks))
		}
	})

	t.Run("PlaylistChunks Errors When First Page Fails", func(t *testing.T) {
		svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusInternalServerError)
		})

		if _, err := svc.PlaylistChunks(ctx, "pl1"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Playlist Metadata", func(t *testing.T) {
		svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
			payload := decodeQuery(t, r)
			if payload.Variables.Limit != 1 {
				t.Errorf("expected a minimal page, got limit %d", payload.Variables.Limit)
			}
			json.NewEncoder(w).Encode(playlistPage(42, "One"))
		})

		meta, err := svc.Playlist(ctx, "pl1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if meta.Name != "Test Playlist" || meta.Owner != "Owner" || meta.Total != 42 {
			t.Errorf("unexpected metadata %+v", meta)
		}
		if meta.CoverURL != "https://img/cover" {
			t.Errorf("expected first cover source, got %q", meta.CoverURL)
		}
	})

	t.Run("Playlist Not Found", func(t *testing.T) {
		svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"playlistV2": map[string]any{}}})
		})

		if _, err := svc.Playlist(ctx, "missing"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("SearchTracks", func(t *testing.T) {
		svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
			payload := decodeQuery(t, r)
			if payload.OperationName != "searchDesktop" {
				t.Errorf("expected searchDesktop, got %q", payload.OperationName)
			}
			if payload.Variables.SearchTerm != "aphex twin" {
				t.Errorf("expected search term forwarded, got %q", payload.Variables.SearchTerm)
			}
			json.NewEncoder(w).Encode(searchPage("Windowlicker", "", "Flim"))
		})

		tracks, err := svc.SearchTracks(ctx, "aphex twin", 10)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected the empty hit dropped, got %d tracks", len(tracks))
		}
		if tracks[0].Name != "Windowlicker" || tracks[1].Name != "Flim" {
			t.Errorf("unexpected order %q, %q", tracks[0].Name, tracks[1].Name)
		}
		if tracks[0].DurationMS != 200000 {
			t.Errorf("expected the search duration field used, got %d", tracks[0].DurationMS)
		}
	})

	t.Run("AccessToken", func(t *testing.T) {
		svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("token minting should not touch the query endpoint")
		})

		token, err := svc.AccessToken(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "access-token" {
			t.Errorf("expected the session token, got %q", token)
		}
	})

	t.Run("Transport Error", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
		svc := NewSpotifyService(SpotifyOpts{Session: testSession(), HTTPClient: client})

		if _, err := svc.AccessToken(ctx); !errors.Is(err, shared.ErrTokenExchange) {
			t.Errorf("expected ErrTokenExchange, got %v", err)
		}
	})

	t.Run("Unreadable Token Response", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}}
		client := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}
		svc := NewSpotifyService(SpotifyOpts{Session: testSession(), HTTPClient: client})

		if _, err := svc.AccessToken(ctx); !errors.Is(err, shared.ErrTokenExchange) {
			t.Errorf("expected ErrTokenExchange, got %v", err)
		}
	})
}
