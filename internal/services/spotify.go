// Spotify web player implementation of [Catalog]
//
// Token exchange and query payloads mirror what the web player sends at
// startup; response shapes follow the pathfinder GraphQL schema.
package services

import (
	"bytes"
	"context"
	"encoding/base32"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/time/rate"
)

const (
	webTokenURL       = "https://open.spotify.com/api/token"
	clientGrantURL    = "https://clienttoken.spotify.com/v1/clienttoken"
	pathfinderURL     = "https://api-partner.spotify.com/pathfinder/v2/query"
	browserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	appVersion        = "1.2.46.132.g605e0a27"
	playlistQueryHash = "bb67e0af06e8d6f52b531f97468ee4acd44cd0f82b988e15c2ea47b1148efc77"
	searchQueryHash   = "fcad5a3e0d5af727fb76966f06971c19cfa2275e6ff7671196753e008611873c"
	playlistPageSize  = 100
	totpVersion       = 61
)

// totpSecrets holds the obfuscated shared secrets the web player ships,
// keyed by the totpVer value the token endpoint expects alongside the code.
var totpSecrets = map[int][]byte{
	61: {44, 55, 47, 42, 70, 40, 34, 114, 76, 74, 50, 111, 120, 97, 75, 76, 94, 102, 43, 69, 49, 120, 118, 80, 64, 78},
}

// generateTOTP derives the one-time code for the token exchange. The
// embedded secret is XOR-deobfuscated, flattened into a digit string, then
// hex and base32 encoded into a standard otpauth secret.
func generateTOTP(version int, at time.Time) (string, error) {
	secret, ok := totpSecrets[version]
	if !ok {
		return "", fmt.Errorf("%w: no totp secret for version %d", shared.ErrTokenExchange, version)
	}

	parts := make([]string, len(secret))
	for i, b := range secret {
		parts[i] = strconv.Itoa(int(b ^ byte((i%33)+9)))
	}

	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).
		EncodeToString([]byte(hex.EncodeToString([]byte(strings.Join(parts, "")))))

	key, err := otp.NewKeyFromURL(fmt.Sprintf("otpauth://totp/spx?secret=%s", encoded))
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrTokenExchange, err)
	}

	return totp.GenerateCode(key.Secret(), at)
}

type webToken struct {
	AccessToken string `json:"accessToken"`
	ClientID    string `json:"clientId"`
	ExpiresAtMS int64  `json:"accessTokenExpirationTimestampMs"`
}

type clientGrantRequest struct {
	ClientData clientData `json:"client_data"`
}

type clientData struct {
	ClientVersion string    `json:"client_version"`
	ClientID      string    `json:"client_id"`
	JSSDKData     jsSDKData `json:"js_sdk_data"`
}

type jsSDKData struct {
	DeviceBrand string `json:"device_brand"`
	DeviceModel string `json:"device_model"`
	OS          string `json:"os"`
	OSVersion   string `json:"os_version"`
	DeviceID    string `json:"device_id"`
	DeviceType  string `json:"device_type"`
}

type clientGrantResponse struct {
	ResponseType string       `json:"response_type"`
	GrantedToken grantedToken `json:"granted_token"`
}

type grantedToken struct {
	Token               string `json:"token"`
	ExpiresAfterSeconds int64  `json:"expires_after_seconds"`
}

type ownerV2 struct {
	Data ownerData `json:"data"`
}

type ownerData struct {
	Name string `json:"name"`
}

type imageList struct {
	Items []coverArt `json:"items"`
}

type playlistContent struct {
	TotalCount int            `json:"totalCount"`
	Items      []PlaylistItem `json:"items"`
}

type playlistV2 struct {
	Typename    string          `json:"__typename"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	URI         string          `json:"uri"`
	OwnerV2     ownerV2         `json:"ownerV2"`
	Images      imageList       `json:"images"`
	Content     playlistContent `json:"content"`
}

type playlistData struct {
	PlaylistV2 playlistV2 `json:"playlistV2"`
}

type playlistResponse struct {
	Data playlistData `json:"data"`
}

type searchHitItem struct {
	Data TrackData `json:"data"`
}

type searchHit struct {
	Item searchHitItem `json:"item"`
}

type searchTracksV2 struct {
	Items []searchHit `json:"items"`
}

type searchV2 struct {
	TracksV2 searchTracksV2 `json:"tracksV2"`
}

type searchData struct {
	SearchV2 searchV2 `json:"searchV2"`
}

type searchResponse struct {
	Data searchData `json:"data"`
}

// SpotifyService implements [Catalog] against the web player's private API
// using cookies exported from a logged-in browser session.
type SpotifyService struct {
	session    *shared.Session
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger

	tokenURL  string
	clientURL string
	queryURL  string

	mu          sync.Mutex
	accessToken string
	clientToken string
	clientID    string
	deviceID    string
	expiresAt   time.Time
}

// SpotifyOpts configures [NewSpotifyService]. Zero-valued fields fall back
// to working defaults.
type SpotifyOpts struct {
	Session    *shared.Session
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Logger     *log.Logger
}

// NewSpotifyService creates a catalog client around a browser session.
func NewSpotifyService(opts SpotifyOpts) *SpotifyService {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Limit(5), 1)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &SpotifyService{
		session:    opts.Session,
		httpClient: opts.HTTPClient,
		limiter:    opts.Limiter,
		logger:     opts.Logger,
		tokenURL:   webTokenURL,
		clientURL:  clientGrantURL,
		queryURL:   pathfinderURL,
	}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AccessToken returns the session-derived bearer token, refreshing it first
// when absent or stale. The same token authorizes Web API writes, so the
// account client can be built without a separate credential.
func (s *SpotifyService) AccessToken(ctx context.Context) (string, error) {
	if err := s.ensureTokens(ctx); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, nil
}

// ensureTokens refreshes the bearer and client tokens when either is absent
// or stale. Safe for concurrent callers.
func (s *SpotifyService) ensureTokens(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != "" && s.clientToken != "" && time.Now().Before(s.expiresAt) {
		return nil
	}

	if err := s.refreshAccessToken(ctx); err != nil {
		return err
	}

	return s.refreshClientToken(ctx)
}

// refreshAccessToken performs the cookie-plus-TOTP exchange the web player
// runs at startup. Callers hold s.mu.
func (s *SpotifyService) refreshAccessToken(ctx context.Context) error {
	if s.session == nil {
		return shared.ErrNotAuthenticated
	}

	code, err := generateTOTP(totpVersion, time.Now())
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("reason", "init")
	params.Set("productType", "web-player")
	params.Set("totp", code)
	params.Set("totpVer", strconv.Itoa(totpVersion))
	params.Set("totpServer", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.tokenURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTokenExchange, err)
	}

	req.Header.Set("User-Agent", browserAgent)
	req.Header.Set("Accept", "application/json")
	for name, value := range s.session.Cookies() {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTokenExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: token endpoint returned %d", shared.ErrTokenExchange, resp.StatusCode)
	}

	var token webToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTokenExchange, err)
	}

	if token.AccessToken == "" {
		return fmt.Errorf("%w: empty access token, cookies may be stale", shared.ErrTokenExchange)
	}

	s.accessToken = token.AccessToken
	s.clientID = token.ClientID
	s.deviceID = s.session.Cookie("sp_t")
	if s.deviceID == "" {
		s.deviceID = shared.GenerateID()
	}

	if token.ExpiresAtMS > 0 {
		s.expiresAt = time.UnixMilli(token.ExpiresAtMS).Add(-time.Minute)
	} else {
		s.expiresAt = time.Now().Add(30 * time.Minute)
	}

	return nil
}

// refreshClientToken trades the client ID and device ID for the client
// token the query endpoint requires. Callers hold s.mu.
func (s *SpotifyService) refreshClientToken(ctx context.Context) error {
	payload := clientGrantRequest{
		ClientData: clientData{
			ClientVersion: appVersion,
			ClientID:      s.clientID,
			JSSDKData: jsSDKData{
				DeviceBrand: "unknown",
				DeviceModel: "unknown",
				OS:          "windows",
				OSVersion:   "NT 10.0",
				DeviceID:    s.deviceID,
				DeviceType:  "computer",
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTokenExchange, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.clientURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTokenExchange, err)
	}

	req.Header.Set("User-Agent", browserAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTokenExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: client token endpoint returned %d", shared.ErrTokenExchange, resp.StatusCode)
	}

	var grant clientGrantResponse
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTokenExchange, err)
	}

	if grant.ResponseType != "RESPONSE_GRANTED_TOKEN_RESPONSE" || grant.GrantedToken.Token == "" {
		return fmt.Errorf("%w: client token not granted (%s)", shared.ErrTokenExchange, grant.ResponseType)
	}

	s.clientToken = grant.GrantedToken.Token
	return nil
}

// doQuery posts one persisted GraphQL query and decodes the response into
// result. Requests share the service rate limiter.
func (s *SpotifyService) doQuery(ctx context.Context, payload map[string]any, result any) error {
	if err := s.ensureTokens(ctx); err != nil {
		return err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.queryURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	s.mu.Lock()
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Client-Token", s.clientToken)
	s.mu.Unlock()
	req.Header.Set("User-Agent", browserAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Spotify-App-Version", appVersion)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: query endpoint returned %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	return nil
}

func playlistQuery(playlistID string, limit, offset int) map[string]any {
	return map[string]any{
		"variables": map[string]any{
			"uri":                       "spotify:playlist:" + playlistID,
			"offset":                    offset,
			"limit":                     limit,
			"enableWatchFeedEntrypoint": false,
		},
		"operationName": "fetchPlaylist",
		"extensions": map[string]any{
			"persistedQuery": map[string]any{
				"version":    1,
				"sha256Hash": playlistQueryHash,
			},
		},
	}
}

func searchQuery(term string, limit int) map[string]any {
	return map[string]any{
		"variables": map[string]any{
			"searchTerm":                    term,
			"offset":                        0,
			"limit":                         limit,
			"numberOfTopResults":            5,
			"includeAudiobooks":             true,
			"includeArtistHasConcertsField": false,
			"includePreReleases":            true,
			"includeAuthors":                false,
		},
		"operationName": "searchDesktop",
		"extensions": map[string]any{
			"persistedQuery": map[string]any{
				"version":    1,
				"sha256Hash": searchQueryHash,
			},
		},
	}
}

// PlaylistChunks walks the playlist page by page. A pagination fault after
// the first page returns what was gathered so far with a nil error.
func (s *SpotifyService) PlaylistChunks(ctx context.Context, playlistID string) ([]PlaylistChunk, error) {
	var chunks []PlaylistChunk

	for offset := 0; ; offset += playlistPageSize {
		chunk, err := s.PlaylistInfo(ctx, playlistID, playlistPageSize, offset)
		if err != nil {
			if len(chunks) == 0 {
				return nil, err
			}
			s.logger.Warn("playlist pagination stopped early", "offset", offset, "error", err)
			return chunks, nil
		}

		if len(chunk.Items) == 0 {
			return chunks, nil
		}

		chunks = append(chunks, chunk)

		if chunk.TotalCount > 0 && offset+len(chunk.Items) >= chunk.TotalCount {
			return chunks, nil
		}
		if len(chunk.Items) < playlistPageSize {
			return chunks, nil
		}
	}
}

// PlaylistInfo fetches a single page of playlist rows.
func (s *SpotifyService) PlaylistInfo(ctx context.Context, playlistID string, limit, offset int) (PlaylistChunk, error) {
	var decoded playlistResponse
	if err := s.doQuery(ctx, playlistQuery(playlistID, limit, offset), &decoded); err != nil {
		return PlaylistChunk{}, err
	}

	content := decoded.Data.PlaylistV2.Content
	return PlaylistChunk{Items: content.Items, TotalCount: content.TotalCount}, nil
}

// Playlist retrieves playlist metadata with a minimal single-row page.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	var decoded playlistResponse
	if err := s.doQuery(ctx, playlistQuery(playlistID, 1, 0), &decoded); err != nil {
		return nil, err
	}

	pl := decoded.Data.PlaylistV2
	if pl.URI == "" && pl.Name == "" {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}

	meta := models.Playlist{
		ID:          playlistID,
		Name:        pl.Name,
		Description: pl.Description,
		Owner:       pl.OwnerV2.Data.Name,
		Total:       pl.Content.TotalCount,
	}

	if len(pl.Images.Items) > 0 && len(pl.Images.Items[0].Sources) > 0 {
		meta.CoverURL = pl.Images.Items[0].Sources[0].URL
	}

	return &meta, nil
}

// SearchTracks runs a catalog search and extracts each hit into a canonical
// record, dropping hits with no track payload.
func (s *SpotifyService) SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	var decoded searchResponse
	if err := s.doQuery(ctx, searchQuery(query, limit), &decoded); err != nil {
		return nil, err
	}

	hits := decoded.Data.SearchV2.TracksV2.Items
	tracks := make([]models.Track, 0, len(hits))
	for _, hit := range hits {
		track := ExtractTrack(hit.Item.Data)
		if track.Empty() {
			continue
		}
		tracks = append(tracks, track)
	}

	return tracks, nil
}

var playlistRefPattern = regexp.MustCompile(`playlist[:/]([A-Za-z0-9]+)`)

// ParsePlaylistRef accepts a bare playlist ID, a spotify:playlist: URI, or
// an open.spotify.com playlist URL and returns the bare ID.
func ParsePlaylistRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty playlist reference", shared.ErrInvalidArgument)
	}

	if m := playlistRefPattern.FindStringSubmatch(ref); m != nil {
		return m[1], nil
	}

	if strings.ContainsAny(ref, ":/?") {
		return "", fmt.Errorf("%w: unrecognized playlist reference %q", shared.ErrInvalidArgument, ref)
	}

	return ref, nil
}
