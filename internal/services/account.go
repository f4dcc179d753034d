// Web API implementation of [Mutator]
package services

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	spotify "github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// AccountService implements [Mutator] with the public Web API. Unlike the
// catalog client it authenticates with a developer access token, so reads
// and writes can be configured independently.
type AccountService struct {
	client *spotify.Client
	logger *log.Logger
}

// NewAccountService builds a Web API client around a bearer access token.
func NewAccountService(ctx context.Context, accessToken string, logger *log.Logger) (*AccountService, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: access token required for playlist writes", shared.ErrNotAuthenticated)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	return &AccountService{client: spotify.New(httpClient), logger: logger}, nil
}

// CurrentUserID resolves the authenticated user's ID.
func (a *AccountService) CurrentUserID(ctx context.Context) (string, error) {
	user, err := a.client.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return user.ID, nil
}

// CreatePlaylist creates an empty playlist owned by the current user.
func (a *AccountService) CreatePlaylist(ctx context.Context, name, description string, public bool) (*models.Playlist, error) {
	userID, err := a.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}

	created, err := a.client.CreatePlaylistForUser(ctx, userID, name, description, public, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	a.logger.Info("created playlist", "id", created.ID, "name", created.Name)

	return &models.Playlist{
		ID:          string(created.ID),
		Name:        created.Name,
		Description: created.Description,
		Owner:       created.Owner.DisplayName,
	}, nil
}

// maxTracksPerRequest is the Web API cap on tracks added per call.
const maxTracksPerRequest = 100

// AddTracks appends tracks to a playlist. Each entry may be a bare ID, a
// track URI, or a share URL. Large sets are added in batches of 100.
func (a *AccountService) AddTracks(ctx context.Context, playlistID string, trackRefs []string) error {
	if len(trackRefs) == 0 {
		return fmt.Errorf("%w: no tracks to add", shared.ErrInvalidArgument)
	}

	ids := make([]spotify.ID, 0, len(trackRefs))
	for _, ref := range trackRefs {
		ids = append(ids, spotify.ID(ParseTrackRef(ref)))
	}

	for i := 0; i < len(ids); i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, len(ids))
		if _, err := a.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids[i:end]...); err != nil {
			return fmt.Errorf("%w: adding tracks %d-%d: %v", shared.ErrAPIRequest, i+1, end, err)
		}
	}

	return nil
}
