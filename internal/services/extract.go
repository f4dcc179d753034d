package services

import (
	"regexp"
	"strings"

	"github.com/desertthunder/spx/internal/models"
)

var trackIDPattern = regexp.MustCompile(`track:([A-Za-z0-9]+)`)

// trackRefPattern matches a bare track ID, a spotify:track: URI, or an
// open.spotify.com track URL. Bare IDs shorter than ten characters are
// passed through untouched.
var trackRefPattern = regexp.MustCompile(`(?:(?:spotify:track:)|(?:open\.spotify\.com/track/))?([A-Za-z0-9]{10,})`)

// ExtractTrack collapses one raw catalog payload into a canonical record.
// Every upstream field is optional; missing pieces leave the corresponding
// record field empty rather than failing. A payload with nothing usable
// yields a record for which [models.Track.Empty] reports true.
func ExtractTrack(data TrackData) models.Track {
	track := models.Track{
		Name: data.Name,
		URI:  data.URI,
	}

	names := make([]string, 0, len(data.Artists.Items))
	for _, artist := range data.Artists.Items {
		if artist.Profile == nil {
			continue
		}
		names = append(names, artist.Profile.Name)
	}
	track.Artists = strings.Join(names, ", ")

	if album := data.AlbumOfTrack; album != nil {
		track.Album = album.Name
		if track.Album == "" {
			track.Album = album.Typename
		}
		if len(album.CoverArt.Sources) > 0 {
			track.CoverURL = album.CoverArt.Sources[0].URL
		}
	}

	if data.Duration != nil {
		track.DurationMS = data.Duration.TotalMilliseconds
	} else if data.TrackDuration != nil {
		track.DurationMS = data.TrackDuration.TotalMilliseconds
	}

	if m := trackIDPattern.FindStringSubmatch(track.URI); m != nil {
		track.ID = m[1]
	}

	return track
}

// ParseTrackRef accepts a bare track ID, a spotify:track: URI, or an
// open.spotify.com track URL and returns the bare ID. Unrecognized input
// is returned unchanged so short IDs keep working.
func ParseTrackRef(ref string) string {
	if m := trackRefPattern.FindStringSubmatch(strings.TrimSpace(ref)); m != nil {
		return m[1]
	}
	return ref
}
