package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Usage and precondition errors; commands failing with these exit 2
	ErrUsage           = fmt.Errorf("usage error")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Session errors
	ErrMissingCookies   = fmt.Errorf("cookie file not found")
	ErrInvalidCookies   = fmt.Errorf("cookie file unreadable")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExchange    = fmt.Errorf("token exchange failed")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Catalog and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")

	// Acquisition errors
	ErrToolMissing = fmt.Errorf("downloader tool not found on PATH")
)
