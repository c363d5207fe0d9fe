package model

// PlatformType identifies which backend a cached row came from
type PlatformType string

// Supported backends
const (
	PlatformMastodon PlatformType = "mastodon"
	PlatformMisskey  PlatformType = "misskey"
	PlatformBluesky  PlatformType = "bluesky"
	PlatformXQT      PlatformType = "xqt"
	PlatformVVO      PlatformType = "vvo"
)

// Valid reports whether the platform type is a known backend
func (p PlatformType) Valid() bool {
	switch p {
	case PlatformMastodon, PlatformMisskey, PlatformBluesky, PlatformXQT, PlatformVVO:
		return true
	}
	return false
}
