package session

import (
	"fmt"
	"strings"
)

// PlatformKind is the surface that a session automates.
type PlatformKind string

const (
	Web     PlatformKind = "web"
	Android PlatformKind = "android"
	IOS     PlatformKind = "ios"
)

// AllPlatforms lists every supported platform.
var AllPlatforms = []PlatformKind{Web, Android, IOS} //nolint:gochecknoglobals

// ParsePlatform converts a platform name, case-insensitively. It also accepts the name with a
// leading "@", as it appears in a scenario tag.
func ParsePlatform(name string) (PlatformKind, error) {
	k := PlatformKind(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@")))
	for _, p := range AllPlatforms {
		if k == p {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q", name)
}

// IsMobile is true for the platforms that are automated through Appium.
func (k PlatformKind) IsMobile() bool {
	return k == Android || k == IOS
}

func (k PlatformKind) String() string { return string(k) }
