package version

import (
	"fmt"
	"strings"
)

// Channel is a release maturity tag that narrows candidate versions.
type Channel string

// Release channels, from most to least conservative.
const (
	ChannelStable Channel = "stable"
	ChannelBeta   Channel = "beta"
	ChannelCanary Channel = "canary"
)

// ParseChannel parses a channel name. The empty string means stable.
func ParseChannel(s string) (Channel, error) {
	switch Channel(strings.ToLower(strings.TrimSpace(s))) {
	case "", ChannelStable:
		return ChannelStable, nil
	case ChannelBeta:
		return ChannelBeta, nil
	case ChannelCanary:
		return ChannelCanary, nil
	default:
		return "", fmt.Errorf("unknown release channel %q (want stable, beta or canary)", s)
	}
}

// Admits reports whether a version is eligible on this channel.
// Stable admits releases only, beta also admits beta and rc pre-releases,
// canary admits everything.
func (c Channel) Admits(v Version) bool {
	if !v.IsPrerelease() {
		return true
	}
	switch c {
	case ChannelCanary:
		return true
	case ChannelBeta:
		pre := strings.ToLower(v.Prerelease())
		return strings.HasPrefix(pre, "beta") || strings.HasPrefix(pre, "rc")
	default:
		return false
	}
}

// Filter returns the versions admitted by the channel, preserving order.
func (c Channel) Filter(versions []Version) []Version {
	out := make([]Version, 0, len(versions))
	for _, v := range versions {
		if c.Admits(v) {
			out = append(out, v)
		}
	}
	return out
}

// String returns the channel name.
func (c Channel) String() string {
	if c == "" {
		return string(ChannelStable)
	}
	return string(c)
}
