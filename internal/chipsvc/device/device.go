// Package device classifies user agents into coarse device classes by
// signature matching.
package device

import "regexp"

type Class string

const (
	Mobile  Class = "Mobile"
	Tablet  Class = "Tablet"
	Desktop Class = "Desktop"
)

var (
	tabletRe     = regexp.MustCompile(`(?i)ipad|tablet|kindle|silk/|playbook|nexus (7|9|10)\b|sm-t\d|gt-p\d`)
	androidRe    = regexp.MustCompile(`(?i)android`)
	mobileWordRe = regexp.MustCompile(`(?i)mobile`)
	mobileRe     = regexp.MustCompile(`(?i)mobile|iphone|ipod|android|blackberry|bb10|iemobile|opera mini|windows phone|webos|palm`)
)

// Classify returns the device class for a raw User-Agent string. Empty or
// unmatched agents count as Desktop.
//
// Tablet signatures must be tried before mobile ones: tablet agents usually
// also match the mobile list (Android, "Mobile Safari", Silk).
func Classify(userAgent string) Class {
	switch {
	case userAgent == "":
		return Desktop
	case isTablet(userAgent):
		return Tablet
	case mobileRe.MatchString(userAgent):
		return Mobile
	default:
		return Desktop
	}
}

// Android tablets omit "Mobile" from the agent.
func isTablet(ua string) bool {
	if tabletRe.MatchString(ua) {
		return true
	}
	return androidRe.MatchString(ua) && !mobileWordRe.MatchString(ua)
}
