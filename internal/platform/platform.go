package platform

import "strings"

// Platform identifies the e-commerce site a URL belongs to
type Platform string

const (
	Amazon   Platform = "Amazon"
	Flipkart Platform = "Flipkart"
	Myntra   Platform = "Myntra"
	Unknown  Platform = "Unknown"
)

// hostFragments maps a hostname fragment to its platform. Matching is
// a plain substring check so regional domains (amazon.in, amazon.com)
// all classify the same.
var hostFragments = []struct {
	fragment string
	platform Platform
}{
	{"amazon.", Amazon},
	{"flipkart.", Flipkart},
	{"myntra.", Myntra},
}

// Classify maps a URL to a known platform. It never fails; URLs from
// unrecognized sites classify as Unknown.
func Classify(url string) Platform {
	for _, hf := range hostFragments {
		if strings.Contains(url, hf.fragment) {
			return hf.platform
		}
	}
	return Unknown
}

// String returns the platform name
func (p Platform) String() string {
	return string(p)
}

// Supported reports whether the platform is a known site
func (p Platform) Supported() bool {
	return p != Unknown
}
