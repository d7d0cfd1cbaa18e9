package util

import (
	"net/url"
	"strings"
)

// CodeLink builds the per-code permalink published in feeds,
// e.g. https://example.com/?code=AAAAA-BBBBB-CCCCC-DDDDD-EEEEE.
func CodeLink(siteURL, code string) string {
	base := strings.TrimRight(strings.TrimSpace(siteURL), "/")
	return base + "/?" + url.Values{"code": {code}}.Encode()
}
