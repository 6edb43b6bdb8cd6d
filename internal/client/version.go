package client

import (
	"encoding/base64"
	"regexp"

	"github.com/controla/backend/internal/model"
)

var (
	// window.n8nVersion = "1.2.3"
	inlineVersionPattern = regexp.MustCompile(`window\.n8nVersion\s*=\s*["']([^"']+)["']`)
	// <meta name="n8n:config:sentry" content="base64(json)">
	sentryMetaPattern = regexp.MustCompile(`name="n8n:config:sentry"\s+content="([^"]+)"`)
	releasePattern    = regexp.MustCompile(`"release"\s*:\s*"n8n@([^"]+)"`)
)

// ExtractVersion reads the running version out of the editor HTML.
// The inline global wins over the sentry meta blob; neither yields "unknown".
func ExtractVersion(html string) string {
	if m := inlineVersionPattern.FindStringSubmatch(html); m != nil {
		return m[1]
	}
	if m := sentryMetaPattern.FindStringSubmatch(html); m != nil {
		decoded, err := base64.StdEncoding.DecodeString(m[1])
		if err != nil {
			return model.UnknownVersion
		}
		if r := releasePattern.FindSubmatch(decoded); r != nil {
			return string(r[1])
		}
	}
	return model.UnknownVersion
}
