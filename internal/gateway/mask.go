package gateway

import (
	"regexp"
	"strings"
)

// Request and response bodies may carry full card numbers, CVVs and vault
// tokens. Everything written to the logs goes through MaskSensitive first.
var (
	panPattern   = regexp.MustCompile(`("(?:cardNumber|bin)"\s*:\s*")(\d{6})(\d*)(\d{4})(")`)
	cvvPattern   = regexp.MustCompile(`("cvv"\s*:\s*")\d{3,4}(")`)
	tokenPattern = regexp.MustCompile(`("token"\s*:\s*"[0-9a-fA-F]{8})-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}([0-9a-fA-F]{8}")`)
)

// MaskSensitive redacts card data from a JSON body destined for the logs.
// PANs keep the first six and last four digits, CVVs are removed entirely and
// vault tokens keep only their outer segments.
func MaskSensitive(body string) string {
	masked := panPattern.ReplaceAllStringFunc(body, func(m string) string {
		parts := panPattern.FindStringSubmatch(m)
		return parts[1] + parts[2] + strings.Repeat("*", len(parts[3])) + parts[4] + parts[5]
	})
	masked = cvvPattern.ReplaceAllString(masked, `${1}[PROVIDED]${2}`)
	masked = tokenPattern.ReplaceAllString(masked, `${1}-****-****-****-****${2}`)
	return masked
}
