package dns

import (
	"strings"
)

const hostedZonePrefix = "/hostedzone/"

// FQDN lowercases a record name and adds the trailing dot the provider uses.
// The provider's octal escape for '*' is undone so wildcard names compare
// equal.
// e.g. "App.Example.com" → "app.example.com."
// e.g. "\052.example.com." → "*.example.com."
func FQDN(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, `\052`, "*")
	if !strings.HasSuffix(name, ".") {
		name += "."
	}
	return name
}

// ShortZoneID strips the "/hostedzone/" prefix from a zone id.
// e.g. "/hostedzone/Z123" → "Z123"
func ShortZoneID(id string) string {
	return strings.TrimPrefix(id, hostedZonePrefix)
}
