package relay

import "strings"

// Scopes the relay will forward to Kroger. Anything else is dropped.
var allowedScopes = map[string]struct{}{
	"product.compact":  {},
	"cart.basic:write": {},
	"profile.compact":  {},
	"coupon.basic":     {},
}

// DefaultScope is requested when the client asks for nothing usable.
const DefaultScope = "cart.basic:write profile.compact"

// ValidateScope filters the requested scope string against the allow-list,
// preserving the original token order. It never fails: when nothing valid
// remains it falls back to DefaultScope.
func ValidateScope(requested string) string {
	var valid []string
	for _, s := range strings.Fields(requested) {
		if _, ok := allowedScopes[s]; ok {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return DefaultScope
	}
	return strings.Join(valid, " ")
}
