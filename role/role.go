package role

import (
	"strings"

	"github.com/hashicorp/go-secure-stdlib/strutil"
)

// Role names are short uppercase tokens with set semantics.
const (
	Subscriber = "SUBSCRIBER"
	Producer   = "PRODUCER"
	Admin      = "ADMIN"
)

// Default returns the role set assigned to principals that register
// without explicit roles, including federated sign-ins.
func Default() []string {
	return []string{Subscriber}
}

// Normalize trims, uppercases and deduplicates a role list, dropping
// blank entries. It returns nil when nothing usable remains so callers
// can substitute Default().
func Normalize(roles []string) []string {
	upper := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.ToUpper(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		upper = append(upper, r)
	}
	deduped := strutil.RemoveDuplicatesStable(upper, false)
	if len(deduped) == 0 {
		return nil
	}
	return deduped
}

// Contains reports whether the role set carries the given role name.
func Contains(roles []string, name string) bool {
	return strutil.StrListContains(roles, name)
}
