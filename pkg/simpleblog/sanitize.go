package simpleblog

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// textPolicy strips all markup. Policies are safe for concurrent use.
var textPolicy = bluemonday.StrictPolicy()

// sanitizeText removes any markup and surrounding whitespace from
// user-supplied text before it is persisted.
func sanitizeText(s string) string {
	return strings.TrimSpace(textPolicy.Sanitize(s))
}
