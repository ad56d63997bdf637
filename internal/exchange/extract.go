package exchange

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Extractor pulls reply text out of a 2xx body. Extractors are tried in
// order; the first one reporting ok wins.
type Extractor func(body string) (text string, ok bool)

// PlainText treats the whole body as the reply.
func PlainText() Extractor {
	return func(body string) (string, bool) {
		return strings.TrimSpace(body), true
	}
}

// DefaultJSONFields is the field order checked in JSON reply mode.
var DefaultJSONFields = []string{"message", "response", "reply", "text", "content", "data.message", "result.message"}

// JSONField matches the first non-empty string found at one of the
// gjson paths. A body that is itself a JSON string also matches.
func JSONField(paths ...string) Extractor {
	return func(body string) (string, bool) {
		body = strings.TrimSpace(body)
		if !gjson.Valid(body) {
			return "", false
		}
		root := gjson.Parse(body)
		if root.Type == gjson.String {
			if s := strings.TrimSpace(root.String()); s != "" {
				return s, true
			}
			return "", false
		}
		for _, p := range paths {
			r := root.Get(p)
			if r.Type != gjson.String {
				continue
			}
			if s := strings.TrimSpace(r.String()); s != "" {
				return s, true
			}
		}
		return "", false
	}
}

// ExtractorsFor maps a configured reply mode to its strategy list.
func ExtractorsFor(mode string) []Extractor {
	if mode == ModeJSON {
		return []Extractor{JSONField(DefaultJSONFields...)}
	}
	return []Extractor{PlainText()}
}

const (
	ModeText = "text"
	ModeJSON = "json"
)
