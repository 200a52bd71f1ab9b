package chat

import (
	"context"
	"strings"

	"github.com/m-mizutani/mnemo/pkg/interfaces"
	"github.com/m-mizutani/mnemo/pkg/utils/logging"
)

var localKeywords = []string{"weather", "traffic", "air quality", "near me", "my location", "in my area"}

// Preprocess appends the user's city to queries about local conditions that do
// not name a place. The query is returned unchanged when the lookup fails.
func Preprocess(ctx context.Context, locator interfaces.Locator, query string) string {
	lowered := strings.ToLower(query)

	local := false
	for _, kw := range localKeywords {
		if strings.Contains(lowered, kw) {
			local = true
			break
		}
	}
	if !local || hasWord(lowered, "in") {
		return query
	}

	loc, err := locator.Locate(ctx)
	if err != nil {
		logging.From(ctx).Warn("location lookup failed, query left as is", "error", err)
		return query
	}
	if loc == nil || loc.City == "" {
		return query
	}

	return query + " in " + loc.City
}

func hasWord(text, word string) bool {
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if w == word {
			return true
		}
	}
	return false
}
