package github

import (
	"net/url"
	"strconv"
	"strings"
)

// InferLastPage returns the page number of the rel="last" entry of a Link
// header, e.g. `<https://api.github.com/...&page=7>; rel="last"` yields 7.
// The second result is false when the header is empty, malformed or carries
// no last-page entry.
func InferLastPage(linkHeader string) (int, bool) {
	for _, entry := range strings.Split(linkHeader, ",") {
		target, params, found := strings.Cut(strings.TrimSpace(entry), ";")
		if !found || !isLastRelation(params) {
			continue
		}

		target = strings.TrimSpace(target)
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			return 0, false
		}
		u, err := url.Parse(target[1 : len(target)-1])
		if err != nil {
			return 0, false
		}
		page, err := strconv.Atoi(u.Query().Get("page"))
		if err != nil || page < 1 {
			return 0, false
		}
		return page, true
	}
	return 0, false
}

func isLastRelation(params string) bool {
	for _, param := range strings.Split(params, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if ok && strings.TrimSpace(key) == "rel" && strings.Trim(strings.TrimSpace(value), `"`) == "last" {
			return true
		}
	}
	return false
}
