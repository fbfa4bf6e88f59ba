package app

import (
	"fmt"
	"net/url"
	"strings"

	"talent-assessment-service/internal/domain"
)

const examPathPrefix = "/exam/"

// HandoffLink appends the fragment-style exam path for sessionID to baseURL.
func HandoffLink(baseURL, sessionID string) string {
	base := strings.TrimSuffix(baseURL, "#")
	if i := strings.Index(base, "#"); i >= 0 {
		base = base[:i]
	}
	return base + "#" + examPathPrefix + url.PathEscape(sessionID)
}

// ParseHandoffLocator extracts the session id from a locator. It accepts a full
// link (".../#/exam/<id>"), a bare fragment ("#/exam/<id>") or a path ("/exam/<id>").
func ParseHandoffLocator(locator string) (string, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", fmt.Errorf("%w: empty", domain.ErrInvalidLocator)
	}

	path := locator
	if i := strings.Index(locator, "#"); i >= 0 {
		path = locator[i+1:]
	} else if u, err := url.Parse(locator); err == nil && u.Scheme != "" {
		path = u.Path
	}

	i := strings.Index(path, examPathPrefix)
	if i < 0 {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidLocator, locator)
	}
	raw := strings.TrimSuffix(path[i+len(examPathPrefix):], "/")
	id, err := url.PathUnescape(raw)
	if err != nil || id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidLocator, locator)
	}
	return id, nil
}
