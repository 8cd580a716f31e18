package twitterapi

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/workbenchdata/twitter-fetch/api/types"
)

// Twitter API v1.1 endpoints, relative to the API base URL.
const (
	EndpointUserTimeline = "1.1/statuses/user_timeline.json"
	EndpointSearch       = "1.1/search/tweets.json"
	EndpointListStatuses = "1.1/lists/statuses.json"
)

// Page limits per endpoint. user_timeline caps at 16 pages of 200 because
// Twitter serves at most the most recent 3,200 timeline tweets.
const (
	timelinePageSize = 200
	timelineMaxPages = 16
	searchPageSize   = 100
	searchMaxPages   = 10
	listPageSize     = 200
	listMaxPages     = 5
)

// Patterns follow twitter-text's definition of screen names and list slugs.
var (
	screenNameRe       = regexp.MustCompile(`^@?([a-zA-Z0-9_]{1,15})$`)
	listIDURLRe        = regexp.MustCompile(`^(?:https?://)?twitter\.com/i/lists/([0-9]+)$`)
	listIDRe           = regexp.MustCompile(`^([0-9]+)$`)
	listOwnerSlugURLRe = regexp.MustCompile(`^(?:https?://)?twitter\.com/@?([a-zA-Z0-9_]{1,15})/lists/([a-zA-Z][-_a-zA-Z0-9]{0,24})$`)
	listOwnerSlugRe    = regexp.MustCompile(`^@?([a-zA-Z0-9_]{1,15})/([a-zA-Z][-_a-zA-Z0-9]{0,24})$`)
)

// RequestTemplate is what the paginator needs to walk one query: the
// endpoint, its base parameters (no paging cursors), and the paging limits.
type RequestTemplate struct {
	Endpoint string
	Params   url.Values
	PageSize int
	MaxPages int
}

// BuildRequest validates a QuerySpec and maps it to a request template.
// Failures are ConfigError; no network is touched here.
func BuildRequest(spec types.QuerySpec) (*RequestTemplate, error) {
	if !slices.Contains(types.QueryTypes(), spec.Type) {
		return nil, &types.ErrorInfo{
			Kind:    types.ConfigError,
			Message: fmt.Sprintf("unknown query type %q", spec.Type),
		}
	}

	value := strings.TrimSpace(spec.Value)
	if value == "" {
		return nil, &types.ErrorInfo{Kind: types.ConfigError, Message: "please enter a query"}
	}

	switch spec.Type {
	case types.QueryUserTimeline:
		m := screenNameRe.FindStringSubmatch(value)
		if m == nil {
			return nil, &types.ErrorInfo{Kind: types.ConfigError, Message: "please enter a valid Twitter username"}
		}
		return newTemplate(EndpointUserTimeline, url.Values{"screen_name": {m[1]}}, timelinePageSize, timelineMaxPages), nil

	case types.QuerySearch:
		return newTemplate(EndpointSearch, url.Values{"q": {value}}, searchPageSize, searchMaxPages), nil

	default: // lists_statuses
		params, ok := parseListValue(value)
		if !ok {
			return nil, &types.ErrorInfo{Kind: types.ConfigError, Message: "please enter a valid Twitter list URL"}
		}
		return newTemplate(EndpointListStatuses, params, listPageSize, listMaxPages), nil
	}
}

func newTemplate(endpoint string, params url.Values, pageSize, maxPages int) *RequestTemplate {
	params.Set("tweet_mode", "extended")
	params.Set("include_entities", "false")
	params.Set("count", fmt.Sprintf("%d", pageSize))
	return &RequestTemplate{
		Endpoint: endpoint,
		Params:   params,
		PageSize: pageSize,
		MaxPages: maxPages,
	}
}

// parseListValue extracts list parameters from the forms users paste:
// a full list URL with owner and slug, a bare "owner/slug", a
// twitter.com/i/lists/<id> URL, or a bare numeric list id.
func parseListValue(value string) (url.Values, bool) {
	if m := listOwnerSlugURLRe.FindStringSubmatch(value); m != nil {
		return url.Values{"owner_screen_name": {m[1]}, "slug": {m[2]}}, true
	}
	if m := listOwnerSlugRe.FindStringSubmatch(value); m != nil {
		return url.Values{"owner_screen_name": {m[1]}, "slug": {m[2]}}, true
	}
	if m := listIDURLRe.FindStringSubmatch(value); m != nil {
		return url.Values{"list_id": {m[1]}}, true
	}
	if m := listIDRe.FindStringSubmatch(value); m != nil {
		return url.Values{"list_id": {m[1]}}, true
	}
	return nil, false
}
