package types

// QueryType selects which Twitter endpoint a fetch walks.
type QueryType string

const (
	QueryUserTimeline QueryType = "user_timeline"
	QuerySearch       QueryType = "search"
	QueryListStatuses QueryType = "lists_statuses"
)

// QueryTypes lists every supported query type.
func QueryTypes() []QueryType {
	return []QueryType{QueryUserTimeline, QuerySearch, QueryListStatuses}
}

// QuerySpec identifies what to fetch: a query type plus the single string
// parameter that type needs (username, search text, or list URL).
type QuerySpec struct {
	Type  QueryType `json:"querytype"`
	Value string    `json:"query"`
}

// Equal reports whether two specs address the same query.
func (q QuerySpec) Equal(other QuerySpec) bool {
	return q.Type == other.Type && q.Value == other.Value
}
