package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// DefaultOrdering is most recently created first, then most recently modified, then id.
var DefaultOrdering = []DBOrdering{
	{Field: "created_at"},
	{Field: "updated_at"},
	{Field: "id"},
}

// CleanOrderings drops fields that are not in allowed and always appends the
// default ordering so the result is a total order.
func CleanOrderings(orderings []DBOrdering, allowed ...string) []DBOrdering {
	cleaned := make([]DBOrdering, 0, len(orderings)+len(DefaultOrdering))
	seen := make(map[string]bool, len(orderings))
	for _, ord := range orderings {
		field := strings.ToLower(ord.Field)
		if seen[field] || !contains(allowed, field) {
			continue
		}
		seen[field] = true
		cleaned = append(cleaned, DBOrdering{Field: field, Ascending: ord.Ascending})
	}
	for _, ord := range DefaultOrdering {
		if !seen[ord.Field] {
			seen[ord.Field] = true
			cleaned = append(cleaned, ord)
		}
	}
	return cleaned
}

func OrderingClause(orderings []DBOrdering) string {
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		parts = append(parts, ord.String())
	}
	return strings.Join(parts, ", ")
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
