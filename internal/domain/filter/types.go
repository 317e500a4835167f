// Package filter describes list query conditions submitted by API
// clients. Repositories translate items into SQL against a column
// whitelist.
package filter

// ComparisonType is the operator of a single condition.
type ComparisonType string

const (
	Equal          ComparisonType = "eq"
	NotEqual       ComparisonType = "neq"
	Less           ComparisonType = "lt"
	Greater        ComparisonType = "gt"
	LessOrEqual    ComparisonType = "lte"
	GreaterOrEqual ComparisonType = "gte"
	InList         ComparisonType = "in"
	NotInList      ComparisonType = "nin"

	// Contains and NotContains match with ILIKE %value%.
	Contains    ComparisonType = "contains"
	NotContains ComparisonType = "ncontains"

	// Hierarchy operators match an entity's group or any of its
	// descendant groups.
	InHierarchy    ComparisonType = "in_hierarchy"
	NotInHierarchy ComparisonType = "nin_hierarchy"

	IsNull    ComparisonType = "null"
	IsNotNull ComparisonType = "not_null"
)

// Item is one condition of a list query.
type Item struct {
	// Field is the snake_case column name. Repositories reject
	// fields outside their whitelist.
	Field    string         `json:"field"`
	Operator ComparisonType `json:"operator"`
	Value    any            `json:"value"`
}
