package types

// Predicate enumerates the comparison operators fields support.
type Predicate int

const (
	Equals Predicate = iota
	NotEqual
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
	Like
)

// String returns the SQL-ish spelling of the operator.
func (p Predicate) String() string {
	switch p {
	case Equals:
		return "="
	case NotEqual:
		return "!="
	case LessThan:
		return "<"
	case LessThanOrEqual:
		return "<="
	case GreaterThan:
		return ">"
	case GreaterThanOrEqual:
		return ">="
	case Like:
		return "LIKE"
	default:
		return "UNKNOWN"
	}
}
