package merge

// Rule maps one source column onto one target column. A rule without a
// target column is inert: it stays in the configuration for documentation
// but never produces a write.
type Rule struct {
	// SourceColumn is the column read from the source item.
	SourceColumn string

	// TargetColumn is the column written on the target item. Empty
	// disables the rule.
	TargetColumn string

	// Strategy governs whether the write is applied on update.
	Strategy Strategy

	// Transform names a registered transform applied to the source
	// value. Empty means the value passes through reshaped to the
	// target column's structural kind.
	Transform string

	// Options are transform-specific parameters supplied by the rule
	// (e.g. extra source column ids for multi-field transforms).
	Options map[string]string
}

// Active reports whether the rule can produce writes.
func (r Rule) Active() bool {
	return r.TargetColumn != ""
}
