package rbac

// RuleSatisfied reports whether a conditional rule grants its permission
// for the given context: the time window (if any) must hold at the
// context's creation instant, and every condition key must have an
// exactly equal value in the context data. A missing key fails the
// rule; there is no partial or fuzzy matching.
func RuleSatisfied(rule ConditionalRule, pctx *PermissionContext) bool {
	if pctx == nil {
		return false
	}

	if !rule.TimeWindow.Satisfied(pctx.CreatedAt) {
		return false
	}

	for key, want := range rule.Conditions {
		got, ok := pctx.Data[key]
		if !ok || !got.Equal(want) {
			return false
		}
	}

	return true
}
