package value

// MatchesWhere reports whether rec satisfies every attribute in where.
// Each field must be present in rec. An Array target matches when the
// record's value is one of its elements or equals the whole array; any
// other target must be deeply equal to the record's value.
func MatchesWhere(rec, where Object) bool {
	for k, want := range where.fields {
		got, ok := rec.fields[k]
		if !ok {
			return false
		}
		if !MatchAttribute(got, want) {
			return false
		}
	}
	return true
}

// MatchAttribute applies the where-query rule to a single field value.
func MatchAttribute(got, want Value) bool {
	if Equal(got, want) {
		return true
	}
	if arr, ok := want.(Array); ok {
		return Contains(arr, got)
	}
	return false
}
