package querysync

// QueryKey returns the effective query key for key within context:
// context + "_" + key when context is non-empty, otherwise key.
func QueryKey(key, context string) string {
	if context != "" {
		return context + "_" + key
	}
	return key
}
