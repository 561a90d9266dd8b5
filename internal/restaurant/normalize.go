package restaurant

import "strings"

// NormalizeKey is the single normalization boundary for tag and category
// keys. Every read and write of a tag-keyed structure goes through it.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// KeySet normalizes keys into a set, dropping empty entries.
func KeySet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if n := NormalizeKey(k); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// SharesAny reports whether any of keys is in set after normalization.
func SharesAny(keys []string, set map[string]struct{}) bool {
	for _, k := range keys {
		if _, ok := set[NormalizeKey(k)]; ok {
			return true
		}
	}
	return false
}
