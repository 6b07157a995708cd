package term

// Fresh-name generation. Variant follows the host convention of suffixing
// letters: base, basea, baseb, ..., basez, baseaa, and so on, taking the
// first candidate the taken predicate rejects.

// Variant returns base itself when free, otherwise the first letter-suffixed
// variant of base that is free.
func Variant(base string, taken func(string) bool) string {
	if base == "" {
		base = "x"
	}
	if !taken(base) {
		return base
	}
	for i := 0; ; i++ {
		cand := base + letterSuffix(i)
		if !taken(cand) {
			return cand
		}
	}
}

// Variants freshens each base in order, treating earlier results as taken.
func Variants(bases []string, taken func(string) bool) []string {
	picked := map[string]bool{}
	out := make([]string, len(bases))
	for i, b := range bases {
		name := Variant(b, func(s string) bool { return picked[s] || taken(s) })
		picked[name] = true
		out[i] = name
	}
	return out
}

// letterSuffix enumerates a, b, ..., z, aa, ab, ... (bijective base 26).
func letterSuffix(i int) string {
	var buf []byte
	i++
	for i > 0 {
		i--
		buf = append([]byte{byte('a' + i%26)}, buf...)
		i /= 26
	}
	return string(buf)
}
