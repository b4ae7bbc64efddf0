package app

import "github.com/DeamonDev888/screen-recorder/internal/library"

// ApplyOrder arranges recordings by a saved order of paths. Paths no longer
// in the library are ignored; recordings missing from the order follow the
// ordered ones in their incoming order.
func ApplyOrder(recs []library.Recording, order []string) []library.Recording {
	if len(order) == 0 {
		return recs
	}
	byPath := make(map[string]int, len(recs))
	for i, r := range recs {
		byPath[r.Path] = i
	}

	out := make([]library.Recording, 0, len(recs))
	placed := make([]bool, len(recs))
	for _, p := range order {
		i, ok := byPath[p]
		if !ok || placed[i] {
			continue
		}
		placed[i] = true
		out = append(out, recs[i])
	}
	for i, r := range recs {
		if !placed[i] {
			out = append(out, r)
		}
	}
	return out
}

// Paths returns the order implied by recs.
func Paths(recs []library.Recording) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Path
	}
	return out
}

// move swaps recs[i] with its neighbour in direction delta. It reports
// whether anything moved.
func move(recs []library.Recording, i, delta int) bool {
	j := i + delta
	if i < 0 || i >= len(recs) || j < 0 || j >= len(recs) {
		return false
	}
	recs[i], recs[j] = recs[j], recs[i]
	return true
}
