package transcript

import "strings"

var noiseMarkers = map[string]struct{}{
	"[Music]":    {},
	"[Applause]": {},
}

func isNoise(segment string) bool {
	_, ok := noiseMarkers[segment]
	return ok
}

// Combine joins transcript entries into one text, dropping blank entries
// and [Music] / [Applause] markers.
func Combine(entries []string) string {
	kept := make([]string, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" || isNoise(e) {
			continue
		}
		kept = append(kept, e)
	}
	return strings.Join(kept, " ")
}
