package variant

import (
	"strconv"
	"strings"
)

// cdnaKeywords end a cDNA change in a ClinVar name. The keyword itself is
// kept in the extracted substring.
var cdnaKeywords = []string{"del", "delins", "dup", "ins", "inv", "subst"}

// ClinVarCDNA extracts the cDNA change from a ClinVar Name such as
// "NM_001142800.2(EYS):c.123A>T (p.Lys41Asn)", yielding "c.123A>T".
//
// The change starts after the first ':'. A protein part is cut one character
// before "p.". The change then ends after the earliest keyword occurrence;
// at equal positions the longer keyword wins, so delins is not cut to del.
func ClinVarCDNA(name string) string {
	start := strings.Index(name, ":") + 1

	if i := strings.Index(name, "p."); i >= 0 {
		cut := i - 1
		if cut < 0 {
			cut = 0
		}
		name = strings.TrimSpace(name[:cut])
	}
	if start > len(name) {
		return ""
	}

	end := len(name)
	best := -1
	for _, kw := range cdnaKeywords {
		i := strings.Index(name[start:], kw)
		if i < 0 {
			continue
		}
		i += start
		if best < 0 || i < best || (i == best && i+len(kw) > end) {
			best = i
			end = i + len(kw)
		}
	}
	return name[start:end]
}

// Range is a genomic interval as reported by ClinVar's GRCh38Location.
type Range struct {
	Start int64
	End   int64
}

// ParseRange parses "<start> - <end>" or a single "<pos>" (start == end).
func ParseRange(s string) (Range, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, false
	}
	a, b, found := strings.Cut(s, "-")
	start, err := strconv.ParseInt(strings.TrimSpace(a), 10, 64)
	if err != nil {
		return Range{}, false
	}
	if !found {
		return Range{Start: start, End: start}, true
	}
	end, err := strconv.ParseInt(strings.TrimSpace(b), 10, 64)
	if err != nil {
		return Range{}, false
	}
	return Range{Start: start, End: end}, true
}
