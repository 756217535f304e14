package variant

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/table"
)

// Point forms of HGVS genomic notation. Interval forms (g.1_5del) are
// deliberately not recognized.
var (
	reHGVSDup   = regexp.MustCompile(`^g\.(\d+)dup$`)
	reHGVSDel   = regexp.MustCompile(`^g\.(\d+)del$`)
	reHGVSSubst = regexp.MustCompile(`^g\.(\d+)([A-Z])>([A-Z])$`)

	// gnomAD dash notation: 6-64430517-C-T, 6-64430518-dup, chr6-64430518-del
	reGnomAD = regexp.MustCompile(`^(?:chr)?([0-9]+|[XYM]|MT)-(\d+)-(?:(dup|del)|([A-Z])-([A-Z]))$`)

	// Leading position of any HGVS genomic string, used for liftover.
	reHGVSPos = regexp.MustCompile(`g\.(\d+)`)
)

// ParseHGVS parses a point HGVS genomic variant on the given chromosome.
// Anything else, including interval notation, yields an unresolved key.
func ParseHGVS(s, chrom string) Key {
	if strings.Contains(s, "_") {
		return Key{}
	}
	chrom = NormalizeChrom(chrom)
	if m := reHGVSDup.FindStringSubmatch(s); m != nil {
		return pointKey(chrom, m[1], KindDuplication)
	}
	if m := reHGVSDel.FindStringSubmatch(s); m != nil {
		return pointKey(chrom, m[1], KindDeletion)
	}
	if m := reHGVSSubst.FindStringSubmatch(s); m != nil {
		k := pointKey(chrom, m[1], KindSubstitution)
		if k.Resolved() {
			k.Ref, k.Alt = m[2][0], m[3][0]
		}
		return k
	}
	return Key{}
}

// ParseGnomAD parses a gnomAD dash-notation identifier. Multi-base alleles
// are not point variants and yield an unresolved key.
func ParseGnomAD(s string) Key {
	m := reGnomAD.FindStringSubmatch(s)
	if m == nil {
		return Key{}
	}
	switch m[3] {
	case "dup":
		return pointKey(m[1], m[2], KindDuplication)
	case "del":
		return pointKey(m[1], m[2], KindDeletion)
	}
	k := pointKey(m[1], m[2], KindSubstitution)
	if k.Resolved() {
		k.Ref, k.Alt = m[4][0], m[5][0]
	}
	return k
}

func pointKey(chrom, pos string, kind Kind) Key {
	p, err := strconv.ParseInt(pos, 10, 64)
	if err != nil || p <= 0 {
		return Key{}
	}
	return Key{Chrom: chrom, Pos: p, Kind: kind}
}

// Parse accepts either HGVS genomic or gnomAD dash notation. The chromosome
// is used only for HGVS input, which does not carry one.
func Parse(s, chrom string) Key {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "g.") {
		return ParseHGVS(s, chrom)
	}
	return ParseGnomAD(s)
}

// NormalizeToGnomAD converts a variant string to gnomAD dash notation on the
// given chromosome, returning "?" for missing, interval or malformed input.
func NormalizeToGnomAD(s, chrom string) string {
	return Parse(s, chrom).String()
}

// NormalizeValue normalizes a table cell. Null cells are "?"; cells that are
// not text are a coercion failure.
func NormalizeValue(v table.Value, chrom string) (string, error) {
	if v.IsNull() {
		return Unresolved, nil
	}
	s, ok := v.AsText()
	if !ok {
		return "", failure.New(failure.Coercion, v.String(), "variant identifier must be text, got %s", v.Kind())
	}
	return NormalizeToGnomAD(s, chrom), nil
}

// HGVSPosition extracts the first g.<pos> position from an HGVS string.
func HGVSPosition(s string) (int64, bool) {
	m := reHGVSPos.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	p, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return p, true
}
