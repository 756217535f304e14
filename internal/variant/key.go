// Package variant normalizes variant identifiers from LOVD, gnomAD and
// ClinVar into one canonical join key.
package variant

import (
	"strconv"
	"strings"
)

// Unresolved is the rendered form of a key that cannot join.
const Unresolved = "?"

// Kind identifies the shape of a canonical variant key.
type Kind int

const (
	KindUnresolved Kind = iota
	KindSubstitution
	KindDuplication
	KindDeletion
)

func (k Kind) String() string {
	switch k {
	case KindSubstitution:
		return "SUBSTITUTION"
	case KindDuplication:
		return "DUPLICATION"
	case KindDeletion:
		return "DELETION"
	default:
		return "UNRESOLVED"
	}
}

// Key is a canonical point variant. Ref and Alt are set for substitutions only.
type Key struct {
	Chrom string
	Pos   int64
	Kind  Kind
	Ref   byte
	Alt   byte
}

// Resolved reports whether the key can take part in a join.
func (k Key) Resolved() bool {
	return k.Kind != KindUnresolved
}

// String renders the key in gnomAD dash notation, or "?" when unresolved.
func (k Key) String() string {
	pos := strconv.FormatInt(k.Pos, 10)
	switch k.Kind {
	case KindSubstitution:
		return k.Chrom + "-" + pos + "-" + string(k.Ref) + "-" + string(k.Alt)
	case KindDuplication:
		return k.Chrom + "-" + pos + "-dup"
	case KindDeletion:
		return k.Chrom + "-" + pos + "-del"
	default:
		return Unresolved
	}
}

// HGVS renders the key back into HGVS genomic notation (g.123A>T).
func (k Key) HGVS() string {
	pos := strconv.FormatInt(k.Pos, 10)
	switch k.Kind {
	case KindSubstitution:
		return "g." + pos + string(k.Ref) + ">" + string(k.Alt)
	case KindDuplication:
		return "g." + pos + "dup"
	case KindDeletion:
		return "g." + pos + "del"
	default:
		return Unresolved
	}
}

// NormalizeChrom returns the chromosome name without a "chr" prefix.
func NormalizeChrom(chrom string) string {
	if len(chrom) > 3 && strings.EqualFold(chrom[:3], "chr") {
		return chrom[3:]
	}
	return chrom
}
