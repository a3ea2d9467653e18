package ccda

import "github.com/clinsafe/clinsafe/internal/platform/preservation"

// SectionKind identifies the clinical type of an extracted record. The set is
// closed: adding a kind requires updating the section tables and the per-kind
// extractors together.
type SectionKind int

const (
	SectionMedications SectionKind = iota
	SectionResults
	SectionVitalSigns
	SectionAllergies
	SectionNarrative
)

func (k SectionKind) String() string {
	switch k {
	case SectionMedications:
		return "medications"
	case SectionResults:
		return "results"
	case SectionVitalSigns:
		return "vital_signs"
	case SectionAllergies:
		return "allergies"
	case SectionNarrative:
		return "narrative"
	default:
		return "unknown"
	}
}

// Record is a single clinical record extracted from a CDA section: a flat
// map of named fields plus a preservation digest over those fields. Records
// are transient; each is produced once per section entry and handed to the
// canonical transformer.
type Record struct {
	Kind             SectionKind
	Fields           map[string]string
	Enhanceable      bool
	PreservationHash string
}

// newRecord stamps the preservation digest over the given fields. The digest
// covers the content fields only; Kind, Enhanceable, and the digest itself
// are bookkeeping and stay outside the hashed set.
func newRecord(kind SectionKind, fields map[string]string, enhanceable bool) Record {
	return Record{
		Kind:             kind,
		Fields:           fields,
		Enhanceable:      enhanceable,
		PreservationHash: preservation.RecordDigest(fields),
	}
}
