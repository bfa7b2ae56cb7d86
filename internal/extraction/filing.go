package extraction

import "strings"

// FilingType is the disclosure classification attached to a document. The
// extraction pipeline never branches on it; it is carried through for the
// structured extractors that consume the text.
type FilingType string

// Known filing type codes.
const (
	FilingAnnual              FilingType = "A"
	FilingCandidate           FilingType = "C"
	FilingPeriodicTransaction FilingType = "P"
	FilingTermination         FilingType = "T"
	FilingExtension           FilingType = "X"
	FilingNewFiler            FilingType = "O"
	FilingDuplicate           FilingType = "D"
	FilingWithdrawal          FilingType = "W"
	FilingBlindTrust          FilingType = "B"
	FilingGiftTravel          FilingType = "G"
	FilingElectronicCopy      FilingType = "E"
	FilingAmendment           FilingType = "H"
)

var filingDescriptions = map[FilingType]string{
	FilingAnnual:              "annual report",
	FilingCandidate:           "candidate report",
	FilingPeriodicTransaction: "periodic transaction report",
	FilingTermination:         "termination report",
	FilingExtension:           "extension request",
	FilingNewFiler:            "new filer report",
	FilingDuplicate:           "duplicate filing",
	FilingWithdrawal:          "withdrawal notice",
	FilingBlindTrust:          "blind trust report",
	FilingGiftTravel:          "gift and travel report",
	FilingElectronicCopy:      "electronic copy",
	FilingAmendment:           "amendment",
}

// ParseFilingType normalizes a code. Unknown codes are kept verbatim so they
// still reach downstream consumers.
func ParseFilingType(s string) FilingType {
	s = strings.TrimSpace(s)
	if len(s) == 1 {
		return FilingType(strings.ToUpper(s))
	}
	return FilingType(s)
}

// Known reports whether the code is one of the documented filing types.
func (f FilingType) Known() bool {
	_, ok := filingDescriptions[f]
	return ok
}

// Description returns a human readable label, or the raw code when unknown.
func (f FilingType) Description() string {
	if d, ok := filingDescriptions[f]; ok {
		return d
	}
	return string(f)
}

// KnownFilingTypes lists every documented code.
func KnownFilingTypes() []FilingType {
	return []FilingType{
		FilingAnnual, FilingCandidate, FilingPeriodicTransaction, FilingTermination,
		FilingExtension, FilingNewFiler, FilingDuplicate, FilingWithdrawal,
		FilingBlindTrust, FilingGiftTravel, FilingElectronicCopy, FilingAmendment,
	}
}
