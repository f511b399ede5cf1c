package models

import "strings"

// StatusClass buckets the free-text classification status reported by the
// data provider.
type StatusClass int

const (
	StatusFinished StatusClass = iota
	StatusLapped
	StatusMechanicalFailure
	StatusRetired
)

const finishedStatus = "Finished"

var mechanicalKeywords = []string{"engine", "gearbox", "hydraulics", "mechanical"}

func (c StatusClass) String() string {
	switch c {
	case StatusFinished:
		return "finished"
	case StatusLapped:
		return "lapped"
	case StatusMechanicalFailure:
		return "mechanical_failure"
	default:
		return "retired"
	}
}

// ClassifyStatus maps a status string onto the taxonomy. Matching is by
// substring so that trained models see the same buckets as the historical
// feature tables.
func ClassifyStatus(status string) StatusClass {
	switch {
	case status == finishedStatus:
		return StatusFinished
	case strings.Contains(status, "+"):
		return StatusLapped
	case IsMechanicalFailure(status):
		return StatusMechanicalFailure
	default:
		return StatusRetired
	}
}

// IsDNFStatus reports whether the status counts as a non-finish: anything
// other than "Finished" that carries no "+N Lap(s)" marker.
func IsDNFStatus(status string) bool {
	return status != finishedStatus && !strings.Contains(status, "+")
}

// IsMechanicalFailure reports whether the status names a mechanical cause
// (case-insensitive).
func IsMechanicalFailure(status string) bool {
	lower := strings.ToLower(status)
	for _, kw := range mechanicalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
