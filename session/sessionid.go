package session

import "fmt"

// Fixed identifiers: the symbol id and series id are
// constants, not generated, and the basic-studies study is always st1.
const (
	chartSymbolID = "sds_sym_1"
	chartSeriesID = "sds_1"
	basicStudyID  = "st1"
)

func chartSessionID(index int) string {
	return fmt.Sprintf("cs_%012d", index)
}

func quoteSessionID(index int) string {
	return fmt.Sprintf("qs_%012d", index)
}

// studyID returns the study id for the i-th (0-based) user indicator,
// continuing the counter after the basic-studies study (st1): st2, st3, ...
func studyID(userIndicatorIndex int) string {
	return fmt.Sprintf("st%d", userIndicatorIndex+2)
}
