package workflow

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// docketSuffixLen follows the "last four digits of the row id" rule. The
// published example ABC25030700042 shows five digits and contradicts that
// rule; the rule wins, so keep this at four.
const docketSuffixLen = 4

// GenerateDocketNumber derives the human-readable docket identifier from the
// organization code, the creation date (YYMMDD) and the last four digits of
// the store-assigned row id, zero padded. Two requests of one organization
// created on the same day collide when their row ids share the last four digits.
// Row ids are assigned from 1; anything lower is rejected.
func GenerateDocketNumber(orgCode string, createdAt time.Time, rowID int64) (string, error) {
	if rowID <= 0 {
		return "", fmt.Errorf("docket number: row id must be positive, got %d", rowID)
	}
	suffix := strconv.FormatInt(rowID, 10)
	if len(suffix) > docketSuffixLen {
		suffix = suffix[len(suffix)-docketSuffixLen:]
	} else {
		suffix = strings.Repeat("0", docketSuffixLen-len(suffix)) + suffix
	}
	return orgCode + createdAt.Format("060102") + suffix, nil
}
