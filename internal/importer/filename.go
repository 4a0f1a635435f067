package importer

import (
	"fmt"
	"regexp"
	"time"
)

// ParseError means file_name does not match either accepted pattern (§6
// file-name grammar).
type ParseError struct {
	FileName string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("file name %q does not match the collection-file grammar", e.FileName)
}

var fileNamePattern = regexp.MustCompile(`^pss-top-100[_-](\d{8}-\d{6})\.json$`)

const fileNameTimeLayout = "20060102-150405"

// parseFileNameTimestamp extracts the logical timestamp encoded in name, per
// the two accepted forms `pss-top-100_YYYYMMDD-HHMMSS.json` and
// `pss-top-100-YYYYMMDD-HHMMSS.json`. The timestamp is parsed as UTC and
// returned stripped of timezone (naive UTC, matching §3's CollectionFile
// fields).
func parseFileNameTimestamp(name string) (time.Time, error) {
	m := fileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, &ParseError{FileName: name}
	}
	t, err := time.Parse(fileNameTimeLayout, m[1])
	if err != nil {
		return time.Time{}, &ParseError{FileName: name}
	}
	return t.UTC(), nil
}

// formatFileNameTimestamp is the inverse of parseFileNameTimestamp, used by
// tests to verify the round-trip property (§8).
func formatFileNameTimestamp(t time.Time, separator byte) string {
	return fmt.Sprintf("pss-top-100%c%s.json", separator, t.UTC().Format(fileNameTimeLayout))
}

// normalizedSortKey neutralizes the upstream inconsistency where some files
// use `-` separators and others `_` (§4.3 step 2).
func normalizedSortKey(fileName string) string {
	out := make([]byte, len(fileName))
	for i := 0; i < len(fileName); i++ {
		if fileName[i] == '-' {
			out[i] = '_'
		} else {
			out[i] = fileName[i]
		}
	}
	return string(out)
}
