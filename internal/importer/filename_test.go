package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseFileNameTimestampRoundTrip(t *testing.T) {
	ts := time.Date(2026, 7, 31, 14, 5, 9, 0, time.UTC)

	for _, sep := range []byte{'_', '-'} {
		name := formatFileNameTimestamp(ts, sep)
		got, err := parseFileNameTimestamp(name)
		assert.NoError(t, err)
		assert.True(t, ts.Equal(got))
	}
}

func TestParseFileNameTimestampRejectsGarbage(t *testing.T) {
	_, err := parseFileNameTimestamp("not-a-collection-file.json")
	assert.Error(t, err)
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestNormalizedSortKeyIgnoresSeparatorChoice(t *testing.T) {
	ts := time.Date(2026, 7, 31, 14, 5, 9, 0, time.UTC)
	underscore := formatFileNameTimestamp(ts, '_')
	hyphen := formatFileNameTimestamp(ts, '-')

	assert.Equal(t, normalizedSortKey(underscore), normalizedSortKey(hyphen))
}

func TestNormalizedSortKeyOrdersByTimestamp(t *testing.T) {
	earlier := formatFileNameTimestamp(time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC), '_')
	later := formatFileNameTimestamp(time.Date(2026, 7, 31, 11, 0, 0, 0, time.UTC), '-')

	assert.True(t, normalizedSortKey(earlier) < normalizedSortKey(later))
}
