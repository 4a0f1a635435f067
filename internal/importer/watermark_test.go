package importer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeWatermarkSource struct {
	latest *time.Time
	err    error
}

func (f fakeWatermarkSource) LatestImportedModifiedDate(ctx context.Context) (*time.Time, error) {
	return f.latest, f.err
}

func TestNextHourTruncatesUpward(t *testing.T) {
	in := time.Date(2026, 7, 31, 14, 5, 9, 0, time.UTC)
	got := nextHour(in)
	assert.Equal(t, time.Date(2026, 7, 31, 15, 0, 0, 0, time.UTC), got)
}

func TestNextHourOnTheHourStillAdvances(t *testing.T) {
	in := time.Date(2026, 7, 31, 14, 0, 0, 0, time.UTC)
	got := nextHour(in)
	assert.Equal(t, time.Date(2026, 7, 31, 15, 0, 0, 0, time.UTC), got)
}

func TestResolveCursorWithNoCatalogHistoryUsesUserAfter(t *testing.T) {
	after := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cursor, err := resolveCursor(context.Background(), fakeWatermarkSource{}, &after)
	assert.NoError(t, err)
	assert.Equal(t, &after, cursor)
}

func TestResolveCursorResumesFromWatermark(t *testing.T) {
	lastImported := time.Date(2026, 7, 31, 9, 30, 0, 0, time.UTC)
	cursor, err := resolveCursor(context.Background(), fakeWatermarkSource{latest: &lastImported}, nil)
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC), *cursor)
}

func TestResolveCursorPrefersLaterUserAfter(t *testing.T) {
	lastImported := time.Date(2026, 7, 31, 9, 30, 0, 0, time.UTC)
	userAfter := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	cursor, err := resolveCursor(context.Background(), fakeWatermarkSource{latest: &lastImported}, &userAfter)
	assert.NoError(t, err)
	assert.Equal(t, userAfter, *cursor)
}
