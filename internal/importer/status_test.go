package importer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkItemStatusTransitionsAreMonotonic(t *testing.T) {
	var s WorkItemStatus

	assert.True(t, s.SetDownloaded())
	assert.False(t, s.SetDownloaded())
	assert.True(t, s.Downloaded())
}

func TestWorkItemStatusFirstWriterWinsUnderConcurrency(t *testing.T) {
	var s WorkItemStatus
	var wg sync.WaitGroup
	wins := make([]bool, 50)

	for i := range wins {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wins[i] = s.SetImported()
		}(i)
	}
	wg.Wait()

	count := 0
	for _, w := range wins {
		if w {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestWorkItemStatusDoneAndDownloadTerminal(t *testing.T) {
	var s WorkItemStatus
	assert.False(t, s.Done())
	assert.False(t, s.DownloadTerminal())

	s.SetDownloadError()
	assert.True(t, s.DownloadTerminal())
	assert.True(t, s.Done())
}
