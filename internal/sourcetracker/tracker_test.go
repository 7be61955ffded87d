package sourcetracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackerSkipsAfterThreshold(t *testing.T) {
	tr := New(120*time.Second, 3)

	assert.False(t, tr.ShouldSkip("arxiv"))
	tr.RecordFailure("arxiv")
	tr.RecordFailure("arxiv")
	assert.False(t, tr.ShouldSkip("arxiv"))
	tr.RecordFailure("arxiv")
	assert.True(t, tr.ShouldSkip("arxiv"))
}

func TestTrackerWindowExpires(t *testing.T) {
	tr := New(50*time.Millisecond, 2)
	tr.RecordFailure("pubmed")
	tr.RecordFailure("pubmed")
	assert.True(t, tr.ShouldSkip("pubmed"))

	time.Sleep(70 * time.Millisecond)
	assert.False(t, tr.ShouldSkip("pubmed"))
}

func TestTrackerRecordSuccessClears(t *testing.T) {
	tr := New(120*time.Second, 2)
	tr.RecordFailure("arxiv")
	tr.RecordFailure("arxiv")
	assert.True(t, tr.ShouldSkip("arxiv"))

	tr.RecordSuccess("arxiv")
	assert.False(t, tr.ShouldSkip("arxiv"))
}

func TestTrackerResetAll(t *testing.T) {
	tr := New(120*time.Second, 1)
	tr.RecordFailure("arxiv")
	tr.RecordFailure("pubmed")
	tr.ResetAll()

	assert.False(t, tr.ShouldSkip("arxiv"))
	assert.False(t, tr.ShouldSkip("pubmed"))
}
