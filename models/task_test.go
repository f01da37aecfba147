package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachments_RoundTrip(t *testing.T) {
	in := []string{"http://x", "http://y"}

	wire, err := EncodeAttachments(in)
	require.NoError(t, err)
	assert.Equal(t, "http://x,http://y", wire)
	assert.Equal(t, in, DecodeAttachments(wire))
}

func TestAttachments_KeepsEmptyEntriesAndOrder(t *testing.T) {
	in := []string{"b", "", "a"}

	wire, err := EncodeAttachments(in)
	require.NoError(t, err)
	assert.Equal(t, in, DecodeAttachments(wire))
	assert.Equal(t, []string{"a", "b"}, DecodeAttachments(" a , b "))
	assert.Empty(t, DecodeAttachments(""))
}

func TestAttachments_CommaIsRejected(t *testing.T) {
	_, err := EncodeAttachments([]string{"http://x?a=1,2"})
	assert.ErrorIs(t, err, ErrLossyAttachment)
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusBlocked, ParseStatus("blocked"))
	assert.Equal(t, StatusNotStarted, ParseStatus("done"))
	assert.Equal(t, StatusNotStarted, ParseStatus(""))
}

func TestSyncCompleted(t *testing.T) {
	task := Task{Status: StatusCompleted}
	task.SyncCompleted()
	assert.True(t, task.Completed)

	task.Status = StatusBlocked
	task.SyncCompleted()
	assert.False(t, task.Completed)
}

func TestClone_DoesNotShareState(t *testing.T) {
	user := 4
	orig := Task{ID: 1, Attachments: []string{"a"}, AssignedTo: &user}
	c := orig.Clone()
	c.Attachments[0] = "b"
	*c.AssignedTo = 9

	assert.Equal(t, "a", orig.Attachments[0])
	assert.Equal(t, 4, *orig.AssignedTo)
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "2024-05-01", NormalizeDate("2024-05-01T00:00:00.000Z"))
	assert.Equal(t, "2024-05-01", NormalizeDate("2024-05-01"))
	assert.Equal(t, "", NormalizeDate(""))
}

func TestDeadlines(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	overdue := Task{DueDate: "2024-05-01", Status: StatusInProgress}
	assert.True(t, overdue.IsPastDeadline(now))
	assert.False(t, overdue.IsNearDeadline(now))

	done := Task{DueDate: "2024-05-01", Status: StatusCompleted}
	assert.False(t, done.IsPastDeadline(now))

	soon := Task{DueDate: "2024-05-12", Status: StatusNotStarted}
	assert.True(t, soon.IsNearDeadline(now))
	assert.False(t, soon.IsPastDeadline(now))

	far := Task{DueDate: "2024-06-30"}
	assert.False(t, far.IsNearDeadline(now))

	none := Task{}
	assert.False(t, none.IsPastDeadline(now))
	assert.False(t, none.IsNearDeadline(now))
}

func TestJobScope_AcceptsStringAndArray(t *testing.T) {
	var p Project
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"job_scope":"A, B, ,C"}`), &p))
	assert.Equal(t, JobScope{"A", "B", "C"}, p.JobScope)

	require.NoError(t, json.Unmarshal([]byte(`{"id":2,"job_scope":["invoice","website"]}`), &p))
	assert.Equal(t, JobScope{"invoice", "website"}, p.JobScope)

	p = Project{}
	require.NoError(t, json.Unmarshal([]byte(`{"id":3,"job_scope":null}`), &p))
	assert.Empty(t, p.JobScope)
}

func TestParseTaskField(t *testing.T) {
	f, err := ParseTaskField("due_date")
	require.NoError(t, err)
	assert.Equal(t, FieldDueDate, f)

	_, err = ParseTaskField("id")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestParseUserRef(t *testing.T) {
	require.NotNil(t, ParseUserRef(" 12 "))
	assert.Equal(t, 12, *ParseUserRef("12"))
	assert.Nil(t, ParseUserRef(""))
	assert.Nil(t, ParseUserRef("abc"))
	assert.Nil(t, ParseUserRef("0"))
	assert.Nil(t, ParseUserRef("-3"))
	assert.Nil(t, ParseUserRef(" -1 "))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-07-01T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-07-01", d)

	d, err = ParseDate("")
	require.NoError(t, err)
	assert.Empty(t, d)

	_, err = ParseDate("01/07/2024")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
