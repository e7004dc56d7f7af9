package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"NOT_DONE":    StatusNotDone,
		"not done":    StatusNotDone,
		" Not-Done ":  StatusNotDone,
		"in progress": StatusInProgress,
		"IN_PROGRESS": StatusInProgress,
		"done":        StatusDone,
	}
	for raw, want := range cases {
		got, err := ParseStatus(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"", "FINISHED", "NOTDONE", "DONE!"} {
		_, err := ParseStatus(raw)
		assert.ErrorIs(t, err, ErrInvalidStatus, raw)
	}
}

func TestStatusValidAndJSON(t *testing.T) {
	assert.True(t, StatusDone.Valid())
	assert.False(t, Status("done").Valid())
	assert.False(t, Status("LATE").Valid())

	var fields AssignmentFields
	require.NoError(t, json.Unmarshal([]byte(`{"course":"CMPT 201","name":"A0","due_date":"2024-09-15T00:00:00Z","status":"in progress"}`), &fields))
	assert.Equal(t, StatusInProgress, fields.Status)

	err := json.Unmarshal([]byte(`{"status":"LATE"}`), &fields)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAssignmentFieldsLink(t *testing.T) {
	blank := "  "
	link := " https://example.com/a0 "
	assert.Nil(t, AssignmentFields{}.NormalizedLink())
	assert.Nil(t, AssignmentFields{Link: &blank}.NormalizedLink())
	assert.Equal(t, "https://example.com/a0", *AssignmentFields{Link: &link}.NormalizedLink())

	a := Assignment{Course: "CMPT 201", Name: "A0", Status: StatusDone, Link: &link}
	f := a.Fields()
	*f.Link = "changed"
	assert.Equal(t, " https://example.com/a0 ", *a.Link)
}
