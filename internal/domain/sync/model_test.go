package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommitDrawingID(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{message: "Save drawing drawing:1", want: "drawing:1"},
		{message: "Update drawing drawing:2", want: "drawing:2"},
		{message: "Delete drawing drawing:3", want: "drawing:3"},
		{message: "Initial commit", want: ""},
		{message: "Rename drawing a to b", want: ""},
		{message: "Merge drawing drawing:1", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, CommitDrawingID(tt.message))
		})
	}
}
