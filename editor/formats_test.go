package editor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
)

func TestLookupFormat(t *testing.T) {
	tests := []struct {
		filename string
		typ      DocumentType
		editable bool
	}{
		{"Report.DOCX", Word, true},
		{"old.doc", Word, false},
		{"budget.xlsx", Cell, true},
		{"data.csv", Cell, true},
		{"deck.pptx", Slide, true},
		{"form.pdf", PDF, true},
		{"scan.djvu", PDF, false},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			f, err := LookupFormat(tt.filename)
			require.NoError(t, err)
			require.Equal(t, tt.typ, f.Type)
			require.Equal(t, tt.editable, f.Editable)
		})
	}
}

func TestLookupFormat_Unsupported(t *testing.T) {
	_, err := LookupFormat("archive.zip")
	require.EqualError(t, err, "Sorry, this file format is not supported (zip)")
	require.ErrorIs(t, err, errors.ErrUnsupported)

	var formatErr *FormatError
	require.True(t, errors.As(err, &formatErr))
	require.Equal(t, "zip", formatErr.Extension)

	_, err = LookupFormat("README")
	require.ErrorIs(t, err, errors.ErrUnsupported)
}
