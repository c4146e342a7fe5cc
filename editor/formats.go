package editor

import (
	"fmt"
	"path"
	"strings"

	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
)

// DocumentType is the editor a file opens in.
type DocumentType string

const (
	Word  DocumentType = "word"
	Cell  DocumentType = "cell"
	Slide DocumentType = "slide"
	PDF   DocumentType = "pdf"
)

// Format describes how the Document Server handles a file extension.
type Format struct {
	Extension string
	Type      DocumentType
	Editable  bool
}

var formats = map[string]Format{}

func register(t DocumentType, editable bool, exts ...string) {
	for _, ext := range exts {
		formats[ext] = Format{Extension: ext, Type: t, Editable: editable}
	}
}

func init() {
	register(Word, true, "docx", "docm", "dotx", "docxf", "oform", "odt", "ott", "rtf", "txt")
	register(Word, false, "doc", "dot", "dotm", "epub", "fb2", "fodt", "htm", "html", "mht", "mhtml", "xml", "md", "hwp", "hwpx", "pages", "wps", "wpt")
	register(Cell, true, "xlsx", "xlsm", "xltx", "csv", "ods", "ots")
	register(Cell, false, "xls", "xlsb", "xlt", "xltm", "fods", "et", "ett", "numbers")
	register(Slide, true, "pptx", "pptm", "ppsx", "potx", "odp", "otp")
	register(Slide, false, "ppt", "pps", "ppsm", "pot", "potm", "fodp", "dps", "dpt", "key")
	register(PDF, true, "pdf")
	register(PDF, false, "djvu", "xps", "oxps")
}

// Extension returns the lower-case extension of filename without the dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
}

// LookupFormat finds the format of filename.
func LookupFormat(filename string) (Format, error) {
	ext := Extension(filename)
	f, ok := formats[ext]
	if !ok {
		return Format{}, &FormatError{Extension: ext}
	}
	return f, nil
}

// FormatError is returned for files the Document Server cannot open.
type FormatError struct {
	Extension string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("Sorry, this file format is not supported (%s)", e.Extension)
}

func (e *FormatError) Unwrap() error { return errors.ErrUnsupported }
