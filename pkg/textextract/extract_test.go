package textextract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSupported(t *testing.T) {
	require.True(t, Supported("lecture.pdf"))
	require.True(t, Supported("Notes.DOCX"))
	require.True(t, Supported("syllabus.txt"))
	require.False(t, Supported("slides.pptx"))
	require.False(t, Supported("noextension"))
}

func TestExtractRejectsOversizedFile(t *testing.T) {
	_, err := Extract(bytes.NewReader(nil), MaxFileSize+1, "big.txt")
	require.Error(t, err)
}

func TestExtractRejectsUnknownType(t *testing.T) {
	data := []byte("hello")
	_, err := Extract(bytes.NewReader(data), int64(len(data)), "slides.pptx")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported file type")
}

func TestExtractTXT(t *testing.T) {
	data := []byte("  First paragraph.\n\nSecond paragraph.\n")
	got, err := Extract(bytes.NewReader(data), int64(len(data)), "notes.txt")
	require.NoError(t, err)
	require.Equal(t, "First paragraph.\n\nSecond paragraph.", got.Content)
}

func TestExtractDOCX(t *testing.T) {
	docXML := `<?xml version="1.0"?>
<w:document><w:body>
<w:p><w:r><w:t>Gradient descent updates weights.</w:t></w:r></w:p>
<w:p><w:r><w:t>The learning rate scales each step.</w:t></w:r></w:p>
</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(docXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	data := buf.Bytes()
	got, err := Extract(bytes.NewReader(data), int64(len(data)), "lecture.docx")
	require.NoError(t, err)

	paragraphs := strings.Split(got.Content, "\n\n")
	require.Len(t, paragraphs, 2, "paragraph boundaries survive markup stripping")
	require.Contains(t, paragraphs[0], "Gradient descent updates weights.")
	require.Contains(t, paragraphs[1], "The learning rate scales each step.")
}

func TestDocxToTextDropsTags(t *testing.T) {
	got := docxToText(`<w:p><w:r><w:t>alpha</w:t></w:r></w:p><w:p><w:r><w:t>beta</w:t></w:r></w:p>`)
	require.Equal(t, "alpha\n\nbeta", got)
}
