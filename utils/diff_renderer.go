package utils

import (
	"bytes"
	"io"

	"github.com/alecthomas/chroma/v2/quick"
)

// RenderPatch writes a unified diff highlighted with the given chroma theme.
// When highlighting fails the patch is written as plain text.
func RenderPatch(w io.Writer, patch []byte, theme string) error {
	if len(patch) == 0 {
		return nil
	}

	var buf bytes.Buffer
	if err := quick.Highlight(&buf, string(patch), "diff", "terminal256", theme); err != nil {
		_, err = w.Write(patch)
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
