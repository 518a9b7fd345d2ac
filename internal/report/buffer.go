package report

import (
	"errors"
	"strings"
)

// ErrNotGenerated is returned when the buffer is edited or saved before a
// report was generated.
var ErrNotGenerated = errors.New("report: not generated yet")

// Buffer holds the report text between generation and save. After
// Generate the text belongs to the evaluator; only another Generate or a
// Reset replaces it.
type Buffer struct {
	lines     []string
	text      string
	generated bool
	edited    bool
}

// Generate replaces the buffer with a freshly synthesized report.
func (b *Buffer) Generate(r Report) {
	b.lines = append([]string(nil), r.Lines...)
	b.text = r.Text
	b.generated = true
	b.edited = false
}

// Edit replaces the text with the evaluator's version.
func (b *Buffer) Edit(text string) error {
	if !b.generated {
		return ErrNotGenerated
	}
	if text != b.text {
		b.edited = true
	}
	b.text = text
	return nil
}

// Reset empties the buffer.
func (b *Buffer) Reset() {
	*b = Buffer{}
}

// Text returns the current report text.
func (b *Buffer) Text() string { return b.text }

// Lines returns the blocks of the last generation. Edits are not reflected.
func (b *Buffer) Lines() []string {
	return append([]string(nil), b.lines...)
}

// Generated reports whether Generate ran since the last Reset.
func (b *Buffer) Generated() bool { return b.generated }

// Edited reports whether the text differs from what was generated.
func (b *Buffer) Edited() bool { return b.edited }

// Blank reports whether there is nothing worth saving.
func (b *Buffer) Blank() bool { return strings.TrimSpace(b.text) == "" }
