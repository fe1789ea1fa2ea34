package entity

var _ Entity = (*TextFile)(nil)

// TextFile is the only leaf variant. It holds mutable text content.
type TextFile struct {
	node
	content string
}

// NewTextFile creates a detached, empty text file.
func NewTextFile(name string) *TextFile {
	return &TextFile{node: newNode(name)}
}

func (f *TextFile) Kind() Kind { return KindTextFile }

// Content returns the current content.
func (f *TextFile) Content() string { return f.content }

// SetContent replaces the content. Size becomes the content length in bytes.
func (f *TextFile) SetContent(content string) {
	f.content = content
	f.size = int64(len(content))
	f.touch()
}
