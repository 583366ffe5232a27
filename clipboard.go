package paramsheet

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// Clipboard carries text between CopyText and PasteText.
type Clipboard interface {
	ReadText() (string, error)
	WriteText(text string) error
}

// MemoryClipboard keeps the text in memory. It is the default.
type MemoryClipboard struct {
	text string
}

func (m *MemoryClipboard) ReadText() (string, error) { return m.text, nil }

func (m *MemoryClipboard) WriteText(text string) error {
	m.text = text
	return nil
}

// SystemClipboard uses the operating system clipboard.
type SystemClipboard struct{}

func (SystemClipboard) ReadText() (string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("read clipboard: %w", err)
	}
	return text, nil
}

func (SystemClipboard) WriteText(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("write clipboard: no clipboard utility available")
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}
