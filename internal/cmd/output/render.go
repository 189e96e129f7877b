package output

import (
	"io"
)

// Render writes data to w in the named format. An empty format renders a
// table.
func Render(w io.Writer, format string, data Data) error {
	f, err := ParseFormat(format)
	if err != nil {
		return err
	}
	return NewFormatter(f).Format(w, data)
}
