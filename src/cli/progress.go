package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

// progressReader implements an io.ReadCloser that shows a progress bar in the terminal which
// updates as more is read.
// You should take care to close this in order to clean up the terminal afterwards.
type progressReader struct {
	current, last, max, width int
	message                   string
	reader                    io.Reader
}

// NewProgressReader returns a new progress bar reader.
func NewProgressReader(reader io.Reader, total int, message string) io.ReadCloser {
	width, _, _ := term.GetSize(int(os.Stderr.Fd()))
	return &progressReader{
		max:     total, // If the server didn't send a size this is zero, that's handled later.
		message: message,
		reader:  reader,
		width:   width,
	}
}

// Read implements the io.Reader interface
func (pr *progressReader) Read(b []byte) (int, error) {
	n, err := pr.reader.Read(b)
	pr.current = pr.current + n
	pr.update()
	pr.last = pr.current
	return n, err
}

// Close implements the io.Closer interface
// This implementation never returns an error.
func (pr *progressReader) Close() error {
	if StdErrIsATerminal {
		// Clear out the line.
		fmt.Fprint(os.Stderr, "\r\033[K")
	} else {
		// Can't clear out the line, just move down to the next one.
		fmt.Fprint(os.Stderr, "\n")
	}
	return nil
}

// update refreshes the display.
func (pr *progressReader) update() {
	if !StdErrIsATerminal {
		// Can't do interactive things, just print dots.
		fmt.Fprint(os.Stderr, strings.Repeat(".", (pr.current-pr.last)/1000))
		return
	}
	currentBytes := humanize.Bytes(uint64(pr.current))
	if pr.max == 0 {
		// We don't know how big the download is going to be, just show the downloaded size.
		fmt.Fprintf(os.Stderr, "\r\033[K%s: %s...", pr.message, currentBytes)
		return
	}
	maxBytes := humanize.Bytes(uint64(pr.max))
	proportion := float64(pr.current) / float64(pr.max)
	percentage := 100.0 * proportion
	totalCols := pr.width - 30 // Pretty arbitrary amount of overhead to make sure we have space.
	if totalCols < 10 {
		totalCols = 10
	}
	currentPos := int(proportion * float64(totalCols))
	if currentPos > totalCols {
		currentPos = totalCols
	}
	before := strings.Repeat("=", currentPos)
	after := strings.Repeat(" ", totalCols-currentPos)
	fmt.Fprintf(os.Stderr, "\r\033[K\033[37;1m%s: %s / %s \033[30;1m[%s>%s] \033[37;1m%0.1f%%\033[0m",
		pr.message, currentBytes, maxBytes, before, after, percentage)
}
