// Package operator relays instrument questions to a human at the console.
package operator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Console asks questions on an output stream and reads answers line by line.
type Console struct {
	out     io.Writer
	answers chan answer
	in      *bufio.Reader
	reading bool
}

type answer struct {
	text string
	err  error
}

// NewConsole creates a console reading answers from in and printing labels to out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{
		out:     out,
		in:      bufio.NewReader(in),
		answers: make(chan answer, 1),
	}
}

// Ask prints label and blocks until the operator enters a line or ctx is done.
// The returned text has its line terminator removed.
//
// A read abandoned through ctx keeps running; its answer is returned by the next Ask.
func (c *Console) Ask(ctx context.Context, label string) (string, error) {
	if _, err := fmt.Fprint(c.out, label); err != nil {
		return "", fmt.Errorf("failed to print prompt: %w", err)
	}

	if !c.reading {
		c.reading = true
		go func() {
			text, err := c.in.ReadString('\n')
			if err != nil && text != "" && err == io.EOF {
				err = nil
			}
			c.answers <- answer{text: strings.TrimRight(text, "\r\n"), err: err}
		}()
	}

	select {
	case a := <-c.answers:
		c.reading = false
		if a.err != nil {
			return "", fmt.Errorf("failed to read operator input: %w", a.err)
		}
		return a.text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
