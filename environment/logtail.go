package environment

import (
	"bufio"
	"bytes"
	"io"
	"sync"

	"github.com/petfinder/e2e-harness/framework/helpers"
)

const defaultLogTailLines = 40

// lineBuffer keeps the most recent lines written to it. It is an io.Writer so it can be attached
// directly to a process's stdout and stderr.
type lineBuffer struct {
	limit   int
	lines   []string
	partial []byte
	lock    sync.Mutex
}

func newLineBuffer(limit int) *lineBuffer {
	if limit <= 0 {
		limit = defaultLogTailLines
	}
	return &lineBuffer{limit: limit}
}

func (b *lineBuffer) Write(data []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.partial = append(b.partial, data...)
	for {
		i := bytes.IndexByte(b.partial, '\n')
		if i < 0 {
			break
		}
		b.add(string(bytes.TrimRight(b.partial[:i], "\r")))
		b.partial = b.partial[i+1:]
	}
	return len(data), nil
}

func (b *lineBuffer) add(line string) {
	b.lines = append(b.lines, line)
	if len(b.lines) > b.limit {
		b.lines = b.lines[len(b.lines)-b.limit:]
	}
}

// Tail returns up to n of the most recent lines, including an unterminated last line.
func (b *lineBuffer) Tail(n int) []string {
	b.lock.Lock()
	defer b.lock.Unlock()
	lines := b.lines
	if len(b.partial) > 0 {
		lines = append(append([]string(nil), lines...), string(b.partial))
	}
	return helpers.LastN(lines, n)
}

// tailLines reads all of r and returns its last n lines.
func tailLines(r io.Reader, n int) []string {
	buf := newLineBuffer(n)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		buf.add(scanner.Text())
	}
	return buf.Tail(n)
}
