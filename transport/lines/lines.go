// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package lines implements mould.Flow over a line-delimited byte stream:
// one UTF-8 JSON object per newline-terminated line. It exists for
// transports simpler than WebSocket — a subprocess's stdin/stdout, a plain
// TCP socket, a unix pipe — where framing by newline is enough (spec.md's
// "a line-delimited transport is also supported").
package lines

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/mouldproto/mould/mould"
)

// Flow implements mould.Flow by reading and writing newline-terminated
// lines over an io.ReadWriteCloser.
type Flow struct {
	rwc io.ReadWriteCloser
	who string

	readMu sync.Mutex
	reader *bufio.Reader

	writeMu sync.Mutex
}

var _ mould.Flow = (*Flow)(nil)

// New wraps rwc as a Flow. who is a display identity used only for
// logging (e.g. a remote address, or "stdio").
func New(rwc io.ReadWriteCloser, who string) *Flow {
	return &Flow{rwc: rwc, who: who, reader: bufio.NewReader(rwc)}
}

// Who returns the identity this Flow was constructed with.
func (f *Flow) Who() string { return f.who }

// Pull reads one newline-terminated line. EOF with no partial data is an
// orderly close; EOF after a partial (unterminated) line, or any other read
// failure, is ConnectionBroken. A line that is not valid UTF-8 is
// BadMessageEncoding.
func (f *Flow) Pull(ctx context.Context) (string, bool, error) {
	f.readMu.Lock()
	defer f.readMu.Unlock()

	type result struct {
		line string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		line, err := f.reader.ReadString('\n')
		done <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		f.rwc.Close()
		<-done
		return "", false, mould.ErrConnectionBroken(ctx.Err())
	case r := <-done:
		if r.err != nil {
			if r.err == io.EOF && r.line == "" {
				return "", false, nil
			}
			if r.err == io.EOF {
				return "", false, mould.ErrConnectionBroken(io.ErrUnexpectedEOF)
			}
			return "", false, mould.ErrConnectionBroken(r.err)
		}
		content := strings.TrimSuffix(r.line, "\n")
		content = strings.TrimSuffix(content, "\r")
		if !utf8.ValidString(content) {
			return "", false, mould.ErrBadMessageEncoding(nil)
		}
		return content, true, nil
	}
}

// Push writes content as one newline-terminated line.
func (f *Flow) Push(ctx context.Context, content string) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	if _, err := io.WriteString(f.rwc, content+"\n"); err != nil {
		return mould.ErrConnectionBroken(err)
	}
	return nil
}

// Close closes the underlying stream.
func (f *Flow) Close() error { return f.rwc.Close() }
