/*
 * Copyright 2024, Richard Cornwell
 */

package console6612

import (
	"bufio"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

// TermKeyboard is a KeyboardSource backed by the controlling terminal
// in raw mode: a background goroutine reads one byte at a time and
// hands each one, in order, to a non-blocking PollKey, so a poll
// surfaces at most one key. Typed-ahead bytes wait in the reader until
// later polls collect them.
type TermKeyboard struct {
	state *term.State
	ch    chan byte
	err   error
}

// NewTermKeyboard puts stdin into raw mode and starts the reader
// goroutine. The caller must call Close to restore the terminal.
func NewTermKeyboard() (*TermKeyboard, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("console6612: stdin is not a terminal")
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, errors.Wrap(err, "putting stdin into raw mode")
	}

	k := &TermKeyboard{
		state: state,
		ch:    make(chan byte),
	}

	go k.run()
	return k, nil
}

func (k *TermKeyboard) run() {
	in := bufio.NewReader(os.Stdin)
	b := make([]byte, 1)
	for {
		if _, err := in.Read(b); err != nil {
			k.err = err
			close(k.ch)
			return
		}
		k.ch <- b[0]
	}
}

// PollKey implements KeyboardSource: a non-blocking receive of the
// next byte the reader goroutine has produced, or 0 if nothing is
// waiting.
func (k *TermKeyboard) PollKey() byte {
	select {
	case b, ok := <-k.ch:
		if !ok {
			return 0
		}
		return b
	default:
		return 0
	}
}

// Close restores the terminal's original mode. The reader goroutine is
// left blocked in its final Read and exits once stdin is closed or the
// process exits; it holds no other resource worth waiting on.
func (k *TermKeyboard) Close() error {
	return term.Restore(int(os.Stdin.Fd()), k.state)
}
