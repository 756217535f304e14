package main

import (
	"io"
	"os"

	"github.com/cheggaaa/pb/v3"
	"github.com/mattn/go-isatty"
)

// interactive reports whether stderr is a terminal, so progress bars are
// only drawn for a human watching.
func interactive() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// byteProgress wraps a download body with a byte-count progress bar.
func byteProgress(r io.Reader, total int64) (io.Reader, func()) {
	if !interactive() {
		return r, func() {}
	}
	bar := pb.Full.Start64(total)
	bar.Set(pb.Bytes, true)
	return bar.NewProxyReader(r), func() { bar.Finish() }
}

// rowProgress returns a callback drawing a row-count progress bar, started
// on the first call, and a function finishing it. finish may be called
// more than once.
func rowProgress() (func(done, total int), func()) {
	if !interactive() {
		return nil, func() {}
	}
	var bar *pb.ProgressBar
	update := func(done, total int) {
		if bar == nil {
			bar = pb.StartNew(total)
		}
		bar.SetCurrent(int64(done))
	}
	finish := func() {
		if bar != nil {
			bar.Finish()
			bar = nil
		}
	}
	return update, finish
}
