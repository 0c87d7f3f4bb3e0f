package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/cooksync/cooksync/internal/syncer"
)

// barLabel shows the sync label with elapsed time on a terminal.
type barLabel struct {
	w   io.Writer
	bar *pb.ProgressBar
}

func (l *barLabel) SetLabel(text string) {
	switch text {
	case syncer.LabelSyncing:
		l.bar = pb.New(0)
		l.bar.SetWriter(l.w)
		l.bar.SetTemplate(`{{string . "label"}} {{etime . }}`)
		l.bar.Set("label", text)
		l.bar.Start()
	default:
		if l.bar == nil {
			return
		}
		l.bar.Set("label", text)
		l.bar.Finish()
		l.bar = nil
	}
}

// lineLabel prints each label change on its own line.
type lineLabel struct {
	w io.Writer
}

func (l lineLabel) SetLabel(text string) {
	fmt.Fprintln(l.w, text)
}

// newLabel picks the progress display for w.
func newLabel(w io.Writer) syncer.Label {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return &barLabel{w: w}
	}
	return lineLabel{w: w}
}
