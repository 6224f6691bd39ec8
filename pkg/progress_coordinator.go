package pkg

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-kit/kit/log/term"
	"github.com/gosuri/uiprogress"
	"github.com/gosuri/uiprogress/util/strutil"
)

// CompletedEvent finishes a stage's progress bar regardless of how many
// events were counted for it.
const CompletedEvent = "complete!"

// RenderProgressBars gates the terminal UI; plain log lines are printed
// when it is off or stdout is not a terminal.
var RenderProgressBars bool

// ProgressCoordinator renders one progress bar per provisioning stage.
type ProgressCoordinator struct {
	group      sync.WaitGroup
	progresses map[string]*Progress
}

// NewProgressCoordinator creates a coordinator and starts the terminal UI
// when enabled.
func NewProgressCoordinator() *ProgressCoordinator {
	if isUIEnabled() {
		uiprogress.Start()
	}
	pc := new(ProgressCoordinator)
	pc.progresses = make(map[string]*Progress)

	return pc
}

func isUIEnabled() bool {
	if RenderProgressBars {
		return term.IsTerminal(os.Stdout)
	}
	return false
}

func shortLeftPadRight(s string, padWidth int) string {
	if len(s) > padWidth {
		l := len(s)
		return "..." + s[(l-(padWidth-2)):(l-1)]
	}
	return strutil.PadRight(s, padWidth, ' ')
}

// StartProgress registers a stage with the expected number of events.
func (c *ProgressCoordinator) StartProgress(name string, steps int) {
	progress := &Progress{
		Bar:     uiprogress.AddBar(steps),
		State:   "pending",
		channel: make(chan string),
		Name:    name,
	}
	progress.Bar.Width = 16
	progress.Bar.PrependFunc(func(b *uiprogress.Bar) string {
		percent := strutil.PadLeft(fmt.Sprintf("%.01f%%", b.CompletedPercent()), 6, ' ')
		return fmt.Sprintf("%s : %s  %s",
			shortLeftPadRight(name, 20),
			shortLeftPadRight(progress.State, 32),
			percent,
		)
	})
	c.progresses[name] = progress
	c.group.Add(1)
	go func(progress *Progress) {
		for {
			event := <-progress.channel
			if !isUIEnabled() {
				fmt.Printf("%s: %s\n", progress.Name, event)
			}
			if event == CompletedEvent {
				progress.Bar.Set(progress.Bar.Total)
				progress.SetText(event)
				break
			}

			progress.SetText(event)
			if done := progress.Bar.Incr(); !done {
				break
			}
		}
		c.group.Done()
	}(progress)
}

// AddEvent reports stage progress. Unknown stage names are ignored.
func (c *ProgressCoordinator) AddEvent(stageName string, eventMessage string) {
	if progress, isPresent := c.progresses[stageName]; isPresent {
		progress.channel <- eventMessage
	}
}

// Wait blocks until every registered stage reported completion.
func (c *ProgressCoordinator) Wait() {
	c.group.Wait()
	if isUIEnabled() {
		uiprogress.Stop()
	}
}
