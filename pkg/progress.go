package pkg

import "github.com/gosuri/uiprogress"

// Progress tracks one provisioning stage on the terminal.
type Progress struct {
	Name    string
	Bar     *uiprogress.Bar
	channel chan string
	State   string
}

// SetText defines the text to display next to the stage's bar.
func (progress *Progress) SetText(text string) {
	if text != "" {
		progress.State = text
	}
}
