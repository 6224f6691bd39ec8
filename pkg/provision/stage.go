package provision

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Stage is one idempotent, independently re-runnable step of the
// provisioning workflow.
type Stage interface {
	Name() string
	ShouldRun() bool
	Run() error
}

// Compensable stages can undo their own side effects when they fail partway
// through. Earlier completed stages are intentionally left applied; the
// recovery path is to fix the cause and re-run.
type Compensable interface {
	Compensate() error
}

// Chain runs stages strictly in order and fails fast on the first error.
type Chain struct {
	stages    []Stage
	afterRun  func(Stage)
	afterSkip func(Stage)
}

// NewChain returns an empty stage chain.
func NewChain() *Chain {
	return &Chain{}
}

// AddStage appends a stage to the chain.
func (c *Chain) AddStage(stage Stage) {
	c.stages = append(c.stages, stage)
}

// SetAfterRun registers a hook invoked after each successfully completed
// stage.
func (c *Chain) SetAfterRun(hook func(Stage)) {
	c.afterRun = hook
}

// SetAfterSkip registers a hook invoked for each stage whose ShouldRun
// reported the work as already satisfied.
func (c *Chain) SetAfterSkip(hook func(Stage)) {
	c.afterSkip = hook
}

// Run executes the chain. On failure the failing stage's compensation is
// invoked (if any) and the error is returned immediately; later stages do
// not run.
func (c *Chain) Run() error {
	for _, stage := range c.stages {
		if !stage.ShouldRun() {
			if c.afterSkip != nil {
				c.afterSkip(stage)
			}
			continue
		}

		if err := stage.Run(); err != nil {
			if compensable, ok := stage.(Compensable); ok {
				if cerr := compensable.Compensate(); cerr != nil {
					log.Warnf("compensation for stage %s failed: %v", stage.Name(), cerr)
				}
			}
			return fmt.Errorf("stage %s: %w", stage.Name(), err)
		}

		if c.afterRun != nil {
			c.afterRun(stage)
		}
	}

	return nil
}
