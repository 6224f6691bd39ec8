package provision

import (
	"github.com/xelyr/privacy-gateway/pkg/resolver"
)

// ResolverSetupStage installs the hardened recursive-resolver policy and
// restarts the resolver service. The policy is static, so re-applying it is
// cheap and always done.
type ResolverSetupStage struct {
	runner Runner
	events EventService
}

// NewResolverSetupStage creates the resolver stage.
func NewResolverSetupStage(runner Runner, events EventService) *ResolverSetupStage {
	return &ResolverSetupStage{runner: runner, events: events}
}

// Name returns the stage name.
func (s *ResolverSetupStage) Name() string {
	return "resolver-setup"
}

// ShouldRun always reports true: the policy document has no dynamic inputs
// and overwriting it is side-effect-free when unchanged.
func (s *ResolverSetupStage) ShouldRun() bool {
	return true
}

// Run writes the policy document and restarts the resolver.
func (s *ResolverSetupStage) Run() error {
	s.events.AddEvent(s.Name(), "writing resolver policy")
	if err := s.runner.WriteFile(resolver.PolicyPath, resolver.RenderPolicy(), 0644); err != nil {
		return err
	}

	s.events.AddEvent(s.Name(), "restarting resolver")
	if _, err := s.runner.RunCmd("systemctl enable unbound && systemctl restart unbound"); err != nil {
		return err
	}

	return nil
}
