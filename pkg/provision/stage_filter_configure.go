package provision

import (
	log "github.com/sirupsen/logrus"

	"github.com/xelyr/privacy-gateway/pkg/keymat"
	"github.com/xelyr/privacy-gateway/pkg/netplan"
	"github.com/xelyr/privacy-gateway/pkg/resolver"
)

// FilterConfigureStage re-applies the filtering layer's interface binding,
// upstream DNS binding and admin credential, then restarts the daemon.
type FilterConfigureStage struct {
	cfg    *Config
	plan   *netplan.NetworkPlan
	runner Runner
	events EventService
}

// NewFilterConfigureStage creates the filter configure stage.
func NewFilterConfigureStage(cfg *Config, plan *netplan.NetworkPlan, runner Runner, events EventService) *FilterConfigureStage {
	return &FilterConfigureStage{cfg: cfg, plan: plan, runner: runner, events: events}
}

// Name returns the stage name.
func (s *FilterConfigureStage) Name() string {
	return "filter-configure"
}

// ShouldRun always reports true: configuration is re-applied on every run.
func (s *FilterConfigureStage) ShouldRun() bool {
	return true
}

// Run applies credential and bindings and restarts the filter daemon.
func (s *FilterConfigureStage) Run() error {
	s.events.AddEvent(s.Name(), "applying admin credential")
	credential, generated, err := keymat.EnsureAdminCredential(s.cfg.CredentialPath, s.cfg.AdminPassword)
	if err != nil {
		return err
	}
	if generated {
		log.Infof("admin credential written to %s", s.cfg.CredentialPath)
	}
	if err := resolver.SetAdminPassword(s.runner, credential); err != nil {
		return err
	}

	s.events.AddEvent(s.Name(), "binding filter to resolver")
	if err := resolver.BindFilterToResolver(s.runner, s.cfg.Interface, s.plan.ServerAddress); err != nil {
		return err
	}

	s.events.AddEvent(s.Name(), "restarting filter daemon")
	if _, err := s.runner.RunCmd("systemctl restart pihole-FTL"); err != nil {
		return err
	}

	return nil
}
