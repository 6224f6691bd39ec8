package provision

import (
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/xelyr/privacy-gateway/pkg"
	"github.com/xelyr/privacy-gateway/pkg/netplan"
)

// EventService receives stage progress events. The progress coordinator
// satisfies it.
type EventService interface {
	AddEvent(stageName string, eventMessage string)
}

// Provisioner sequences the four provisioning stages against a host that
// may be partially configured from a prior run. Execution is strictly
// sequential; one instance per host at a time.
type Provisioner struct {
	cfg    *Config
	runner Runner
	store  *StateStore
	events EventService
	runID  string

	// injectable for tests
	checkPrivilege func() error
	checkPlatform  func(Runner) error
	detectEndpoint func() string
	detectEgress   func() (string, error)
}

// NewProvisioner wires a provisioner with the default host detectors.
func NewProvisioner(cfg *Config, runner Runner, store *StateStore, events EventService) *Provisioner {
	return &Provisioner{
		cfg:            cfg,
		runner:         runner,
		store:          store,
		events:         events,
		runID:          uuid.NewString(),
		checkPrivilege: CheckPrivilege,
		checkPlatform:  CheckPlatform,
		detectEndpoint: DetectEndpoint,
		detectEgress:   DetectEgressInterface,
	}
}

// Run checks the fatal preconditions, executes the stage chain and prints
// the completion summary. Any error terminates the run; re-running after
// fixing the cause is the recovery path.
func (p *Provisioner) Run() error {
	if err := p.checkPrivilege(); err != nil {
		return err
	}
	if err := p.checkPlatform(p.runner); err != nil {
		return err
	}
	if err := p.cfg.Validate(); err != nil {
		return err
	}

	plan, err := netplan.Plan(p.cfg.CIDR)
	if err != nil {
		return err
	}

	if err := ResolveEndpoint(p.cfg, p.detectEndpoint); err != nil {
		return err
	}

	egressIface, err := p.detectEgress()
	if err != nil {
		return fmt.Errorf("detect egress interface: %w", err)
	}
	log.Infof("using egress interface %s", egressIface)

	p.warnStaleInputs()

	chain := NewChain()
	chain.AddStage(NewResolverSetupStage(p.runner, p.events))
	chain.AddStage(NewFilterInstallStage(p.runner, p.events))
	chain.AddStage(NewFilterConfigureStage(p.cfg, plan, p.runner, p.events))
	chain.AddStage(NewTunnelConfigureStage(p.cfg, plan, egressIface, p.runner, p.events))
	chain.SetAfterRun(func(stage Stage) {
		p.recordStage(stage)
		p.events.AddEvent(stage.Name(), pkg.CompletedEvent)
	})
	chain.SetAfterSkip(func(stage Stage) {
		p.recordStage(stage)
		p.events.AddEvent(stage.Name(), pkg.CompletedEvent)
	})

	if err := chain.Run(); err != nil {
		return err
	}

	fmt.Print(Summary(p.cfg, plan, egressIface))
	return nil
}

// warnStaleInputs compares the current inputs against the ledger, so a host
// carrying artifacts from an incompatible prior configuration is flagged
// instead of silently mixed with.
func (p *Provisioner) warnStaleInputs() {
	if p.store == nil {
		return
	}

	hash := p.cfg.InputHash()
	for _, stage := range []string{"resolver-setup", "filter-install", "filter-configure", "tunnel-configure"} {
		record, err := p.store.LastRecord(stage)
		if err != nil {
			log.Warnf("stage ledger: %v", err)
			return
		}
		if record != nil && record.InputHash != hash {
			log.Warnf("stage %s was last applied with different inputs (run %q), artifacts will be regenerated", stage, record.RunLabel)
		}
	}
}

func (p *Provisioner) recordStage(stage Stage) {
	if p.store == nil {
		return
	}
	if err := p.store.RecordStage(p.runID, p.cfg.RunLabel, stage.Name(), p.cfg.InputHash()); err != nil {
		log.Warnf("stage ledger: %v", err)
	}
}
