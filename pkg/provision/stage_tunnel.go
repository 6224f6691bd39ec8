package provision

import (
	"fmt"

	"github.com/kballard/go-shellquote"
	log "github.com/sirupsen/logrus"

	"github.com/xelyr/privacy-gateway/pkg/keymat"
	"github.com/xelyr/privacy-gateway/pkg/netplan"
	"github.com/xelyr/privacy-gateway/pkg/wgconf"
)

// TunnelConfigureStage ensures tunnel key material, renders the server and
// client documents, enables forwarding and starts the tunnel service.
type TunnelConfigureStage struct {
	cfg         *Config
	plan        *netplan.NetworkPlan
	egressIface string
	runner      Runner
	events      EventService
}

// NewTunnelConfigureStage creates the tunnel stage.
func NewTunnelConfigureStage(cfg *Config, plan *netplan.NetworkPlan, egressIface string, runner Runner, events EventService) *TunnelConfigureStage {
	return &TunnelConfigureStage{cfg: cfg, plan: plan, egressIface: egressIface, runner: runner, events: events}
}

// Name returns the stage name.
func (s *TunnelConfigureStage) Name() string {
	return "tunnel-configure"
}

// ShouldRun always reports true: key material reuse happens inside the run,
// and rendered documents are overwritten on every run by design.
func (s *TunnelConfigureStage) ShouldRun() bool {
	return true
}

// Run provisions the tunnel end to end.
func (s *TunnelConfigureStage) Run() error {
	s.events.AddEvent(s.Name(), "ensuring server key material")
	serverPair, generated, err := keymat.EnsureKeyPair(s.cfg.KeyDir(), keymat.RoleServer, "server")
	if err != nil {
		return err
	}
	logKeyMaterial("server", generated)

	s.events.AddEvent(s.Name(), "ensuring client key material")
	existing, err := loadClientPeers(s.cfg)
	if err != nil {
		return err
	}
	// clients added by earlier runs keep their addresses
	address, allowedRange, err := clientAddress(s.plan, existing, s.cfg.ClientName)
	if err != nil {
		return err
	}
	peer, err := ensureClientPeer(s.cfg, address, allowedRange, s.cfg.ClientName)
	if err != nil {
		return err
	}

	s.events.AddEvent(s.Name(), "rendering tunnel configuration")
	clientConf := wgconf.RenderClientConf(peer.Peer, peer.PrivateKey, s.plan.ServerIP(), serverPair.Public, s.cfg.Endpoint, s.cfg.ListenPort)
	if err := s.runner.WriteFile(s.cfg.ClientConfPath(s.cfg.ClientName), clientConf, 0600); err != nil {
		return err
	}

	peers, err := loadClientPeers(s.cfg)
	if err != nil {
		return err
	}
	serverConf := wgconf.RenderServerConf(s.plan, serverPair.Private, peers, s.cfg.ListenPort, s.cfg.Interface, s.egressIface)
	if err := s.runner.WriteFile(s.cfg.ServerConfPath(), serverConf, 0600); err != nil {
		return err
	}

	s.events.AddEvent(s.Name(), "enabling forwarding")
	if err := s.runner.WriteFile(s.cfg.SysctlPath, "net.ipv4.ip_forward = 1\n", 0644); err != nil {
		return err
	}
	if _, err := s.runner.RunCmd("sysctl -p " + s.cfg.SysctlPath); err != nil {
		return err
	}

	writeScanArtifact(s.runner, s.cfg.ClientConfPath(s.cfg.ClientName), s.cfg.ScanArtifactPath(s.cfg.ClientName))

	s.events.AddEvent(s.Name(), "starting tunnel service")
	if _, err := s.runner.RunCmd(fmt.Sprintf("systemctl enable wg-quick@%s && systemctl restart wg-quick@%s", s.cfg.Interface, s.cfg.Interface)); err != nil {
		return err
	}

	return nil
}

// Compensate brings the tunnel down so a partial run does not leave the
// PostUp NAT rules applied without a running service.
func (s *TunnelConfigureStage) Compensate() error {
	if _, err := s.runner.RunCmd("wg-quick down " + s.cfg.Interface); err != nil {
		// the tunnel was never up; nothing to undo
		log.Debugf("tunnel compensation: %v", err)
	}
	return nil
}

func logKeyMaterial(name string, generated bool) {
	if generated {
		log.Infof("generated key material for %s", name)
	} else {
		log.Infof("reusing existing key material for %s", name)
	}
}

// writeScanArtifact renders a terminal-scannable representation of the
// client config through the external qrencode tool, when present.
func writeScanArtifact(runner Runner, confPath, outPath string) {
	if _, err := runner.LookPath("qrencode"); err != nil {
		log.Debug("qrencode not available, skipping scan artifact")
		return
	}

	command := shellquote.Join("qrencode", "-t", "ansiutf8", "-r", confPath, "-o", outPath)
	if _, err := runner.RunCmd(command); err != nil {
		log.Warnf("scan artifact: %v", err)
		return
	}
	log.Infof("scan artifact written to %s", outPath)
}
