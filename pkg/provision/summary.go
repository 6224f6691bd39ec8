package provision

import (
	"fmt"
	"strings"

	"github.com/xelyr/privacy-gateway/pkg/netplan"
	"github.com/xelyr/privacy-gateway/pkg/resolver"
)

// Summary renders the human-readable completion report. It is only emitted
// after every stage succeeded.
func Summary(cfg *Config, plan *netplan.NetworkPlan, egressIface string) string {
	var b strings.Builder

	b.WriteString("\nPrivacy gateway provisioned")
	if cfg.RunLabel != "" {
		fmt.Fprintf(&b, " (run %s)", cfg.RunLabel)
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "  Endpoint:          %s:%d\n", cfg.Endpoint, cfg.ListenPort)
	fmt.Fprintf(&b, "  Tunnel network:    %s\n", plan.Subnet())
	fmt.Fprintf(&b, "  Server address:    %s\n", plan.ServerAddress)
	fmt.Fprintf(&b, "  Client address:    %s\n", plan.ClientAddress)
	fmt.Fprintf(&b, "  Egress interface:  %s\n", egressIface)
	fmt.Fprintf(&b, "  DNS path:          client -> %s (filter) -> %s (resolver)\n", plan.ServerIP(), resolver.Upstream())
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Server config:     %s\n", cfg.ServerConfPath())
	fmt.Fprintf(&b, "  Client config:     %s\n", cfg.ClientConfPath(cfg.ClientName))
	fmt.Fprintf(&b, "  Scan artifact:     %s\n", cfg.ScanArtifactPath(cfg.ClientName))
	fmt.Fprintf(&b, "  Admin credential:  %s\n", cfg.CredentialPath)
	b.WriteString("\n")

	return b.String()
}
