package resolver

import (
	"fmt"
	"os"
	"strings"

	"github.com/kballard/go-shellquote"
)

// FilterSettingsPath is the filtering layer's settings document. The filter
// daemon re-reads it on restart.
const FilterSettingsPath = "/etc/pihole/setupVars.conf"

// Runner is the slice of command execution the resolver integration needs.
// The provisioner's local runner satisfies it.
type Runner interface {
	RunCmd(command string) (string, error)
	LookPath(binary string) (string, error)
	WriteFile(path, content string, mode os.FileMode) error
}

// RenderFilterSettings produces the filtering layer's settings document:
// bound to the tunnel interface, listening on the server tunnel address,
// with the recursive resolver as its sole upstream.
func RenderFilterSettings(iface, serverAddress string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "PIHOLE_INTERFACE=%s\n", iface)
	fmt.Fprintf(&b, "IPV4_ADDRESS=%s\n", serverAddress)
	b.WriteString("IPV6_ADDRESS=\n")
	fmt.Fprintf(&b, "PIHOLE_DNS_1=%s\n", Upstream())
	b.WriteString("PIHOLE_DNS_2=\n")
	b.WriteString("DNSMASQ_LISTENING=single\n")
	b.WriteString("DNSSEC=false\n")
	b.WriteString("QUERY_LOGGING=true\n")
	b.WriteString("BLOCKING_ENABLED=true\n")

	return b.String()
}

// BindFilterToResolver registers the resolver's loopback endpoint as the
// filtering layer's sole upstream and rewrites its interface binding. It
// fails when the filter's control interface is not available; the error is
// propagated, never retried.
func BindFilterToResolver(r Runner, iface, serverAddress string) error {
	if _, err := r.LookPath("pihole"); err != nil {
		return fmt.Errorf("filtering layer control interface unavailable: %w", err)
	}

	if err := r.WriteFile(FilterSettingsPath, RenderFilterSettings(iface, serverAddress), 0644); err != nil {
		return fmt.Errorf("write filter settings: %w", err)
	}

	if _, err := r.RunCmd("pihole restartdns"); err != nil {
		return fmt.Errorf("reload filter DNS settings: %w", err)
	}

	return nil
}

// SetAdminPassword applies the admin credential through the filter's
// control command. The credential is shell-quoted so it reaches the
// control command verbatim.
func SetAdminPassword(r Runner, password string) error {
	if _, err := r.RunCmd(shellquote.Join("pihole", "-a", "-p", password)); err != nil {
		return fmt.Errorf("set filter admin password: %w", err)
	}
	return nil
}
