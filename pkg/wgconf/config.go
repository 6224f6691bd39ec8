package wgconf

import (
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/xelyr/privacy-gateway/pkg/netplan"
)

// KeepaliveSeconds is the persistent keepalive interval written into client
// configs so NATed clients keep their mapping open.
const KeepaliveSeconds = 25

// Peer describes one client of the star topology from the server's point of
// view. AllowedRange must be the client's single /32 address so clients
// cannot spoof each other inside the shared tunnel.
type Peer struct {
	Name         string
	Address      string
	AllowedRange string
	PublicKey    string
	PresharedKey string
}

// RenderServerConf produces the wg-quick document for the server interface,
// one [Peer] block per client. The PostDown rule set exactly mirrors PostUp
// so repeated up/down cycles leave no stale NAT or forwarding rules behind.
func RenderServerConf(plan *netplan.NetworkPlan, privateKey string, peers []Peer, listenPort int, iface, egressIface string) string {
	var b strings.Builder

	b.WriteString("[Interface]\n")
	fmt.Fprintf(&b, "Address = %s\n", plan.ServerAddress)
	fmt.Fprintf(&b, "ListenPort = %d\n", listenPort)
	fmt.Fprintf(&b, "PrivateKey = %s\n", privateKey)
	fmt.Fprintf(&b, "PostUp = %s\n", strings.Join(natRules(plan, iface, egressIface, "-A"), "; "))
	fmt.Fprintf(&b, "PostDown = %s\n", strings.Join(natRules(plan, iface, egressIface, "-D"), "; "))

	for _, peer := range peers {
		b.WriteString("\n")
		fmt.Fprintf(&b, "# %s\n", peer.Name)
		b.WriteString("[Peer]\n")
		fmt.Fprintf(&b, "PublicKey = %s\n", peer.PublicKey)
		fmt.Fprintf(&b, "PresharedKey = %s\n", peer.PresharedKey)
		fmt.Fprintf(&b, "AllowedIPs = %s\n", peer.AllowedRange)
	}

	return b.String()
}

// RenderClientConf produces the client-side document. DNS points at the
// filtering layer on the server tunnel address, and the catch-all allowed
// range redirects all client traffic through the tunnel.
func RenderClientConf(peer Peer, privateKey, dnsAddress, serverPublicKey, endpointHost string, listenPort int) string {
	var b strings.Builder

	b.WriteString("[Interface]\n")
	fmt.Fprintf(&b, "PrivateKey = %s\n", privateKey)
	fmt.Fprintf(&b, "Address = %s\n", peer.Address)
	fmt.Fprintf(&b, "DNS = %s\n", dnsAddress)
	b.WriteString("\n")
	b.WriteString("[Peer]\n")
	fmt.Fprintf(&b, "PublicKey = %s\n", serverPublicKey)
	fmt.Fprintf(&b, "PresharedKey = %s\n", peer.PresharedKey)
	fmt.Fprintf(&b, "Endpoint = %s:%d\n", endpointHost, listenPort)
	b.WriteString("AllowedIPs = 0.0.0.0/0\n")
	fmt.Fprintf(&b, "PersistentKeepalive = %d\n", KeepaliveSeconds)

	return b.String()
}

// natRules builds the iptables command lines bound to the detected egress
// interface. action is "-A" on tunnel-up and "-D" on tunnel-down.
func natRules(plan *netplan.NetworkPlan, iface, egressIface, action string) []string {
	argvs := [][]string{
		{"iptables", "-t", "nat", action, "POSTROUTING", "-s", plan.Subnet(), "-o", egressIface, "-j", "MASQUERADE"},
		{"iptables", action, "FORWARD", "-i", iface, "-o", egressIface, "-j", "ACCEPT"},
		{"iptables", action, "FORWARD", "-i", egressIface, "-o", iface, "-m", "state", "--state", "RELATED,ESTABLISHED", "-j", "ACCEPT"},
	}

	rules := make([]string, 0, len(argvs))
	for _, argv := range argvs {
		rules = append(rules, shellquote.Join(argv...))
	}
	return rules
}
