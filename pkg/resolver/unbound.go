package resolver

import "fmt"

// Listen endpoint of the recursive resolver. The filtering layer is the
// only intended consumer, so the resolver binds to loopback on a side port.
const (
	ListenAddress = "127.0.0.1"
	ListenPort    = 5335

	// PolicyPath is where the rendered policy document is installed.
	PolicyPath = "/etc/unbound/unbound.conf.d/privacy-gateway.conf"
)

// policyDocument is the hardened recursive-resolver policy. It has no
// dynamic inputs and is written unconditionally on every run.
const policyDocument = `server:
    verbosity: 0
    interface: 127.0.0.1
    port: 5335
    do-ip4: yes
    do-udp: yes
    do-tcp: yes
    do-ip6: no
    prefer-ip6: no

    # answer only the local host and the tunnel networks
    access-control: 127.0.0.0/8 allow
    access-control: 10.0.0.0/8 allow
    access-control: 172.16.0.0/12 allow
    access-control: 192.168.0.0/16 allow

    harden-glue: yes
    harden-dnssec-stripped: yes
    use-caps-for-id: no
    qname-minimisation: yes

    edns-buffer-size: 1232
    prefetch: yes
    num-threads: 1
    so-rcvbuf: 1m

    cache-min-ttl: 300
    cache-max-ttl: 86400

    # never leak private address space in upstream answers
    private-address: 10.0.0.0/8
    private-address: 172.16.0.0/12
    private-address: 192.168.0.0/16
    private-address: 169.254.0.0/16
`

// RenderPolicy returns the static hardened resolver policy document.
func RenderPolicy() string {
	return policyDocument
}

// Upstream returns the resolver endpoint in the host#port notation the
// filtering layer expects for its upstream setting.
func Upstream() string {
	return fmt.Sprintf("%s#%d", ListenAddress, ListenPort)
}
