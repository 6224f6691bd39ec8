package provision

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config carries every setting a run needs. It is built once in the CLI
// layer and passed by reference into the stages; each component reads only
// the fields it needs.
type Config struct {
	Endpoint      string
	AdminPassword string
	Interface     string `validate:"required"`
	ListenPort    int    `validate:"required,gt=0,lte=65535"`
	CIDR          string `validate:"required"`
	ClientName    string `validate:"required,hostname_rfc1123"`
	RunLabel      string

	WireguardDir   string `validate:"required"`
	StateDir       string `validate:"required"`
	CredentialPath string `validate:"required"`
	SysctlPath     string `validate:"required"`
}

// DefaultConfig returns a Config with the persisted-artifact paths other
// tooling depends on.
func DefaultConfig() *Config {
	return &Config{
		Interface:      "wg0",
		ListenPort:     51820,
		CIDR:           "10.8.0.0/24",
		ClientName:     "client1",
		WireguardDir:   "/etc/wireguard",
		StateDir:       "/var/lib/privacy-gateway",
		CredentialPath: "/etc/pihole/admin.credential",
		SysctlPath:     "/etc/sysctl.d/99-privacy-gateway.conf",
	}
}

// Validate checks the structural constraints. Network semantics are
// validated by the address planner, which owns that error taxonomy.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// KeyDir is where the server key pair lives.
func (c *Config) KeyDir() string {
	return filepath.Join(c.WireguardDir, "keys")
}

// ClientsDir holds one directory per client with its key material and
// client-facing config.
func (c *Config) ClientsDir() string {
	return filepath.Join(c.WireguardDir, "clients")
}

// ServerConfPath is the fixed per-interface path of the server tunnel
// config.
func (c *Config) ServerConfPath() string {
	return filepath.Join(c.WireguardDir, c.Interface+".conf")
}

// ClientConfPath is the client-facing config for the named client.
func (c *Config) ClientConfPath(name string) string {
	return filepath.Join(c.ClientsDir(), name, name+".conf")
}

// ScanArtifactPath is the rendered scan-able representation of a client
// config.
func (c *Config) ScanArtifactPath(name string) string {
	return filepath.Join(c.StateDir, name+"_qr.txt")
}

// StateDBPath is the stage ledger database.
func (c *Config) StateDBPath() string {
	return filepath.Join(c.StateDir, "state.db")
}

// InputHash fingerprints the inputs that shape the rendered artifacts, so a
// later run can tell when existing artifacts came from a different
// configuration.
func (c *Config) InputHash() string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		c.CIDR,
		c.Interface,
		strconv.Itoa(c.ListenPort),
		c.ClientName,
		c.Endpoint,
	}, "|")))
	return hex.EncodeToString(sum[:])
}
