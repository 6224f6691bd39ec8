package resolver

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/andreyvit/diff"
	"github.com/magiconair/properties/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPolicyHardeningDirectives(t *testing.T) {
	policy := RenderPolicy()

	for _, directive := range []string{
		"interface: 127.0.0.1",
		"port: 5335",
		"access-control: 127.0.0.0/8 allow",
		"access-control: 10.0.0.0/8 allow",
		"harden-dnssec-stripped: yes",
		"qname-minimisation: yes",
		"cache-min-ttl: 300",
		"cache-max-ttl: 86400",
		"private-address: 10.0.0.0/8",
	} {
		if !strings.Contains(policy, directive) {
			t.Errorf("policy document is missing %q", directive)
		}
	}
}

func TestRenderPolicyIsStatic(t *testing.T) {
	assert.Equal(t, RenderPolicy(), RenderPolicy())
}

func TestUpstream(t *testing.T) {
	assert.Equal(t, Upstream(), "127.0.0.1#5335")
}

func TestRenderFilterSettings(t *testing.T) {
	expected := `PIHOLE_INTERFACE=wg0
IPV4_ADDRESS=10.8.0.1/24
IPV6_ADDRESS=
PIHOLE_DNS_1=127.0.0.1#5335
PIHOLE_DNS_2=
DNSMASQ_LISTENING=single
DNSSEC=false
QUERY_LOGGING=true
BLOCKING_ENABLED=true
`

	generated := RenderFilterSettings("wg0", "10.8.0.1/24")

	if generated != expected {
		t.Errorf("filter settings were not rendered as expected:\n%s", diff.LineDiff(expected, generated))
	}
}

type fakeRunner struct {
	commands []string
	files    map[string]string
	missing  map[string]bool
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{files: map[string]string{}, missing: map[string]bool{}}
}

func (r *fakeRunner) RunCmd(command string) (string, error) {
	r.commands = append(r.commands, command)
	return "", nil
}

func (r *fakeRunner) LookPath(binary string) (string, error) {
	if r.missing[binary] {
		return "", errors.New("executable file not found in $PATH")
	}
	return "/usr/local/bin/" + binary, nil
}

func (r *fakeRunner) WriteFile(path, content string, mode os.FileMode) error {
	r.files[path] = content
	return nil
}

func TestBindFilterToResolver(t *testing.T) {
	runner := newFakeRunner()

	err := BindFilterToResolver(runner, "wg0", "10.8.0.1/24")
	require.NoError(t, err)

	require.Contains(t, runner.files[FilterSettingsPath], "PIHOLE_DNS_1=127.0.0.1#5335")
	require.Contains(t, runner.commands, "pihole restartdns")
}

func TestSetAdminPasswordQuotesCredential(t *testing.T) {
	runner := newFakeRunner()

	// shell metacharacters must reach the control command verbatim,
	// not be expanded by the shell
	err := SetAdminPassword(runner, "p$(id -un)w")
	require.NoError(t, err)

	require.Len(t, runner.commands, 1)
	require.Equal(t, "pihole -a -p 'p$(id -un)w'", runner.commands[0])
}

func TestSetAdminPasswordPlainCredential(t *testing.T) {
	runner := newFakeRunner()

	require.NoError(t, SetAdminPassword(runner, "hunter2"))
	require.Equal(t, []string{"pihole -a -p hunter2"}, runner.commands)
}

func TestBindFilterToResolverPropagatesMissingControlInterface(t *testing.T) {
	runner := newFakeRunner()
	runner.missing["pihole"] = true

	err := BindFilterToResolver(runner, "wg0", "10.8.0.1/24")
	require.Error(t, err)
	require.Empty(t, runner.commands)
	require.Empty(t, runner.files)
}
