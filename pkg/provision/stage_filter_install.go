package provision

import (
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// minFilterMajorVersion is the oldest filtering-layer release whose config
// schema the FilterConfigure stage understands.
const minFilterMajorVersion = 5

const filterInstallCommand = "curl -sSL https://install.pi-hole.net | PIHOLE_SKIP_OS_CHECK=true bash /dev/stdin --unattended"

// FilterInstallStage installs the filtering layer when it is absent or too
// old to be configured.
type FilterInstallStage struct {
	runner Runner
	events EventService
}

// NewFilterInstallStage creates the filter install stage.
func NewFilterInstallStage(runner Runner, events EventService) *FilterInstallStage {
	return &FilterInstallStage{runner: runner, events: events}
}

// Name returns the stage name.
func (s *FilterInstallStage) Name() string {
	return "filter-install"
}

// ShouldRun reports whether installation is needed: the binary must be
// present and at least the minimum supported major version.
func (s *FilterInstallStage) ShouldRun() bool {
	version, err := s.installedVersion()
	if err != nil {
		return true
	}
	if version < minFilterMajorVersion {
		log.Warnf("filtering layer v%d is older than the supported v%d, reinstalling", version, minFilterMajorVersion)
		return true
	}

	log.Infof("filtering layer v%d already installed, skipping installation", version)
	return false
}

// Run performs the unattended install. A failed package step is fatal and
// never retried.
func (s *FilterInstallStage) Run() error {
	s.events.AddEvent(s.Name(), "installing filtering layer")
	if _, err := s.runner.RunCmd(filterInstallCommand); err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyInstall, err)
	}
	return nil
}

func (s *FilterInstallStage) installedVersion() (int, error) {
	if _, err := s.runner.LookPath("pihole"); err != nil {
		return 0, err
	}

	output, err := s.runner.RunCmd("pihole -v")
	if err != nil {
		return 0, err
	}

	return parseMajorVersion(output)
}

// parseMajorVersion extracts the major version from output such as
// "Pi-hole version is v5.18.2 (Latest: v5.18.2)".
func parseMajorVersion(output string) (int, error) {
	for _, field := range strings.Fields(output) {
		if !strings.HasPrefix(field, "v") {
			continue
		}
		major := strings.SplitN(strings.TrimPrefix(field, "v"), ".", 2)[0]
		if version, err := strconv.Atoi(major); err == nil {
			return version, nil
		}
	}
	return 0, fmt.Errorf("no version found in %q", strings.TrimSpace(output))
}
