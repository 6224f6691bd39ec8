package provision

import "errors"

// Fatal precondition and stage failures. All of them terminate the run; the
// prescribed recovery is to fix the cause and re-run, relying on every
// stage being idempotent.
var (
	// ErrPrivilege is returned when the process is not running as root.
	ErrPrivilege = errors.New("must be run as the root user")
	// ErrPlatform is returned on hosts the provisioner does not support.
	ErrPlatform = errors.New("unsupported host platform")
	// ErrMissingEndpoint is returned when no endpoint was supplied, none
	// could be detected and no interactive terminal is available to ask.
	ErrMissingEndpoint = errors.New("no reachable endpoint supplied or detected")
	// ErrDependencyInstall is returned when an external package step failed.
	// It is propagated, never retried.
	ErrDependencyInstall = errors.New("dependency installation failed")
)
