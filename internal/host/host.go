// Package host defines the capability surface the convergence sequence calls
// into: read-only probes of host state and the executors that change it.
// Concrete implementations live in host/system; tests substitute fakes.
package host

import (
	"context"
)

// PackageSpec identifies an installed or installable package. An empty
// Version matches any installed version.
type PackageSpec struct {
	Name    string
	Version string
}

// String renders the package the way registries display it.
func (p PackageSpec) String() string {
	if p.Version == "" {
		return p.Name
	}
	return p.Name + " " + p.Version
}

// Matches reports whether a registry entry with the given display name and
// version is this package. Registries commonly embed the version in the
// display name, so both "Name" and "Name Version" are accepted.
func (p PackageSpec) Matches(displayName, displayVersion string) bool {
	if displayName != p.Name && displayName != p.String() {
		return false
	}
	return p.Version == "" || displayVersion == p.Version
}

// Prober answers point-in-time questions about the host. Negative answers are
// never errors; errors mean the question could not be answered.
type Prober interface {
	IsPackageInstalled(ctx context.Context, pkg PackageSpec) (bool, error)
	PathExists(path string) (bool, error)
	// FileContains reports whether path contains substr verbatim. A missing
	// file is a ReadError.
	FileContains(path, substr string) (bool, error)
}

// InstallOptions describes where an installer comes from and how to drive it.
type InstallOptions struct {
	Source        string
	InstallerType string
}

// PackageManager installs and removes packages.
type PackageManager interface {
	Install(ctx context.Context, pkg PackageSpec, opts InstallOptions) (bool, error)
	Remove(ctx context.Context, pkg PackageSpec) (bool, error)
}

// Environment persists machine-scope environment variables.
type Environment interface {
	SetMachineVar(ctx context.Context, name, value string) (bool, error)
}

// Command is a program invocation with extra environment entries.
type Command struct {
	Path string
	Args []string
	Env  map[string]string
}

// CommandRunner runs commands to completion.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) error
}

// FetchOptions mirrors the conditional-download knobs of the fetch executor.
type FetchOptions struct {
	// ConditionalGet sends If-Modified-Since based on the existing file.
	ConditionalGet bool
	// KeepLastModified stamps the file with the server's Last-Modified time.
	KeepLastModified bool
	// Backups is how many previous artifacts are kept as rotated backups.
	Backups int
}

// Fetcher downloads a URL to a destination path.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string, opts FetchOptions) (bool, error)
}

// FileSystem performs the small filesystem mutations the sequence needs.
type FileSystem interface {
	EnsureDir(path string) (bool, error)
	// Touch creates path empty when it is absent and leaves it alone otherwise.
	Touch(path string) (bool, error)
}

// ServiceManager drives the host's service control manager.
type ServiceManager interface {
	Exists(ctx context.Context, name string) (bool, error)
	Start(ctx context.Context, name string) (bool, error)
	Restart(ctx context.Context, name string) error
}

// Executors groups every collaborator the sequence calls into.
type Executors struct {
	Prober   Prober
	Packages PackageManager
	Env      Environment
	Commands CommandRunner
	Fetcher  Fetcher
	Files    FileSystem
	Services ServiceManager
}
