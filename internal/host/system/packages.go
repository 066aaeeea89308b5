package system

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/alexisbeaulieu97/brokerhost/internal/host"
	"github.com/alexisbeaulieu97/brokerhost/internal/logger"
	hosterrors "github.com/alexisbeaulieu97/brokerhost/pkg/errors"
)

// ErrUnsupported is returned by executors that only exist on Windows.
var ErrUnsupported = errors.New("not supported on this platform")

// uninstallEntry is one program registered with the system, as listed under
// the Uninstall registry keys.
type uninstallEntry struct {
	Key                  string
	DisplayName          string
	DisplayVersion       string
	UninstallString      string
	QuietUninstallString string
	WindowsInstaller     bool
}

// Packages installs and removes programs through their installers and finds
// them in the system's list of installed programs.
type Packages struct {
	Runner    host.CommandRunner
	Fetcher   host.Fetcher
	Downloads string
	Log       *logger.Logger

	// entries lists installed programs; nil uses the platform registry.
	entries func() ([]uninstallEntry, error)
}

var _ host.PackageManager = (*Packages)(nil)

// IsPackageInstalled reports whether pkg appears in the installed programs.
func (p *Packages) IsPackageInstalled(_ context.Context, pkg host.PackageSpec) (bool, error) {
	_, found, err := p.find(pkg)
	if err != nil {
		return false, hosterrors.NewProbeError(pkg.String(), err)
	}
	return found, nil
}

// Install runs the package's installer unless pkg is already present. Remote
// sources are downloaded to Downloads first.
func (p *Packages) Install(ctx context.Context, pkg host.PackageSpec, opts host.InstallOptions) (bool, error) {
	if _, found, err := p.find(pkg); err != nil || found {
		return false, err
	}
	if opts.Source == "" {
		return false, fmt.Errorf("install %s: no installer source", pkg)
	}

	installer, err := p.resolve(ctx, opts.Source)
	if err != nil {
		return false, fmt.Errorf("install %s: %w", pkg, err)
	}

	cmd, err := installCommand(installer, opts.InstallerType)
	if err != nil {
		return false, fmt.Errorf("install %s: %w", pkg, err)
	}
	p.Log.WithFields(map[string]any{"package": pkg.String(), "installer": installer}).Info("installing package")
	if err := p.Runner.Run(ctx, cmd); err != nil {
		return false, fmt.Errorf("install %s: %w", pkg, err)
	}
	return true, nil
}

// Remove runs the registered uninstaller of pkg, if pkg is present.
func (p *Packages) Remove(ctx context.Context, pkg host.PackageSpec) (bool, error) {
	entry, found, err := p.find(pkg)
	if err != nil || !found {
		return false, err
	}

	cmd, err := uninstallCommand(entry)
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", pkg, err)
	}
	p.Log.With("package", pkg.String()).Info("removing package")
	if err := p.Runner.Run(ctx, cmd); err != nil {
		return false, fmt.Errorf("remove %s: %w", pkg, err)
	}
	return true, nil
}

func (p *Packages) find(pkg host.PackageSpec) (uninstallEntry, bool, error) {
	list := p.entries
	if list == nil {
		list = registryEntries
	}
	entries, err := list()
	if err != nil {
		return uninstallEntry{}, false, err
	}
	for _, e := range entries {
		if pkg.Matches(e.DisplayName, e.DisplayVersion) {
			return e, true, nil
		}
	}
	return uninstallEntry{}, false, nil
}

func (p *Packages) resolve(ctx context.Context, source string) (string, error) {
	u, err := url.Parse(source)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return filepath.FromSlash(source), nil
	}

	dir := p.Downloads
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "brokerhost")
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return "", fmt.Errorf("cannot derive installer file name from %s", source)
	}
	dest := filepath.Join(dir, name)
	if _, err := p.Fetcher.Fetch(ctx, source, dest, host.FetchOptions{ConditionalGet: true, KeepLastModified: true}); err != nil {
		return "", err
	}
	return dest, nil
}

// installCommand builds the unattended invocation for an installer.
func installCommand(installer, installerType string) (host.Command, error) {
	kind := strings.ToLower(installerType)
	if kind == "" {
		if strings.EqualFold(filepath.Ext(installer), ".msi") {
			kind = "msi"
		} else {
			kind = "nsis"
		}
	}
	switch kind {
	case "msi":
		return host.Command{Path: "msiexec", Args: []string{"/i", installer, "/qn", "/norestart"}}, nil
	case "nsis":
		return host.Command{Path: installer, Args: []string{"/S"}}, nil
	case "exe":
		return host.Command{Path: installer, Args: []string{"/quiet", "/norestart"}}, nil
	default:
		return host.Command{}, fmt.Errorf("unknown installer type %q", installerType)
	}
}

// uninstallCommand builds the unattended uninstall invocation for entry.
func uninstallCommand(e uninstallEntry) (host.Command, error) {
	if e.WindowsInstaller {
		return host.Command{Path: "msiexec", Args: []string{"/x", e.Key, "/qn", "/norestart"}}, nil
	}
	if e.QuietUninstallString != "" {
		return splitCommandLine(e.QuietUninstallString)
	}
	if e.UninstallString == "" {
		return host.Command{}, fmt.Errorf("%s has no uninstaller registered", e.DisplayName)
	}
	cmd, err := splitCommandLine(e.UninstallString)
	if err != nil {
		return host.Command{}, err
	}
	cmd.Args = append(cmd.Args, "/S")
	return cmd, nil
}

// splitCommandLine separates the executable of a registry command line from
// its arguments. The executable may be quoted; unquoted paths may contain
// spaces and end at the first ".exe".
func splitCommandLine(line string) (host.Command, error) {
	line = strings.TrimSpace(line)
	var exe, rest string
	switch {
	case strings.HasPrefix(line, `"`):
		end := strings.Index(line[1:], `"`)
		if end < 0 {
			return host.Command{}, fmt.Errorf("unterminated quote in %q", line)
		}
		exe, rest = line[1:end+1], line[end+2:]
	default:
		if i := strings.Index(strings.ToLower(line), ".exe"); i >= 0 {
			exe, rest = line[:i+4], line[i+4:]
		} else {
			exe, rest, _ = strings.Cut(line, " ")
		}
	}
	if exe == "" {
		return host.Command{}, fmt.Errorf("empty command line")
	}
	return host.Command{Path: exe, Args: strings.Fields(rest)}, nil
}
