// Package system implements the host capabilities against the local machine:
// the Windows registry and service control manager, the filesystem, child
// processes and HTTP downloads.
package system

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/alexisbeaulieu97/brokerhost/internal/host"
	"github.com/alexisbeaulieu97/brokerhost/internal/logger"
)

// Options configures the executors returned by New.
type Options struct {
	Log *logger.Logger
	// Output receives the output of installers and broker tools.
	Output io.Writer
	// Downloads is where installers are cached and replaced artifacts are
	// backed up. Defaults to a directory under the system temp dir.
	Downloads      string
	HTTPTimeout    time.Duration
	ServiceTimeout time.Duration
}

// Prober answers host questions from the filesystem and the installed
// program list.
type Prober struct {
	Files
	*Packages
}

var _ host.Prober = Prober{}

// New wires every executor against the local machine.
func New(opts Options) host.Executors {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	timeout := opts.HTTPTimeout
	if timeout == 0 {
		timeout = 10 * time.Minute
	}

	downloads := opts.Downloads
	if downloads == "" {
		downloads = filepath.Join(os.TempDir(), "brokerhost")
	}

	runner := &Runner{Stdout: opts.Output, Stderr: opts.Output, Log: log}
	fetcher := &Fetcher{
		Client:    &http.Client{Timeout: timeout},
		Log:       log,
		BackupDir: filepath.Join(downloads, "backups"),
	}
	packages := &Packages{Runner: runner, Fetcher: fetcher, Downloads: downloads, Log: log}

	return host.Executors{
		Prober:   Prober{Packages: packages},
		Packages: packages,
		Env:      &Environment{Log: log},
		Commands: runner,
		Fetcher:  fetcher,
		Files:    Files{},
		Services: &Services{Timeout: opts.ServiceTimeout, Log: log},
	}
}
