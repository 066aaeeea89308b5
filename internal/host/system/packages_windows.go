//go:build windows

package system

import (
	"errors"

	"golang.org/x/sys/windows/registry"
)

var uninstallRoots = []string{
	`SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`,
	`SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall`,
}

func registryEntries() ([]uninstallEntry, error) {
	var entries []uninstallEntry
	for _, root := range uninstallRoots {
		k, err := registry.OpenKey(registry.LOCAL_MACHINE, root, registry.ENUMERATE_SUB_KEYS|registry.QUERY_VALUE)
		if errors.Is(err, registry.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		names, err := k.ReadSubKeyNames(-1)
		k.Close()
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			e, ok := readEntry(root+`\`+name, name)
			if ok {
				entries = append(entries, e)
			}
		}
	}
	return entries, nil
}

func readEntry(path, name string) (uninstallEntry, bool) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.QUERY_VALUE)
	if err != nil {
		return uninstallEntry{}, false
	}
	defer k.Close()

	display, _, err := k.GetStringValue("DisplayName")
	if err != nil || display == "" {
		return uninstallEntry{}, false
	}
	e := uninstallEntry{Key: name, DisplayName: display}
	e.DisplayVersion, _, _ = k.GetStringValue("DisplayVersion")
	e.UninstallString, _, _ = k.GetStringValue("UninstallString")
	e.QuietUninstallString, _, _ = k.GetStringValue("QuietUninstallString")
	if v, _, err := k.GetIntegerValue("WindowsInstaller"); err == nil && v == 1 {
		e.WindowsInstaller = true
	}
	return e, true
}
