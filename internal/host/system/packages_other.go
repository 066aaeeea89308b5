//go:build !windows

package system

func registryEntries() ([]uninstallEntry, error) {
	return nil, ErrUnsupported
}
