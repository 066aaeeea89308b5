//go:build !windows

package system

func readMachineVar(string) (string, bool, error) {
	return "", false, ErrUnsupported
}

func writeMachineVar(string, string) error {
	return ErrUnsupported
}

func broadcastEnvironmentChange() error {
	return ErrUnsupported
}
