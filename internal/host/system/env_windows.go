//go:build windows

package system

import (
	"errors"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

const machineEnvironmentKey = `SYSTEM\CurrentControlSet\Control\Session Manager\Environment`

const (
	hwndBroadcast    = 0xffff
	wmSettingChange  = 0x001A
	smtoAbortIfHung  = 0x0002
	broadcastTimeout = 5 * time.Second
)

var procSendMessageTimeout = windows.NewLazySystemDLL("user32.dll").NewProc("SendMessageTimeoutW")

func readMachineVar(name string) (string, bool, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, machineEnvironmentKey, registry.QUERY_VALUE)
	if err != nil {
		return "", false, err
	}
	defer k.Close()

	v, _, err := k.GetStringValue(name)
	if errors.Is(err, registry.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func writeMachineVar(name, value string) error {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, machineEnvironmentKey, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()
	return k.SetStringValue(name, value)
}

// broadcastEnvironmentChange sends WM_SETTINGCHANGE with "Environment", the
// same notification setx sends, so Explorer reloads the machine environment.
func broadcastEnvironmentChange() error {
	if err := procSendMessageTimeout.Find(); err != nil {
		return err
	}
	param, err := windows.UTF16PtrFromString("Environment")
	if err != nil {
		return err
	}
	var result uintptr
	ret, _, callErr := procSendMessageTimeout.Call(
		hwndBroadcast,
		wmSettingChange,
		0,
		uintptr(unsafe.Pointer(param)),
		smtoAbortIfHung,
		uintptr(broadcastTimeout.Milliseconds()),
		uintptr(unsafe.Pointer(&result)),
	)
	if ret == 0 {
		return callErr
	}
	return nil
}
