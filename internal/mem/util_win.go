//go:build windows

package mem

func lockMemoryPlatform() (ProtectionLevel, error) {
	// VirtualLock has per-process quota limitations on Windows, so
	// rely on enclave-level protection only
	return ProtectionPartial, nil
}

func unlockMemoryPlatform() error {
	return nil
}
