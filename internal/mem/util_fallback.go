//go:build !linux && !darwin && !freebsd && !openbsd && !netbsd && !dragonfly && !windows

package mem

func lockMemoryPlatform() (ProtectionLevel, error) {
	// On unsupported platforms memory can still be zeroed after use,
	// but swapping cannot be prevented
	return ProtectionPartial, nil
}

func unlockMemoryPlatform() error {
	return nil
}
