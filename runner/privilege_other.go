//go:build !unix && !windows

package runner

func IsElevated() bool { return false }
