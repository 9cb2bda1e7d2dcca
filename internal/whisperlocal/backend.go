// Package whisperlocal runs on-device speech-to-text. Backend selection is
// a pure function of host capability: Apple Silicon with the MLX runtime
// present gets the faster mlx family, every other host the portable
// cpu-generic family. Only the model name within the selected family is
// configurable.
package whisperlocal

import (
	"os/exec"
	"runtime"
)

// Backend identifies a local model family.
type Backend string

const (
	BackendMLX Backend = "mlx"
	BackendCPU Backend = "cpu-generic"
)

// DetectBackend selects the backend for the given host facts. Split out
// from the runtime probes so tests can force either family.
func DetectBackend(goos, goarch string, mlxAvailable bool) Backend {
	if goos == "darwin" && goarch == "arm64" && mlxAvailable {
		return BackendMLX
	}
	return BackendCPU
}

// HostBackend detects the backend for the current process.
func HostBackend() Backend {
	return DetectBackend(runtime.GOOS, runtime.GOARCH, mlxRuntimePresent())
}

func mlxRuntimePresent() bool {
	_, err := exec.LookPath("mlx_whisper")
	return err == nil
}

// Info describes the selected backend for the API surface.
type Info struct {
	Backend        Backend `json:"backend"`
	Platform       string  `json:"platform"`
	Arch           string  `json:"arch"`
	IsAppleSilicon bool    `json:"is_apple_silicon"`
	MLXAvailable   bool    `json:"mlx_available"`
}

// HostInfo reports the current host's backend facts.
func HostInfo() Info {
	mlx := mlxRuntimePresent()
	return Info{
		Backend:        DetectBackend(runtime.GOOS, runtime.GOARCH, mlx),
		Platform:       runtime.GOOS,
		Arch:           runtime.GOARCH,
		IsAppleSilicon: runtime.GOOS == "darwin" && runtime.GOARCH == "arm64",
		MLXAvailable:   mlx,
	}
}
