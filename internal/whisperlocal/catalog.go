package whisperlocal

// catalogEntry is one installable model preset within a backend family.
type catalogEntry struct {
	Name   string
	SizeMB int
	Repo   string // remote repository reference, org/name
}

// Static catalogs per backend family. Order is the order presented to
// callers of List.
var (
	mlxCatalog = []catalogEntry{
		{Name: "turbo", SizeMB: 800, Repo: "mlx-community/whisper-turbo"},
		{Name: "large-v3-turbo", SizeMB: 1600, Repo: "mlx-community/whisper-large-v3-turbo"},
		{Name: "medium", SizeMB: 1500, Repo: "mlx-community/whisper-medium-mlx"},
	}

	cpuCatalog = []catalogEntry{
		{Name: "tiny", SizeMB: 75, Repo: "Systran/faster-whisper-tiny"},
		{Name: "base", SizeMB: 150, Repo: "Systran/faster-whisper-base"},
		{Name: "small", SizeMB: 500, Repo: "Systran/faster-whisper-small"},
		{Name: "medium", SizeMB: 1500, Repo: "Systran/faster-whisper-medium"},
		{Name: "large-v3", SizeMB: 3000, Repo: "Systran/faster-whisper-large-v3"},
	}
)

func catalogFor(b Backend) []catalogEntry {
	if b == BackendMLX {
		return mlxCatalog
	}
	return cpuCatalog
}

// Descriptor is the model record exposed to callers. Installed is derived
// from a filesystem probe, never from tracked state.
type Descriptor struct {
	Name      string  `json:"name"`
	SizeMB    int     `json:"size_mb"`
	Installed bool    `json:"installed"`
	Backend   Backend `json:"backend"`
}
