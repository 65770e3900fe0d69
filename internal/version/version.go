package version

const (
	CLIName = "sherpa"
	Version = "0.3.0"
)

type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func Get() Info {
	return Info{Name: CLIName, Version: Version}
}
