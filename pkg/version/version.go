package version

import "fmt"

// These variables are set during build time via ldflags.
var (
	version   = "unknown"
	gitCommit = "unknown"
)

type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
}

func Get() Info {
	return Info{
		Version:   version,
		GitCommit: gitCommit,
	}
}

func (i Info) String() string {
	return fmt.Sprintf("%s (%s)", i.Version, i.GitCommit)
}
