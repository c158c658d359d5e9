package version

import (
	"fmt"
	"runtime"
	"strings"
)

var Version = "0.0.0"
var GoVersion = strings.TrimPrefix(runtime.Version(), "go")

// UserAgent returns the identifier used for outgoing HTTP requests.
func UserAgent() string {
	return fmt.Sprintf("swarmgate/%s (go%s)", Version, GoVersion)
}
