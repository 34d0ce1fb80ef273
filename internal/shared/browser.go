package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// OpenBrowser hands url to the host machine's default browser. This is how
// the Spotify authorization page reaches whoever is running the party, so it
// only needs to work on the desktop platforms a host would run partyq on.
//
// The launcher process is started and left alone; waiting on it would block
// behind the browser itself on some platforms.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch os := getRuntime(); os {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform: %s", os)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}
