package render

import (
	"fmt"
	"os/exec"

	"github.com/pkg/browser"
)

// Open shows the file at path in a web browser. An empty browser uses the
// system default; otherwise browser names the executable to launch.
func Open(path, browserBin string) error {
	if browserBin == "" {
		if err := browser.OpenFile(path); err != nil {
			return fmt.Errorf("open default browser: %w", err)
		}
		return nil
	}

	bin, err := exec.LookPath(browserBin)
	if err != nil {
		return fmt.Errorf("browser %q not found: %w", browserBin, err)
	}
	cmd := exec.Command(bin, path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", browserBin, err)
	}
	// The browser outlives us; reap it in the background.
	go cmd.Wait()
	return nil
}
