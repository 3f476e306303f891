// Package browser opens URLs in the user's default web browser. The CLI login
// flow uses it to launch the GitHub authorization page; headless environments
// fall back to printing the URL instead.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"

	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
)

var linuxOpeners = []string{"xdg-open", "x-www-browser", "www-browser", "firefox", "chromium", "google-chrome"}

// OpenURL opens the given URL in the default browser. It tries the
// open-golang library first and falls back to platform-specific commands.
func OpenURL(url string) error {
	err := open.Run(url)
	if err == nil {
		log.Debug("opened URL via open-golang")
		return nil
	}
	log.Debugf("open-golang failed: %v, trying platform-specific command", err)
	return openPlatformSpecific(url)
}

func openPlatformSpecific(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "linux":
		for _, opener := range linuxOpeners {
			if _, err := exec.LookPath(opener); err == nil {
				cmd = exec.Command(opener, url)
				break
			}
		}
		if cmd == nil {
			return fmt.Errorf("no browser opener found on this system")
		}
	default:
		return fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start browser command: %w", err)
	}
	return nil
}

// IsAvailable reports whether the current environment can open a browser.
// SSH sessions and containers typically cannot; callers should print the
// authorization URL instead.
func IsAvailable() bool {
	switch runtime.GOOS {
	case "darwin":
		_, err := exec.LookPath("open")
		return err == nil
	case "windows":
		_, err := exec.LookPath("rundll32")
		return err == nil
	case "linux":
		for _, opener := range linuxOpeners {
			if _, err := exec.LookPath(opener); err == nil {
				return true
			}
		}
		return false
	default:
		return false
	}
}
