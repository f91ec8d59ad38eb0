// conf/utils.go: OS specific configuration paths.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// GetDefaultConfigPaths returns the config file search paths in priority
// order: current working directory first, then the user config directory.
func GetDefaultConfigPaths() ([]string, error) {
	paths := []string{"."}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("error resolving user config directory: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		paths = append(paths, filepath.Join(configDir, "go-looper"))
	default:
		paths = append(paths, filepath.Join(configDir, "go-looper"))
		if home, err := os.UserHomeDir(); err == nil {
			paths = append(paths, filepath.Join(home, ".go-looper"))
		}
	}

	return paths, nil
}
