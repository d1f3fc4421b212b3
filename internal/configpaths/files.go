package configpaths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

// configBases are the file base names tried in every directory.
var configBases = []string{"featurec", "config", "lower", "emit", "generate"}

var extensions = map[string]string{"json": "json", "yaml": "yaml", "yml": "yaml", "toml": "toml"}

// DefaultConfigDir returns the platform-specific configuration directory for featurec.
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if appdata := os.Getenv("AppData"); appdata != "" {
			return filepath.Join(appdata, "featurec"), nil
		}
		return "", errors.New("AppData not set")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "featurec"), nil
		}
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, ".config", "featurec"), nil
		}
		return "", errors.New("HOME not set")
	}
}

// DefaultNamedConfigPath returns the default config file path for the given format and base name (e.g., "emit").
func DefaultNamedConfigPath(baseName, format string) (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	ext, ok := extensions[format]
	if !ok {
		ext = "json"
	}
	return filepath.Join(dir, baseName+"."+ext), nil
}

// EnsureDir ensures the directory for a given file path exists.
func EnsureDir(filePath string) error {
	return os.MkdirAll(filepath.Dir(filePath), 0o755)
}

// searchDirs are the directories searched for configuration, most specific first.
func searchDirs() []string {
	var dirs []string
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	if dir, err := DefaultConfigDir(); err == nil {
		dirs = append(dirs, dir)
	}
	if runtime.GOOS != "windows" {
		dirs = append(dirs, "/etc/featurec")
	}
	return dirs
}

// ConfigCandidatePaths builds candidate paths for config files per format.
// A userPath goes first, routed to the loader matching its extension;
// unknown extensions are read as JSON.
func ConfigCandidatePaths(userPath string) (jsonPaths, yamlPaths, tomlPaths []string) {
	switch filepath.Ext(userPath) {
	case "":
		if userPath != "" {
			jsonPaths = append(jsonPaths, userPath)
		}
	case ".yaml", ".yml":
		yamlPaths = append(yamlPaths, userPath)
	case ".toml":
		tomlPaths = append(tomlPaths, userPath)
	default:
		jsonPaths = append(jsonPaths, userPath)
	}

	for _, dir := range searchDirs() {
		for _, base := range configBases {
			p := filepath.Join(dir, base)
			jsonPaths = append(jsonPaths, p+".json")
			yamlPaths = append(yamlPaths, p+".yaml", p+".yml")
			tomlPaths = append(tomlPaths, p+".toml")
		}
	}
	return jsonPaths, yamlPaths, tomlPaths
}
