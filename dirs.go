package libertyconf

import (
	"path/filepath"
	"strings"
)

// Names of the predefined directory properties.
const (
	WLPInstallDir       = "wlp.install.dir"
	WLPUserDir          = "wlp.user.dir"
	USRExtensionDir     = "usr.extension.dir"
	SharedAppDir        = "shared.app.dir"
	SharedConfigDir     = "shared.config.dir"
	SharedResourceDir   = "shared.resource.dir"
	SharedStackGroupDir = "shared.stackgroup.dir"
	ServerConfigDir     = "server.config.dir"
	ServerOutputDir     = "server.output.dir"
)

// Dirs is a set of well-known server directories.
type Dirs struct {
	// InstallDir is the runtime installation directory (wlp).
	InstallDir string

	// UserDir is the user directory (usually <install>/usr).
	UserDir string

	// ConfigDir is the server configuration directory. If empty, the parent
	// directory of ServerXML is used.
	ConfigDir string

	// OutputDir is the server output directory. Defaults to ConfigDir.
	OutputDir string

	// ServerXML is the path of the primary server configuration document. If
	// empty, <ConfigDir>/server.xml is used.
	ServerXML string
}

// Normalize fills derived directories and makes all of them absolute.
func (d Dirs) Normalize() Dirs {
	d.InstallDir = absPath(d.InstallDir)
	d.UserDir = absPath(d.UserDir)
	d.ConfigDir = absPath(d.ConfigDir)
	d.OutputDir = absPath(d.OutputDir)
	d.ServerXML = absPath(d.ServerXML)

	if d.UserDir == "" && d.InstallDir != "" {
		d.UserDir = filepath.Join(d.InstallDir, "usr")
	}

	if d.ConfigDir == "" && d.ServerXML != "" {
		d.ConfigDir = filepath.Dir(d.ServerXML)
	}

	if d.ServerXML == "" && d.ConfigDir != "" {
		d.ServerXML = filepath.Join(d.ConfigDir, "server.xml")
	}

	if d.OutputDir == "" {
		d.OutputDir = d.ConfigDir
	}

	return d
}

// DirProperties computes the predefined directory properties. Keys of empty
// directories are omitted. Values are absolute paths with forward slashes.
func (d Dirs) DirProperties() map[string]string {
	d = d.Normalize()
	props := make(map[string]string)

	put := func(key, dir string, elem ...string) {
		if dir == "" {
			return
		}

		path := filepath.Join(append([]string{dir}, elem...)...)
		props[key] = filepath.ToSlash(path)
	}

	put(WLPInstallDir, d.InstallDir)
	put(WLPUserDir, d.UserDir)
	put(USRExtensionDir, d.UserDir, "extension")
	put(SharedAppDir, d.UserDir, "shared", "apps")
	put(SharedConfigDir, d.UserDir, "shared", "config")
	put(SharedResourceDir, d.UserDir, "shared", "resources")
	put(SharedStackGroupDir, d.UserDir, "shared", "stackGroups")
	put(ServerConfigDir, d.ConfigDir)
	put(ServerOutputDir, d.OutputDir)

	return props
}

func absPath(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}

	abs, err := filepath.Abs(path)

	if err != nil {
		return filepath.Clean(path)
	}

	return abs
}
