package watch

import (
	"path/filepath"

	"github.com/iph0/libertyconf"
)

// ServerPaths returns the paths that affect a scan of the server: server.xml,
// the config directory with its configDropins, server.env files, bootstrap
// properties and the variables directories.
func ServerPaths(dirs libertyconf.Dirs, variableDirs []string) []string {
	dirs = dirs.Normalize()

	var paths []string

	if dirs.ServerXML != "" {
		paths = append(paths, dirs.ServerXML)
	}

	if dirs.ConfigDir != "" {
		paths = append(paths,
			filepath.Join(dirs.ConfigDir, "server.env"),
			filepath.Join(dirs.ConfigDir, "bootstrap.properties"),
			filepath.Join(dirs.ConfigDir, "configDropins"),
		)
	}

	if dirs.ServerXML != "" && filepath.Dir(dirs.ServerXML) != dirs.ConfigDir {
		paths = append(paths, filepath.Join(filepath.Dir(dirs.ServerXML), "configDropins"))
	}

	if dirs.UserDir != "" {
		paths = append(paths, filepath.Join(dirs.UserDir, "shared", "server.env"))
	}

	if dirs.InstallDir != "" {
		paths = append(paths, filepath.Join(dirs.InstallDir, "etc", "server.env"))
	}

	return append(paths, variableDirs...)
}
