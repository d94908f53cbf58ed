package libertyconf_test

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/iph0/libertyconf"
)

func TestDirsNormalize(t *testing.T) {
	root := t.TempDir()
	install := filepath.Join(root, "wlp")
	config := filepath.Join(install, "usr", "servers", "app")

	dirs := libertyconf.Dirs{
		InstallDir: install,
		ServerXML:  filepath.Join(config, "server.xml"),
	}.Normalize()

	eDirs := libertyconf.Dirs{
		InstallDir: install,
		UserDir:    filepath.Join(install, "usr"),
		ConfigDir:  config,
		OutputDir:  config,
		ServerXML:  filepath.Join(config, "server.xml"),
	}

	if !reflect.DeepEqual(dirs, eDirs) {
		t.Errorf("unexpected dirs: %#v", dirs)
	}

	dirs = libertyconf.Dirs{ConfigDir: config}.Normalize()

	if dirs.ServerXML != filepath.Join(config, "server.xml") {
		t.Errorf("unexpected server.xml: %s", dirs.ServerXML)
	}

	if dirs.UserDir != "" || dirs.InstallDir != "" {
		t.Errorf("unexpected user directories: %#v", dirs)
	}
}

func TestDirProperties(t *testing.T) {
	root := t.TempDir()
	install := filepath.Join(root, "wlp")
	user := filepath.Join(root, "usr")
	config := filepath.Join(root, "servers", "app")
	output := filepath.Join(root, "output")

	props := libertyconf.Dirs{
		InstallDir: install,
		UserDir:    user,
		ConfigDir:  config,
		OutputDir:  output,
	}.DirProperties()

	slash := filepath.ToSlash

	eProps := map[string]string{
		libertyconf.WLPInstallDir:       slash(install),
		libertyconf.WLPUserDir:          slash(user),
		libertyconf.USRExtensionDir:     slash(user) + "/extension",
		libertyconf.SharedAppDir:        slash(user) + "/shared/apps",
		libertyconf.SharedConfigDir:     slash(user) + "/shared/config",
		libertyconf.SharedResourceDir:   slash(user) + "/shared/resources",
		libertyconf.SharedStackGroupDir: slash(user) + "/shared/stackGroups",
		libertyconf.ServerConfigDir:     slash(config),
		libertyconf.ServerOutputDir:     slash(output),
	}

	if !reflect.DeepEqual(props, eProps) {
		t.Errorf("unexpected directory properties: %#v", props)
	}

	if props := (libertyconf.Dirs{}).DirProperties(); len(props) != 0 {
		t.Errorf("unexpected directory properties: %#v", props)
	}
}
