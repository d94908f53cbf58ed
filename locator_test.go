package libertyconf_test

import (
	"testing"

	"github.com/iph0/libertyconf"
)

func TestParseLocator(t *testing.T) {
	tests := []struct {
		raw    string
		scheme string
		value  string
		dir    bool
		remote bool
	}{
		{"inc/common.xml", libertyconf.SchemeFile, "inc/common.xml", false, false},
		{"/etc/common.xml", libertyconf.SchemeFile, "/etc/common.xml", false, false},
		{"C:/wlp/common.xml", libertyconf.SchemeFile, "C:/wlp/common.xml", false, false},
		{"conf.d/", libertyconf.SchemeFile, "conf.d/", true, false},
		{"file:inc/common.xml", libertyconf.SchemeFile, "inc/common.xml", false, false},
		{"file:///etc/common.xml", libertyconf.SchemeFile, "/etc/common.xml", false, false},
		{"file:///C:/wlp/common.xml", libertyconf.SchemeFile, "C:/wlp/common.xml", false, false},
		{"http://cfg.example.com/a.xml", libertyconf.SchemeHTTP, "http://cfg.example.com/a.xml", false, true},
		{"HTTPS://cfg.example.com/a.xml", libertyconf.SchemeHTTPS, "HTTPS://cfg.example.com/a.xml", false, true},
		{"map:common", libertyconf.SchemeMap, "common", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			loc, err := libertyconf.ParseLocator(tt.raw)

			if err != nil {
				t.Error(err)
				return
			}

			if loc.Scheme != tt.scheme || loc.Value != tt.value {
				t.Errorf("unexpected locator: %#v", loc)
			}

			if loc.IsDir() != tt.dir {
				t.Errorf("unexpected IsDir: %v", loc.IsDir())
			}

			if loc.IsRemote() != tt.remote {
				t.Errorf("unexpected IsRemote: %v", loc.IsRemote())
			}

			if loc.String() != tt.raw {
				t.Errorf("unexpected String: %s", loc)
			}
		})
	}
}

func TestParseLocatorErrors(t *testing.T) {
	for _, raw := range []string{"", "   ", "map:"} {
		if _, err := libertyconf.ParseLocator(raw); err == nil {
			t.Errorf("%q: no error", raw)
		}
	}
}
