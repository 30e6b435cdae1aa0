package app

import "testing"

func TestFormatStartupMessage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		appName     string
		appVersion  string
		coreVersion string
		want        string
	}{
		{
			name:        "no app version uses core version",
			appName:     "guildsettings",
			appVersion:  "",
			coreVersion: "v0.1.0",
			want:        "🚀 Starting guildsettings v0.1.0...",
		},
		{
			name:        "different versions include both",
			appName:     "alicebot",
			appVersion:  "v0.114.0",
			coreVersion: "v0.1.0",
			want:        "🚀 Starting alicebot v0.114.0 (guildsettings v0.1.0)...",
		},
		{
			name:        "same versions omit suffix",
			appName:     "alicebot",
			appVersion:  "v0.1.0",
			coreVersion: "v0.1.0",
			want:        "🚀 Starting alicebot v0.1.0...",
		},
		{
			name:        "trims spaces",
			appName:     " alicebot ",
			appVersion:  " v0.1.0 ",
			coreVersion: " v0.1.0 ",
			want:        "🚀 Starting alicebot v0.1.0...",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := formatStartupMessage(tc.appName, tc.appVersion, tc.coreVersion)
			if got != tc.want {
				t.Fatalf("formatStartupMessage() mismatch\nwant: %q\ngot:  %q", tc.want, got)
			}
		})
	}
}

func TestSetAppVersion(t *testing.T) {
	SetAppVersion("v9.9.9")
	t.Cleanup(func() { SetAppVersion("") })
	if got := AppVersion(); got != "v9.9.9" {
		t.Fatalf("AppVersion() = %q", got)
	}
}
