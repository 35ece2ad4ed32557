package sysversion

import "testing"

func TestParseSemverVariants(t *testing.T) {
	tests := []struct {
		in   string
		want Semver
		ok   bool
	}{
		{"1.2.3", Semver{1, 2, 3, ""}, true},
		{"v1.2.3", Semver{1, 2, 3, ""}, true},
		{"1.2", Semver{1, 2, 0, ""}, true},
		{"1", Semver{1, 0, 0, ""}, true},
		{"1.2.3-rc1", Semver{1, 2, 3, "rc1"}, true},
		{"1.2.3+build5", Semver{1, 2, 3, "build5"}, true},
		{"not-a-version", Semver{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseSemver(tt.in)
		if ok != tt.ok {
			t.Fatalf("ParseSemver(%q) ok = %v, want %v", tt.in, ok, tt.ok)
		}
		if ok && got != tt.want {
			t.Errorf("ParseSemver(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestDiff(t *testing.T) {
	tests := []struct {
		current, upstream, want string
	}{
		{"1.2.3", "1.2.3", "same"},
		{"1.2.3", "1.2.4", "patch"},
		{"1.2.3", "1.3.0", "minor"},
		{"1.2.3", "2.0.0", "major"},
		{"2.0.0", "1.9.9", "same"},
		{"garbage", "1.2.3", "unknown"},
	}
	for _, tt := range tests {
		if got := Diff(tt.current, tt.upstream); got != tt.want {
			t.Errorf("Diff(%q, %q) = %q, want %q", tt.current, tt.upstream, got, tt.want)
		}
	}
}
