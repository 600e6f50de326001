package craft

import "testing"

func TestModeIsValid(t *testing.T) {
	for _, m := range ValidModes() {
		if !m.IsValid() {
			t.Errorf("%q should be valid", m)
		}
	}
	if Mode("shopping").IsValid() {
		t.Error("unknown modes should be invalid")
	}
	if Mode("").IsValid() {
		t.Error("empty mode should be invalid")
	}
}

func TestGroupLookupCaseInsensitive(t *testing.T) {
	g := DefaultGroups()

	label, members, ok := g.Lookup("any wood")
	if !ok || label != "Any Wood" {
		t.Fatalf("lookup = %q, %v", label, ok)
	}
	found := false
	for _, m := range members {
		if m == "Boreal Wood" {
			found = true
		}
	}
	if !found {
		t.Error("Any Wood should include Boreal Wood")
	}
}

func TestIsGroupLabel(t *testing.T) {
	g := DefaultGroups()

	cases := []struct {
		name string
		want bool
	}{
		{"Any Wood", true},
		{"ANY IRON BAR", true},
		{"Any Weird Modded Thing", true}, // prefix rule, no table entry
		{"Copper Bar", false},
		{"Wood", false},
	}
	for _, tc := range cases {
		if got := g.IsGroupLabel(tc.name); got != tc.want {
			t.Errorf("IsGroupLabel(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestMembersDegradesUnknownGroups(t *testing.T) {
	g := DefaultGroups()

	got := g.Members("Any Weird Modded Thing")
	if len(got) != 1 || got[0] != "Weird Modded Thing" {
		t.Errorf("members = %v, want the stripped name", got)
	}
}
