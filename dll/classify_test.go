package dll

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want Type
	}{
		{"nvngx_dlss.dll", TypeDLSS},
		{"NVNGX_DLSS.DLL", TypeDLSS}, // case-insensitive
		{"nvngx_dlssg.dll", TypeDLSSFrameGen},
		{"nvngx_dlssd.dll", TypeDLSSRayRecon},
		{"libxess.dll", TypeXeSS},
		{"libxess_dx11.dll", TypeXeSSDX11},
		{"ffx_fsr2_api_dx12_x64.dll", TypeFSR2},
		{"amd_fidelityfx_vk.dll", TypeFSR3},
		{"sl.interposer.dll", TypeStreamline},
		{"dstorage.dll", TypeDirectStorage},
		{"d3d12.dll", TypeUnknown},
	}

	for _, tt := range tests {
		if got := Classify(tt.name).Type; got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestClassifyPath(t *testing.T) {
	if got := Classify("games/Cyberpunk 2077/bin/x64/nvngx_dlss.dll").Type; got != TypeDLSS {
		t.Errorf("Classify on path = %s, want %s", got, TypeDLSS)
	}
}

func TestTechnologyGroup(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{TypeDLSS, "DLSS"},
		{TypeDLSSFrameGen, "DLSS"},
		{TypeDLSSRayRecon, "DLSS"},
		{TypeXeSS, "XeSS"},
		{TypeXeSSDX11, "XeSS"},
		{TypeFSR2, "FSR"},
		{TypeFSR3, "FSR"},
		{TypeStreamline, "Streamline"},
		{TypeDirectStorage, "DirectStorage"},
		{TypeUnknown, ""},
	}
	for _, tt := range tests {
		if got := TechnologyGroup(tt.typ); got != tt.want {
			t.Errorf("TechnologyGroup(%s) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestTypesForGroup(t *testing.T) {
	dlss := TypesForGroup("DLSS")
	if len(dlss) != 3 {
		t.Fatalf("TypesForGroup(DLSS) = %v, want 3 types", dlss)
	}
	if len(TypesForGroup("Nonexistent")) != 0 {
		t.Error("TypesForGroup on unknown group should be empty")
	}
}

func TestKnownFilenamesClassify(t *testing.T) {
	for _, name := range KnownFilenames() {
		if !Known(name) {
			t.Errorf("Known(%q) = false for a listed filename", name)
		}
		if Classify(name).Type == TypeUnknown {
			t.Errorf("Classify(%q) = Unknown for a listed filename", name)
		}
	}
}

func TestLatestKnownParses(t *testing.T) {
	for name, version := range LatestKnown {
		if !Known(name) {
			t.Errorf("LatestKnown lists %q which is not a known filename", name)
		}
		if _, err := ParseVersion(version); err != nil {
			t.Errorf("LatestKnown[%q] = %q does not parse: %v", name, version, err)
		}
	}
}
