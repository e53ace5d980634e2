package dll

import (
	"path/filepath"
	"strings"
)

// Type identifies the vendor technology of a library file.
type Type string

const (
	TypeDLSS          Type = "DLSS"
	TypeDLSSFrameGen  Type = "DLSS Frame Generation"
	TypeDLSSRayRecon  Type = "DLSS Ray Reconstruction"
	TypeXeSS          Type = "XeSS"
	TypeXeSSDX11      Type = "XeSS DX11"
	TypeFSR2          Type = "FSR 2"
	TypeFSR3          Type = "FSR 3"
	TypeStreamline    Type = "Streamline"
	TypeDirectStorage Type = "DirectStorage"
	TypeUnknown       Type = "Unknown"
)

// Info describes one classified library file.
type Info struct {
	Type   Type
	Vendor string
	Label  string
}

// table maps lower-cased filenames to their classification. Filenames not
// present classify as Unknown: still recorded, never updated.
var table = map[string]Info{
	"nvngx_dlss.dll":  {TypeDLSS, "NVIDIA", "DLSS"},
	"nvngx_dlssg.dll": {TypeDLSSFrameGen, "NVIDIA", "DLSS Frame Generation"},
	"nvngx_dlssd.dll": {TypeDLSSRayRecon, "NVIDIA", "DLSS Ray Reconstruction"},

	"libxess.dll":      {TypeXeSS, "Intel", "XeSS"},
	"libxess_dx11.dll": {TypeXeSSDX11, "Intel", "XeSS DX11"},

	"ffx_fsr2_api_x64.dll":      {TypeFSR2, "AMD", "FSR 2"},
	"ffx_fsr2_api_dx12_x64.dll": {TypeFSR2, "AMD", "FSR 2"},
	"ffx_fsr2_api_vk_x64.dll":   {TypeFSR2, "AMD", "FSR 2"},
	"amd_fidelityfx_dx12.dll":   {TypeFSR3, "AMD", "FSR 3"},
	"amd_fidelityfx_vk.dll":     {TypeFSR3, "AMD", "FSR 3"},

	"sl.common.dll":     {TypeStreamline, "NVIDIA", "Streamline Shared"},
	"sl.dlss.dll":       {TypeStreamline, "NVIDIA", "Streamline DLSS Super Resolution"},
	"sl.dlss_g.dll":     {TypeStreamline, "NVIDIA", "Streamline DLSS Frame Generation"},
	"sl.interposer.dll": {TypeStreamline, "NVIDIA", "Streamline Interposer"},
	"sl.pcl.dll":        {TypeStreamline, "NVIDIA", "Streamline PCL"},
	"sl.reflex.dll":     {TypeStreamline, "NVIDIA", "Streamline Reflex"},

	"dstorage.dll":     {TypeDirectStorage, "Microsoft", "DirectStorage"},
	"dstoragecore.dll": {TypeDirectStorage, "Microsoft", "DirectStorage Core"},
}

// Classify maps a filename (or path) to its library classification.
// Matching is case-insensitive on the base name.
func Classify(name string) Info {
	base := strings.ToLower(filepath.Base(name))
	if info, ok := table[base]; ok {
		return info
	}
	return Info{TypeUnknown, "", "Unknown"}
}

// Known reports whether the filename is in the classification table. The
// scanner yields only known filenames.
func Known(name string) bool {
	_, ok := table[strings.ToLower(filepath.Base(name))]
	return ok
}

// KnownFilenames returns the lower-cased filenames of the classification
// table, for scanners and tests.
func KnownFilenames() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	return names
}

// TechnologyGroup maps a library type onto the per-technology update toggle
// it is governed by. Unknown maps to the empty group and is never updated.
func TechnologyGroup(t Type) string {
	switch t {
	case TypeDLSS, TypeDLSSFrameGen, TypeDLSSRayRecon:
		return "DLSS"
	case TypeXeSS, TypeXeSSDX11:
		return "XeSS"
	case TypeFSR2, TypeFSR3:
		return "FSR"
	case TypeStreamline:
		return "Streamline"
	case TypeDirectStorage:
		return "DirectStorage"
	default:
		return ""
	}
}

// LatestKnown holds the statically configured latest version per filename.
// A synced repository manifest overrides these at runtime.
var LatestKnown = map[string]string{
	"nvngx_dlss.dll":  "3.17.10.0",
	"nvngx_dlssg.dll": "3.17.10.0",
	"nvngx_dlssd.dll": "3.17.10.0",

	"libxess.dll":      "2.0.1.41",
	"libxess_dx11.dll": "2.0.1.41",

	"sl.common.dll":     "2.7.32.0",
	"sl.dlss.dll":       "2.7.32.0",
	"sl.dlss_g.dll":     "2.7.32.0",
	"sl.interposer.dll": "2.7.32.0",
	"sl.pcl.dll":        "2.7.32.0",
	"sl.reflex.dll":     "2.7.32.0",

	"dstorage.dll":     "1.2.3.0",
	"dstoragecore.dll": "1.2.3.0",
}

// TypesForGroup returns the library types governed by one technology group.
func TypesForGroup(group string) []Type {
	var types []Type
	for _, t := range []Type{
		TypeDLSS, TypeDLSSFrameGen, TypeDLSSRayRecon,
		TypeXeSS, TypeXeSSDX11,
		TypeFSR2, TypeFSR3,
		TypeStreamline,
		TypeDirectStorage,
	} {
		if TechnologyGroup(t) == group {
			types = append(types, t)
		}
	}
	return types
}
