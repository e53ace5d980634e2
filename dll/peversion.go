package dll

import (
	"debug/pe"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrNoVersionResource means the file carries no readable version resource.
// Libraries without one are stored versionless and never auto-updated.
var ErrNoVersionResource = errors.New("no version resource")

const (
	resourceDirIndex = 2  // IMAGE_DIRECTORY_ENTRY_RESOURCE
	rtVersion        = 16 // RT_VERSION
	fixedInfoSig     = 0xFEEF04BD
)

// ExtractFileVersion reads the FileVersion quadruple from a PE file's
// VS_FIXEDFILEINFO block, formatted as "a.b.c.d". The parse is pure Go, so
// it works on any host platform.
func ExtractFileVersion(path string) (string, error) {
	f, err := pe.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pe file: %w", err)
	}
	defer f.Close()

	var dir pe.DataDirectory
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if oh.NumberOfRvaAndSizes <= resourceDirIndex {
			return "", ErrNoVersionResource
		}
		dir = oh.DataDirectory[resourceDirIndex]
	case *pe.OptionalHeader64:
		if oh.NumberOfRvaAndSizes <= resourceDirIndex {
			return "", ErrNoVersionResource
		}
		dir = oh.DataDirectory[resourceDirIndex]
	default:
		return "", ErrNoVersionResource
	}
	if dir.VirtualAddress == 0 || dir.Size == 0 {
		return "", ErrNoVersionResource
	}

	section := sectionForRVA(f, dir.VirtualAddress)
	if section == nil {
		return "", ErrNoVersionResource
	}
	data, err := section.Data()
	if err != nil {
		return "", fmt.Errorf("read resource section: %w", err)
	}

	base := dir.VirtualAddress - section.VirtualAddress
	leafRVA, leafSize, err := findVersionLeaf(data, base)
	if err != nil {
		return "", err
	}
	if leafRVA < section.VirtualAddress {
		return "", ErrNoVersionResource
	}
	start := leafRVA - section.VirtualAddress
	if uint64(start)+uint64(leafSize) > uint64(len(data)) {
		return "", ErrNoVersionResource
	}
	return fixedFileVersion(data[start : start+leafSize])
}

func sectionForRVA(f *pe.File, rva uint32) *pe.Section {
	for _, s := range f.Sections {
		if rva >= s.VirtualAddress && rva < s.VirtualAddress+s.VirtualSize {
			return s
		}
	}
	return nil
}

// findVersionLeaf descends root -> RT_VERSION -> first name -> first language
// and returns the leaf data entry's RVA and size. Offsets in the directory
// tree are relative to the start of the resource data.
func findVersionLeaf(data []byte, root uint32) (uint32, uint32, error) {
	typeDir, err := findEntry(data, root, func(id uint32) bool { return id == rtVersion })
	if err != nil {
		return 0, 0, err
	}
	nameDir, err := findEntry(data, root+typeDir, nil)
	if err != nil {
		return 0, 0, err
	}
	leaf, err := findEntry(data, root+nameDir, nil)
	if err != nil {
		return 0, 0, err
	}
	// leaf offset points at an IMAGE_RESOURCE_DATA_ENTRY
	off := root + leaf
	if uint64(off)+16 > uint64(len(data)) {
		return 0, 0, ErrNoVersionResource
	}
	dataRVA := binary.LittleEndian.Uint32(data[off:])
	size := binary.LittleEndian.Uint32(data[off+4:])
	return dataRVA, size, nil
}

// findEntry walks one IMAGE_RESOURCE_DIRECTORY at off. With a nil filter the
// first entry wins; otherwise the first ID entry accepted by the filter. The
// returned offset has the subdirectory high bit stripped.
func findEntry(data []byte, off uint32, want func(id uint32) bool) (uint32, error) {
	if uint64(off)+16 > uint64(len(data)) {
		return 0, ErrNoVersionResource
	}
	named := binary.LittleEndian.Uint16(data[off+12:])
	ids := binary.LittleEndian.Uint16(data[off+14:])
	total := uint32(named) + uint32(ids)
	entries := off + 16
	for i := uint32(0); i < total; i++ {
		e := entries + i*8
		if uint64(e)+8 > uint64(len(data)) {
			return 0, ErrNoVersionResource
		}
		id := binary.LittleEndian.Uint32(data[e:])
		target := binary.LittleEndian.Uint32(data[e+4:])
		if want != nil {
			if id&0x80000000 != 0 || !want(id) {
				continue
			}
		}
		return target & 0x7FFFFFFF, nil
	}
	return 0, ErrNoVersionResource
}

// fixedFileVersion locates VS_FIXEDFILEINFO inside a VS_VERSIONINFO blob by
// its signature and formats dwFileVersionMS/LS.
func fixedFileVersion(blob []byte) (string, error) {
	for i := 0; i+16 <= len(blob); i += 4 {
		if binary.LittleEndian.Uint32(blob[i:]) != fixedInfoSig {
			continue
		}
		ms := binary.LittleEndian.Uint32(blob[i+8:])
		ls := binary.LittleEndian.Uint32(blob[i+12:])
		return fmt.Sprintf("%d.%d.%d.%d", ms>>16, ms&0xFFFF, ls>>16, ls&0xFFFF), nil
	}
	return "", ErrNoVersionResource
}
