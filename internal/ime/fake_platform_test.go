package ime

import (
	"encoding/binary"
	"unicode/utf16"
)

const immErrorNoData int32 = -1

type assocCall struct {
	hwnd  HWND
	himc  HIMC
	flags uint32
}

// fakePlatform scripts IMM32 responses for tests.
type fakePlatform struct {
	enabled bool
	himc    HIMC

	// comp holds the data returned per GCS_* mode. Modes without an entry
	// report IMM_ERROR_NODATA.
	comp map[uint32][]byte
	// probe and fill override the size probe and fill results per mode.
	probe map[uint32]int32
	fill  map[uint32]int32
	// cursor is returned for GCS_CURSORPOS.
	cursor int32

	candidates     []byte
	candidateProbe *uint32
	candidateFill  *uint32

	releaseOK      bool
	panicOnRelease bool

	releases int
	queries  int
	forms    []CandidateForm
	assocs   []assocCall
	lastHWND HWND
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		enabled:   true,
		himc:      0x1234,
		comp:      map[uint32][]byte{},
		probe:     map[uint32]int32{},
		fill:      map[uint32]int32{},
		releaseOK: true,
	}
}

func (f *fakePlatform) Name() string { return "fake" }

func (f *fakePlatform) IMMEnabled() bool { return f.enabled }

func (f *fakePlatform) GetContext(hwnd HWND) HIMC {
	f.lastHWND = hwnd
	return f.himc
}

func (f *fakePlatform) ReleaseContext(hwnd HWND, himc HIMC) bool {
	f.releases++
	if f.panicOnRelease {
		panic("release exploded")
	}
	return f.releaseOK
}

func (f *fakePlatform) GetCompositionString(himc HIMC, mode uint32, buf []byte) int32 {
	f.queries++
	if mode == GCSCursorPos {
		return f.cursor
	}
	if len(buf) == 0 {
		if v, ok := f.probe[mode]; ok {
			return v
		}
	}
	data, ok := f.comp[mode]
	if !ok {
		return immErrorNoData
	}
	if len(buf) == 0 {
		return int32(len(data))
	}
	n := copy(buf, data)
	if v, ok := f.fill[mode]; ok {
		return v
	}
	return int32(n)
}

func (f *fakePlatform) GetCandidateList(himc HIMC, index uint32, buf []byte) uint32 {
	f.queries++
	if len(buf) == 0 {
		if f.candidateProbe != nil {
			return *f.candidateProbe
		}
		return uint32(len(f.candidates))
	}
	if f.candidateFill != nil {
		return *f.candidateFill
	}
	return uint32(copy(buf, f.candidates))
}

func (f *fakePlatform) SetCandidateWindow(himc HIMC, form *CandidateForm) bool {
	f.forms = append(f.forms, *form)
	return true
}

func (f *fakePlatform) AssociateContextEx(hwnd HWND, himc HIMC, flags uint32) bool {
	f.assocs = append(f.assocs, assocCall{hwnd: hwnd, himc: himc, flags: flags})
	return true
}

// setComposition installs text and one attribute per UTF-16 unit.
func (f *fakePlatform) setComposition(text string, attrs []byte) {
	f.comp[GCSCompStr] = utf16Bytes(text)
	if attrs != nil {
		f.comp[GCSCompAttr] = attrs
	}
}

// utf16Bytes encodes s as little-endian UTF-16 without a terminator.
func utf16Bytes(s string) []byte {
	return unitsBytes(utf16.Encode([]rune(s)))
}

func unitsBytes(units []uint16) []byte {
	b := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[2*i:], u)
	}
	return b
}

// candidateBuffer lays out a CANDIDATELIST holding strs.
func candidateBuffer(strs ...string) []byte {
	header := candidateHeaderSize + candidateOffsetSize*len(strs)
	var body []byte
	offsets := make([]uint32, len(strs))
	for i, s := range strs {
		offsets[i] = uint32(header + len(body))
		body = append(body, utf16Bytes(s)...)
		body = append(body, 0, 0)
	}

	buf := make([]byte, header, header+len(body))
	binary.LittleEndian.PutUint32(buf[0:], uint32(header+len(body)))
	binary.LittleEndian.PutUint32(buf[4:], CandRead)
	binary.LittleEndian.PutUint32(buf[8:], uint32(len(strs)))
	binary.LittleEndian.PutUint32(buf[12:], 0)
	binary.LittleEndian.PutUint32(buf[16:], 0)
	binary.LittleEndian.PutUint32(buf[20:], 9)
	for i, off := range offsets {
		binary.LittleEndian.PutUint32(buf[candidateHeaderSize+candidateOffsetSize*i:], off)
	}
	return append(buf, body...)
}

func u32(v uint32) *uint32 { return &v }

var _ Platform = (*fakePlatform)(nil)
