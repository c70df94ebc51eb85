package ime

// HWND is an opaque window handle owned by the windowing layer.
type HWND uintptr

// HIMC is an opaque input method context handle.
type HIMC uintptr

// Composition string query modes (GCS_*).
const (
	GCSCompReadStr  uint32 = 0x0001
	GCSCompReadAttr uint32 = 0x0002
	GCSCompStr      uint32 = 0x0008
	GCSCompAttr     uint32 = 0x0010
	GCSCompClause   uint32 = 0x0020
	GCSCursorPos    uint32 = 0x0080
	GCSDeltaStart   uint32 = 0x0100
	GCSResultStr    uint32 = 0x0800
)

// Composition attribute tags, one per UTF-16 code unit of the
// composition string (ATTR_*).
const (
	AttrInput              byte = 0x00
	AttrTargetConverted    byte = 0x01
	AttrConverted          byte = 0x02
	AttrTargetNotConverted byte = 0x03
	AttrInputError         byte = 0x04
	AttrFixedConverted     byte = 0x05
)

// Candidate window styles (CFS_*).
const (
	CFSDefault       uint32 = 0x0000
	CFSRect          uint32 = 0x0001
	CFSPoint         uint32 = 0x0002
	CFSForcePosition uint32 = 0x0020
	CFSCandidatePos  uint32 = 0x0040
	CFSExclude       uint32 = 0x0080
)

// ImmAssociateContextEx flags (IACE_*).
const (
	IACEChildren        uint32 = 0x0001
	IACEDefault         uint32 = 0x0010
	IACEIgnoreNoContext uint32 = 0x0020
)

// Point mirrors the Win32 POINT structure.
type Point struct {
	X, Y int32
}

// Rect mirrors the Win32 RECT structure.
type Rect struct {
	Left, Top, Right, Bottom int32
}

// CandidateForm mirrors the Win32 CANDIDATEFORM structure.
type CandidateForm struct {
	Index      uint32
	Style      uint32
	CurrentPos Point
	Area       Rect
}

// Platform is the native input method API a Context talks to.
//
// The buffer-taking methods follow the Win32 convention: a nil or empty buf
// asks for the required size in bytes, a non-empty buf is filled and the
// number of bytes written is returned. Implementations must not retain buf.
type Platform interface {
	// Name returns the platform name (e.g., "windows", "unsupported").
	Name() string

	// IMMEnabled reports whether the system has input method support
	// (GetSystemMetrics(SM_IMMENABLED) != 0).
	IMMEnabled() bool

	// GetContext returns the input method context of hwnd. The result may
	// be zero when the window has no context.
	GetContext(hwnd HWND) HIMC

	// ReleaseContext hands a context obtained from GetContext back to
	// the system.
	ReleaseContext(hwnd HWND, himc HIMC) bool

	// GetCompositionString queries composition data for the given GCS_*
	// mode. Negative results are IMM_ERROR_* codes.
	GetCompositionString(himc HIMC, mode uint32, buf []byte) int32

	// GetCandidateList queries the candidate list at index. Zero means
	// no list or failure.
	GetCandidateList(himc HIMC, index uint32, buf []byte) uint32

	// SetCandidateWindow positions the candidate window.
	SetCandidateWindow(himc HIMC, form *CandidateForm) bool

	// AssociateContextEx changes the input method association of hwnd.
	AssociateContextEx(hwnd HWND, himc HIMC, flags uint32) bool
}

// PlatformInfo describes the input method backend compiled into the binary.
type PlatformInfo struct {
	Name      string
	Framework string
	Available bool
}

// Describe reports which backend p is and whether IME input is usable.
func Describe(p Platform) PlatformInfo {
	info := PlatformInfo{Name: p.Name(), Available: Available(p)}
	switch info.Name {
	case "windows":
		info.Framework = "Input Method Manager (IMM32)"
	default:
		info.Framework = "none"
	}
	return info
}

// Available reports whether the system has input method support.
func Available(p Platform) bool {
	return p != nil && p.IMMEnabled()
}
