//go:build windows

package ime

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	imm32  = windows.NewLazySystemDLL("imm32.dll")
	user32 = windows.NewLazySystemDLL("user32.dll")

	procImmGetContext            = imm32.NewProc("ImmGetContext")
	procImmReleaseContext        = imm32.NewProc("ImmReleaseContext")
	procImmGetCompositionStringW = imm32.NewProc("ImmGetCompositionStringW")
	procImmGetCandidateListW     = imm32.NewProc("ImmGetCandidateListW")
	procImmSetCandidateWindow    = imm32.NewProc("ImmSetCandidateWindow")
	procImmAssociateContextEx    = imm32.NewProc("ImmAssociateContextEx")
	procGetSystemMetrics         = user32.NewProc("GetSystemMetrics")
)

const smIMMEnabled = 82

// WindowsPlatform implements Platform on top of imm32.dll.
type WindowsPlatform struct{}

// NewPlatform returns the IMM32 backend.
func NewPlatform() Platform {
	return &WindowsPlatform{}
}

func (p *WindowsPlatform) Name() string {
	return "windows"
}

func (p *WindowsPlatform) IMMEnabled() bool {
	if procGetSystemMetrics.Find() != nil {
		return false
	}
	r, _, _ := procGetSystemMetrics.Call(smIMMEnabled)
	return int32(r) != 0
}

func (p *WindowsPlatform) GetContext(hwnd HWND) HIMC {
	if procImmGetContext.Find() != nil {
		return 0
	}
	r, _, _ := procImmGetContext.Call(uintptr(hwnd))
	return HIMC(r)
}

func (p *WindowsPlatform) ReleaseContext(hwnd HWND, himc HIMC) bool {
	if procImmReleaseContext.Find() != nil {
		return false
	}
	r, _, _ := procImmReleaseContext.Call(uintptr(hwnd), uintptr(himc))
	return r != 0
}

func (p *WindowsPlatform) GetCompositionString(himc HIMC, mode uint32, buf []byte) int32 {
	if procImmGetCompositionStringW.Find() != nil {
		return -1
	}
	ptr, n := bufferArgs(buf)
	r, _, _ := procImmGetCompositionStringW.Call(uintptr(himc), uintptr(mode), ptr, n)
	return int32(r)
}

func (p *WindowsPlatform) GetCandidateList(himc HIMC, index uint32, buf []byte) uint32 {
	if procImmGetCandidateListW.Find() != nil {
		return 0
	}
	ptr, n := bufferArgs(buf)
	r, _, _ := procImmGetCandidateListW.Call(uintptr(himc), uintptr(index), ptr, n)
	return uint32(r)
}

func (p *WindowsPlatform) SetCandidateWindow(himc HIMC, form *CandidateForm) bool {
	if procImmSetCandidateWindow.Find() != nil {
		return false
	}
	r, _, _ := procImmSetCandidateWindow.Call(uintptr(himc), uintptr(unsafe.Pointer(form)))
	return r != 0
}

func (p *WindowsPlatform) AssociateContextEx(hwnd HWND, himc HIMC, flags uint32) bool {
	if procImmAssociateContextEx.Find() != nil {
		return false
	}
	r, _, _ := procImmAssociateContextEx.Call(uintptr(hwnd), uintptr(himc), uintptr(flags))
	return r != 0
}

// bufferArgs turns buf into the (pointer, length) pair IMM32 expects.
// An empty buf becomes (NULL, 0), which is the size probe.
func bufferArgs(buf []byte) (uintptr, uintptr) {
	if len(buf) == 0 {
		return 0, 0
	}
	return uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf))
}

// ForegroundWindow returns the window the user is currently working in.
func ForegroundWindow() HWND {
	return HWND(windows.GetForegroundWindow())
}

var _ Platform = (*WindowsPlatform)(nil)
