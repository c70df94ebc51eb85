//go:build !windows

package ime

// OtherPlatform is a stub for systems without IMM32. It reports no input
// method support, so every Context query yields no data.
type OtherPlatform struct{}

// NewPlatform returns the stub backend.
func NewPlatform() Platform {
	return &OtherPlatform{}
}

func (p *OtherPlatform) Name() string {
	return "unsupported"
}

func (p *OtherPlatform) IMMEnabled() bool {
	return false
}

func (p *OtherPlatform) GetContext(HWND) HIMC {
	return 0
}

func (p *OtherPlatform) ReleaseContext(HWND, HIMC) bool {
	return false
}

func (p *OtherPlatform) GetCompositionString(HIMC, uint32, []byte) int32 {
	return -1
}

func (p *OtherPlatform) GetCandidateList(HIMC, uint32, []byte) uint32 {
	return 0
}

func (p *OtherPlatform) SetCandidateWindow(HIMC, *CandidateForm) bool {
	return false
}

func (p *OtherPlatform) AssociateContextEx(HWND, HIMC, uint32) bool {
	return false
}

// ForegroundWindow always returns zero outside Windows.
func ForegroundWindow() HWND {
	return 0
}

var _ Platform = (*OtherPlatform)(nil)
