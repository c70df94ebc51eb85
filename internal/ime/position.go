package ime

import (
	"log/slog"

	"imectx/internal/dpi"
)

// SetCandidatePosition asks the input method to keep its candidate window
// clear of spot. spot is converted to physical pixels with scale. Nothing
// happens on systems without input method support.
func (c *Context) SetCandidatePosition(spot dpi.Position, scale float64) {
	if c == nil || !Available(c.platform) {
		return
	}
	if !c.usable() {
		return
	}
	if !dpi.ValidScaleFactor(scale) {
		c.logger.Warn("invalid scale factor for candidate window", "scale", scale)
		return
	}

	pos := spot.ToPhysical(scale)
	form := CandidateForm{
		Index:      0,
		Style:      CFSExclude,
		CurrentPos: Point{X: pos.X, Y: pos.Y},
	}

	if !c.platform.SetCandidateWindow(c.himc, &form) {
		c.logger.Debug("set candidate window failed", "x", pos.X, "y", pos.Y)
	}
}

// SetAllowed enables or disables IME input for hwnd. Enabling associates
// the window with the default input context; disabling removes the
// association from the window and its children. It does not need a Context
// and does nothing on systems without input method support.
func SetAllowed(p Platform, hwnd HWND, allowed bool) {
	if !Available(p) {
		return
	}

	flags := IACEChildren
	if allowed {
		flags = IACEDefault
	}

	if !p.AssociateContextEx(hwnd, 0, flags) {
		slog.Default().Debug("associate input context failed",
			"subsystem", "ime",
			"hwnd", uintptr(hwnd),
			"allowed", allowed,
		)
	}
}
