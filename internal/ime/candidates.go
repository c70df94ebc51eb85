package ime

import (
	"encoding/binary"

	"golang.org/x/text/encoding/unicode"
)

// Candidate list styles (IME_CAND_*).
const (
	CandUnknown uint32 = 0x0000
	CandRead    uint32 = 0x0001
	CandCode    uint32 = 0x0002
	CandMeaning uint32 = 0x0003
	CandRadical uint32 = 0x0004
	CandStroke  uint32 = 0x0005
)

// CANDIDATELIST layout: six DWORD header fields followed by dwCount DWORD
// offsets, each relative to the start of the buffer.
const (
	candidateHeaderSize = 24
	candidateOffsetSize = 4

	// maxCandidateListSize bounds the allocation for a reported list size.
	maxCandidateListSize = 1 << 20
)

// CandidateInfo is a parsed CANDIDATELIST.
type CandidateInfo struct {
	Style      uint32
	Selection  uint32
	PageStart  uint32
	PageSize   uint32
	Candidates []string
}

// CandidateList returns the candidates offered for the current composition
// in platform order. ok is false when there are none or the list is
// malformed.
func (c *Context) CandidateList() ([]string, bool) {
	info, ok := c.CandidateListInfo()
	if !ok {
		return nil, false
	}
	return info.Candidates, true
}

// CandidateListInfo is CandidateList with the list's paging metadata.
func (c *Context) CandidateListInfo() (CandidateInfo, bool) {
	if !c.usable() {
		return CandidateInfo{}, false
	}

	size := c.platform.GetCandidateList(c.himc, 0, nil)
	if size == 0 {
		return CandidateInfo{}, false
	}
	if size > maxCandidateListSize {
		c.logger.Debug("candidate list too large", "bytes", size)
		return CandidateInfo{}, false
	}

	buf := make([]byte, size)
	if c.platform.GetCandidateList(c.himc, 0, buf) == 0 {
		return CandidateInfo{}, false
	}

	info, err := parseCandidateList(buf)
	if err != nil {
		c.logger.Debug("malformed candidate list", "bytes", size, "error", err)
		return CandidateInfo{}, false
	}
	return info, true
}

// parseCandidateList validates and decodes a raw CANDIDATELIST. Every count
// and offset is checked against len(buf) before it is followed. Strings are
// read up to their NUL terminator or the end of buf, whichever comes first,
// and ill-formed UTF-16 is replaced rather than rejected.
func parseCandidateList(buf []byte) (CandidateInfo, error) {
	if len(buf) < candidateHeaderSize {
		return CandidateInfo{}, ErrShortCandidateList
	}

	count := binary.LittleEndian.Uint32(buf[8:])
	info := CandidateInfo{
		Style:     binary.LittleEndian.Uint32(buf[4:]),
		Selection: binary.LittleEndian.Uint32(buf[12:]),
		PageStart: binary.LittleEndian.Uint32(buf[16:]),
		PageSize:  binary.LittleEndian.Uint32(buf[20:]),
	}

	tableEnd := uint64(candidateHeaderSize) + uint64(count)*candidateOffsetSize
	if tableEnd > uint64(len(buf)) {
		return CandidateInfo{}, ErrCandidateCount
	}

	info.Candidates = make([]string, 0, count)
	for i := uint64(0); i < uint64(count); i++ {
		pos := candidateHeaderSize + i*candidateOffsetSize
		offset := uint64(binary.LittleEndian.Uint32(buf[pos:]))
		if offset >= uint64(len(buf)) {
			return CandidateInfo{}, ErrCandidateOffset
		}
		info.Candidates = append(info.Candidates, decodeCandidate(buf[offset:]))
	}

	return info, nil
}

// candidateDecoder turns little-endian UTF-16 into UTF-8, substituting
// U+FFFD for ill-formed sequences.
var candidateDecoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// decodeCandidate decodes the NUL-terminated string at the start of b.
func decodeCandidate(b []byte) string {
	end := len(b) &^ 1
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			end = i
			break
		}
	}

	out, _ := candidateDecoder.NewDecoder().Bytes(b[:end])
	return string(out)
}
