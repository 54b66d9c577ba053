// Package scan locates hook targets inside the host process by byte
// signature. Patterns are written in the conventional hex notation with
// "??" wildcards, for example "48 8B ?? C4".
//
// A signature miss is a normal outcome, not an error: game patches move
// code around, and the caller degrades the corresponding feature instead
// of failing. Address zero is the miss value throughout.
package scan

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/vrforge/vrbridge"
)

// Pattern is a parsed byte signature.
type Pattern struct {
	bytes []byte
	mask  []bool
}

// Parse compiles a signature string. Tokens are two-digit hex bytes or
// "?"/"??" wildcards, separated by whitespace.
func Parse(s string) (Pattern, error) {
	var p Pattern
	for _, tok := range strings.Fields(s) {
		if tok == "?" || tok == "??" {
			p.bytes = append(p.bytes, 0)
			p.mask = append(p.mask, false)
			continue
		}
		b, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return Pattern{}, fmt.Errorf("scan: bad pattern byte %q: %w", tok, err)
		}
		p.bytes = append(p.bytes, byte(b))
		p.mask = append(p.mask, true)
	}
	if len(p.bytes) == 0 {
		return Pattern{}, fmt.Errorf("scan: empty pattern")
	}
	return p, nil
}

// Len returns the signature length in bytes.
func (p Pattern) Len() int {
	return len(p.bytes)
}

// Find returns the offset of the first match in region. ok is false on a
// miss, including when the region is smaller than the pattern.
func (p Pattern) Find(region []byte) (int, bool) {
	if len(p.bytes) == 0 || len(region) < len(p.bytes) {
		return 0, false
	}
	for off := 0; off <= len(region)-len(p.bytes); off++ {
		if p.matchAt(region, off) {
			return off, true
		}
	}
	return 0, false
}

func (p Pattern) matchAt(region []byte, off int) bool {
	for i, b := range p.bytes {
		if p.mask[i] && region[off+i] != b {
			return false
		}
	}
	return true
}

// Module is a loaded module's image, readable for scanning.
type Module interface {
	Name() string
	Base() uintptr
	Bytes() []byte
}

// Provider resolves modules by name. The empty name means the main
// executable.
type Provider interface {
	Module(name string) (Module, error)
}

// Scanner finds signatures in modules served by a Provider.
type Scanner struct {
	provider Provider
	log      *slog.Logger
}

// NewScanner creates a scanner over the given provider.
func NewScanner(p Provider) *Scanner {
	return &Scanner{
		provider: p,
		log:      vrbridge.Logger().With("component", "scan"),
	}
}

// FindPattern parses pattern and scans the named module for it,
// returning the absolute address of the first match. Zero means miss:
// unparseable pattern, unknown module, or no matching bytes. Only the
// first two are logged as errors; a clean miss is a warning.
func (s *Scanner) FindPattern(module, pattern string) uintptr {
	p, err := Parse(pattern)
	if err != nil {
		s.log.Error("pattern parse failed", "err", err)
		return 0
	}
	m, err := s.provider.Module(module)
	if err != nil {
		s.log.Error("module not found", "module", moduleLabel(module), "err", err)
		return 0
	}
	off, ok := p.Find(m.Bytes())
	if !ok {
		s.log.Warn("pattern not found", "module", moduleLabel(module))
		return 0
	}
	addr := m.Base() + uintptr(off)
	s.log.Info("pattern found", "module", moduleLabel(module), "addr", fmt.Sprintf("%#x", addr))
	return addr
}

func moduleLabel(name string) string {
	if name == "" {
		return "main"
	}
	return name
}

// RelativeTarget resolves a rel32 operand: for a call or jump instruction
// at offset instr whose 4-byte displacement sits dispOff bytes into the
// instruction and whose total length is instrLen bytes, it returns the
// branch target's offset in the same region.
func RelativeTarget(region []byte, instr, dispOff, instrLen int) (int, bool) {
	if instr < 0 || dispOff < 0 || instr+dispOff+4 > len(region) {
		return 0, false
	}
	disp := int32(binary.LittleEndian.Uint32(region[instr+dispOff:]))
	return instr + instrLen + int(disp), true
}

// BytesModule is an in-memory module image. Tests and the simulate
// command use it in place of a live process.
type BytesModule struct {
	name string
	base uintptr
	data []byte
}

// NewBytesModule wraps a byte slice as a module at the given base.
func NewBytesModule(name string, base uintptr, data []byte) *BytesModule {
	return &BytesModule{name: name, base: base, data: data}
}

func (m *BytesModule) Name() string { return m.name }

func (m *BytesModule) Base() uintptr { return m.base }

func (m *BytesModule) Bytes() []byte { return m.data }

// MapProvider serves a fixed set of BytesModules by name.
type MapProvider map[string]*BytesModule

// Module implements Provider.
func (mp MapProvider) Module(name string) (Module, error) {
	m, ok := mp[name]
	if !ok {
		return nil, fmt.Errorf("scan: module %q not mapped", moduleLabel(name))
	}
	return m, nil
}
