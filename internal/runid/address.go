package runid

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/specialistvlad/posgridgo/internal/node"
)

// ErrEmpty is returned when parsing an empty identifier.
var ErrEmpty = errors.New("identifier cannot be empty")

var (
	nameRegex    = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	addressRegex = regexp.MustCompile(`^([a-zA-Z0-9_-]+)\.([a-z]+)\[(\d+)\]$`)
)

// Address identifies one invocation: a program, the mode it ran under and
// the zero-based run index.
type Address struct {
	Program string
	Mode    node.Mode
	Run     int
}

// New creates an address.
func New(program string, mode node.Mode, run int) Address {
	return Address{Program: program, Mode: mode, Run: run}
}

// String serializes the address into its canonical form.
func (a Address) String() string {
	return fmt.Sprintf("%s.%s[%d]", a.Program, a.Mode, a.Run)
}

// Parse creates an Address from its canonical string representation.
func Parse(raw string) (Address, error) {
	if raw == "" {
		return Address{}, ErrEmpty
	}
	m := addressRegex.FindStringSubmatch(raw)
	if m == nil {
		return Address{}, fmt.Errorf("invalid run identifier format: %q", raw)
	}
	if !ValidProgramName(m[1]) {
		return Address{}, fmt.Errorf("invalid program name: %q", m[1])
	}
	mode, err := node.ParseModeName(m[2])
	if err != nil {
		return Address{}, err
	}
	run, err := strconv.Atoi(m[3])
	if err != nil {
		return Address{}, fmt.Errorf("invalid run index in %q: %w", raw, err)
	}
	return Address{Program: m[1], Mode: mode, Run: run}, nil
}

// ValidProgramName reports whether name can be used in an address.
func ValidProgramName(name string) bool {
	if name == "-" || name == "_" {
		return false
	}
	return nameRegex.MatchString(name)
}
