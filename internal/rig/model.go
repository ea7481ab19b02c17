package rig

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/cybre/beat-puppet/internal/geom"
)

var (
	ErrInvalidRigPart = eris.New("invalid rig part")
	ErrDuplicatePart  = eris.New("duplicate rig part")
	ErrMissingRole    = eris.New("rig part has no role")
	ErrMissingBody    = eris.New("rig needs exactly one body part")
)

// Role selects the animation rule applied to a part.
type Role int

const (
	RoleUnknown Role = iota
	RoleBody
	RoleWing
	RoleLeg
	RoleFinger
	RoleTail
	RoleEye
	RoleNose
)

// String returns a human-friendly name for the role.
func (r Role) String() string {
	switch r {
	case RoleBody:
		return "body"
	case RoleWing:
		return "wing"
	case RoleLeg:
		return "leg"
	case RoleFinger:
		return "finger"
	case RoleTail:
		return "tail"
	case RoleEye:
		return "eye"
	case RoleNose:
		return "nose"
	default:
		return "unknown"
	}
}

// MarshalText encodes the role by name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Side mirrors swinging parts around the body's vertical axis.
type Side int

const (
	SideCenter Side = iota
	SideLeft
	SideRight
)

// Sign returns -1 for left, +1 for right and 0 for centered parts.
func (s Side) Sign() float64 {
	switch s {
	case SideLeft:
		return -1
	case SideRight:
		return 1
	default:
		return 0
	}
}

// Anchor is the body's reference point; every part offset is relative to it.
type Anchor struct {
	CenterX float64 `yaml:"center_x"`
	BaseY   float64 `yaml:"base_y"`
}

// Point returns the anchor as a vector.
func (a Anchor) Point() geom.Vec2 {
	return geom.Vec2{X: a.CenterX, Y: a.BaseY}
}

// PartSpec is the static description of one visible part.
type PartSpec struct {
	Name string
	Role Role
	Side Side
	// Offset is the rest position relative to the anchor.
	Offset geom.Vec2
	// Size is the part's bounding box, used only by renderers.
	Size geom.Vec2
	// Pivot is the joint point on the body the part hangs from, relative to the anchor.
	Pivot geom.Vec2
	// RestAngle is the angle a wing or finger relaxes to while paused.
	RestAngle float64
	// Amplitude is the oscillation amplitude for fingers.
	Amplitude float64
}

// Model is an immutable rig. Redefining a rig means building a new Model.
type Model struct {
	name   string
	anchor Anchor
	parts  []PartSpec
	index  map[string]int
	body   int
}

// Build validates parts and returns a Model. Every part needs a unique name and a role,
// and exactly one part must be the body.
func Build(name string, anchor Anchor, parts ...PartSpec) (*Model, error) {
	if !finite(anchor.CenterX) || !finite(anchor.BaseY) {
		return nil, eris.Wrapf(ErrInvalidRigPart, "rig %q has a non-finite anchor", name)
	}

	m := &Model{
		name:   name,
		anchor: anchor,
		parts:  make([]PartSpec, len(parts)),
		index:  make(map[string]int, len(parts)),
		body:   -1,
	}
	copy(m.parts, parts)

	for i, part := range m.parts {
		if part.Name == "" {
			return nil, eris.Wrapf(ErrInvalidRigPart, "rig %q part %d has no name", name, i)
		}
		if _, exists := m.index[part.Name]; exists {
			return nil, eris.Wrapf(ErrDuplicatePart, "rig %q part %q", name, part.Name)
		}
		if part.Role <= RoleUnknown || part.Role > RoleNose {
			return nil, eris.Wrapf(ErrMissingRole, "rig %q part %q", name, part.Name)
		}
		if !part.Offset.Finite() || !part.Pivot.Finite() || !finite(part.RestAngle) || !finite(part.Amplitude) {
			return nil, eris.Wrapf(ErrInvalidRigPart, "rig %q part %q has non-finite geometry", name, part.Name)
		}
		if part.Role == RoleBody {
			if m.body >= 0 {
				return nil, eris.Wrapf(ErrMissingBody, "rig %q has more than one body", name)
			}
			m.body = i
		}
		m.index[part.Name] = i
	}

	if m.body < 0 {
		return nil, eris.Wrapf(ErrMissingBody, "rig %q", name)
	}

	return m, nil
}

// Name returns the rig name.
func (m *Model) Name() string {
	return m.name
}

// Anchor returns the rig's anchor frame.
func (m *Model) Anchor() Anchor {
	return m.anchor
}

// Len returns the number of parts.
func (m *Model) Len() int {
	return len(m.parts)
}

// Parts returns a copy of the part specs in build order.
func (m *Model) Parts() []PartSpec {
	out := make([]PartSpec, len(m.parts))
	copy(out, m.parts)
	return out
}

// At returns the i-th part in build order.
func (m *Model) At(i int) PartSpec {
	return m.parts[i]
}

// Body returns the body part and its index.
func (m *Model) Body() (PartSpec, int) {
	return m.parts[m.body], m.body
}

// Index returns the build-order index of the named part.
func (m *Model) Index(name string) (int, error) {
	i, ok := m.index[name]
	if !ok {
		return -1, eris.Wrapf(ErrInvalidRigPart, "rig %q has no part %q", m.name, name)
	}
	return i, nil
}

// Part looks up a part by name.
func (m *Model) Part(name string) (PartSpec, error) {
	i, err := m.Index(name)
	if err != nil {
		return PartSpec{}, err
	}
	return m.parts[i], nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
