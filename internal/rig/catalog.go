package rig

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/cybre/beat-puppet/internal/geom"
)

// Rig names accepted by Catalog.
const (
	Dragon      = "dragon"
	DragonFace  = "dragon-face"
	DragonHands = "dragon-hands"
	DragonFull  = "dragon-full"
)

// DefaultAnchor matches a 1280px wide scene with the body resting at y=370.
func DefaultAnchor() Anchor {
	return Anchor{CenterX: 640, BaseY: 370}
}

func v(x, y float64) geom.Vec2 {
	return geom.Vec2{X: x, Y: y}
}

func coreParts() []PartSpec {
	return []PartSpec{
		{Name: "body", Role: RoleBody, Size: v(320, 400)},
		{Name: "tail", Role: RoleTail, Offset: v(-150, 30), Size: v(90, 140), Pivot: v(-60, 90)},
		{Name: "wing_left", Role: RoleWing, Side: SideLeft, Offset: v(-150, -20), Size: v(46, 76), Pivot: v(-80, 0), RestAngle: math.Pi / 6},
		{Name: "wing_right", Role: RoleWing, Side: SideRight, Offset: v(150, -20), Size: v(46, 76), Pivot: v(80, 0), RestAngle: math.Pi / 1.2},
		{Name: "leg_left", Role: RoleLeg, Side: SideLeft, Offset: v(40, 150), Size: v(54, 63), Pivot: v(-40, 120)},
		{Name: "leg_right", Role: RoleLeg, Side: SideRight, Offset: v(-40, 150), Size: v(54, 63), Pivot: v(40, 120)},
	}
}

func faceParts() []PartSpec {
	return []PartSpec{
		{Name: "eye_left", Role: RoleEye, Side: SideLeft, Offset: v(-55, -120), Size: v(40, 40)},
		{Name: "eye_right", Role: RoleEye, Side: SideRight, Offset: v(55, -120), Size: v(40, 40)},
		{Name: "nose", Role: RoleNose, Offset: v(0, -80), Size: v(30, 24)},
	}
}

func fingerParts() []PartSpec {
	return []PartSpec{
		{Name: "finger_left_upper", Role: RoleFinger, Side: SideLeft, Offset: v(-190, -40), Size: v(14, 40), Pivot: v(-150, -20), RestAngle: -math.Pi / 3, Amplitude: math.Pi / 18},
		{Name: "finger_left_lower", Role: RoleFinger, Side: SideLeft, Offset: v(-190, 0), Size: v(14, 40), Pivot: v(-150, -20), RestAngle: -math.Pi / 3, Amplitude: math.Pi / 12},
		{Name: "finger_right_upper", Role: RoleFinger, Side: SideRight, Offset: v(190, -40), Size: v(14, 40), Pivot: v(150, -20), RestAngle: math.Pi / 3, Amplitude: math.Pi / 18},
		{Name: "finger_right_lower", Role: RoleFinger, Side: SideRight, Offset: v(190, 0), Size: v(14, 40), Pivot: v(150, -20), RestAngle: math.Pi / 3, Amplitude: math.Pi / 12},
	}
}

var catalog = map[string]func() []PartSpec{
	Dragon: coreParts,
	DragonFace: func() []PartSpec {
		return append(coreParts(), faceParts()...)
	},
	DragonHands: func() []PartSpec {
		return append(coreParts(), fingerParts()...)
	},
	DragonFull: func() []PartSpec {
		parts := append(coreParts(), faceParts()...)
		return append(parts, fingerParts()...)
	},
}

// Catalog builds one of the named rigs around anchor.
func Catalog(name string, anchor Anchor) (*Model, error) {
	parts, ok := catalog[name]
	if !ok {
		return nil, eris.Errorf("unknown rig %q", name)
	}
	return Build(name, anchor, parts()...)
}

// Names lists the rigs Catalog knows about.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
