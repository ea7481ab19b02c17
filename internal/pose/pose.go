package pose

import (
	"math"

	"github.com/cybre/beat-puppet/internal/geom"
	"github.com/cybre/beat-puppet/internal/rig"
)

// Expression is the face state selected by play/pause edges.
type Expression int

const (
	ExpressionNeutral Expression = iota
	ExpressionHappy
	ExpressionAngry
)

// String returns a human-friendly name for the expression.
func (e Expression) String() string {
	switch e {
	case ExpressionHappy:
		return "happy"
	case ExpressionAngry:
		return "angry"
	default:
		return "neutral"
	}
}

// MarshalText encodes the expression by name.
func (e Expression) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// PartPose is the placement of one part for a single tick.
type PartPose struct {
	Name            string    `json:"name"`
	Role            rig.Role  `json:"role"`
	Position        geom.Vec2 `json:"position"`
	Angle           float64   `json:"angle"`
	AngularVelocity float64   `json:"angularVelocity"`
	// Pivot is the scene position of the joint the part hangs from.
	Pivot           geom.Vec2 `json:"pivot"`
	// Size is the part's bounding box.
	Size            geom.Vec2 `json:"size"`
}

// Pose is the full rig placement for one tick. Parts are in rig build order and every
// rig part is present.
type Pose struct {
	Time       float64    `json:"time"`
	Playing    bool       `json:"playing"`
	Pulse      float64    `json:"pulse"`
	JumpHeight float64    `json:"jumpHeight"`
	ScaleY     float64    `json:"scaleY"`
	Expression Expression `json:"expression"`
	Parts      []PartPose `json:"parts"`
}

// Part returns the named part placement.
func (p Pose) Part(name string) (PartPose, bool) {
	for _, part := range p.Parts {
		if part.Name == name {
			return part, true
		}
	}
	return PartPose{}, false
}

// Oscillate is the bounded periodic signal shared by every swinging part.
func Oscillate(t, speed, maxAmplitude float64) float64 {
	return math.Sin(t*speed) * maxAmplitude
}
