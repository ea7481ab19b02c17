package pose

import (
	"math"

	"github.com/cybre/beat-puppet/internal/dsp"
	"github.com/cybre/beat-puppet/internal/geom"
	"github.com/cybre/beat-puppet/internal/rig"
	"github.com/cybre/beat-puppet/internal/utils"
)

type partState struct {
	position geom.Vec2
	angle    float64
}

// state is everything a tick advances. It is a value so a tick can be computed
// without committing it.
type state struct {
	parts      []partState
	pulse      dsp.Smoother
	scaleY     dsp.Smoother
	playing    bool
	expression Expression
	time       float64
	ticked     bool
}

// Scheduler turns (time, transport, pulse) into smoothed rig poses. Smoothing always
// continues from the previous tick's values, so mode switches never jump.
type Scheduler struct {
	params Params
	model  *rig.Model
	state  state

	lastInput [3]float64
	lastPose  Pose
}

// NewScheduler places every part at rest around the rig anchor.
func NewScheduler(model *rig.Model, params Params) *Scheduler {
	if params.PulseFloor <= 0 {
		params.PulseFloor = DefaultParams().PulseFloor
	}

	anchor := model.Anchor().Point()
	parts := make([]partState, model.Len())
	for i := range parts {
		spec := model.At(i)
		parts[i] = partState{
			position: anchor.Add(spec.Offset),
			angle:    restAngle(spec, params.Motion),
		}
	}

	return &Scheduler{
		params: params,
		model:  model,
		state: state{
			parts:  parts,
			pulse:  dsp.NewSmoother(params.Smoothing.Pulse, params.PulseFloor),
			scaleY: dsp.NewSmoother(params.Smoothing.Scale, params.Motion.PausedScale),
		},
	}
}

// Model returns the rig the scheduler animates.
func (s *Scheduler) Model() *rig.Model {
	return s.model
}

// Tick advances the animation by one step and returns the new pose. Repeating a tick
// with identical inputs returns the previous pose without advancing smoothing.
func (s *Scheduler) Tick(t float64, playing bool, pulse float64) Pose {
	t = utils.FiniteOr(t, s.state.time)
	pulse = s.sanitizePulse(pulse)

	input := [3]float64{t, boolToFloat(playing), pulse}
	if s.state.ticked && input == s.lastInput {
		return s.lastPose
	}

	next, pose, _ := s.step(t, playing, pulse)
	s.state = next
	s.lastInput = input
	s.lastPose = pose
	return pose
}

// Targets returns the unsmoothed per-part targets the next Tick with these inputs
// would steer toward. It does not change scheduler state.
func (s *Scheduler) Targets(t float64, playing bool, pulse float64) []PartPose {
	t = utils.FiniteOr(t, s.state.time)
	_, _, targets := s.step(t, playing, s.sanitizePulse(pulse))
	return targets
}

// Expression returns the current face state.
func (s *Scheduler) Expression() Expression {
	return s.state.expression
}

func (s *Scheduler) sanitizePulse(pulse float64) float64 {
	pulse = utils.FiniteOr(pulse, s.params.PulseFloor)
	return math.Max(pulse, s.params.PulseFloor)
}

func (s *Scheduler) step(t float64, playing bool, rawPulse float64) (state, Pose, []PartPose) {
	m := s.params.Motion
	a := s.params.Smoothing
	prev := s.state

	next := state{
		parts:      make([]partState, len(prev.parts)),
		pulse:      prev.pulse,
		scaleY:     prev.scaleY,
		playing:    playing,
		expression: prev.expression,
		time:       t,
		ticked:     true,
	}
	if playing != prev.playing {
		if playing {
			next.expression = ExpressionHappy
		} else {
			next.expression = ExpressionAngry
		}
	}

	pulse := next.pulse.Step(rawPulse)
	jumpHeight := m.JumpBaseHeight + pulse*m.JumpGain
	phase := math.Sin(t * m.JumpSpeed)

	anchor := s.model.Anchor().Point()
	bodySpec, bodyIdx := s.model.Body()

	bodyTarget := anchor.Add(bodySpec.Offset)
	bodyAlpha := a.BodyRest
	if playing {
		bodyTarget.Y -= jumpHeight * phase
		bodyAlpha = a.Body
	} else {
		bodyTarget.Y += m.RestSag
	}
	bodyPos := geom.Vec2{
		X: bodyTarget.X,
		Y: dsp.Smooth(prev.parts[bodyIdx].position.Y, bodyTarget.Y, bodyAlpha),
	}
	// Parts hang off the body's current placement, not its target.
	origin := bodyPos.Sub(bodySpec.Offset)

	wingSpeed := math.Max(m.WingMinSpeed, m.WingBaseSpeed-jumpHeight/safeDivisor(m.WingSpeedDivisor))
	wingSwing := Oscillate(t, wingSpeed, m.WingAmplitude*(1+pulse*m.WingPulseGain))

	dt := t - prev.time
	targets := make([]PartPose, len(prev.parts))
	parts := make([]PartPose, len(prev.parts))

	for i := range prev.parts {
		spec := s.model.At(i)
		cur := prev.parts[i]
		target := PartPose{
			Name:     spec.Name,
			Role:     spec.Role,
			Position: origin.Add(spec.Offset),
			Angle:    cur.angle,
			Pivot:    origin.Add(spec.Pivot),
			Size:     spec.Size,
		}
		pos := target.Position
		angle := cur.angle

		switch spec.Role {
		case rig.RoleBody:
			target.Position = bodyTarget
			target.Angle = 0
			pos = bodyPos
			angle = 0
		case rig.RoleTail:
			target.Angle = Oscillate(t, m.TailSpeed, m.TailAmplitude) + m.TailOffset
			angle = target.Angle
		case rig.RoleWing:
			if playing {
				target.Angle = spec.Side.Sign()*wingSwing + math.Pi/2
				angle = dsp.Smooth(cur.angle, target.Angle, a.Wing)
			} else {
				target.Angle = spec.RestAngle
				angle = dsp.Smooth(cur.angle, target.Angle, a.WingRest)
			}
		case rig.RoleFinger:
			if playing {
				target.Angle = spec.Side.Sign() * (m.FingerTilt + Oscillate(t, m.FingerSpeed, spec.Amplitude))
			} else {
				target.Angle = spec.RestAngle
			}
			angle = dsp.Smooth(cur.angle, target.Angle, a.Finger)
		case rig.RoleEye, rig.RoleNose:
			if playing {
				target.Position.Y += phase * m.FaceBob
			} else {
				target.Position.Y -= m.FaceLift
			}
			pos = dsp.SmoothVec(cur.position, target.Position, a.Face)
		case rig.RoleLeg:
			target.Angle = 0
			angle = 0
		}

		if !pos.Finite() {
			pos = cur.position
		}
		angle = utils.FiniteOr(angle, cur.angle)

		var angularVelocity float64
		if spec.Role != rig.RoleBody && dt > 0 {
			angularVelocity = utils.FiniteOr((angle-cur.angle)/dt, 0)
		}

		next.parts[i] = partState{position: pos, angle: angle}
		targets[i] = target
		parts[i] = PartPose{
			Name:            spec.Name,
			Role:            spec.Role,
			Position:        pos,
			Angle:           angle,
			AngularVelocity: angularVelocity,
			Pivot:           origin.Add(spec.Pivot),
			Size:            spec.Size,
		}
	}

	scaleTarget := m.PausedScale
	if playing {
		scaleTarget = 1
	}
	scaleY := next.scaleY.Step(scaleTarget)

	pose := Pose{
		Time:       t,
		Playing:    playing,
		Pulse:      pulse,
		JumpHeight: jumpHeight,
		ScaleY:     scaleY,
		Expression: next.expression,
		Parts:      parts,
	}
	return next, pose, targets
}

func restAngle(spec rig.PartSpec, m Motion) float64 {
	switch spec.Role {
	case rig.RoleWing, rig.RoleFinger:
		return spec.RestAngle
	case rig.RoleTail:
		return m.TailOffset
	default:
		return 0
	}
}

func safeDivisor(v float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return 1
	}
	return v
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
