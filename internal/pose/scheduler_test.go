package pose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybre/beat-puppet/internal/rig"
)

func newTestScheduler(t *testing.T, rigName string) *Scheduler {
	t.Helper()
	model, err := rig.Catalog(rigName, rig.DefaultAnchor())
	require.NoError(t, err)
	return NewScheduler(model, DefaultParams())
}

func requirePart(t *testing.T, p Pose, name string) PartPose {
	t.Helper()
	part, ok := p.Part(name)
	require.True(t, ok, "missing part %q", name)
	return part
}

func assertFinitePose(t *testing.T, p Pose) {
	t.Helper()
	for _, part := range p.Parts {
		assert.True(t, part.Position.Finite(), "%s position", part.Name)
		assert.False(t, math.IsNaN(part.Angle) || math.IsInf(part.Angle, 0), "%s angle", part.Name)
		assert.False(t, math.IsNaN(part.AngularVelocity), "%s angular velocity", part.Name)
	}
	assert.False(t, math.IsNaN(p.Pulse))
	assert.False(t, math.IsNaN(p.ScaleY))
}

func TestEveryPartInEveryPose(t *testing.T) {
	s := newTestScheduler(t, rig.DragonFull)
	model := s.Model()

	for i := range 300 {
		tm := float64(i) / 60
		playing := (i/50)%2 == 0
		p := s.Tick(tm, playing, 0.05+float64(i%7)*0.2)

		require.Len(t, p.Parts, model.Len())
		for j, part := range p.Parts {
			assert.Equal(t, model.At(j).Name, part.Name)
		}
		assertFinitePose(t, p)
	}
}

func TestUnsetPulseUsesFloor(t *testing.T) {
	s := newTestScheduler(t, rig.DragonFace)
	for i, pulse := range []float64{0, -3, math.NaN(), math.Inf(1), math.Inf(-1)} {
		p := s.Tick(float64(i)*0.016, true, pulse)
		assertFinitePose(t, p)
		assert.InDelta(t, DefaultParams().PulseFloor, p.Pulse, 1e-12)
	}
}

func TestNonFiniteTimeKeepsLastTime(t *testing.T) {
	s := newTestScheduler(t, rig.Dragon)
	s.Tick(1.5, true, 0.05)
	p := s.Tick(math.NaN(), true, 0.05)
	assert.Equal(t, 1.5, p.Time)
	assertFinitePose(t, p)
}

func TestTailAnimatesWhilePaused(t *testing.T) {
	s := newTestScheduler(t, rig.Dragon)
	m := DefaultParams().Motion

	for _, tm := range []float64{0.3, 1.1, 2.7} {
		for _, playing := range []bool{false, true} {
			p := s.Tick(tm, playing, 0.05)
			want := Oscillate(tm, m.TailSpeed, m.TailAmplitude) + m.TailOffset
			assert.InDelta(t, want, requirePart(t, p, "tail").Angle, 1e-12)
		}
	}
}

func TestBodyStaysUpright(t *testing.T) {
	s := newTestScheduler(t, rig.Dragon)
	for i := range 100 {
		p := s.Tick(float64(i)*0.02, i%3 != 0, 1.5)
		body := requirePart(t, p, "body")
		assert.Equal(t, 0.0, body.Angle)
		assert.Equal(t, 0.0, body.AngularVelocity)
		assert.Equal(t, rig.DefaultAnchor().CenterX, body.Position.X)
	}
}

func TestModeSwitchIsContinuous(t *testing.T) {
	s := newTestScheduler(t, rig.Dragon)
	a := DefaultParams().Smoothing

	paused := requirePart(t, s.Tick(0, false, 0.05), "body")
	target := s.Targets(0, true, 0.05)[0]
	playing := requirePart(t, s.Tick(0, true, 0.05), "body")

	maxStep := a.Body * math.Abs(target.Position.Y-paused.Position.Y)
	assert.LessOrEqual(t, math.Abs(playing.Position.Y-paused.Position.Y), maxStep+1e-9)

	back := requirePart(t, s.Tick(0.016, false, 0.05), "body")
	assert.Less(t, math.Abs(back.Position.Y-playing.Position.Y), 5.0)
}

func TestRepeatedTickDoesNotDoubleAdvance(t *testing.T) {
	once := newTestScheduler(t, rig.DragonFull)
	twice := newTestScheduler(t, rig.DragonFull)

	first := once.Tick(0.5, true, 1.2)
	a := twice.Tick(0.5, true, 1.2)
	b := twice.Tick(0.5, true, 1.2)
	assert.Equal(t, first, a)
	assert.Equal(t, a, b)

	assert.Equal(t, once.Tick(0.6, true, 1.2), twice.Tick(0.6, true, 1.2))
}

func TestTargetsArePure(t *testing.T) {
	s := newTestScheduler(t, rig.DragonHands)
	reference := newTestScheduler(t, rig.DragonHands)
	s.Tick(0.2, true, 0.8)
	reference.Tick(0.2, true, 0.8)

	first := s.Targets(0.4, true, 0.8)
	second := s.Targets(0.4, true, 0.8)
	assert.Equal(t, first, second)

	assert.Equal(t, reference.Tick(0.4, true, 0.8), s.Tick(0.4, true, 0.8))
}

func TestExpressionFollowsTransportEdges(t *testing.T) {
	s := newTestScheduler(t, rig.DragonFace)

	assert.Equal(t, ExpressionNeutral, s.Tick(0, false, 0.05).Expression)
	assert.Equal(t, ExpressionNeutral, s.Tick(0.1, false, 0.05).Expression)
	assert.Equal(t, ExpressionHappy, s.Tick(0.2, true, 2).Expression)
	assert.Equal(t, ExpressionHappy, s.Tick(0.3, true, 0.05).Expression)
	assert.Equal(t, ExpressionAngry, s.Tick(0.4, false, 2).Expression)
	assert.Equal(t, ExpressionAngry, s.Expression())
	assert.Equal(t, ExpressionHappy, s.Tick(0.5, true, 0.05).Expression)
}

func TestPausedSettlesToRestPose(t *testing.T) {
	s := newTestScheduler(t, rig.DragonFull)
	params := DefaultParams()
	anchor := rig.DefaultAnchor()

	var p Pose
	for i := range 2000 {
		p = s.Tick(float64(i)/60, false, 0.05)
	}

	assert.InDelta(t, anchor.BaseY+params.Motion.RestSag, requirePart(t, p, "body").Position.Y, 1e-3)
	assert.InDelta(t, math.Pi/6, requirePart(t, p, "wing_left").Angle, 1e-3)
	assert.InDelta(t, math.Pi/1.2, requirePart(t, p, "wing_right").Angle, 1e-3)
	assert.InDelta(t, -math.Pi/3, requirePart(t, p, "finger_left_upper").Angle, 1e-3)
	assert.InDelta(t, math.Pi/3, requirePart(t, p, "finger_right_lower").Angle, 1e-3)
	assert.InDelta(t, params.Motion.PausedScale, p.ScaleY, 1e-3)

	body := requirePart(t, p, "body")
	eye := requirePart(t, p, "eye_left")
	assert.InDelta(t, body.Position.Y-120-params.Motion.FaceLift, eye.Position.Y, 1e-3)

	leg := requirePart(t, p, "leg_left")
	assert.Equal(t, body.Position.X+40, leg.Position.X)
	assert.InDelta(t, body.Position.Y+150, leg.Position.Y, 1e-9)
}

func TestPlayingScaleApproachesOne(t *testing.T) {
	s := newTestScheduler(t, rig.Dragon)
	var p Pose
	for i := range 500 {
		p = s.Tick(float64(i)/60, true, 0.05)
	}
	assert.InDelta(t, 1.0, p.ScaleY, 1e-3)
}

func TestPulseRaisesJumpHeight(t *testing.T) {
	s := newTestScheduler(t, rig.Dragon)
	m := DefaultParams().Motion

	var p Pose
	for i := range 400 {
		p = s.Tick(float64(i)/60, true, 2.0)
	}
	assert.InDelta(t, 2.0, p.Pulse, 1e-6)
	assert.InDelta(t, m.JumpBaseHeight+p.Pulse*m.JumpGain, p.JumpHeight, 1e-9)

	quiet := newTestScheduler(t, rig.Dragon)
	assert.InDelta(t, m.JumpBaseHeight+0.05*m.JumpGain, quiet.Tick(0, true, 0.05).JumpHeight, 1e-9)
}

func TestPlayingTargetsFollowFormulas(t *testing.T) {
	s := newTestScheduler(t, rig.DragonFull)
	m := DefaultParams().Motion
	anchor := rig.DefaultAnchor()

	const tm = 0.7
	targets := s.Targets(tm, true, 0.05)

	pulse := 0.05 // smoothing a floor pulse toward the floor stays at the floor
	jump := m.JumpBaseHeight + pulse*m.JumpGain
	assert.InDelta(t, anchor.BaseY-jump*math.Sin(tm*m.JumpSpeed), targets[0].Position.Y, 1e-9)

	speed := math.Max(1, m.WingBaseSpeed-jump/m.WingSpeedDivisor)
	swing := Oscillate(tm, speed, m.WingAmplitude*(1+pulse*m.WingPulseGain))
	byName := map[string]PartPose{}
	for _, target := range targets {
		byName[target.Name] = target
	}
	assert.InDelta(t, -swing+math.Pi/2, byName["wing_left"].Angle, 1e-9)
	assert.InDelta(t, swing+math.Pi/2, byName["wing_right"].Angle, 1e-9)
	assert.InDelta(t, -(m.FingerTilt + Oscillate(tm, m.FingerSpeed, math.Pi/18)), byName["finger_left_upper"].Angle, 1e-9)
	assert.InDelta(t, m.FingerTilt+Oscillate(tm, m.FingerSpeed, math.Pi/12), byName["finger_right_lower"].Angle, 1e-9)
}

func TestWingsStayWithinSwing(t *testing.T) {
	s := newTestScheduler(t, rig.Dragon)
	m := DefaultParams().Motion
	limit := m.WingAmplitude * (1 + 2.0*m.WingPulseGain)

	for i := range 600 {
		p := s.Tick(float64(i)/60, true, 2.0)
		if i < 120 {
			continue
		}
		for _, name := range []string{"wing_left", "wing_right"} {
			angle := requirePart(t, p, name).Angle
			assert.LessOrEqual(t, math.Abs(angle-math.Pi/2), limit+1e-6, name)
		}
	}
}

func TestOscillate(t *testing.T) {
	assert.Equal(t, 0.0, Oscillate(0, 3, 1))
	assert.InDelta(t, math.Pi/9, Oscillate(math.Pi/3, 1.5, math.Pi/9), 1e-12)
}

func TestExpressionString(t *testing.T) {
	assert.Equal(t, "happy", ExpressionHappy.String())
	text, err := ExpressionAngry.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "angry", string(text))
}

func TestPivotsFollowTheBody(t *testing.T) {
	s := newTestScheduler(t, rig.Dragon)

	for i := 0; i < 30; i++ {
		p := s.Tick(float64(i)*0.05, true, 1.2)
		body := requirePart(t, p, "body")
		wing := requirePart(t, p, "wing_left")
		tail := requirePart(t, p, "tail")

		// The body has no offset, so its position is the hanging origin.
		assert.InDelta(t, body.Position.X-80, wing.Pivot.X, 1e-9)
		assert.InDelta(t, body.Position.Y, wing.Pivot.Y, 1e-9)
		assert.InDelta(t, body.Position.Y+90, tail.Pivot.Y, 1e-9)
		assert.Equal(t, 320.0, body.Size.X)
		assert.Equal(t, 76.0, wing.Size.Y)
	}

	targets := s.Targets(2, true, 1.2)
	require.NotEmpty(t, targets)
	assert.Equal(t, 400.0, targets[0].Size.Y)
}

func TestTargetsDoNotAdvancePulseSmoothing(t *testing.T) {
	s := newTestScheduler(t, rig.Dragon)
	before := s.Tick(0.1, true, 2)

	for i := 0; i < 10; i++ {
		s.Targets(0.2, true, 2)
	}
	after := s.Tick(0.2, true, 2)

	fresh := newTestScheduler(t, rig.Dragon)
	fresh.Tick(0.1, true, 2)
	want := fresh.Tick(0.2, true, 2)

	assert.Greater(t, after.Pulse, before.Pulse)
	assert.Equal(t, want.Pulse, after.Pulse)
	assert.Equal(t, want.ScaleY, after.ScaleY)
}
