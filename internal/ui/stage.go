package ui

import (
	"math"
	"strings"

	"github.com/cybre/beat-puppet/internal/geom"
	"github.com/cybre/beat-puppet/internal/pose"
	"github.com/cybre/beat-puppet/internal/rig"
)

const (
	defaultStageCols = 40
	defaultStageRows = 14
)

// Stage maps scene coordinates onto a character grid.
type Stage struct {
	Cols   int
	Rows   int
	Origin geom.Vec2
	Extent geom.Vec2
}

// NewStage frames the scene around a rig anchor with room for the widest
// catalog rig and the full jump height.
func NewStage(anchor rig.Anchor) Stage {
	return Stage{
		Cols:   defaultStageCols,
		Rows:   defaultStageRows,
		Origin: geom.Vec2{X: anchor.CenterX - 320, Y: anchor.BaseY - 360},
		Extent: geom.Vec2{X: 640, Y: 600},
	}
}

// Cell returns the grid cell for a scene position and whether it is visible.
func (s Stage) Cell(p geom.Vec2) (col, row int, ok bool) {
	if s.Cols <= 0 || s.Rows <= 0 || s.Extent.X <= 0 || s.Extent.Y <= 0 || !p.Finite() {
		return 0, 0, false
	}
	col = int(math.Floor((p.X - s.Origin.X) / s.Extent.X * float64(s.Cols)))
	row = int(math.Floor((p.Y - s.Origin.Y) / s.Extent.Y * float64(s.Rows)))
	if col < 0 || col >= s.Cols || row < 0 || row >= s.Rows {
		return col, row, false
	}
	return col, row, true
}

// Draw renders the pose as rows of glyphs. The body box is painted first, then the
// joints, so the parts attached to it stay visible on top.
func (s Stage) Draw(p pose.Pose) string {
	if s.Cols <= 0 || s.Rows <= 0 {
		return ""
	}
	grid := make([][]rune, s.Rows)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", s.Cols))
	}

	for _, part := range p.Parts {
		if part.Role == rig.RoleBody {
			s.fill(grid, part.Position, part.Size, '█')
		}
	}
	for _, part := range p.Parts {
		if part.Role != rig.RoleBody && part.Pivot != (geom.Vec2{}) {
			s.plot(grid, part.Pivot, '·')
		}
	}
	for _, part := range p.Parts {
		if part.Role == rig.RoleBody {
			continue
		}
		s.plot(grid, part.Position, glyphFor(part, p.Expression))
	}

	rows := make([]string, len(grid))
	for i, row := range grid {
		rows[i] = string(row)
	}
	return strings.Join(rows, "\n")
}

func (s Stage) plot(grid [][]rune, p geom.Vec2, glyph rune) {
	col, row, ok := s.Cell(p)
	if !ok {
		return
	}
	grid[row][col] = glyph
}

// fill paints every cell whose center lies inside the box of the given size around
// center. A box smaller than one cell still marks its own cell.
func (s Stage) fill(grid [][]rune, center, size geom.Vec2, glyph rune) {
	s.plot(grid, center, glyph)
	if !size.Finite() || size.X <= 0 || size.Y <= 0 {
		return
	}
	cellW := s.Extent.X / float64(s.Cols)
	cellH := s.Extent.Y / float64(s.Rows)
	for row := 0; row < s.Rows; row++ {
		y := s.Origin.Y + (float64(row)+0.5)*cellH
		if math.Abs(y-center.Y) > size.Y/2 {
			continue
		}
		for col := 0; col < s.Cols; col++ {
			x := s.Origin.X + (float64(col)+0.5)*cellW
			if math.Abs(x-center.X) <= size.X/2 {
				grid[row][col] = glyph
			}
		}
	}
}

func glyphFor(part pose.PartPose, expression pose.Expression) rune {
	switch part.Role {
	case rig.RoleEye:
		switch expression {
		case pose.ExpressionHappy:
			return '^'
		case pose.ExpressionAngry:
			return '>'
		default:
			return 'o'
		}
	case rig.RoleNose:
		return 'v'
	case rig.RoleLeg:
		return '║'
	case rig.RoleWing, rig.RoleFinger, rig.RoleTail:
		return angleGlyph(part.Angle)
	default:
		return '*'
	}
}

// angleGlyph picks the line character closest to the given rotation, treating
// angles half a turn apart as the same line.
func angleGlyph(angle float64) rune {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return '*'
	}
	glyphs := []rune{'-', '\\', '|', '/'}
	a := math.Mod(angle, math.Pi)
	if a < 0 {
		a += math.Pi
	}
	idx := int(math.Round(a/(math.Pi/4))) % len(glyphs)
	return glyphs[idx]
}
