package render

import (
	"fmt"
	"math"

	"comicreel/config"
	"comicreel/types"
)

// Canvas is the source image scaled to fit and centred on a padded canvas
// with the output aspect ratio
type Canvas struct {
	SourceW, SourceH int
	ScaledW, ScaledH int
	PaddedW, PaddedH int
	OffsetX, OffsetY int
}

// NewCanvas fits a srcW x srcH image into outW x outH scaled by supersample
func NewCanvas(srcW, srcH, outW, outH, supersample int) Canvas {
	if supersample < 1 {
		supersample = 1
	}
	pw, ph := outW*supersample, outH*supersample
	scale := math.Min(float64(pw)/float64(srcW), float64(ph)/float64(srcH))
	sw := min(even(float64(srcW)*scale), pw)
	sh := min(even(float64(srcH)*scale), ph)
	return Canvas{
		SourceW: srcW, SourceH: srcH,
		ScaledW: sw, ScaledH: sh,
		PaddedW: pw, PaddedH: ph,
		OffsetX: (pw - sw) / 2,
		OffsetY: (ph - sh) / 2,
	}
}

func even(v float64) int {
	n := int(math.Round(v))
	if n%2 != 0 {
		n--
	}
	return max(n, 2)
}

// Map converts a normalized source point into a normalized padded-canvas point
func (c Canvas) Map(nx, ny float64) (float64, float64) {
	x := (nx*float64(c.ScaledW) + float64(c.OffsetX)) / float64(c.PaddedW)
	y := (ny*float64(c.ScaledH) + float64(c.OffsetY)) / float64(c.PaddedH)
	return x, y
}

// BaselineZoom is the zoom at which the panel fills PanelFillFactor of the frame
// along its binding dimension
func (c Canvas) BaselineZoom(b types.PanelBounds) float64 {
	pw := b.Width * float64(c.ScaledW)
	ph := b.Height * float64(c.ScaledH)
	if pw <= 0 || ph <= 0 {
		return config.MinZoom
	}
	z := math.Max(float64(c.PaddedW)/pw, float64(c.PaddedH)/ph) * config.PanelFillFactor
	return clampZoom(z)
}

func clampZoom(z float64) float64 {
	return math.Max(config.MinZoom, math.Min(config.MaxZoom, z))
}

// Frames converts a duration to a whole number of frames at fps
func Frames(ms, fps int) int {
	if ms <= 0 {
		return 0
	}
	return int(math.Round(float64(ms) * float64(fps) / 1000))
}

// Keyframe is an absolute zoompan state: zoom and normalized padded-canvas centre
type Keyframe struct {
	Zoom float64
	X    float64
	Y    float64
}

// Motion is the two-phase camera path of one segment. Frames [0, ContentFrames)
// ease from Start to End; frames [ContentFrames, ContentFrames+TransitionFrames)
// move from End to Next.
type Motion struct {
	Start            Keyframe
	End              Keyframe
	Easing           types.Easing
	ContentFrames    int
	Next             *Keyframe
	Transition       types.TransitionType
	TransitionEasing types.Easing
	TransitionFrames int
}

// TotalFrames is the zoompan duration of the segment
func (m Motion) TotalFrames() int {
	return m.ContentFrames + m.transitionFrames()
}

func (m Motion) transitionFrames() int {
	if m.Next == nil || m.Transition == types.TransitionCut {
		return 0
	}
	return m.TransitionFrames
}

// dipDepth is how far ZOOM_OUT_IN pulls back at the midpoint of the transition
func (m Motion) dipDepth() float64 {
	if m.Next == nil {
		return 0
	}
	return 0.35 * math.Min(m.End.Zoom, m.Next.Zoom)
}

// contentProgress is the expression for phase-one progress in [0,1]
func (m Motion) contentProgress() string {
	return fmt.Sprintf("min(on/%d,1)", max(m.ContentFrames-1, 1))
}

// transitionProgress is the expression for phase-two progress in (0,1]
func (m Motion) transitionProgress() string {
	return fmt.Sprintf("min((on-%d+1)/%d,1)", m.ContentFrames, max(m.transitionFrames(), 1))
}

// ZoomExpr is the zoompan z expression
func (m Motion) ZoomExpr() Expr {
	p := easeExpr(m.Easing, m.contentProgress())
	content := lerpExpr(m.Start.Zoom, m.End.Zoom, p)
	if m.transitionFrames() == 0 {
		return Expr(content)
	}

	q := m.transitionProgress()
	var moving string
	switch m.Transition {
	case types.TransitionFade:
		moving = num(m.End.Zoom)
	case types.TransitionZoomOutIn:
		moving = fmt.Sprintf("max(%s,%s-%s*sin(PI*%s))",
			num(config.MinZoom), lerpExpr(m.End.Zoom, m.Next.Zoom, easeExpr(m.TransitionEasing, q)), num(m.dipDepth()), q)
	default:
		moving = lerpExpr(m.End.Zoom, m.Next.Zoom, easeExpr(m.TransitionEasing, q))
	}
	return Expr(fmt.Sprintf("if(lt(on,%d),%s,%s)", m.ContentFrames, content, moving))
}

// XExpr is the zoompan x expression: the centre minus half the visible width
func (m Motion) XExpr() Expr {
	return Expr(positionExpr(m.axisExpr(m.Start.X, m.End.X, nextX(m.Next)), "iw"))
}

// YExpr is the zoompan y expression
func (m Motion) YExpr() Expr {
	return Expr(positionExpr(m.axisExpr(m.Start.Y, m.End.Y, nextY(m.Next)), "ih"))
}

func (m Motion) axisExpr(start, end, next float64) string {
	content := lerpExpr(start, end, easeExpr(m.Easing, m.contentProgress()))
	if m.transitionFrames() == 0 || m.Transition == types.TransitionFade {
		return content
	}
	moving := lerpExpr(end, next, easeExpr(m.TransitionEasing, m.transitionProgress()))
	return fmt.Sprintf("if(lt(on,%d),%s,%s)", m.ContentFrames, content, moving)
}

func nextX(k *Keyframe) float64 {
	if k == nil {
		return 0
	}
	return k.X
}

func nextY(k *Keyframe) float64 {
	if k == nil {
		return 0
	}
	return k.Y
}

func positionExpr(center, dim string) string {
	return fmt.Sprintf("max(0,min(%[2]s-%[2]s/zoom,(%[1]s)*%[2]s-%[2]s/zoom/2))", center, dim)
}

func lerpExpr(a, b float64, p string) string {
	if a == b {
		return num(a)
	}
	return fmt.Sprintf("(%s+(%s)*(%s))", num(a), num(b-a), p)
}

func easeExpr(e types.Easing, p string) string {
	switch e {
	case types.EasingLinear:
		return p
	case types.EasingEaseIn:
		return fmt.Sprintf("pow(%s,2)", p)
	case types.EasingEaseOut:
		return fmt.Sprintf("(1-pow(1-%s,2))", p)
	default:
		return fmt.Sprintf("(pow(%[1]s,2)*(3-2*%[1]s))", p)
	}
}

// Ease evaluates an easing curve at p in [0,1]
func Ease(e types.Easing, p float64) float64 {
	p = math.Max(0, math.Min(1, p))
	switch e {
	case types.EasingLinear:
		return p
	case types.EasingEaseIn:
		return p * p
	case types.EasingEaseOut:
		return 1 - (1-p)*(1-p)
	default:
		return p * p * (3 - 2*p)
	}
}

// At evaluates the same path as the expressions at output frame on
func (m Motion) At(on int) Keyframe {
	if on < m.ContentFrames || m.transitionFrames() == 0 {
		p := Ease(m.Easing, math.Min(float64(on)/float64(max(m.ContentFrames-1, 1)), 1))
		return Keyframe{
			Zoom: lerp(m.Start.Zoom, m.End.Zoom, p),
			X:    lerp(m.Start.X, m.End.X, p),
			Y:    lerp(m.Start.Y, m.End.Y, p),
		}
	}

	q := math.Min(float64(on-m.ContentFrames+1)/float64(max(m.transitionFrames(), 1)), 1)
	if m.Transition == types.TransitionFade {
		return m.End
	}
	e := Ease(m.TransitionEasing, q)
	k := Keyframe{
		Zoom: lerp(m.End.Zoom, m.Next.Zoom, e),
		X:    lerp(m.End.X, m.Next.X, e),
		Y:    lerp(m.End.Y, m.Next.Y, e),
	}
	if m.Transition == types.TransitionZoomOutIn {
		k.Zoom = math.Max(config.MinZoom, k.Zoom-m.dipDepth()*math.Sin(math.Pi*q))
	}
	return k
}

func lerp(a, b, p float64) float64 {
	return a + (b-a)*p
}

// cameraKeyframes turns a panel camera into absolute start and end keyframes on the canvas
func cameraKeyframes(c Canvas, bounds types.PanelBounds, cam types.Camera) (Keyframe, Keyframe) {
	base := c.BaselineZoom(bounds)
	x, y := c.Map(cam.CenterX, cam.CenterY)
	start := Keyframe{Zoom: clampZoom(base * cam.StartZoom), X: x, Y: y}
	end := Keyframe{Zoom: clampZoom(base * cam.EndZoom), X: x, Y: y}
	return start, end
}
