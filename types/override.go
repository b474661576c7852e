package types

// InstructionOverride is a sparse patch over a PanelInstruction. Nil fields keep the baseline.
type InstructionOverride struct {
	DurationMs *int             `json:"duration_ms,omitempty"`
	Mood       *Mood            `json:"mood,omitempty"`
	Camera     *CameraPatch     `json:"camera,omitempty"`
	Effects    *EffectsPatch    `json:"effects,omitempty"`
	Transition *TransitionPatch `json:"transition,omitempty"`
}

// CameraPatch overrides individual camera fields
type CameraPatch struct {
	CenterX     *float64      `json:"center_x,omitempty"`
	CenterY     *float64      `json:"center_y,omitempty"`
	StartZoom   *float64      `json:"start_zoom,omitempty"`
	EndZoom     *float64      `json:"end_zoom,omitempty"`
	Easing      *Easing       `json:"easing,omitempty"`
	FocusPoints *[]FocusPoint `json:"focus_points,omitempty"`
}

// EffectsPatch replaces or disables whole effect families
type EffectsPatch struct {
	Ambient          *[]EffectType `json:"ambient,omitempty"`
	Triggered        *[]EffectType `json:"triggered,omitempty"`
	AmbientEnabled   *bool         `json:"ambient_enabled,omitempty"`
	TriggeredEnabled *bool         `json:"triggered_enabled,omitempty"`
	Tint             *ColorTint    `json:"tint,omitempty"`
	TintEnabled      *bool         `json:"tint_enabled,omitempty"`
}

// TransitionPatch overrides individual transition fields
type TransitionPatch struct {
	Type       *TransitionType `json:"type,omitempty"`
	DurationMs *int            `json:"duration_ms,omitempty"`
	Easing     *Easing         `json:"easing,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (o *InstructionOverride) IsEmpty() bool {
	return o == nil || (o.DurationMs == nil && o.Mood == nil && o.Camera == nil && o.Effects == nil && o.Transition == nil)
}

// Merge layers next over o and returns the combined patch. Neither input is modified.
func (o *InstructionOverride) Merge(next *InstructionOverride) *InstructionOverride {
	out := &InstructionOverride{}
	if o != nil {
		*out = *o
		out.Camera = o.Camera.clone()
		out.Effects = o.Effects.clone()
		out.Transition = o.Transition.clone()
	}
	if next == nil {
		return out
	}
	if next.DurationMs != nil {
		out.DurationMs = next.DurationMs
	}
	if next.Mood != nil {
		out.Mood = next.Mood
	}
	if next.Camera != nil {
		if out.Camera == nil {
			out.Camera = &CameraPatch{}
		}
		out.Camera.merge(next.Camera)
	}
	if next.Effects != nil {
		if out.Effects == nil {
			out.Effects = &EffectsPatch{}
		}
		out.Effects.merge(next.Effects)
	}
	if next.Transition != nil {
		if out.Transition == nil {
			out.Transition = &TransitionPatch{}
		}
		out.Transition.merge(next.Transition)
	}
	return out
}

// Resolved materializes the instruction with its override applied.
// The receiver is never modified; slices in the result are fresh copies.
func (p PanelInstruction) Resolved() PanelInstruction {
	out := p
	out.Camera.FocusPoints = append([]FocusPoint(nil), p.Camera.FocusPoints...)
	out.Effects.Ambient = append([]EffectType(nil), p.Effects.Ambient...)
	out.Effects.Triggered = append([]EffectType(nil), p.Effects.Triggered...)
	if p.Effects.Tint != nil {
		tint := *p.Effects.Tint
		out.Effects.Tint = &tint
	}
	o := p.Override
	if o.IsEmpty() {
		return out
	}

	if o.DurationMs != nil {
		out.DurationMs = *o.DurationMs
	}
	if o.Mood != nil {
		out.Mood = *o.Mood
	}
	if c := o.Camera; c != nil {
		if c.CenterX != nil {
			out.Camera.CenterX = *c.CenterX
		}
		if c.CenterY != nil {
			out.Camera.CenterY = *c.CenterY
		}
		if c.StartZoom != nil {
			out.Camera.StartZoom = *c.StartZoom
		}
		if c.EndZoom != nil {
			out.Camera.EndZoom = *c.EndZoom
		}
		if c.Easing != nil {
			out.Camera.Easing = *c.Easing
		}
		if c.FocusPoints != nil {
			out.Camera.FocusPoints = append([]FocusPoint(nil), (*c.FocusPoints)...)
		}
	}
	if e := o.Effects; e != nil {
		if e.Ambient != nil {
			out.Effects.Ambient = append([]EffectType(nil), (*e.Ambient)...)
		}
		if e.Triggered != nil {
			out.Effects.Triggered = append([]EffectType(nil), (*e.Triggered)...)
		}
		if e.AmbientEnabled != nil && !*e.AmbientEnabled {
			out.Effects.Ambient = nil
		}
		if e.TriggeredEnabled != nil && !*e.TriggeredEnabled {
			out.Effects.Triggered = nil
		}
		if e.Tint != nil {
			tint := *e.Tint
			out.Effects.Tint = &tint
		}
		if e.TintEnabled != nil && !*e.TintEnabled {
			out.Effects.Tint = nil
		}
	}
	if t := o.Transition; t != nil {
		if t.Type != nil {
			out.Transition.Type = *t.Type
		}
		if t.DurationMs != nil {
			out.Transition.DurationMs = *t.DurationMs
		}
		if t.Easing != nil {
			out.Transition.Easing = *t.Easing
		}
	}
	return out
}

func (c *CameraPatch) clone() *CameraPatch {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func (c *CameraPatch) merge(n *CameraPatch) {
	if n.CenterX != nil {
		c.CenterX = n.CenterX
	}
	if n.CenterY != nil {
		c.CenterY = n.CenterY
	}
	if n.StartZoom != nil {
		c.StartZoom = n.StartZoom
	}
	if n.EndZoom != nil {
		c.EndZoom = n.EndZoom
	}
	if n.Easing != nil {
		c.Easing = n.Easing
	}
	if n.FocusPoints != nil {
		c.FocusPoints = n.FocusPoints
	}
}

func (e *EffectsPatch) clone() *EffectsPatch {
	if e == nil {
		return nil
	}
	cp := *e
	return &cp
}

func (e *EffectsPatch) merge(n *EffectsPatch) {
	if n.Ambient != nil {
		e.Ambient = n.Ambient
	}
	if n.Triggered != nil {
		e.Triggered = n.Triggered
	}
	if n.AmbientEnabled != nil {
		e.AmbientEnabled = n.AmbientEnabled
	}
	if n.TriggeredEnabled != nil {
		e.TriggeredEnabled = n.TriggeredEnabled
	}
	if n.Tint != nil {
		e.Tint = n.Tint
	}
	if n.TintEnabled != nil {
		e.TintEnabled = n.TintEnabled
	}
}

func (t *TransitionPatch) clone() *TransitionPatch {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func (t *TransitionPatch) merge(n *TransitionPatch) {
	if n.Type != nil {
		t.Type = n.Type
	}
	if n.DurationMs != nil {
		t.DurationMs = n.DurationMs
	}
	if n.Easing != nil {
		t.Easing = n.Easing
	}
}
