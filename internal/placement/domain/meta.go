package domain

import (
	"strings"
	"time"

	"cogentcore.org/core/math32"
)

// PlacementMeta is the wire representation of a placement shared between the
// engine's store client and the store server. Rotation travels as Euler
// degrees, matching what the authoring tools produce.
type PlacementMeta struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type,omitempty"` // orientation hint, free-form
	ContentURL string    `json:"content_url,omitempty"`
	PosX       float32   `json:"pos_x"`
	PosY       float32   `json:"pos_y"`
	PosZ       float32   `json:"pos_z"`
	RotX       float32   `json:"rot_x"`
	RotY       float32   `json:"rot_y"`
	RotZ       float32   `json:"rot_z"`
	ScaleX     float32   `json:"scale_x"`
	ScaleY     float32   `json:"scale_y"`
	ScaleZ     float32   `json:"scale_z"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// Pose converts the wire fields to a Pose.
func (m *PlacementMeta) Pose() Pose {
	p := Pose{
		Position: math32.Vec3(m.PosX, m.PosY, m.PosZ),
		Scale:    math32.Vec3(m.ScaleX, m.ScaleY, m.ScaleZ),
	}
	if p.Scale == (math32.Vector3{}) {
		p.Scale = math32.Vec3(1, 1, 1)
	}
	p.SetRotationDegrees(math32.Vec3(m.RotX, m.RotY, m.RotZ))
	return p
}

// SetPose writes a Pose back into the wire fields.
func (m *PlacementMeta) SetPose(p Pose) {
	m.PosX, m.PosY, m.PosZ = p.Position.X, p.Position.Y, p.Position.Z
	m.ScaleX, m.ScaleY, m.ScaleZ = p.Scale.X, p.Scale.Y, p.Scale.Z
	rot := p.RotationDegrees()
	m.RotX, m.RotY, m.RotZ = rot.X, rot.Y, rot.Z
}

// Validate checks the invariants required before create/update.
func (m *PlacementMeta) Validate() error {
	if m.ID <= 0 {
		return ErrInvalidID
	}
	if strings.TrimSpace(m.Name) == "" {
		return ErrValidation
	}
	return nil
}

// TransformUpdate carries a pose-only update for an existing placement.
type TransformUpdate struct {
	ID     int     `json:"id"`
	PosX   float32 `json:"pos_x"`
	PosY   float32 `json:"pos_y"`
	PosZ   float32 `json:"pos_z"`
	RotX   float32 `json:"rot_x"`
	RotY   float32 `json:"rot_y"`
	RotZ   float32 `json:"rot_z"`
	ScaleX float32 `json:"scale_x"`
	ScaleY float32 `json:"scale_y"`
	ScaleZ float32 `json:"scale_z"`
}

// NewTransformUpdate builds a TransformUpdate from a pose.
func NewTransformUpdate(id int, p Pose) *TransformUpdate {
	u := &TransformUpdate{ID: id}
	u.PosX, u.PosY, u.PosZ = p.Position.X, p.Position.Y, p.Position.Z
	u.ScaleX, u.ScaleY, u.ScaleZ = p.Scale.X, p.Scale.Y, p.Scale.Z
	rot := p.RotationDegrees()
	u.RotX, u.RotY, u.RotZ = rot.X, rot.Y, rot.Z
	return u
}

// Pose converts the update back to a Pose (server side).
func (u *TransformUpdate) Pose() Pose {
	p := Pose{
		Position: math32.Vec3(u.PosX, u.PosY, u.PosZ),
		Scale:    math32.Vec3(u.ScaleX, u.ScaleY, u.ScaleZ),
	}
	if p.Scale == (math32.Vector3{}) {
		p.Scale = math32.Vec3(1, 1, 1)
	}
	p.SetRotationDegrees(math32.Vec3(u.RotX, u.RotY, u.RotZ))
	return p
}
