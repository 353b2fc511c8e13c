package domain

import (
	"time"

	"cogentcore.org/core/math32"
)

// Orientation is the content orientation classification of a placement.
type Orientation string

const (
	OrientationUnknown   Orientation = ""
	OrientationLandscape Orientation = "landscape"
	OrientationPortrait  Orientation = "portrait"
)

// Pose is the spatial state of a placement.
type Pose struct {
	Position math32.Vector3 `json:"position"`
	Rotation math32.Quat    `json:"rotation"`
	Scale    math32.Vector3 `json:"scale"`
}

// NewPose returns a pose with identity rotation and unit scale.
func NewPose() Pose {
	p := Pose{Scale: math32.Vec3(1, 1, 1)}
	p.Rotation.SetIdentity()
	return p
}

// RotationDegrees returns the rotation as Euler angles in degrees.
func (p Pose) RotationDegrees() math32.Vector3 {
	return p.Rotation.ToEuler().MulScalar(math32.RadToDegFactor)
}

// SetRotationDegrees sets the rotation from Euler angles in degrees.
func (p *Pose) SetRotationDegrees(euler math32.Vector3) {
	p.Rotation.SetFromEuler(euler.MulScalar(math32.DegToRadFactor))
}

// Placement is one uniquely identified point in the shared space holding
// remotely-sourced content. Exactly one instance per id is live within a
// session; the registry owns that instance.
type Placement struct {
	ID          int
	Name        string
	Pose        Pose
	Orientation Orientation

	// Surface is the scale of the display surface holding the content. It is
	// resized to fit the content's aspect ratio and is independent of the
	// synced pose scale.
	Surface math32.Vector3

	// ContentURL is where the content bytes live; empty when the placement
	// has no content attached yet.
	ContentURL string

	// Dirty marks an unpushed local pose edit. While dirty, authoritative
	// pulls must not overwrite the local pose.
	Dirty      bool
	DirtySince time.Time

	// Baseline is the pose snapshot from the last successful sync; drift is
	// measured against it.
	Baseline   Pose
	LastSyncAt time.Time

	// live is cleared on removal so stale async completions can detect a
	// dead placement and drop themselves.
	live bool
}

// NewPlacement creates a placement with the given server-assigned (or locally
// reserved) id. The id is set at construction and never changes.
func NewPlacement(id int, name string) (*Placement, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	p := &Placement{
		ID:       id,
		Name:     name,
		Pose:     NewPose(),
		Surface:  math32.Vec3(1, 1, 1),
		Baseline: NewPose(),
		live:     true,
	}
	return p, nil
}

// Live reports whether the placement is still owned by the registry.
func (p *Placement) Live() bool {
	return p.live
}

// Retire marks the placement dead; in-flight completions against it become no-ops.
func (p *Placement) Retire() {
	p.live = false
}

// ApplyMeta overwrites pose and classification from authoritative metadata
// and resets the baseline. Callers must check the dirty flag first.
func (p *Placement) ApplyMeta(m *PlacementMeta) {
	p.Name = m.Name
	p.ContentURL = m.ContentURL
	p.Pose = m.Pose()
	p.Baseline = p.Pose
	p.LastSyncAt = time.Now()
}
