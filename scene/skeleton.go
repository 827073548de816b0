package scene

import "github.com/go-gl/mathgl/mgl32"

// Skeleton binds a skinned drawable to a set of bone nodes.
type Skeleton struct {
	Bones        []*Node
	BoneInverses []mgl32.Mat4

	boneMatrices []float32
}

// NewSkeleton creates a skeleton. When inverses is nil the current bone world
// matrices are taken as the bind pose.
func NewSkeleton(bones []*Node, inverses []mgl32.Mat4) *Skeleton {
	s := &Skeleton{Bones: bones, boneMatrices: make([]float32, 16*len(bones))}
	if inverses == nil {
		inverses = make([]mgl32.Mat4, len(bones))
		for i, b := range bones {
			b.UpdateWorldMatrix(true, false)
			inverses[i] = b.WorldMatrix().Inv()
		}
	}
	s.BoneInverses = inverses
	return s
}

// Update recomputes the flattened bone matrices from the bones' current world matrices.
func (s *Skeleton) Update() {
	for i, b := range s.Bones {
		m := b.WorldMatrix().Mul4(s.BoneInverses[i])
		copy(s.boneMatrices[16*i:], m[:])
	}
}

// BoneMatrices returns 16 floats per bone, column-major.
func (s *Skeleton) BoneMatrices() []float32 {
	return s.boneMatrices
}
