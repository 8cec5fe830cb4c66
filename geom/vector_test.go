package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVector3(t *testing.T) {
	zero := NewVector3(0, 0, 0)
	if zero.Len() != 0 || zero.LenSqr() != 0 || zero.Dot(zero) != 0 {
		t.Error("len != 0")
	}

	if *zero.Normalize() != *NewVector3(1, 0, 0) {
		t.Error("Normalize shoud returns unit vector.", zero.Normalize())
	}

	assert.Equal(t, *NewVector3(1, 1, 0), *NewVector3(1, 0, 0).Add(NewVector3(0, 1, 0)))
	assert.Equal(t, *NewVector3(0, 0, 1), *NewVector3(1, 0, 0).Cross(NewVector3(0, 1, 0)))
	assert.InDelta(t, 5, NewVector3(3, 4, 0).Len(), 1e-6)
}

func TestVector3FromSlice(t *testing.T) {
	pool := []float32{0, 1, 2, 3, 4, 5}
	assert.Equal(t, Vector3{3, 4, 5}, *NewVector3FromSlice(pool, 1))
}

func TestFaceNormal(t *testing.T) {
	n := FaceNormal(NewVector3(0, 0, 0), NewVector3(1, 0, 0), NewVector3(0, 1, 0))
	assert.Equal(t, Vector3{0, 0, 1}, *n)
}
