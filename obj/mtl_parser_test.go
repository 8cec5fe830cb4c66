package obj

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMaterials(t *testing.T) {
	lib := NewMaterialLibrary()
	err := ParseMaterials(lib, `
# two materials
newmtl Red Glass
Ka 0.1 0.2 0.3
Kd 0.5
Ks 1 1 1
Tf 0.9 0.8 0.7
Ke 0.2 0.2 0.2
Ni 1.2 1.5
Ns 10
d 0.25
illum 2
map_Kd -s 1 1 1 textures\red.png
map_Bump -bm 0.5 normal.png
map_d alpha.png

newmtl Blue
Kd 0 0 1
Tr 0.5
`)
	require.NoError(t, err)
	require.Equal(t, 2, lib.Len())
	assert.Equal(t, 1, lib.Active)

	red := lib.Get(0)
	assert.Equal(t, "Red Glass", red.Name)
	assert.Equal(t, [3]float32{0.1, 0.2, 0.3}, red.Ambient)
	assert.Equal(t, [3]float32{0.5, 0, 0}, red.Diffuse)
	assert.Equal(t, [3]float32{1, 1, 1}, red.Specular)
	assert.Equal(t, [3]float32{0.9, 0.8, 0.7}, red.Transmission)
	assert.Equal(t, [3]float32{0.2, 0.2, 0.2}, red.Emissive)
	assert.Equal(t, float32(1.5), red.RefractiveIndex)
	assert.Equal(t, float32(10), red.Shininess)
	assert.Equal(t, float32(0.25), red.Dissolve)
	require.NotNil(t, red.Illumination)
	assert.Equal(t, uint8(2), *red.Illumination)
	assert.Equal(t, "textures/red.png", red.TextureDiffuse)
	assert.Equal(t, "normal.png", red.TextureNormal)
	assert.Equal(t, "alpha.png", red.Texture)

	blue := lib.Get(1)
	assert.Equal(t, [3]float32{0, 0, 1}, blue.Diffuse)
	assert.Equal(t, float32(0.5), blue.Dissolve)
	assert.Equal(t, float32(1), blue.RefractiveIndex)
	assert.Nil(t, blue.Illumination)
}

func TestParseMaterialsPartialColor(t *testing.T) {
	lib := NewMaterialLibrary()
	require.NoError(t, ParseMaterials(lib, "newmtl A\nKd 1 1 1\nKd 0.5 0.5\n"))
	assert.Equal(t, [3]float32{0.5, 0.5, 1}, lib.Get(0).Diffuse)
}

func TestParseMaterialsRedefine(t *testing.T) {
	lib := NewMaterialLibrary()
	require.NoError(t, ParseMaterials(lib, "newmtl A\nKd 1 1 1\nnewmtl B\nnewmtl A\nKs 1 0 0\n"))
	require.Equal(t, 2, lib.Len())
	assert.Equal(t, 0, lib.Active)

	a := lib.Get(0)
	assert.Equal(t, [3]float32{1, 1, 1}, a.Diffuse)
	assert.Equal(t, [3]float32{1, 0, 0}, a.Specular)
}

func TestParseMaterialsBeforeNewmtl(t *testing.T) {
	lib := NewMaterialLibrary()
	require.NoError(t, ParseMaterials(lib, "Kd 1 1 1\nNs 5\nnewmtl A\n"))
	require.Equal(t, 1, lib.Len())
	assert.Equal(t, [3]float32{}, lib.Get(0).Diffuse)
	assert.Equal(t, float32(0), lib.Get(0).Shininess)

	err := ParseMaterials(NewMaterialLibrary(), "Kd x\n")
	assert.True(t, errors.Is(err, ErrFetch))
}

func TestParseMaterialsErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		line int
	}{
		{"illum missing", "newmtl A\nillum\n", 2},
		{"illum out of range", "newmtl A\nillum 300\n", 2},
		{"illum not a number", "newmtl A\nillum x\n", 2},
		{"bad color", "newmtl A\n\nKd 1 one 1\n", 3},
		{"bad shininess", "newmtl A\nNs high\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseMaterials(NewMaterialLibrary(), tt.text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFetch))
			assert.Equal(t, "fetch error", ErrFetch.Error())

			var e *Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.line, e.Line)
		})
	}
}

func TestParseMaterialsEmptyValues(t *testing.T) {
	lib := NewMaterialLibrary()
	require.NoError(t, ParseMaterials(lib, "newmtl A\nNi\nNs\nfoo bar\n"))
	assert.Equal(t, float32(1), lib.Get(0).RefractiveIndex)
	assert.Equal(t, float32(0), lib.Get(0).Shininess)
}
