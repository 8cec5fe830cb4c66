package obj

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const square = `
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
v -1 0.5 0
`

func TestParseVertices(t *testing.T) {
	m, err := Parse(`
v 1 2 3
v 2 4 6 2
v 1 2 3 0
v 1 2 3 0.5 0.5 0.5
v 1 2
vt 0.5 0.25 1
vt 0.5
vn 0 0 1
vn 1
s 1
`, "")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 1, 2, 3, 1, 2, 3}, m.Positions)
	assert.Equal(t, 3, m.NumVertices())
	assert.Equal(t, []float32{0.5, 0.25, 0.5, 0}, m.TexCoords)
	assert.Equal(t, []float32{0, 0, 1, 1, 0, 0}, m.Normals)
	assert.Empty(t, m.Objects)
}

func TestParseFan(t *testing.T) {
	m, err := Parse(square+"f 1 2 3 4 5\n", "")
	require.NoError(t, err)

	require.Len(t, m.Objects, 1)
	assert.Equal(t, DefaultObjectName, m.Objects[0].Name)
	require.Len(t, m.Meshes, 1)

	mesh := m.Meshes[0]
	require.Len(t, mesh.Faces, 1)
	f := mesh.Faces[0]
	assert.Equal(t, FaceTriangle, f.Type)
	assert.Equal(t, []int{0, 1, 2, 0, 2, 3, 0, 3, 4}, f.Vertices)
	assert.Empty(t, f.Textures)
	assert.Empty(t, f.Normals)
	assert.Equal(t, NoMaterial, f.Material)
	assert.Equal(t, 9, mesh.NumIndices)
	assert.False(t, mesh.HasNormals)
}

func TestParseFaceReferences(t *testing.T) {
	tests := []struct {
		name     string
		face     string
		vertices []int
		textures []int
		normals  []int
	}{
		{"one-based", "f 1/1/1 2/2/2 3/3/3", []int{0, 1, 2}, []int{0, 1, 2}, []int{0, 1, 2}},
		{"negative", "f -1 -2 -3", []int{4, 3, 2}, nil, nil},
		{"negative texcoords", "f 1/-1 2/-2 3/-3", []int{0, 1, 2}, []int{2, 1, 0}, nil},
		{"no texcoords", "f 1//3 2//2 3//1", []int{0, 1, 2}, nil, []int{2, 1, 0}},
		{"quad with texcoords", "f 1/1 2/2 3/3 4/1", []int{0, 1, 2, 0, 2, 3}, []int{0, 1, 2, 0, 2, 0}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse(square+"vt 0 0\nvt 1 0\nvt 1 1\nvn 0 0 1\nvn 0 1 0\nvn 1 0 0\n"+tt.face, "")
			require.NoError(t, err)
			f := m.Meshes[0].Faces[0]
			assert.Equal(t, tt.vertices, f.Vertices)
			if tt.textures == nil {
				assert.Empty(t, f.Textures)
			} else {
				assert.Equal(t, tt.textures, f.Textures)
			}
			if tt.normals == nil {
				assert.Empty(t, f.Normals)
			} else {
				assert.Equal(t, tt.normals, f.Normals)
			}
			assert.Equal(t, tt.normals != nil, m.Meshes[0].HasNormals)
		})
	}
}

func TestParseNegativeIndices(t *testing.T) {
	m, err := Parse("v 0 0 0\nv 1 0 0\nv 0 1 0\nf -1 -2 -3\n", "")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0}, m.Meshes[0].Faces[0].Vertices)
}

func TestParsePointAndLine(t *testing.T) {
	m, err := Parse(square+"f 1\nf 1 2\nf 1 2 3\n", "")
	require.NoError(t, err)
	faces := m.Meshes[0].Faces
	require.Len(t, faces, 3)
	assert.Equal(t, FacePoint, faces[0].Type)
	assert.Equal(t, FaceLine, faces[1].Type)
	assert.Equal(t, FaceTriangle, faces[2].Type)
	assert.Equal(t, "line", faces[1].Type.String())
	assert.Equal(t, 6, m.Meshes[0].NumIndices)
}

func TestParseEarClip(t *testing.T) {
	// notched square; the fan from the first corner covers the notch
	const notched = `
v 0 2 0
v 0 0 0
v 2 0 0
v 2 2 0
v 1 0.5 0
vn 0 0 1
vn 0 0 1
vn 0 0 1
vn 0 0 1
vn 0 0 1
f 1//1 2//2 3//3 4//4 5//5
`
	m, err := Parse(notched, "", WithTriangulation(EarClip))
	require.NoError(t, err)
	f := m.Meshes[0].Faces[0]
	assert.Equal(t, []int{2, 3, 4, 1, 2, 4, 0, 1, 4}, f.Vertices)
	assert.Equal(t, f.Vertices, f.Normals)

	fan, err := Parse(notched, "")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 0, 2, 3, 0, 3, 4}, fan.Meshes[0].Faces[0].Vertices)
}

func TestParseEarClipOutOfPool(t *testing.T) {
	m, err := Parse(square+"f 1 2 3 9\n", "", WithTriangulation(EarClip))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 0, 2, 8}, m.Meshes[0].Faces[0].Vertices)
}

func TestParseObjects(t *testing.T) {
	m, err := Parse(square+`
o Foo
f 1 2 3
o Bar
f 1 2 3
o Foo
f 2 3 4
`, "")
	require.NoError(t, err)
	require.Len(t, m.Objects, 2)
	require.Len(t, m.Meshes, 2)
	assert.Equal(t, "Foo", m.Objects[0].Name)
	assert.Equal(t, []int{0}, m.Objects[0].Meshes)
	assert.Equal(t, "Bar", m.Objects[1].Name)
	assert.Equal(t, []int{1}, m.Objects[1].Meshes)
	assert.Len(t, m.Meshes[0].Faces, 2)
	assert.Len(t, m.Meshes[1].Faces, 1)
	assert.Equal(t, 0, m.CurrentObject)
	assert.Equal(t, 0, m.CurrentMesh)
	assert.True(t, m.Objects[0].Transform.IsIdentity())
}

func TestParseRepeatedObject(t *testing.T) {
	m, err := Parse(square+`mtllib scene.mtl
usemtl Red
o Foo
f 1 2 3
usemtl Blue
o Foo
f 2 3 4
`, "newmtl Red\nnewmtl Blue\n")
	require.NoError(t, err)
	require.Len(t, m.Objects, 1)
	require.Len(t, m.Meshes, 1)
	assert.Equal(t, []int{0}, m.Objects[0].Meshes)

	mesh := m.Meshes[0]
	assert.Equal(t, 0, mesh.Material)
	require.Len(t, mesh.Faces, 2)
	assert.Equal(t, 0, mesh.Faces[0].Material)
	assert.Equal(t, 1, mesh.Faces[1].Material)
	assert.Equal(t, 1, m.Materials.Active)
}

func TestParseGroups(t *testing.T) {
	m, err := Parse(square+`
g left right
f 1 2 3
g right
f 2 3 4
g left
`, "")
	require.NoError(t, err)
	require.Len(t, m.Objects, 2)
	assert.Equal(t, "left", m.Objects[0].Name)
	assert.Equal(t, "right", m.Objects[1].Name)
	assert.Len(t, m.Meshes[1].Faces, 2)
	assert.Empty(t, m.Meshes[0].Faces)
	assert.Equal(t, "left", m.Groups.Active)
	assert.Contains(t, m.Groups.Groups, "left")
	assert.Contains(t, m.Groups.Groups, "right")
	assert.Empty(t, m.Objects[0].SubObjects)
}

const materials = `
newmtl initialShadingGroup
Kd 0.5 0.5 0.5
newmtl Red
Kd 1 0 0
newmtl Blue
Kd 0 0 1
`

func TestParseUseMaterial(t *testing.T) {
	m, err := Parse(square+`
mtllib scene.mtl
mtllib other.mtl
usemtl Red
o Box
f 1 2 3
usemtl Missing
f 1 2 3
usemtl Blue
f 1 2 3
`, materials)
	require.NoError(t, err)
	assert.Equal(t, []string{"scene.mtl", "other.mtl"}, m.MaterialLibs)
	require.Equal(t, 3, m.Materials.Len())

	mesh := m.Meshes[0]
	assert.Equal(t, 1, mesh.Material)
	require.Len(t, mesh.Faces, 3)
	assert.Equal(t, 1, mesh.Faces[0].Material)
	assert.Equal(t, 0, mesh.Faces[1].Material)
	assert.Equal(t, 2, mesh.Faces[2].Material)
	assert.Equal(t, "Blue", m.Materials.Get(mesh.Faces[2].Material).Name)
}

func TestParseMaterialNotFound(t *testing.T) {
	_, err := Parse(square+"mtllib scene.mtl\nusemtl Missing\n", "newmtl Red\n")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMaterialNotFound))

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, 8, e.Line)
	assert.Equal(t, "usemtl", e.Directive)
	assert.Equal(t, "Missing", e.Token)
}

func TestParseMaterialError(t *testing.T) {
	_, err := Parse("v 0 0 0\n\nmtllib scene.mtl\n", "newmtl Red\nillum\n")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetch))

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, 3, e.Line)
	assert.Equal(t, "mtllib", e.Directive)
	assert.Equal(t, "scene.mtl", e.Token)

	var inner *Error
	require.True(t, errors.As(e.Unwrap(), &inner))
	assert.Equal(t, 2, inner.Line)
	assert.Equal(t, "illum", inner.Directive)
	assert.Equal(t, `line 3: mtllib: fetch error "scene.mtl": line 2: illum: fetch error`, err.Error())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind error
		line int
	}{
		{"bad vertex", "v 1 2 x", ErrFetch, 1},
		{"bad texcoord", "vt u 0", ErrFetch, 1},
		{"bad normal", "\nvn 0 0 z", ErrFetch, 2},
		{"bad index", square + "f 1 2 x", ErrFetch, 7},
		{"too many components", square + "f 1/1/1/1 2 3", ErrMalformedReference, 7},
		{"negative overrun", square + "f -6 1 2", ErrIndexOutOfRange, 7},
		{"zero index", square + "f 0 1 2", ErrIndexOutOfRange, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text, "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), err.Error())

			var e *Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.line, e.Line)
		})
	}
}

func TestParseOptions(t *testing.T) {
	def := NewMaterial("fallback")
	m, err := Parse(square, "", WithName("cube"), WithDefaultMaterial(def))
	require.NoError(t, err)
	assert.Equal(t, "cube", m.Name)
	assert.Same(t, def, m.DefaultMaterial)
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Kind: ErrFetch, Line: 3, Directive: "v", Token: "x"}
	assert.Equal(t, `line 3: v: fetch error "x"`, err.Error())
}

func TestParseDiagnostics(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	_, err := Parse(square+"v 1 2 3 1 1 1\nmtllib a.mtl\nusemtl Missing\n", materials, WithLogger(zap.New(core)))
	require.NoError(t, err)

	fallback := logs.FilterMessage("material not found, using fallback").All()
	require.Len(t, fallback, 1)
	assert.Equal(t, "Missing", fallback[0].ContextMap()["material"])
	assert.Equal(t, 1, logs.FilterMessage("vertex colors are not supported").Len())
	assert.Equal(t, 1, logs.FilterMessage("obj parsed").Len())
}
