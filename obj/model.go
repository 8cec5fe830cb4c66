// Package obj parses Wavefront geometry (.obj) and material library (.mtl)
// text into an index-referencing Model.
package obj

import "github.com/binzume/objscene/geom"

// NoMaterial marks a face or mesh without an assigned material.
const NoMaterial = -1

// FallbackMaterialName is selected by usemtl when the requested material is not defined.
const FallbackMaterialName = "initialShadingGroup"

type FaceType int

const (
	FacePoint FaceType = iota
	FaceLine
	FaceTriangle
	FacePolygon
)

func (t FaceType) String() string {
	switch t {
	case FacePoint:
		return "point"
	case FaceLine:
		return "line"
	case FaceTriangle:
		return "triangle"
	}
	return "polygon"
}

type Material struct {
	Name string `json:"name" yaml:"name"`

	Texture         string `json:"texture,omitempty" yaml:"texture,omitempty"`
	TextureAmbient  string `json:"textureAmbient,omitempty" yaml:"texture_ambient,omitempty"`
	TextureDiffuse  string `json:"textureDiffuse,omitempty" yaml:"texture_diffuse,omitempty"`
	TextureEmissive string `json:"textureEmissive,omitempty" yaml:"texture_emissive,omitempty"`
	TextureNormal   string `json:"textureNormal,omitempty" yaml:"texture_normal,omitempty"`
	TextureSpecular string `json:"textureSpecular,omitempty" yaml:"texture_specular,omitempty"`

	Ambient      [3]float32 `json:"ambient" yaml:"ambient,flow"`
	Diffuse      [3]float32 `json:"diffuse" yaml:"diffuse,flow"`
	Specular     [3]float32 `json:"specular" yaml:"specular,flow"`
	Transmission [3]float32 `json:"transmission" yaml:"transmission,flow"`
	Emissive     [3]float32 `json:"emissive" yaml:"emissive,flow"`

	Shininess       float32 `json:"shininess" yaml:"shininess"`
	Illumination    *uint8  `json:"illumination,omitempty" yaml:"illumination,omitempty"`
	RefractiveIndex float32 `json:"refractiveIndex" yaml:"refractive_index"`
	Dissolve        float32 `json:"dissolve" yaml:"dissolve"`
}

func NewMaterial(name string) *Material {
	return &Material{Name: name, RefractiveIndex: 1.0, Dissolve: 1.0}
}

type Face struct {
	Type     FaceType
	Vertices []int
	Normals  []int
	Textures []int
	Material int
}

type Mesh struct {
	Name            string
	Faces           []Face
	Material        int
	NumIndices      int
	HasNormals      bool
	HasVertexColors bool
}

type Object struct {
	Name       string
	Transform  geom.Matrix4
	SubObjects []int
	Meshes     []int
}

func NewObject(name string) *Object {
	return &Object{Name: name, Transform: geom.Identity()}
}

// MaterialLibrary owns every material of a model. Faces and meshes refer to
// entries of Materials by index.
type MaterialLibrary struct {
	Active    int
	Materials []*Material
	byName    map[string]int

	// receives directives that appear before the first newmtl
	scratch Material
}

func NewMaterialLibrary() *MaterialLibrary {
	return &MaterialLibrary{Active: NoMaterial, byName: map[string]int{}}
}

func (l *MaterialLibrary) Lookup(name string) (int, bool) {
	i, ok := l.byName[name]
	return i, ok
}

// Define returns the index of the named material, adding it when absent.
func (l *MaterialLibrary) Define(name string) int {
	if l.byName == nil {
		l.byName = map[string]int{}
	}
	if i, ok := l.byName[name]; ok {
		return i
	}
	l.Materials = append(l.Materials, NewMaterial(name))
	l.byName[name] = len(l.Materials) - 1
	return len(l.Materials) - 1
}

// Current returns the active material, or a detached scratch material when none is active.
func (l *MaterialLibrary) Current() *Material {
	if l.Active < 0 || l.Active >= len(l.Materials) {
		return &l.scratch
	}
	return l.Materials[l.Active]
}

// Get returns the material at index i or nil.
func (l *MaterialLibrary) Get(i int) *Material {
	if l == nil || i < 0 || i >= len(l.Materials) {
		return nil
	}
	return l.Materials[i]
}

func (l *MaterialLibrary) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Materials)
}

// GroupLibrary tracks the active group and the faces assigned to each group name.
type GroupLibrary struct {
	Active string
	Groups map[string][]int
}

type Model struct {
	Name            string
	MaterialLibs    []string
	Objects         []*Object
	CurrentObject   int
	Materials       *MaterialLibrary
	DefaultMaterial *Material
	Groups          GroupLibrary

	Positions []float32 // xyz
	Normals   []float32 // xyz
	TexCoords []float32 // uv
	Colors    []float32 // rgb

	CurrentMesh int
	Meshes      []*Mesh
}

func NewModel() *Model {
	return &Model{
		Materials:     NewMaterialLibrary(),
		Groups:        GroupLibrary{Groups: map[string][]int{}},
		CurrentObject: -1,
		CurrentMesh:   -1,
	}
}

// ObjectByName returns the index of the first object with the name, or -1.
func (m *Model) ObjectByName(name string) int {
	for i, o := range m.Objects {
		if o.Name == name {
			return i
		}
	}
	return -1
}

func (m *Model) NumVertices() int {
	return len(m.Positions) / 3
}
