// Package scene holds the render-ready Scene Graph built from an obj.Model.
package scene

import (
	"github.com/binzume/objscene/geom"
	"github.com/binzume/objscene/obj"
)

// None marks a missing parent or material reference.
const None = -1

// RootName names the root node of a model without a name.
const RootName = "root"

type Node struct {
	Name      string       `json:"name" yaml:"name"`
	Parent    int          `json:"parent" yaml:"parent"`
	Children  []int        `json:"children,omitempty" yaml:"children,omitempty,flow"`
	Transform geom.Matrix4 `json:"transform" yaml:"transform,flow"`
	Meshes    []int        `json:"meshes,omitempty" yaml:"meshes,omitempty,flow"`
}

// Face lists the corner indices of one face into the arrays of its mesh.
type Face struct {
	Indices  []int `json:"indices" yaml:"indices,flow"`
	Material int   `json:"material" yaml:"material"`
}

// Mesh stores one entry per face corner in each non-empty attribute array.
type Mesh struct {
	Name        string    `json:"name" yaml:"name"`
	Positions   []float32 `json:"positions" yaml:"positions,flow"`
	Normals     []float32 `json:"normals,omitempty" yaml:"normals,omitempty,flow"`
	TexCoords   []float32 `json:"texcoords,omitempty" yaml:"texcoords,omitempty,flow"`
	Colors      []float32 `json:"colors,omitempty" yaml:"colors,omitempty,flow"`
	Material    int       `json:"material" yaml:"material"`
	Faces       []Face    `json:"faces" yaml:"faces"`
	FaceIndices []int     `json:"faceIndices" yaml:"face_indices,flow"`
}

func (m *Mesh) NumVertices() int {
	return len(m.Positions) / 3
}

type Graph struct {
	Nodes     []Node         `json:"nodes" yaml:"nodes"`
	Meshes    []Mesh         `json:"meshes" yaml:"meshes"`
	Materials []obj.Material `json:"materials" yaml:"materials"`
}

// Root returns the root node. Build always creates it at index 0.
func (g *Graph) Root() *Node {
	if len(g.Nodes) == 0 {
		return nil
	}
	return &g.Nodes[0]
}

// Material returns the material at index i or nil.
func (g *Graph) Material(i int) *obj.Material {
	if i < 0 || i >= len(g.Materials) {
		return nil
	}
	return &g.Materials[i]
}

// WorldTransform returns the transform of node i composed with those of its ancestors.
func (g *Graph) WorldTransform(i int) geom.Matrix4 {
	world := geom.Identity()
	for ; i >= 0 && i < len(g.Nodes); i = g.Nodes[i].Parent {
		world = *g.Nodes[i].Transform.Mul(&world)
	}
	return world
}

// Walk visits node i and its descendants depth first.
func (g *Graph) Walk(i int, fn func(index int, node *Node, depth int)) {
	g.walk(i, 0, fn)
}

func (g *Graph) walk(i, depth int, fn func(int, *Node, int)) {
	if i < 0 || i >= len(g.Nodes) {
		return
	}
	fn(i, &g.Nodes[i], depth)
	for _, c := range g.Nodes[i].Children {
		g.walk(c, depth+1, fn)
	}
}
