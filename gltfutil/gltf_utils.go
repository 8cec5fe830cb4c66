// Package gltfutil reads converted glTF documents back for inspection.
package gltfutil

import (
	"github.com/chewxy/math32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

func Load(path string) (*gltf.Document, error) {
	return gltf.Open(path)
}

// Primitive holds the vertex data of one glTF primitive.
type Primitive struct {
	Positions [][3]float32
	Normals   [][3]float32
	TexCoords [][2]float32
	Indices   []uint32
}

func ReadPrimitive(doc *gltf.Document, p *gltf.Primitive) (*Primitive, error) {
	r := &Primitive{}
	if a, ok := p.Attributes["POSITION"]; ok {
		pos, err := modeler.ReadPosition(doc, doc.Accessors[a], [][3]float32{})
		if err != nil {
			return nil, err
		}
		r.Positions = pos
	}
	if a, ok := p.Attributes["NORMAL"]; ok {
		// same float VEC3 layout as POSITION
		n, err := modeler.ReadPosition(doc, doc.Accessors[a], [][3]float32{})
		if err != nil {
			return nil, err
		}
		r.Normals = n
	}
	if a, ok := p.Attributes["TEXCOORD_0"]; ok {
		t, err := modeler.ReadTextureCoord(doc, doc.Accessors[a], [][2]float32{})
		if err != nil {
			return nil, err
		}
		r.TexCoords = t
	}
	if p.Indices != nil {
		indices, err := modeler.ReadIndices(doc, doc.Accessors[*p.Indices], []uint32{})
		if err != nil {
			return nil, err
		}
		r.Indices = indices
	}
	return r, nil
}

// Stats summarizes the geometry of a document. Shared attributes are
// counted once per primitive.
type Stats struct {
	Meshes     int
	Primitives int
	Vertices   int
	Triangles  int
	Min, Max   [3]float32
}

func GetStats(doc *gltf.Document) (*Stats, error) {
	s := &Stats{
		Meshes: len(doc.Meshes),
		Min:    [3]float32{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32},
		Max:    [3]float32{-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32},
	}
	for _, m := range doc.Meshes {
		for _, p := range m.Primitives {
			prim, err := ReadPrimitive(doc, p)
			if err != nil {
				return nil, err
			}
			s.Primitives++
			s.Vertices += len(prim.Positions)
			s.Triangles += len(prim.Indices) / 3
			for _, v := range prim.Positions {
				for i := range v {
					s.Min[i] = math32.Min(s.Min[i], v[i])
					s.Max[i] = math32.Max(s.Max[i], v[i])
				}
			}
		}
	}
	if s.Vertices == 0 {
		s.Min, s.Max = [3]float32{}, [3]float32{}
	}
	return s, nil
}
