package scene

import (
	"fmt"
	"strconv"

	"github.com/binzume/objscene/geom"
	"github.com/binzume/objscene/obj"
)

type builder struct {
	model *obj.Model
	graph *Graph

	materialByName  map[string]int
	defaultMaterial int
	objectNodes     []int
}

// Build flattens m into a Graph. Node 0 is the root; every object becomes a
// child of the root unless another object lists it in SubObjects.
func Build(m *obj.Model) (*Graph, error) {
	b := &builder{
		model:           m,
		graph:           &Graph{},
		materialByName:  map[string]int{},
		defaultMaterial: None,
	}

	name := m.Name
	if name == "" {
		name = RootName
	}
	b.graph.Nodes = append(b.graph.Nodes, Node{Name: name, Parent: None, Transform: geom.Identity()})

	if m.Materials != nil {
		for _, mat := range m.Materials.Materials {
			b.addMaterial(mat)
		}
	}

	for _, o := range m.Objects {
		node := Node{Name: o.Name, Parent: 0, Transform: o.Transform}
		for _, mi := range o.Meshes {
			if mi < 0 || mi >= len(m.Meshes) {
				return nil, outOfRange(o.Name, mi)
			}
			mesh, err := b.flatten(m.Meshes[mi])
			if err != nil {
				return nil, err
			}
			b.graph.Meshes = append(b.graph.Meshes, *mesh)
			node.Meshes = append(node.Meshes, len(b.graph.Meshes)-1)
		}
		b.graph.Nodes = append(b.graph.Nodes, node)
		idx := len(b.graph.Nodes) - 1
		b.objectNodes = append(b.objectNodes, idx)
		b.graph.Nodes[0].Children = append(b.graph.Nodes[0].Children, idx)
	}

	for i, o := range m.Objects {
		for _, sub := range o.SubObjects {
			if sub < 0 || sub >= len(b.objectNodes) {
				return nil, outOfRange(o.Name, sub)
			}
			if err := b.reparent(b.objectNodes[sub], b.objectNodes[i]); err != nil {
				return nil, err
			}
		}
	}
	return b.graph, nil
}

func outOfRange(directive string, index int) *obj.Error {
	return &obj.Error{Kind: obj.ErrIndexOutOfRange, Directive: directive, Token: strconv.Itoa(index)}
}

func (b *builder) addMaterial(mat *obj.Material) int {
	if i, ok := b.materialByName[mat.Name]; ok {
		return i
	}
	b.graph.Materials = append(b.graph.Materials, *mat)
	i := len(b.graph.Materials) - 1
	b.materialByName[mat.Name] = i
	return i
}

// material maps a model material index to the graph pool. Unassigned
// materials resolve to the model default material when there is one.
func (b *builder) material(i int) int {
	if mat := b.model.Materials.Get(i); mat != nil {
		if gi, ok := b.materialByName[mat.Name]; ok {
			return gi
		}
	}
	if b.model.DefaultMaterial == nil {
		return None
	}
	if b.defaultMaterial == None {
		b.graph.Materials = append(b.graph.Materials, *b.model.DefaultMaterial)
		b.defaultMaterial = len(b.graph.Materials) - 1
	}
	return b.defaultMaterial
}

func (b *builder) flatten(src *obj.Mesh) (*Mesh, error) {
	m := b.model
	dst := &Mesh{Name: src.Name, Material: None}

	var withTexCoords, withNormals bool
	for _, f := range src.Faces {
		withTexCoords = withTexCoords || len(f.Textures) > 0
		withNormals = withNormals || len(f.Normals) > 0
	}

	for _, f := range src.Faces {
		face := Face{Material: b.faceMaterial(src, f)}
		for j, vi := range f.Vertices {
			if vi < 0 || vi >= len(m.Positions)/3 {
				return nil, outOfRange(src.Name, vi)
			}
			dst.Positions = append(dst.Positions, m.Positions[vi*3:vi*3+3]...)

			if j < len(f.Textures) {
				ti := f.Textures[j]
				if ti < 0 || ti >= len(m.TexCoords)/2 {
					return nil, outOfRange(src.Name, ti)
				}
				dst.TexCoords = append(dst.TexCoords, m.TexCoords[ti*2:ti*2+2]...)
			} else if withTexCoords {
				dst.TexCoords = append(dst.TexCoords, 0, 0)
			}

			if j < len(f.Normals) {
				ni := f.Normals[j]
				if ni < 0 || ni >= len(m.Normals)/3 {
					return nil, outOfRange(src.Name, ni)
				}
				dst.Normals = append(dst.Normals, m.Normals[ni*3:ni*3+3]...)
			} else if withNormals {
				dst.Normals = append(dst.Normals, 0, 0, 0)
			}

			if vi < len(m.Colors)/3 {
				dst.Colors = append(dst.Colors, m.Colors[vi*3:vi*3+3]...)
			}

			corner := len(dst.FaceIndices)
			face.Indices = append(face.Indices, corner)
			dst.FaceIndices = append(dst.FaceIndices, corner)
		}
		dst.Faces = append(dst.Faces, face)
	}
	if len(dst.Colors) != len(dst.Positions) {
		dst.Colors = nil
	}

	dst.Material = b.material(src.Material)
	return dst, nil
}

func (b *builder) faceMaterial(mesh *obj.Mesh, f obj.Face) int {
	if f.Material != obj.NoMaterial {
		return b.material(f.Material)
	}
	return b.material(mesh.Material)
}

// reparent moves child under parent, detaching it from its previous parent.
func (b *builder) reparent(child, parent int) error {
	nodes := b.graph.Nodes
	for p := parent; p != None; p = nodes[p].Parent {
		if p == child {
			return fmt.Errorf("scene: %q cannot be a sub-object of %q", nodes[child].Name, nodes[parent].Name)
		}
	}
	if old := nodes[child].Parent; old != None {
		children := nodes[old].Children[:0]
		for _, c := range nodes[old].Children {
			if c != child {
				children = append(children, c)
			}
		}
		nodes[old].Children = children
	}
	nodes[child].Parent = parent
	nodes[parent].Children = append(nodes[parent].Children, child)
	return nil
}
