package obj

import (
	"errors"
	"strconv"
	"strings"

	"github.com/binzume/objscene/geom"
	"github.com/binzume/objscene/internal/logger"
	"go.uber.org/zap"
)

// DefaultObjectName names the object created for faces that precede any o/g directive.
const DefaultObjectName = "default"

type Triangulation int

const (
	// Fan emits (v0, v[i-1], v[i]) for every corner after the second.
	Fan Triangulation = iota
	// EarClip clips ears against the position pool; suited to concave polygons.
	EarClip
)

type Option func(p *Parser)

func WithName(name string) Option {
	return func(p *Parser) { p.name = name }
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Parser) { p.log = l }
}

func WithTriangulation(t Triangulation) Option {
	return func(p *Parser) { p.triangulation = t }
}

func WithDefaultMaterial(m *Material) Option {
	return func(p *Parser) { p.defaultMaterial = m }
}

// Parser for obj text.
type Parser struct {
	name            string
	log             *zap.Logger
	triangulation   Triangulation
	defaultMaterial *Material

	model           *Model
	materialText    string
	materialsLoaded bool
	line            int
	handlers        map[string]func(args []string) error
}

// NewParser returns new parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{log: logger.Log}
	for _, opt := range opts {
		opt(p)
	}
	p.handlers = map[string]func(args []string) error{
		"mtllib": p.parseMaterialLib,
		"v":      p.parseVertex,
		"vt":     p.parseTexCoord,
		"vn":     p.parseNormal,
		"f":      p.parseFace,
		"g":      p.parseGroup,
		"o":      p.parseObject,
		"usemtl": p.useMaterial,
	}
	return p
}

// Parse is a shorthand for NewParser(opts...).Parse(geometry, material).
func Parse(geometry, material string, opts ...Option) (*Model, error) {
	return NewParser(opts...).Parse(geometry, material)
}

// Parse builds a Model from geometry text. material is the text of the
// library named by the first mtllib directive.
func (p *Parser) Parse(geometry, material string) (*Model, error) {
	p.model = NewModel()
	p.model.Name = p.name
	p.model.DefaultMaterial = p.defaultMaterial
	p.materialText = material
	p.materialsLoaded = false

	err := eachLine(geometry, func(line int, fields []string) error {
		p.line = line
		if handler, ok := p.handlers[fields[0]]; ok {
			return handler(fields[1:])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.log.Debug("obj parsed",
		zap.String("model", p.model.Name),
		zap.Int("objects", len(p.model.Objects)),
		zap.Int("meshes", len(p.model.Meshes)),
		zap.Int("materials", p.model.Materials.Len()),
		zap.Int("vertices", p.model.NumVertices()))
	return p.model, nil
}

// parseMaterialLib reports material errors at the mtllib line; the
// wrapped error keeps the line inside the library.
func (p *Parser) parseMaterialLib(args []string) error {
	name := strings.Join(args, " ")
	p.model.MaterialLibs = append(p.model.MaterialLibs, name)
	if p.materialsLoaded {
		return nil
	}
	p.materialsLoaded = true
	if err := ParseMaterials(p.model.Materials, p.materialText); err != nil {
		var e *Error
		if errors.As(err, &e) {
			return errorf(e.Kind, "mtllib", name, e)
		}
		return err
	}
	return nil
}

func (p *Parser) parseVertex(args []string) error {
	switch len(args) {
	case 3:
		v, err := parseFloats("v", args)
		if err != nil {
			return err
		}
		p.model.Positions = append(p.model.Positions, v...)
	case 4:
		v, err := parseFloats("v", args)
		if err != nil {
			return err
		}
		if w := v[3]; w != 0 {
			v[0], v[1], v[2] = v[0]/w, v[1]/w, v[2]/w
		}
		p.model.Positions = append(p.model.Positions, v[:3]...)
	case 6:
		p.log.Debug("vertex colors are not supported", zap.Int("line", p.line))
	default:
		p.log.Debug("vertex ignored", zap.Int("line", p.line), zap.Int("values", len(args)))
	}
	return nil
}

// parseTexCoord keeps u and v only so the pool stride stays 2.
func (p *Parser) parseTexCoord(args []string) error {
	uv, err := p.readFixed("vt", args, 2)
	if err != nil {
		return err
	}
	p.model.TexCoords = append(p.model.TexCoords, uv...)
	return nil
}

func (p *Parser) parseNormal(args []string) error {
	n, err := p.readFixed("vn", args, 3)
	if err != nil {
		return err
	}
	p.model.Normals = append(p.model.Normals, n...)
	return nil
}

// readFixed parses exactly n values. Missing values are zero, extra ones are ignored.
func (p *Parser) readFixed(directive string, args []string, n int) ([]float32, error) {
	if len(args) > n {
		args = args[:n]
	}
	v, err := parseFloats(directive, args)
	if err != nil {
		return nil, err
	}
	for len(v) < n {
		v = append(v, 0)
	}
	return v, nil
}

// resolveIndex converts a one-based or negative (relative) obj index to a pool index.
func resolveIndex(x, poolLen, stride int) int {
	if x < 0 {
		return x + poolLen/stride
	}
	return x - 1
}

func (p *Parser) parseFace(args []string) error {
	m := p.model
	if m.CurrentMesh < 0 {
		p.activateObject(DefaultObjectName)
	}

	face := Face{Material: m.Materials.Active}
	for _, ref := range args {
		for idx, data := range strings.Split(ref, "/") {
			if data == "" {
				continue
			}
			x, err := strconv.Atoi(data)
			if err != nil {
				return errorf(ErrFetch, "f", data, err)
			}
			var dst *[]int
			var resolved int
			switch idx {
			case 0:
				dst, resolved = &face.Vertices, resolveIndex(x, len(m.Positions), 3)
			case 1:
				dst, resolved = &face.Textures, resolveIndex(x, len(m.TexCoords), 2)
			case 2:
				dst, resolved = &face.Normals, resolveIndex(x, len(m.Normals), 3)
			default:
				return errorf(ErrMalformedReference, "f", ref, nil)
			}
			if resolved < 0 {
				return errorf(ErrIndexOutOfRange, "f", data, nil)
			}
			*dst = append(*dst, resolved)
		}
	}

	switch len(face.Vertices) {
	case 0, 1:
		face.Type = FacePoint
	case 2:
		face.Type = FaceLine
	default:
		face.Type = FaceTriangle
	}
	p.triangulate(&face)

	mesh := m.Meshes[m.CurrentMesh]
	mesh.Faces = append(mesh.Faces, face)
	mesh.NumIndices += len(face.Vertices)
	if len(face.Normals) > 0 {
		mesh.HasNormals = true
	}
	return nil
}

// triangulate rewrites every index list longer than 3 into triangles. With
// EarClip, lists with one entry per polygon corner share the clipped corners;
// any other list is fanned on its own.
func (p *Parser) triangulate(face *Face) {
	if p.triangulation == EarClip && len(face.Vertices) > 3 {
		if tris := p.earClip(face.Vertices); tris != nil {
			n := len(face.Vertices)
			clip := func(idx []int) []int {
				if len(idx) == n {
					return applyTriangles(idx, tris)
				}
				return geom.FanIndices(idx)
			}
			face.Vertices = clip(face.Vertices)
			face.Textures = clip(face.Textures)
			face.Normals = clip(face.Normals)
			return
		}
	}
	face.Vertices = geom.FanIndices(face.Vertices)
	face.Textures = geom.FanIndices(face.Textures)
	face.Normals = geom.FanIndices(face.Normals)
}

// earClip returns nil when a corner is outside the position pool.
func (p *Parser) earClip(vertices []int) [][3]int {
	poly := make([]*geom.Vector3, len(vertices))
	for i, v := range vertices {
		if v >= p.model.NumVertices() {
			return nil
		}
		poly[i] = geom.NewVector3FromSlice(p.model.Positions, v)
	}
	return geom.Triangulate(poly)
}

func applyTriangles(idx []int, tris [][3]int) []int {
	dst := make([]int, 0, len(tris)*3)
	for _, t := range tris {
		dst = append(dst, idx[t[0]], idx[t[1]], idx[t[2]])
	}
	return dst
}

// parseGroup treats every new group name like an object name.
func (p *Parser) parseGroup(args []string) error {
	groups := &p.model.Groups
	for _, name := range args {
		if name == groups.Active {
			continue
		}
		if _, ok := groups.Groups[name]; !ok {
			groups.Groups[name] = []int{}
		}
		p.activateObject(name)
		groups.Active = name
	}
	return nil
}

func (p *Parser) parseObject(args []string) error {
	p.activateObject(strings.Join(args, " "))
	return nil
}

// activateObject selects the named object, creating it together with a
// backing mesh of the same name when it does not exist yet.
func (p *Parser) activateObject(name string) {
	m := p.model
	if i := m.ObjectByName(name); i >= 0 {
		m.CurrentObject = i
		if meshes := m.Objects[i].Meshes; len(meshes) > 0 {
			m.CurrentMesh = meshes[0]
		}
		return
	}
	obj := NewObject(name)
	m.Objects = append(m.Objects, obj)
	m.CurrentObject = len(m.Objects) - 1

	m.Meshes = append(m.Meshes, &Mesh{Name: name, Material: m.Materials.Active})
	m.CurrentMesh = len(m.Meshes) - 1
	obj.Meshes = append(obj.Meshes, m.CurrentMesh)
}

func (p *Parser) useMaterial(args []string) error {
	lib := p.model.Materials
	name := strings.Join(args, " ")
	i, ok := lib.Lookup(name)
	if !ok {
		p.log.Debug("material not found, using fallback",
			zap.Int("line", p.line), zap.String("material", name), zap.String("fallback", FallbackMaterialName))
		i, ok = lib.Lookup(FallbackMaterialName)
	}
	if !ok {
		return errorf(ErrMaterialNotFound, "usemtl", name, nil)
	}
	lib.Active = i
	return nil
}
