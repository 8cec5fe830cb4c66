package converter

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/binzume/objscene/geom"
	"github.com/binzume/objscene/internal/logger"
	"github.com/binzume/objscene/obj"
	"github.com/binzume/objscene/scene"
	"github.com/chewxy/math32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"image"
	"image/jpeg"
	"image/png"

	_ "image/gif"

	"github.com/blezek/tga"
	_ "github.com/oov/psd"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

const unlitMaterialExt = "KHR_materials_unlit"

type SceneToGLTFOption struct {
	Scale           float32 // Default: 1
	ForceUnlit      bool
	GenerateNormals bool

	TextureReCompress      bool
	TextureBytesThreshold  int64 // 0: unlimited
	TextureResolutionLimit int   // 0: unlimited
	TextureScale           float32
}

type sceneToGltf struct {
	*SceneToGLTFOption
	*gltf.Document
}

type textureCache struct {
	srcDir   string
	textures map[string]*textureInfo
}

type textureInfo struct {
	name string
	id   *uint32
	img  image.Image
	err  error
}

func newTextureCache(srcDir string) *textureCache {
	return &textureCache{srcDir: srcDir, textures: map[string]*textureInfo{}}
}

func (c *textureCache) get(name string) *textureInfo {
	if t, ok := c.textures[name]; ok {
		return t
	}
	t := &textureInfo{name: name}
	c.textures[name] = t
	return t
}

func (c *textureCache) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.srcDir, filepath.FromSlash(name))
}

func (c *textureCache) getImage(name string) (image.Image, error) {
	t := c.get(name)
	if t.img != nil || t.err != nil {
		return t.img, t.err
	}

	f, err := os.Open(c.path(t.name))
	if err != nil {
		t.err = err
		return nil, err
	}
	defer f.Close()

	t.img, _, t.err = image.Decode(f)
	if t.err != nil && strings.ToLower(filepath.Ext(t.name)) == ".tga" {
		// retry
		f.Seek(0, io.SeekStart)
		t.img, t.err = tga.Decode(f)
	}
	return t.img, t.err
}

func NewSceneToGLTFConverter(options *SceneToGLTFOption) *sceneToGltf {
	if options == nil {
		options = &SceneToGLTFOption{}
	}
	if options.Scale == 0 {
		options.Scale = 1.0
	}
	if options.TextureScale == 0 {
		options.TextureScale = 1.0
	}
	doc := gltf.NewDocument()
	doc.Asset.Generator = "objscene"
	return &sceneToGltf{
		SceneToGLTFOption: options,
		Document:          doc,
	}
}

func (m *sceneToGltf) hasAlpha(texture string, textures *textureCache) bool {
	if texture == "" || strings.HasSuffix(texture, ".jpg") || strings.HasSuffix(texture, ".bmp") {
		return false
	}
	img, err := textures.getImage(texture)
	if err != nil {
		return false
	}
	switch img := img.(type) {
	case *image.RGBA:
		return !img.Opaque()
	case *image.NRGBA:
		return !img.Opaque()
	}
	return false
}

func scaleTexture(texture string, mime string, textures *textureCache, scale float32, limit int) (io.Reader, error) {
	img, err := textures.getImage(texture)
	if err != nil {
		return nil, err
	}
	rect := img.Bounds()

	if limit > 0 {
		sz := int(float32(rect.Dx()) * scale)
		if sz > limit {
			scale *= float32(limit) / float32(sz)
		}
	}

	if scale != 1.0 {
		dst := image.NewRGBA(image.Rect(0, 0, int(float32(rect.Dx())*scale), int(float32(rect.Dy())*scale)))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, rect, draw.Over, nil)
		img = dst
	}

	w := new(bytes.Buffer)
	if mime == "image/png" {
		err = png.Encode(w, img)
	} else {
		err = jpeg.Encode(w, img, nil)
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (m *sceneToGltf) addTexture(texture string, textures *textureCache) (*uint32, error) {
	t := textures.get(texture)
	if t.id != nil {
		return t.id, nil
	}
	ext := strings.ToLower(filepath.Ext(texture))

	encode := m.TextureReCompress || m.TextureResolutionLimit > 0 || m.TextureScale != 1.0
	if m.TextureBytesThreshold > 0 {
		stat, err := os.Stat(textures.path(texture))
		if err != nil {
			return nil, err
		}
		if stat.Size() > m.TextureBytesThreshold {
			encode = true
		}
	}

	var mimeType string
	if ext == ".jpg" || ext == ".jpeg" {
		mimeType = "image/jpeg"
	} else if ext == ".png" {
		mimeType = "image/png"
	} else {
		mimeType = "image/png"
		encode = true
	}

	var r io.Reader
	if encode {
		r2, err := scaleTexture(texture, mimeType, textures, m.TextureScale, m.TextureResolutionLimit)
		if err != nil {
			return nil, err
		}
		r = r2
	} else {
		f, err := os.Open(textures.path(texture))
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	img, err := modeler.WriteImage(m.Document, filepath.Base(texture), mimeType, r)
	if err != nil {
		return nil, err
	}
	m.Buffers[0].ByteLength = uint32(len(m.Buffers[0].Data)) // avoid AddImage bug
	m.Textures = append(m.Textures,
		&gltf.Texture{Sampler: gltf.Index(0), Source: gltf.Index(img)})

	t.id = gltf.Index(uint32(len(m.Textures)) - 1)

	return t.id, nil
}

// roughness maps a Phong exponent (0..1000) to a GGX roughness.
func roughness(shininess float32) float32 {
	if shininess <= 0 {
		return 1
	}
	r := math32.Sqrt(2 / (shininess + 2))
	if r > 1 {
		return 1
	}
	return r
}

func (m *sceneToGltf) convertMaterial(mat *obj.Material, textures *textureCache) *gltf.Material {
	rf := roughness(mat.Shininess)
	var mf float32 = 0
	base := mat.Diffuse
	if base == [3]float32{} && mat.TextureDiffuse != "" {
		base = [3]float32{1, 1, 1}
	}
	mm := &gltf.Material{
		Name: mat.Name,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{base[0], base[1], base[2], mat.Dissolve},
			RoughnessFactor: &rf,
			MetallicFactor:  &mf,
		},
		EmissiveFactor: mat.Emissive,
	}
	if mat.Dissolve < 0.99 || m.hasAlpha(mat.TextureDiffuse, textures) {
		mm.AlphaMode = gltf.AlphaBlend
	}
	if m.ForceUnlit || (mat.Illumination != nil && *mat.Illumination == 0) {
		mm.Extensions = map[string]interface{}{unlitMaterialExt: map[string]string{}}
	}

	if mat.TextureDiffuse != "" {
		if tex, err := m.addTexture(mat.TextureDiffuse, textures); err == nil {
			mm.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{
				Index: *tex,
			}
		} else {
			logger.Warn("texture read error", zap.String("texture", mat.TextureDiffuse), zap.Error(err))
		}
	}
	if mat.TextureNormal != "" {
		if tex, err := m.addTexture(mat.TextureNormal, textures); err == nil {
			mm.NormalTexture = &gltf.NormalTexture{
				Index: tex,
			}
		} else {
			logger.Warn("texture read error", zap.String("texture", mat.TextureNormal), zap.Error(err))
		}
	}
	if mat.TextureEmissive != "" {
		if tex, err := m.addTexture(mat.TextureEmissive, textures); err == nil {
			mm.EmissiveTexture = &gltf.TextureInfo{
				Index: *tex,
			}
			if mm.EmissiveFactor == [3]float32{} {
				mm.EmissiveFactor = [3]float32{1, 1, 1}
			}
		} else {
			logger.Warn("texture read error", zap.String("texture", mat.TextureEmissive), zap.Error(err))
		}
	}
	return mm
}

// flatNormals assigns each triangle's face normal to its three corners.
func flatNormals(mesh *scene.Mesh) [][3]float32 {
	normals := make([][3]float32, mesh.NumVertices())
	for _, f := range mesh.Faces {
		for i := 0; i+2 < len(f.Indices); i += 3 {
			a := geom.NewVector3FromSlice(mesh.Positions, f.Indices[i])
			b := geom.NewVector3FromSlice(mesh.Positions, f.Indices[i+1])
			c := geom.NewVector3FromSlice(mesh.Positions, f.Indices[i+2])
			n := geom.FaceNormal(a, b, c)
			for _, idx := range f.Indices[i : i+3] {
				n.ToArray(normals[idx][:])
			}
		}
	}
	return normals
}

// ConvertMesh writes the attributes of mesh and returns one primitive per face material.
func (m *sceneToGltf) ConvertMesh(mesh *scene.Mesh) []*gltf.Primitive {
	scale := geom.NewScaleMatrix4(m.Scale, m.Scale, m.Scale)
	n := mesh.NumVertices()

	var materials []int
	indices := map[int][]uint32{}
	for _, f := range mesh.Faces {
		if len(f.Indices) < 3 {
			continue
		}
		mat := f.Material
		if mat == scene.None {
			mat = mesh.Material
		}
		if _, exists := indices[mat]; !exists {
			materials = append(materials, mat)
		}
		for _, idx := range f.Indices[:len(f.Indices)/3*3] {
			indices[mat] = append(indices[mat], uint32(idx))
		}
	}
	if len(materials) == 0 {
		return nil
	}

	vertexes := make([][3]float32, n)
	for i := range vertexes {
		scale.ApplyTo(geom.NewVector3FromSlice(mesh.Positions, i)).ToArray(vertexes[i][:])
	}
	attributes := map[string]uint32{
		"POSITION": modeler.WritePosition(m.Document, vertexes),
	}

	if len(mesh.TexCoords) == n*2 {
		texcood0 := make([][2]float32, n)
		for i := range texcood0 {
			texcood0[i] = [2]float32{mesh.TexCoords[i*2], 1 - mesh.TexCoords[i*2+1]}
		}
		attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(m.Document, texcood0)
	}

	if !m.ForceUnlit {
		if len(mesh.Normals) == n*3 {
			normals := make([][3]float32, n)
			for i := range normals {
				geom.NewVector3FromSlice(mesh.Normals, i).Normalize().ToArray(normals[i][:])
			}
			attributes["NORMAL"] = modeler.WriteNormal(m.Document, normals)
		} else if m.GenerateNormals {
			attributes["NORMAL"] = modeler.WriteNormal(m.Document, flatNormals(mesh))
		}
	}

	var primitives []*gltf.Primitive
	for _, mat := range materials {
		p := &gltf.Primitive{
			Indices:    gltf.Index(modeler.WriteIndices(m.Document, indices[mat])),
			Attributes: attributes,
		}
		if mat >= 0 && mat < len(m.Document.Materials) {
			p.Material = gltf.Index(uint32(mat))
		}
		primitives = append(primitives, p)
	}
	return primitives
}

func (m *sceneToGltf) convertNode(g *scene.Graph, src *scene.Node) *gltf.Node {
	node := &gltf.Node{Name: src.Name}
	for _, c := range src.Children {
		node.Children = append(node.Children, uint32(c))
	}
	if !src.Transform.IsIdentity() {
		mat := src.Transform
		scale := geom.NewScaleMatrix4(m.Scale, m.Scale, m.Scale)
		scale.ApplyTo(geom.NewVector3FromSlice(mat[:], 4)).ToArray(mat[12:15])
		mat.ToArray(node.Matrix[:])
	}

	mesh := &gltf.Mesh{Name: src.Name}
	for _, mi := range src.Meshes {
		mesh.Primitives = append(mesh.Primitives, m.ConvertMesh(&g.Meshes[mi])...)
	}
	if len(mesh.Primitives) > 0 {
		node.Mesh = gltf.Index(uint32(len(m.Document.Meshes)))
		m.Document.Meshes = append(m.Document.Meshes, mesh)
	}
	return node
}

// Convert builds a glTF document from g. Textures are read relative to textureDir.
func (m *sceneToGltf) Convert(g *scene.Graph, textureDir string) (*gltf.Document, error) {
	textures := newTextureCache(textureDir)
	useUnlit := false
	for i := range g.Materials {
		mm := m.convertMaterial(&g.Materials[i], textures)
		if mm.Extensions[unlitMaterialExt] != nil {
			useUnlit = true
		}
		m.Document.Materials = append(m.Document.Materials, mm)
	}
	if useUnlit {
		m.ExtensionsUsed = append(m.ExtensionsUsed, unlitMaterialExt)
	}

	m.Nodes = make([]*gltf.Node, len(g.Nodes))
	for i := range g.Nodes {
		m.Nodes[i] = m.convertNode(g, &g.Nodes[i])
		if g.Nodes[i].Parent == scene.None {
			m.Scenes[0].Nodes = append(m.Scenes[0].Nodes, uint32(i))
		}
	}

	if len(m.Document.Textures) > 0 {
		m.Document.Samplers = []*gltf.Sampler{{}}
	}
	if len(m.Buffers) > 0 {
		m.Buffers[0].ByteLength = uint32(len(m.Buffers[0].Data))
	}
	return m.Document, nil
}

// Save writes doc as .gltf (JSON with embedded buffers) or, for any other
// extension, as binary glTF.
func Save(doc *gltf.Document, path string) error {
	if strings.ToLower(filepath.Ext(path)) == ".gltf" {
		for _, b := range doc.Buffers {
			if b.URI == "" {
				b.EmbeddedResource()
			}
		}
		return gltf.Save(doc, path)
	}
	return gltf.SaveBinary(doc, path)
}
