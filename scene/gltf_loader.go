package scene

import (
	"fmt"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"frame-renderer/core"
)

// GLTFResult holds the nodes, materials and textures loaded from a .glb or
// .gltf file. Textures are uploaded lazily by the renderer on first use.
type GLTFResult struct {
	Roots     []*Node
	Materials []*Material
	Textures  []*Texture
}

// Scene wraps the roots in a fresh Scene.
func (r *GLTFResult) Scene() *Scene {
	s := NewScene()
	s.Add(r.Roots...)
	return s
}

// LoadGLTF opens a .glb or .gltf file and builds a scene graph from it.
// Metallic-roughness materials become StandardMaterial. Images are decoded
// concurrently; an undecodable image is logged and left out.
func LoadGLTF(path string) (*GLTFResult, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}
	return LoadGLTFDocument(doc, filepath.Dir(path))
}

// LoadGLTFDocument builds a scene graph from an already parsed document. dir
// resolves relative image URIs.
func LoadGLTFDocument(doc *gltf.Document, dir string) (*GLTFResult, error) {
	log := core.Logger().Named("gltf")
	result := &GLTFResult{}

	images := make([]*Texture, len(doc.Images))
	var g errgroup.Group
	g.SetLimit(4)
	for i, img := range doc.Images {
		g.Go(func() error {
			tex, err := loadGLTFImage(doc, dir, i, img)
			if err != nil {
				log.Warn("image skipped", zap.Int("image", i), zap.Error(err))
				return nil
			}
			images[i] = tex
			return nil
		})
	}
	_ = g.Wait()

	texCache := make([]*Texture, len(doc.Textures))
	for i, gt := range doc.Textures {
		if gt.Source == nil || *gt.Source >= len(images) || images[*gt.Source] == nil {
			continue
		}
		texCache[i] = images[*gt.Source]
	}
	for _, t := range images {
		if t != nil {
			result.Textures = append(result.Textures, t)
		}
	}
	texture := func(idx int) *Texture {
		if idx >= 0 && idx < len(texCache) {
			return texCache[idx]
		}
		return nil
	}

	matCache := make([]*Material, len(doc.Materials))
	for i, gm := range doc.Materials {
		mat := NewMaterial(StandardMaterial)
		mat.Name = gm.Name

		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			cf := pbr.BaseColorFactorOrDefault()
			mat.Color = core.Color{R: float32(cf[0]), G: float32(cf[1]), B: float32(cf[2]), A: 1}
			mat.Opacity = float32(cf[3])
			mat.Roughness = float32(pbr.RoughnessFactorOrDefault())
			mat.Metalness = float32(pbr.MetallicFactorOrDefault())
			if pbr.BaseColorTexture != nil {
				mat.Map = texture(pbr.BaseColorTexture.Index)
			}
			if pbr.MetallicRoughnessTexture != nil {
				t := texture(pbr.MetallicRoughnessTexture.Index)
				mat.RoughnessMap = t
				mat.MetalnessMap = t
			}
		}
		if gm.NormalTexture != nil && gm.NormalTexture.Index != nil {
			mat.NormalMap = texture(*gm.NormalTexture.Index)
		}
		if gm.OcclusionTexture != nil && gm.OcclusionTexture.Index != nil {
			mat.AOMap = texture(*gm.OcclusionTexture.Index)
		}
		if gm.EmissiveTexture != nil {
			mat.EmissiveMap = texture(gm.EmissiveTexture.Index)
		}
		ef := gm.EmissiveFactor
		mat.Emissive = core.Color{R: float32(ef[0]), G: float32(ef[1]), B: float32(ef[2]), A: 1}

		switch gm.AlphaMode {
		case gltf.AlphaBlend:
			mat.Transparent = true
			mat.DepthWrite = false
		case gltf.AlphaMask:
			mat.AlphaTest = float32(gm.AlphaCutoffOrDefault())
		}
		if gm.DoubleSided {
			mat.Side = DoubleSide
		}
		// Non-color data must not be decoded as sRGB.
		for _, t := range []*Texture{mat.NormalMap, mat.RoughnessMap, mat.AOMap} {
			if t != nil {
				t.ColorSpace = NoColorSpace
			}
		}
		matCache[i] = mat
		result.Materials = append(result.Materials, mat)
	}

	type primitive struct {
		geo  *Geometry
		kind DrawKind
		mat  *Material
	}
	meshPrims := make([][]primitive, len(doc.Meshes))
	for mi, gm := range doc.Meshes {
		for pi, prim := range gm.Primitives {
			geo, err := loadGLTFPrimitive(doc, gm.Name, pi, prim)
			if err != nil {
				log.Warn("primitive skipped", zap.Int("mesh", mi), zap.Int("primitive", pi), zap.Error(err))
				continue
			}
			p := primitive{geo: geo, kind: primitiveKind(prim.Mode)}
			if prim.Material != nil && *prim.Material < len(matCache) {
				p.mat = matCache[*prim.Material]
			} else {
				p.mat = NewMaterial(StandardMaterial)
			}
			if p.mat.NormalMap != nil {
				ComputeTangents(geo)
			}
			meshPrims[mi] = append(meshPrims[mi], p)
		}
	}

	attach := func(n *Node, p primitive) {
		n.Drawable = &Drawable{Kind: p.kind, Geometry: p.geo, Materials: []*Material{p.mat}}
	}

	nodes := make([]*Node, len(doc.Nodes))
	for i, gn := range doc.Nodes {
		name := gn.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		n := NewNode(name)

		t := gn.TranslationOrDefault()
		n.SetPosition(mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])})
		sc := gn.ScaleOrDefault()
		n.SetScale(mgl32.Vec3{float32(sc[0]), float32(sc[1]), float32(sc[2])})
		r := gn.RotationOrDefault() // x, y, z, w
		n.SetRotation(mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}})

		if gn.Mesh != nil && *gn.Mesh < len(meshPrims) {
			prims := meshPrims[*gn.Mesh]
			switch len(prims) {
			case 0:
			case 1:
				attach(n, prims[0])
			default:
				for pi, p := range prims {
					child := NewNode(fmt.Sprintf("%s_prim%d", name, pi))
					attach(child, p)
					n.Add(child)
				}
			}
		}
		nodes[i] = n
	}

	hasParent := make([]bool, len(nodes))
	for i, gn := range doc.Nodes {
		for _, c := range gn.Children {
			if c < len(nodes) {
				nodes[i].Add(nodes[c])
				hasParent[c] = true
			}
		}
	}

	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		for _, idx := range doc.Scenes[*doc.Scene].Nodes {
			if idx < len(nodes) {
				result.Roots = append(result.Roots, nodes[idx])
			}
		}
	} else {
		for i, n := range nodes {
			if !hasParent[i] {
				result.Roots = append(result.Roots, n)
			}
		}
	}

	log.Debug("loaded",
		zap.Int("nodes", len(nodes)),
		zap.Int("materials", len(result.Materials)),
		zap.Int("textures", len(result.Textures)))
	return result, nil
}

func loadGLTFImage(doc *gltf.Document, dir string, i int, img *gltf.Image) (*Texture, error) {
	name := img.Name
	if name == "" {
		name = fmt.Sprintf("gltf_img_%d", i)
	}
	switch {
	case img.BufferView != nil:
		raw, err := modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
		if err != nil {
			return nil, fmt.Errorf("buffer view: %w", err)
		}
		return DecodeTextureBytes(name, raw)
	case img.IsEmbeddedResource():
		raw, err := img.MarshalData()
		if err != nil {
			return nil, fmt.Errorf("embedded data: %w", err)
		}
		return DecodeTextureBytes(name, raw)
	case img.URI != "":
		return LoadTexture(filepath.Join(dir, img.URI))
	}
	return nil, fmt.Errorf("image %d has no source", i)
}

func primitiveKind(mode gltf.PrimitiveMode) DrawKind {
	switch mode {
	case gltf.PrimitivePoints:
		return KindPoints
	case gltf.PrimitiveLines:
		return KindLineSegments
	case gltf.PrimitiveLineLoop:
		return KindLineLoop
	case gltf.PrimitiveLineStrip:
		return KindLine
	}
	return KindMesh
}

// loadGLTFPrimitive converts one glTF mesh primitive into a Geometry.
func loadGLTFPrimitive(doc *gltf.Document, meshName string, primIdx int, prim *gltf.Primitive) (*Geometry, error) {
	name := fmt.Sprintf("%s_p%d", meshName, primIdx)
	if meshName == "" {
		name = fmt.Sprintf("prim_%d", primIdx)
	}

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	geo := NewGeometry(name)
	geo.SetAttribute("position", NewFloat32Attribute(flatten3(positions), 3))

	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		normals, err := modeler.ReadNormal(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("normals: %w", err)
		}
		geo.SetAttribute("normal", NewFloat32Attribute(flatten3(normals), 3))
	}
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("uvs: %w", err)
		}
		flat := make([]float32, 0, 2*len(uvs))
		for _, uv := range uvs {
			flat = append(flat, uv[0], uv[1])
		}
		geo.SetAttribute("uv", NewFloat32Attribute(flat, 2))
	}

	if prim.Indices != nil {
		indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		geo.SetIndex(indices)
	}
	return geo, nil
}

func flatten3(v [][3]float32) []float32 {
	out := make([]float32, 0, 3*len(v))
	for _, p := range v {
		out = append(out, p[0], p[1], p[2])
	}
	return out
}
