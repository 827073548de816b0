package scene

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"frame-renderer/core"
)

// objFace is an already-triangulated face (three vertex references).
type objFace struct {
	vIdx, vtIdx, vnIdx [3]int // 0-based position / UV / normal indices (-1 = absent)
}

type objObject struct {
	name    string
	matName string
	faces   []objFace
}

// LoadOBJ parses a Wavefront .obj file and returns one mesh node per
// object/group. A companion .mtl file referenced via "mtllib" is loaded
// relative to the .obj; its materials become PhongMaterial.
func LoadOBJ(path string) ([]*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj %q: %w", path, err)
	}
	defer f.Close()

	dir := filepath.Dir(path)
	return ParseOBJ(f, func(name string) (map[string]*Material, error) {
		mf, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		defer mf.Close()
		return parseMTL(mf, dir)
	})
}

// ParseOBJ reads OBJ text. mtl resolves "mtllib" names and may be nil.
func ParseOBJ(r io.Reader, mtl func(name string) (map[string]*Material, error)) ([]*Node, error) {
	var positions, normals []mgl32.Vec3
	var uvs []mgl32.Vec2
	materials := map[string]*Material{}

	var objects []objObject
	cur := &objObject{name: "default"}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			if len(fields) >= 4 {
				positions = append(positions, parseVec3(fields[1:4]))
			}
		case "vn":
			if len(fields) >= 4 {
				normals = append(normals, parseVec3(fields[1:4]))
			}
		case "vt":
			if len(fields) >= 3 {
				u, _ := strconv.ParseFloat(fields[1], 32)
				v, _ := strconv.ParseFloat(fields[2], 32)
				uvs = append(uvs, mgl32.Vec2{float32(u), float32(v)})
			}
		case "o", "g":
			if len(cur.faces) > 0 {
				objects = append(objects, *cur)
			}
			name := "default"
			if len(fields) > 1 {
				name = fields[1]
			}
			cur = &objObject{name: name, matName: cur.matName}
		case "usemtl":
			if len(fields) > 1 {
				cur.matName = fields[1]
			}
		case "mtllib":
			if len(fields) > 1 && mtl != nil {
				loaded, err := mtl(fields[1])
				if err != nil {
					core.Logger().Warn("mtllib skipped", zap.String("file", fields[1]), zap.Error(err))
					continue
				}
				for k, v := range loaded {
					materials[k] = v
				}
			}
		case "f":
			if len(fields) < 4 {
				continue
			}
			verts := make([][3]int, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				verts = append(verts, parseFaceVertex(tok, len(positions), len(uvs), len(normals)))
			}
			// Fan triangulation: 0-1-2, 0-2-3, ...
			for i := 1; i+1 < len(verts); i++ {
				f0, f1, f2 := verts[0], verts[i], verts[i+1]
				cur.faces = append(cur.faces, objFace{
					vIdx:  [3]int{f0[0], f1[0], f2[0]},
					vtIdx: [3]int{f0[1], f1[1], f2[1]},
					vnIdx: [3]int{f0[2], f1[2], f2[2]},
				})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan obj: %w", err)
	}
	if len(cur.faces) > 0 {
		objects = append(objects, *cur)
	}
	if len(objects) == 0 {
		return nil, fmt.Errorf("obj: no geometry found")
	}

	nodes := make([]*Node, 0, len(objects))
	for _, obj := range objects {
		geo := buildOBJGeometry(obj.name, obj.faces, positions, normals, uvs)
		mat, ok := materials[obj.matName]
		if !ok {
			mat = NewMaterial(PhongMaterial)
		}
		nodes = append(nodes, NewMesh(obj.name, geo, mat))
	}
	return nodes, nil
}

func parseVec3(f []string) mgl32.Vec3 {
	var v mgl32.Vec3
	for i := range 3 {
		x, _ := strconv.ParseFloat(f[i], 32)
		v[i] = float32(x)
	}
	return v
}

// parseFaceVertex parses "v", "v/vt", "v//vn" or "v/vt/vn" into 0-based
// indices, -1 when absent. Negative OBJ indices count back from the end.
func parseFaceVertex(tok string, nv, nvt, nvn int) [3]int {
	res := [3]int{-1, -1, -1}
	counts := [3]int{nv, nvt, nvn}
	for i, part := range strings.SplitN(tok, "/", 3) {
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		switch {
		case err != nil:
		case n > 0:
			res[i] = n - 1
		case n < 0:
			res[i] = counts[i] + n
		}
	}
	return res
}

// buildOBJGeometry converts parsed face data into a deduplicated Geometry.
func buildOBJGeometry(name string, faces []objFace, positions, normals []mgl32.Vec3, uvs []mgl32.Vec2) *Geometry {
	type key struct{ v, vt, vn int }
	vertMap := map[key]uint32{}
	var b meshBuilder
	var pts []mgl32.Vec3

	for _, face := range faces {
		for c := 0; c < 3; c++ {
			k := key{face.vIdx[c], face.vtIdx[c], face.vnIdx[c]}
			idx, ok := vertMap[k]
			if !ok {
				var p, n mgl32.Vec3
				var uv mgl32.Vec2
				if k.v >= 0 && k.v < len(positions) {
					p = positions[k.v]
				}
				n = mgl32.Vec3{0, 1, 0}
				if k.vn >= 0 && k.vn < len(normals) {
					n = normals[k.vn]
				}
				if k.vt >= 0 && k.vt < len(uvs) {
					uv = uvs[k.vt]
				}
				idx = b.vertex(p, n, uv[0], uv[1])
				pts = append(pts, p)
				vertMap[k] = idx
			}
			b.indices = append(b.indices, idx)
		}
	}

	if len(normals) == 0 {
		smooth := make([]mgl32.Vec3, len(pts))
		for i := 0; i+2 < len(b.indices); i += 3 {
			i0, i1, i2 := b.indices[i], b.indices[i+1], b.indices[i+2]
			n := pts[i1].Sub(pts[i0]).Cross(pts[i2].Sub(pts[i0])) // area-weighted
			smooth[i0] = smooth[i0].Add(n)
			smooth[i1] = smooth[i1].Add(n)
			smooth[i2] = smooth[i2].Add(n)
		}
		for i, n := range smooth {
			if n.LenSqr() > 0 {
				n = n.Normalize()
				copy(b.normals[3*i:3*i+3], n[:])
			}
		}
	}
	return b.build(name)
}

func parseMTL(r io.Reader, dir string) (map[string]*Material, error) {
	mats := map[string]*Material{}
	var cur *Material

	color := func(f []string) core.Color {
		v := parseVec3(f)
		return core.Color{R: v[0], G: v[1], B: v[2], A: 1}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if fields[0] == "newmtl" {
			if len(fields) > 1 {
				cur = NewMaterial(PhongMaterial)
				cur.Name = fields[1]
				mats[fields[1]] = cur
			}
			continue
		}
		if cur == nil || len(fields) < 2 {
			continue
		}

		switch fields[0] {
		case "Kd":
			if len(fields) >= 4 {
				cur.Color = color(fields[1:4])
			}
		case "Ks":
			if len(fields) >= 4 {
				cur.Specular = color(fields[1:4])
			}
		case "Ke":
			if len(fields) >= 4 {
				cur.Emissive = color(fields[1:4])
			}
		case "Ns":
			ns, _ := strconv.ParseFloat(fields[1], 32)
			cur.Shininess = max(1, float32(ns))
		case "d":
			d, _ := strconv.ParseFloat(fields[1], 32)
			cur.Opacity = float32(d)
			cur.Transparent = d < 1
		case "map_Kd":
			tex, err := LoadTexture(filepath.Join(dir, fields[len(fields)-1]))
			if err != nil {
				core.Logger().Warn("map_Kd skipped", zap.String("material", cur.Name), zap.Error(err))
				continue
			}
			cur.Map = tex
		}
	}
	return mats, scanner.Err()
}
