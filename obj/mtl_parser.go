package obj

import (
	"strconv"
	"strings"
)

type mtlParser struct {
	lib      *MaterialLibrary
	handlers map[string]func(args []string) error
}

// ParseMaterials reads material library text into lib. The last material
// defined becomes lib.Active. Redefining a name updates the existing entry.
func ParseMaterials(lib *MaterialLibrary, text string) error {
	p := &mtlParser{lib: lib}
	cur := lib.Current
	p.handlers = map[string]func(args []string) error{
		"newmtl": p.newMaterial,
		"Ka":     func(args []string) error { return parseColor("Ka", args, &cur().Ambient) },
		"Kd":     func(args []string) error { return parseColor("Kd", args, &cur().Diffuse) },
		"Ks":     func(args []string) error { return parseColor("Ks", args, &cur().Specular) },
		"Tf":     func(args []string) error { return parseColor("Tf", args, &cur().Transmission) },
		"Ke":     func(args []string) error { return parseColor("Ke", args, &cur().Emissive) },
		"Ni":     func(args []string) error { return parseSingle("Ni", args, &cur().RefractiveIndex) },
		"Ns":     func(args []string) error { return parseSingle("Ns", args, &cur().Shininess) },
		"d":      func(args []string) error { return parseSingle("d", args, &cur().Dissolve) },
		"Tr": func(args []string) error {
			var tr float32 = 1 - cur().Dissolve
			if err := parseSingle("Tr", args, &tr); err != nil {
				return err
			}
			cur().Dissolve = 1 - tr
			return nil
		},
		"illum": func(args []string) error {
			if len(args) == 0 {
				return errorf(ErrFetch, "illum", "", nil)
			}
			v, err := strconv.ParseUint(args[0], 10, 8)
			if err != nil {
				return errorf(ErrFetch, "illum", args[0], err)
			}
			illum := uint8(v)
			cur().Illumination = &illum
			return nil
		},
		"map_Kd":   func(args []string) error { return setTexture(args, &cur().TextureDiffuse) },
		"map_Ka":   func(args []string) error { return setTexture(args, &cur().TextureAmbient) },
		"map_Ke":   func(args []string) error { return setTexture(args, &cur().TextureEmissive) },
		"map_Ks":   func(args []string) error { return setTexture(args, &cur().TextureSpecular) },
		"map_Bump": func(args []string) error { return setTexture(args, &cur().TextureNormal) },
		"map_bump": func(args []string) error { return setTexture(args, &cur().TextureNormal) },
		"bump":     func(args []string) error { return setTexture(args, &cur().TextureNormal) },
		"norm":     func(args []string) error { return setTexture(args, &cur().TextureNormal) },
	}
	return eachLine(text, p.line)
}

func (p *mtlParser) line(_ int, fields []string) error {
	if handler, ok := p.handlers[fields[0]]; ok {
		return handler(fields[1:])
	}
	if isGenericMap(fields[0]) {
		return setTexture(fields[1:], &p.lib.Current().Texture)
	}
	return nil
}

func (p *mtlParser) newMaterial(args []string) error {
	name := strings.Join(args, " ")
	p.lib.Active = p.lib.Define(name)
	p.lib.Materials[p.lib.Active].Name = name
	return nil
}

func isGenericMap(directive string) bool {
	switch directive {
	case "disp", "decal", "refl":
		return true
	}
	return strings.HasPrefix(directive, "map_")
}

// parseColor reads "r g b". A single value sets the first channel and clears
// the others; otherwise channels without a token are left untouched.
func parseColor(directive string, args []string, dst *[3]float32) error {
	if len(args) == 1 {
		v, err := parseFloat(directive, args[0])
		if err != nil {
			return err
		}
		*dst = [3]float32{v, 0, 0}
		return nil
	}
	for i, s := range args {
		if i >= 3 {
			break
		}
		v, err := parseFloat(directive, s)
		if err != nil {
			return err
		}
		dst[i] = v
	}
	return nil
}

func parseSingle(directive string, args []string, dst *float32) error {
	for _, s := range args {
		v, err := parseFloat(directive, s)
		if err != nil {
			return err
		}
		*dst = v
	}
	return nil
}

// setTexture takes the file name from the last token, skipping map options like "-s 1 1 1".
func setTexture(args []string, dst *string) error {
	if len(args) == 0 {
		return nil
	}
	*dst = strings.ReplaceAll(args[len(args)-1], "\\", "/")
	return nil
}
