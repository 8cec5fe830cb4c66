package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/binzume/objscene/converter"
	"github.com/binzume/objscene/geom"
	"github.com/binzume/objscene/gltfutil"
	"github.com/binzume/objscene/internal/config"
	"github.com/binzume/objscene/internal/logger"
	"github.com/binzume/objscene/obj"
	"github.com/binzume/objscene/scene"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

func defaultOutputFile(input string) string {
	ext := filepath.Ext(input)
	return input[0:len(input)-len(ext)] + ".glb"
}

func parseOptions(cfg *config.Config) []obj.Option {
	opts := []obj.Option{obj.WithLogger(logger.Log)}
	if cfg.Parse.EarClip {
		opts = append(opts, obj.WithTriangulation(obj.EarClip))
	}
	if cfg.Parse.DefaultMaterial != "" {
		mat := obj.NewMaterial(cfg.Parse.DefaultMaterial)
		mat.Diffuse = [3]float32{0.8, 0.8, 0.8}
		opts = append(opts, obj.WithDefaultMaterial(mat))
	}
	return opts
}

func converterOption(cfg *config.Config) *converter.SceneToGLTFOption {
	c := cfg.Convert
	return &converter.SceneToGLTFOption{
		Scale:                  c.Scale,
		ForceUnlit:             c.ForceUnlit,
		GenerateNormals:        c.GenerateNormals,
		TextureReCompress:      c.TextureReCompress,
		TextureBytesThreshold:  c.TextureBytesThreshold,
		TextureResolutionLimit: c.TextureResolutionLimit,
		TextureScale:           c.TextureScale,
	}
}

func loadModel(cfg *config.Config, input string) (*obj.Model, *obj.Loader, error) {
	f, err := os.Open(input)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	loader := obj.NewLoader(input)
	loader.Charset = cfg.Parse.Charset
	loader.MaterialFile = cfg.Parse.MaterialFile
	model, err := loader.Load(f, parseOptions(cfg)...)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", input, err)
	}
	return model, loader, nil
}

func saveGraph(g *scene.Graph, output, srcDir string, cfg *config.Config) error {
	ext := strings.ToLower(filepath.Ext(output))
	if ext == ".glb" || ext == ".gltf" {
		doc, err := converter.NewSceneToGLTFConverter(converterOption(cfg)).Convert(g, srcDir)
		if err != nil {
			return err
		}
		if stats, err := gltfutil.GetStats(doc); err == nil {
			logger.Debug("gltf",
				zap.Int("primitives", stats.Primitives),
				zap.Int("vertices", stats.Vertices),
				zap.Int("triangles", stats.Triangles),
				zap.Float32s("min", stats.Min[:]),
				zap.Float32s("max", stats.Max[:]))
		}
		return converter.Save(doc, output)
	} else if ext == ".json" {
		data, err := json.MarshalIndent(g, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(output, data, 0644)
	} else if ext == ".yaml" || ext == ".yml" {
		data, err := yaml.Marshal(g)
		if err != nil {
			return err
		}
		return os.WriteFile(output, data, 0644)
	}
	return fmt.Errorf("unsupported output type: %v", ext)
}

// run converts input once and returns the material library files it read.
func run(cfg *config.Config, input, output string) ([]string, error) {
	model, loader, err := loadModel(cfg, input)
	if err != nil {
		return nil, err
	}
	g, err := scene.Build(model)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", input, err)
	}
	g.Walk(0, func(i int, n *scene.Node, depth int) {
		world := g.WorldTransform(i)
		origin := world.ApplyTo(&geom.Vector3{})
		logger.Debug("node", zap.String("name", n.Name), zap.Int("depth", depth), zap.Int("meshes", len(n.Meshes)),
			zap.Float32s("origin", []float32{origin.X, origin.Y, origin.Z}))
	})
	if err := saveGraph(g, output, filepath.Dir(input), cfg); err != nil {
		return nil, fmt.Errorf("save %s: %w", output, err)
	}
	logger.Info("converted",
		zap.String("input", input),
		zap.String("output", output),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("meshes", len(g.Meshes)),
		zap.Int("materials", len(g.Materials)))
	return loader.Files(model), nil
}
func saveConfig(cfg *config.Config, path string) error {
	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("save config %s: %w", path, err)
	}
	logger.Info("config saved", zap.String("path", path))
	return nil
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s input.obj [output.glb|.gltf|.json|.yaml]\n", os.Args[0])
		flag.PrintDefaults()
	}
	configFile := flag.String("config", "", "config file (default: ./"+config.DefaultFileName+" if present)")
	mtl := flag.String("mtl", "", "material library file (overrides mtllib)")
	scale := flag.Float64("scale", 1, "position scale for glTF output")
	unlit := flag.Bool("unlit", false, "unlit all materials")
	earclip := flag.Bool("earclip", false, "ear clipping triangulation for concave polygons")
	normals := flag.Bool("normals", false, "generate flat normals for meshes without normals")
	charset := flag.String("charset", "", "charset for non UTF-8 input (default shift_jis)")
	logLevel := flag.String("loglevel", "", "debug, info, warn or error")
	logFile := flag.String("logfile", "", "log file (rotated)")
	watch := flag.Bool("watch", false, "convert again when the input files change")
	saveConfigFile := flag.String("saveconfig", "", "write the effective config to this file")
	flag.Parse()

	if flag.NArg() == 0 && *saveConfigFile == "" {
		flag.Usage()
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mtl":
			cfg.Parse.MaterialFile = *mtl
		case "scale":
			cfg.Convert.Scale = float32(*scale)
		case "unlit":
			cfg.Convert.ForceUnlit = *unlit
		case "earclip":
			cfg.Parse.EarClip = *earclip
		case "normals":
			cfg.Convert.GenerateNormals = *normals
		case "charset":
			cfg.Parse.Charset = *charset
		case "loglevel":
			cfg.Logging.Level = *logLevel
		case "logfile":
			cfg.Logging.LogFile = *logFile
		}
	})

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *saveConfigFile != "" {
		if err := saveConfig(cfg, *saveConfigFile); err != nil {
			logger.Error("config not saved", zap.Error(err))
			logger.Sync()
			os.Exit(1)
		}
		if flag.NArg() == 0 {
			return
		}
	}

	input := flag.Arg(0)
	output := defaultOutputFile(input)
	if flag.NArg() > 1 {
		output = flag.Arg(1)
	}
	files, err := run(cfg, input, output)
	if err != nil {
		logger.Error("conversion failed", zap.Error(err))
		if !*watch {
			logger.Sync()
			os.Exit(1)
		}
	}
	if *watch {
		if err := watchFiles(cfg, input, output, files); err != nil {
			logger.Error("watch failed", zap.Error(err))
			logger.Sync()
			os.Exit(1)
		}
	}
}
