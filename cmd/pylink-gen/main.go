// pylink-gen generates extension binding registration code from a project
// manifest.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"

	"github.com/chazu/pylink/buildcfg"
	"github.com/chazu/pylink/gen"
	"github.com/chazu/pylink/manifest"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("pylink.gen")

func main() {
	dir := flag.String("dir", ".", "Directory containing pylink.toml (searched upward)")
	configPath := flag.String("config", "", "Resolved interpreter config file (from pylink-config)")
	pkgName := flag.String("package", "bindings", "Package name for the generated file")
	verbosity := flag.Int("verbosity", 0, "Log verbosity (0-2)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pylink-gen [options]\n\n")
		fmt.Fprintf(os.Stderr, "Loads the project manifest, introspects the listed Go packages and writes\n")
		fmt.Fprintf(os.Stderr, "the binding registration source.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  pylink-gen -dir ./myproject -config build/pylink-config.txt\n")
	}
	flag.Parse()

	commonlog.Configure(*verbosity, nil)

	m, err := manifest.FindAndLoad(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pylink-gen: %v\n", err)
		os.Exit(1)
	}
	if m == nil {
		fmt.Fprintf(os.Stderr, "pylink-gen: no pylink.toml found in or above %s\n", *dir)
		os.Exit(1)
	}

	if *configPath != "" {
		cfg, err := buildcfg.ReadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "pylink-gen: %v\n", err)
			os.Exit(1)
		}
		log.Infof("generating bindings for %s %s", cfg.Implementation, cfg.Version)
	}

	var classes []gen.ClassModel
	var skipped []gen.SkippedMethod
	for _, importPath := range m.Bindings.Packages {
		pkgClasses, pkgSkipped, err := gen.IntrospectPackage(importPath, m)
		if err != nil {
			fmt.Fprintf(os.Stderr, "pylink-gen: %v\n", err)
			os.Exit(1)
		}
		classes = append(classes, pkgClasses...)
		skipped = append(skipped, pkgSkipped...)
	}

	res, err := gen.Generate(*pkgName, classes, skipped)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pylink-gen: %v\n", err)
		os.Exit(1)
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(os.Stderr, "pylink-gen: skipping %s.%s: %s\n", s.Class, s.Method, s.Reason)
	}

	outPath := m.OutputPath()
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "pylink-gen: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outPath, []byte(res.Code), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "pylink-gen: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (%d classes)\n", outPath, len(classes))
}
