// cmd/iconsmd-render/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"iconsmd/internal/cache"
	"iconsmd/internal/catalog"
	"iconsmd/internal/compose"
	"iconsmd/internal/config"
	"iconsmd/internal/render"
	"iconsmd/internal/upstream"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file (optional)")
		icons      = flag.String("icons", "", "Comma separated icon names, e.g. docker,github")
		output     = flag.String("output", "-", "Output file, - for stdout")
		format     = flag.String("format", "", "Output format: svg or webp (default from config)")
		perLine    = flag.Int("perline", 0, "Icons per row (default from config)")
		row        = flag.Bool("row", false, "Put every icon on a single row")
		list       = flag.Bool("list", false, "Print every icon name in the index and exit")
		dumpConfig = flag.String("dump-config", "", "Write the effective configuration as YAML to this file and exit")
		verbose    = flag.Bool("verbose", false, "Verbose output")
	)
	flag.Parse()

	logrus.SetOutput(os.Stderr)
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *dumpConfig != "" {
		if err := writeConfig(cfg, *dumpConfig); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Configuration written to: %s\n", *dumpConfig)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := upstream.NewClient(cfg.Upstream)
	index := catalog.NewIndex(client)
	count, err := index.Refresh(ctx)
	if err != nil {
		log.Fatalf("Failed to load icon index: %v", err)
	}

	if *list {
		for _, name := range index.Names() {
			fmt.Println(name)
		}
		return
	}

	names := splitNames(*icons)
	if len(names) == 0 {
		log.Fatal("No icons given. Use -icons docker,github")
	}
	if *perLine != 0 && !config.ValidPerRow(*perLine) {
		log.Fatalf("-perline must be between %d and %d", config.MinPerRow, config.MaxPerRow)
	}

	opts := compose.Options{MaxPerRow: *perLine, RowOnly: *row}
	if *format != "" {
		f, err := render.ParseFormat(*format)
		if err != nil {
			log.Fatal(err)
		}
		opts.Format = f
	}

	store := cache.New[[]byte](cfg.Cache.TTL)
	compositor := compose.New(compose.FromConfig(cfg), index, client, store, nil)

	img, err := compositor.Compose(ctx, names, opts)
	if err != nil {
		log.Fatalf("Failed to render icons: %v", err)
	}

	if err := writeImage(img.Data, *output); err != nil {
		log.Fatalf("Failed to write image: %v", err)
	}

	if skipped := len(names) - len(img.Icons); skipped > 0 {
		fmt.Fprintf(os.Stderr, "Skipped %d of %d icons (unknown or unusable)\n", skipped, len(names))
	}
	fmt.Fprintf(os.Stderr, "Rendered %d icons (%dx%d %s) from an index of %d\n",
		len(img.Icons), img.Width, img.Height, img.Format, count)
}

func splitNames(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func writeImage(data []byte, filename string) error {
	var w io.Writer = os.Stdout
	if filename != "-" {
		f, err := os.Create(filename)
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}
	return nil
}

func writeConfig(cfg *config.Config, filename string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	header := fmt.Sprintf("# iconsmd configuration\n# Generated by iconsmd-render on %s\n\n",
		time.Now().Format("2006-01-02 15:04:05"))

	finalData := append([]byte(header), data...)

	if err := os.WriteFile(filename, finalData, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
