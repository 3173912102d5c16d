package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/phdb/image-bundler/internal/bundle"
)

// Manifest describes a batch of items to bundle.
type Manifest struct {
	Items []ManifestItem `yaml:"items"`
}

// ManifestItem is one bundle request in a batch manifest.
type ManifestItem struct {
	ItemCode   string        `yaml:"item_code"`
	ImageCount int           `yaml:"image_count"`
	Size       *ManifestSize `yaml:"size,omitempty"`
}

// ManifestSize mirrors the size payload of a bundle request.
type ManifestSize struct {
	SizeTable *ManifestSizeTable `yaml:"size_table,omitempty"`
	SizeZH    string             `yaml:"size_zh"`
}

// ManifestSizeTable is a merchant-entered size chart.
type ManifestSizeTable struct {
	Head []string   `yaml:"head"`
	Body [][]string `yaml:"body"`
}

// BatchCommand returns the batch command for bundling items from a manifest
func BatchCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:    "batch",
		Aliases: []string{"bt"},
		Usage:   "Bundle many items from a YAML manifest",
		Description: `Read a YAML manifest of items and assemble a bundle for each.

Manifest format:
  items:
    - item_code: AB1234
      image_count: 5
      size:
        size_zh: "S、M、L"
        size_table:
          head: []
          body:
            - ["60", "40"]
            - ["62", "42"]
    - item_code: CD5678
      image_count: 3

Examples:
  # Bundle everything in the manifest
  phdb batch --env dev --manifest items.yaml

  # Stop at the first failure instead of continuing
  phdb batch --env prod --manifest items.yaml --fail-fast`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "env",
				Aliases:  []string{"e"},
				Usage:    "Environment (dev, staging, or prod)",
				Required: true,
				EnvVars:  []string{"ENV"},
			},
			&cli.StringFlag{
				Name:     "manifest",
				Aliases:  []string{"m"},
				Usage:    "Path to the YAML manifest",
				Required: true,
				EnvVars:  []string{"MANIFEST"},
			},
			&cli.BoolFlag{
				Name:    "fail-fast",
				Aliases: []string{"f"},
				Usage:   "Stop at the first item that fails",
			},
		},
		Action: batchAction,
	}
}

func batchAction(c *cli.Context) error {
	logger := zerolog.Ctx(c.Context)

	manifest, err := LoadManifest(c.String("manifest"))
	if err != nil {
		return err
	}
	if len(manifest.Items) == 0 {
		return fmt.Errorf("manifest has no items")
	}

	images, renderer, err := buildBundleServices(c.String("env"))
	if err != nil {
		return err
	}

	failFast := c.Bool("fail-fast")
	var failed int
	for _, item := range manifest.Items {
		result, err := assembleBundle(c.Context, images, renderer, item.ItemCode, item.ImageCount, item.Size.toItemSize())
		if err != nil {
			failed++
			logger.Error().
				Err(err).
				Str("item_code", item.ItemCode).
				Msg("Failed to bundle item")
			if failFast {
				return fmt.Errorf("failed to bundle %s: %w", item.ItemCode, err)
			}
			continue
		}

		fmt.Printf("✓ %s: %s (%d images, %d bytes)\n", item.ItemCode, result.Key, result.ImagesBundled, result.ZipSize)
	}

	fmt.Printf("\nBundled %d of %d items\n", len(manifest.Items)-failed, len(manifest.Items))
	if failed > 0 {
		return fmt.Errorf("%d item(s) failed", failed)
	}
	return nil
}

// LoadManifest reads and validates a batch manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	for i, item := range manifest.Items {
		if item.ItemCode == "" {
			return nil, fmt.Errorf("manifest item %d: item_code is required", i+1)
		}
		if item.ImageCount < 0 {
			return nil, fmt.Errorf("manifest item %d (%s): image_count cannot be negative", i+1, item.ItemCode)
		}
	}

	return &manifest, nil
}

func (s *ManifestSize) toItemSize() *bundle.ItemSize {
	if s == nil {
		return nil
	}

	size := &bundle.ItemSize{SizeZH: s.SizeZH}
	if s.SizeTable != nil {
		size.SizeTable = &bundle.SizeTable{
			Head: s.SizeTable.Head,
			Body: s.SizeTable.Body,
		}
	}
	return size
}
