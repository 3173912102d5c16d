package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/phdb/image-bundler/internal/bundle"
	"github.com/phdb/image-bundler/internal/di"
	"github.com/phdb/image-bundler/internal/render"
	"github.com/phdb/image-bundler/internal/services"
)

// BundleCommand returns the bundle command for assembling a single item's zip
func BundleCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:    "bundle",
		Aliases: []string{"b"},
		Usage:   "Assemble one item's image bundle and upload it",
		Description: `Fetch an item's images from the source bucket, optionally render a size
chart, and upload the assembled zip to the bundle bucket.

Examples:
  # Bundle five images for an item
  phdb bundle --env dev --item-code AB1234 --image-count 5

  # Include a one-line size description
  phdb bundle --env dev --item-code AB1234 --image-count 5 \
    --size-json '{"size_zh": "均码"}'

  # Include a rendered size table
  phdb bundle --env prod --item-code AB1234 --image-count 8 \
    --size-json '{"size_table": {"head": [], "body": [["60","40"]]}, "size_zh": "S、M"}'`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "env",
				Aliases:  []string{"e"},
				Usage:    "Environment (dev, staging, or prod)",
				Required: true,
				EnvVars:  []string{"ENV"},
			},
			&cli.StringFlag{
				Name:     "item-code",
				Aliases:  []string{"i"},
				Usage:    "Catalog item code",
				Required: true,
				EnvVars:  []string{"ITEM_CODE"},
			},
			&cli.IntFlag{
				Name:     "image-count",
				Aliases:  []string{"n"},
				Usage:    "Number of source images to fetch",
				Required: true,
				EnvVars:  []string{"IMAGE_COUNT"},
			},
			&cli.StringFlag{
				Name:    "size-json",
				Aliases: []string{"s"},
				Usage:   "Size payload as JSON (optional)",
				EnvVars: []string{"SIZE_JSON"},
			},
		},
		Action: bundleAction,
	}
}

func bundleAction(c *cli.Context) error {
	logger := zerolog.Ctx(c.Context)

	itemCode := c.String("item-code")
	imageCount := c.Int("image-count")

	var size *bundle.ItemSize
	if raw := c.String("size-json"); raw != "" {
		parsed, err := bundle.ParseItemSize(json.RawMessage(raw))
		if err != nil {
			return err
		}
		size = parsed
	}

	images, renderer, err := buildBundleServices(c.String("env"))
	if err != nil {
		return err
	}

	result, err := assembleBundle(c.Context, images, renderer, itemCode, imageCount, size)
	if err != nil {
		return err
	}

	logger.Info().
		Str("item_code", itemCode).
		Str("bundle_key", result.Key).
		Int("images_bundled", result.ImagesBundled).
		Int("zip_size", result.ZipSize).
		Msg("Bundle uploaded")

	fmt.Printf("✓ Uploaded %s (%d images, %d bytes)\n", result.Key, result.ImagesBundled, result.ZipSize)

	return nil
}

// bundleResult summarizes one assembled bundle
type bundleResult struct {
	Key           string
	ImagesBundled int
	ZipSize       int
}

// buildBundleServices resolves the image store and render client from the
// DI container for the given environment.
func buildBundleServices(env string) (*services.ImageStore, *render.Client, error) {
	container, err := di.New(env,
		di.WithProviders(di.ProvideRenderClient),
	)
	if err != nil {
		return nil, nil, err
	}

	var images *services.ImageStore
	var renderer *render.Client
	err = container.Invoke(func(i *services.ImageStore, r *render.Client) {
		images = i
		renderer = r
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build services: %w", err)
	}

	return images, renderer, nil
}

// assembleBundle runs the bundle pipeline for one item: fetch images,
// render the optional size chart, zip, and upload.
func assembleBundle(ctx context.Context, images *services.ImageStore, renderer *render.Client, itemCode string, imageCount int, size *bundle.ItemSize) (*bundleResult, error) {
	logger := zerolog.Ctx(ctx)

	var imageData [][]byte
	for n := 1; n <= imageCount; n++ {
		data, found, err := images.FetchImage(ctx, itemCode, n)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch image %d: %w", n, err)
		}
		if !found {
			logger.Info().
				Str("item_code", itemCode).
				Int("image_no", n).
				Msg("Source image missing, skipping")
			continue
		}
		imageData = append(imageData, data)
	}

	var sizeImage []byte
	if size != nil {
		var err error
		if size.SizeTable != nil {
			sizeImage, err = renderer.RenderSizeTable(ctx, bundle.TableHeaders(size.SizeZH), size.SizeTable.Body)
		} else {
			sizeImage, err = renderer.RenderOneLine(ctx, bundle.NormalizeSeparators(size.SizeZH))
		}
		if err != nil {
			return nil, fmt.Errorf("failed to render size image: %w", err)
		}
	}

	archive := bundle.NewArchive()
	for i, data := range imageData {
		if err := archive.AddImage(itemCode, i+1, data); err != nil {
			return nil, err
		}
	}
	if sizeImage != nil {
		if err := archive.AddSizeImage(itemCode, sizeImage); err != nil {
			return nil, err
		}
	}

	zipData, err := archive.Bytes()
	if err != nil {
		return nil, err
	}

	key, err := images.PutBundle(ctx, itemCode, zipData)
	if err != nil {
		return nil, err
	}

	return &bundleResult{
		Key:           key,
		ImagesBundled: len(imageData),
		ZipSize:       len(zipData),
	}, nil
}
