package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
	"github.com/urfave/cli/v2"

	"github.com/phdb/image-bundler/internal/bundle"
	"github.com/phdb/image-bundler/internal/dao/jobdao"
	"github.com/phdb/image-bundler/internal/di"
	apperrors "github.com/phdb/image-bundler/internal/errors"
	"github.com/phdb/image-bundler/internal/render"
	"github.com/phdb/image-bundler/internal/services"
)

// ImageStore abstracts the S3-backed image operations for testing
type ImageStore interface {
	FetchImage(ctx context.Context, itemCode string, n int) ([]byte, bool, error)
	PutBundle(ctx context.Context, itemCode string, data []byte) (string, error)
}

// RenderClient abstracts the size-chart render service for testing
type RenderClient interface {
	RenderSizeTable(ctx context.Context, headers []string, rows [][]string) ([]byte, error)
	RenderOneLine(ctx context.Context, size string) ([]byte, error)
}

// JobStore abstracts the jobs DAO for testing
type JobStore interface {
	Create(ctx context.Context, input jobdao.CreateInput) (jobdao.Record, error)
	UpdateStatus(ctx context.Context, input jobdao.UpdateInput) error
}

// Input is the bundle request. Upstream callers are inconsistent about
// whether item_code and image_count arrive as JSON strings or numbers,
// so both forms are accepted.
type Input struct {
	ItemCode   string
	ImageCount int
	Body       json.RawMessage
}

// UnmarshalJSON implements the tolerant decoding described on Input.
func (in *Input) UnmarshalJSON(data []byte) error {
	var raw struct {
		ItemCode   json.RawMessage `json:"item_code"`
		ImageCount json.RawMessage `json:"image_count"`
		Body       json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if len(raw.ItemCode) == 0 {
		return apperrors.ErrItemCodeNotSet
	}
	in.ItemCode = trimQuotes(raw.ItemCode)
	if in.ItemCode == "" {
		return apperrors.ErrItemCodeNotSet
	}

	if len(raw.ImageCount) == 0 {
		return apperrors.ErrImageCountNotSet
	}
	count, err := strconv.Atoi(trimQuotes(raw.ImageCount))
	if err != nil || count < 0 {
		return apperrors.ErrImageCountInvalid
	}
	in.ImageCount = count

	in.Body = raw.Body
	return nil
}

func trimQuotes(raw json.RawMessage) string {
	return strings.Trim(strings.TrimSpace(string(raw)), `"`)
}

// Output is the Lambda response body.
type Output struct {
	Result  string `json:"result"`
	Message string `json:"message"`

	// Bundle stats carried for job tracking, not part of the response
	ImagesBundled int    `json:"-"`
	BundleKey     string `json:"-"`
	ZipSize       int64  `json:"-"`
}

// Handler assembles image bundles
type Handler struct {
	images   ImageStore
	renderer RenderClient
}

// NewHandler wires a Handler from the DI container's services.
func NewHandler(images *services.ImageStore, renderer *render.Client) *Handler {
	return &Handler{
		images:   images,
		renderer: renderer,
	}
}

// NewHandlerWithDeps creates a Handler with injected dependencies (for testing)
func NewHandlerWithDeps(images ImageStore, renderer RenderClient) *Handler {
	return &Handler{
		images:   images,
		renderer: renderer,
	}
}

// HandleCreateImagesZip fetches an item's images, optionally renders a
// size chart, and uploads the assembled zip to the bundle bucket.
func (h *Handler) HandleCreateImagesZip(ctx context.Context, input *Input) (*Output, error) {
	logger := zerolog.Ctx(ctx)

	if input.ItemCode == "" {
		return nil, apperrors.ErrItemCodeNotSet
	}
	if input.ImageCount < 0 {
		return nil, apperrors.ErrImageCountInvalid
	}

	logger.Info().
		Str("item_code", input.ItemCode).
		Int("image_count", input.ImageCount).
		Bool("has_size_data", len(input.Body) > 0).
		Msg("Assembling image bundle")

	// Fetch images in upstream numbering order. Gaps are normal: the
	// crawler skips images it could not retrieve.
	var images [][]byte
	for n := 1; n <= input.ImageCount; n++ {
		data, found, err := h.images.FetchImage(ctx, input.ItemCode, n)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch image %d: %w", n, err)
		}
		if !found {
			logger.Info().
				Str("item_code", input.ItemCode).
				Int("image_no", n).
				Msg("Source image missing, skipping")
			continue
		}
		images = append(images, data)
	}

	var sizeImage []byte
	if len(input.Body) > 0 {
		data, err := h.renderSizeImage(ctx, input.Body)
		if err != nil {
			return nil, err
		}
		sizeImage = data
	}

	// Entries are renumbered densely from 1 regardless of source gaps
	archive := bundle.NewArchive()
	for i, data := range images {
		if err := archive.AddImage(input.ItemCode, i+1, data); err != nil {
			return nil, err
		}
	}
	if sizeImage != nil {
		if err := archive.AddSizeImage(input.ItemCode, sizeImage); err != nil {
			return nil, err
		}
	}

	zipData, err := archive.Bytes()
	if err != nil {
		return nil, err
	}

	key, err := h.images.PutBundle(ctx, input.ItemCode, zipData)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("item_code", input.ItemCode).
		Str("bundle_key", key).
		Int("images_bundled", len(images)).
		Int("zip_size", len(zipData)).
		Msg("Uploaded image bundle")

	return &Output{
		Result:        "ok",
		Message:       "",
		ImagesBundled: len(images),
		BundleKey:     key,
		ZipSize:       int64(len(zipData)),
	}, nil
}

// renderSizeImage parses the size payload and renders it to a JPEG.
// A size table renders as a chart with headers derived from size_zh;
// otherwise size_zh renders as a one-line description.
func (h *Handler) renderSizeImage(ctx context.Context, body json.RawMessage) ([]byte, error) {
	size, err := bundle.ParseItemSize(body)
	if err != nil {
		return nil, err
	}

	if size.SizeTable != nil {
		headers := bundle.TableHeaders(size.SizeZH)
		data, err := h.renderer.RenderSizeTable(ctx, headers, size.SizeTable.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to render size table: %w", err)
		}
		return data, nil
	}

	data, err := h.renderer.RenderOneLine(ctx, bundle.NormalizeSeparators(size.SizeZH))
	if err != nil {
		return nil, fmt.Errorf("failed to render size description: %w", err)
	}
	return data, nil
}

type HandlerFunc func(context.Context, *Input) (*Output, error)

func withLogger(handler HandlerFunc, logger zerolog.Logger) HandlerFunc {
	return func(ctx context.Context, input *Input) (*Output, error) {
		ctx = logger.WithContext(ctx)
		return handler(ctx, input)
	}
}

// withJobTracking records each invocation in the jobs table: a PENDING
// record before the handler runs, IN_PROGRESS while it bundles, then
// SUCCESS with bundle stats or FAILED with the error message. A record
// left at IN_PROGRESS means the Lambda died mid-bundle. Tracking
// failures are logged, never surfaced, so a jobs-table outage does not
// block bundling.
func withJobTracking(handler HandlerFunc, jobs JobStore, env string) HandlerFunc {
	return func(ctx context.Context, input *Input) (*Output, error) {
		sk := ksuid.New().String()
		pk := jobdao.NewPK(input.ItemCode, env)

		if _, err := jobs.Create(ctx, jobdao.CreateInput{
			ItemCode:    input.ItemCode,
			Env:         env,
			SK:          sk,
			ImageCount:  input.ImageCount,
			HasSizeData: len(input.Body) > 0,
		}); err != nil {
			zerolog.Ctx(ctx).Error().
				Err(err).
				Stringer("id", jobdao.NewID(pk, sk)).
				Msg("failed to create job record")
			return handler(ctx, input)
		}

		inProgress := jobdao.JobStatusInProgress
		if updateErr := jobs.UpdateStatus(ctx, jobdao.UpdateInput{
			PK:     pk,
			SK:     sk,
			Status: &inProgress,
		}); updateErr != nil {
			zerolog.Ctx(ctx).Error().
				Err(updateErr).
				Stringer("id", jobdao.NewID(pk, sk)).
				Msg("failed to update job status to IN_PROGRESS")
		}

		output, err := handler(ctx, input)
		if err != nil {
			status := jobdao.JobStatusFailed
			if updateErr := jobs.UpdateStatus(ctx, jobdao.UpdateInput{
				PK:       pk,
				SK:       sk,
				Status:   &status,
				ErrorMsg: aws.String(err.Error()),
			}); updateErr != nil {
				zerolog.Ctx(ctx).Error().
					Err(updateErr).
					Stringer("id", jobdao.NewID(pk, sk)).
					Msg("failed to update job status to FAILED")
			}
			return nil, err
		}

		status := jobdao.JobStatusSuccess
		if updateErr := jobs.UpdateStatus(ctx, jobdao.UpdateInput{
			PK:            pk,
			SK:            sk,
			Status:        &status,
			ImagesBundled: aws.Int(output.ImagesBundled),
			BundleKey:     aws.String(output.BundleKey),
			ZipSize:       aws.Int64(output.ZipSize),
		}); updateErr != nil {
			zerolog.Ctx(ctx).Error().
				Err(updateErr).
				Stringer("id", jobdao.NewID(pk, sk)).
				Msg("failed to update job status to SUCCESS")
		}
		return output, nil
	}
}

func lambdaAction(c *cli.Context) error {
	env := c.String("env")

	container, err := di.New(env,
		di.WithProviders(
			di.ProvideJobDAO,
			di.ProvideRenderClient,
		),
	)
	if err != nil {
		return err
	}

	var (
		logger   = di.MustGet[zerolog.Logger](container).With().Str("lambda", "create-images-zip").Logger()
		images   = di.MustGet[*services.ImageStore](container)
		renderer = di.MustGet[*render.Client](container)
		jobs     = di.MustGet[*jobdao.DAO](container)
	)

	handler := NewHandler(images, renderer)

	createImagesZip := handler.HandleCreateImagesZip
	createImagesZip = withJobTracking(createImagesZip, jobs, env)
	createImagesZip = withLogger(createImagesZip, logger)

	lambda.Start(createImagesZip)
	return nil
}

func runAction(c *cli.Context) error {
	env := c.String("env")

	container, err := di.New(env,
		di.WithProviders(
			di.ProvideJobDAO,
			di.ProvideRenderClient,
		),
	)
	if err != nil {
		return err
	}

	var (
		logger   = di.MustGet[zerolog.Logger](container).With().Str("lambda", "create-images-zip").Logger()
		images   = di.MustGet[*services.ImageStore](container)
		renderer = di.MustGet[*render.Client](container)
	)

	handler := NewHandler(images, renderer)

	input := &Input{
		ItemCode:   c.String("item-code"),
		ImageCount: c.Int("image-count"),
	}
	if body := c.String("size-body"); body != "" {
		input.Body = json.RawMessage(body)
	}

	createImagesZip := handler.HandleCreateImagesZip
	if c.Bool("track-job") {
		jobs := di.MustGet[*jobdao.DAO](container)
		createImagesZip = withJobTracking(createImagesZip, jobs, env)
	}

	ctx := logger.WithContext(context.Background())
	result, err := createImagesZip(ctx, input)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func main() {
	app := &cli.App{
		Name:           "create-images-zip",
		Usage:          "Bundle item images and an optional size chart into a zip",
		DefaultCommand: "lambda",
		Commands: []*cli.Command{
			{
				Name:  "lambda",
				Usage: "Start Lambda handler",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "env",
						Usage:    "Environment",
						EnvVars:  []string{"ENV"},
						Required: true,
					},
				},
				Action: lambdaAction,
			},
			{
				Name:  "run",
				Usage: "Run locally for testing",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "env",
						Usage:    "Environment",
						EnvVars:  []string{"ENV"},
						Required: true,
					},
					&cli.StringFlag{
						Name:     "item-code",
						Usage:    "Catalog item code",
						EnvVars:  []string{"ITEM_CODE"},
						Required: true,
					},
					&cli.IntFlag{
						Name:     "image-count",
						Usage:    "Number of source images to fetch",
						EnvVars:  []string{"IMAGE_COUNT"},
						Required: true,
					},
					&cli.StringFlag{
						Name:    "size-body",
						Usage:   "Size payload JSON (optional)",
						EnvVars: []string{"SIZE_BODY"},
					},
					&cli.BoolFlag{
						Name:    "track-job",
						Usage:   "Record the run in the jobs table",
						EnvVars: []string{"TRACK_JOB"},
					},
				},
				Action: runAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
