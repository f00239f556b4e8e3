package services

import (
	"context"
	"path"

	fylogger "github.com/FyersDev/trading-logger-go"

	"ingest-api/cmd/configs"
	"ingest-api/cmd/defines"
	"ingest-api/internal/models"
	"ingest-api/internal/unstructured"
	"ingest-api/pkg/errors"
	"ingest-api/pkg/objectstore"
	"ingest-api/pkg/utils"
)

// ObjectFetcher downloads single objects from the source store
type ObjectFetcher interface {
	GetObject(ctx context.Context, bucket, key string) (*objectstore.Object, error)
}

// ObjectFetcherFactory opens a fetcher for one set of credentials
type ObjectFetcherFactory func(ctx context.Context, creds models.SourceCredentials) (ObjectFetcher, error)

// Partitioner runs the synchronous partition endpoint
type Partitioner interface {
	Partition(ctx context.Context, fileName string, content []byte, opts unstructured.PartitionOptions) ([]map[string]any, error)
}

// PartitionerFactory returns a partitioner authenticated with apiKey
type PartitionerFactory func(apiKey string) Partitioner

// PartitionService partitions one stored document without creating a workflow
type PartitionService struct {
	cfg          *configs.Config
	fetchers     ObjectFetcherFactory
	partitioners PartitionerFactory
}

func NewPartitionService(cfg *configs.Config, fetchers ObjectFetcherFactory, partitioners PartitionerFactory) *PartitionService {
	return &PartitionService{cfg: cfg, fetchers: fetchers, partitioners: partitioners}
}

// Partition downloads the object named by the request and returns its elements
func (s *PartitionService) Partition(ctx context.Context, body models.PartitionRequest) (*models.PartitionResult, error) {
	location := utils.FirstNonEmpty(body.S3Path, body.SourceLocation)
	creds := models.SourceCredentials{
		AccessKey: utils.FirstNonEmpty(body.AWSKey, s.cfg.AWS.AccessKey),
		SecretKey: utils.FirstNonEmpty(body.AWSSecret, s.cfg.AWS.SecretKey),
	}
	apiKey := utils.FirstNonEmpty(body.UnstructuredAPIKey, s.cfg.Unstructured.APIKey)

	var missing, invalid []string
	if location == "" {
		missing = append(missing, "s3Path")
	}
	if creds.AccessKey == "" {
		missing = append(missing, "awsK")
	}
	if creds.SecretKey == "" {
		missing = append(missing, "awsS")
	}
	if apiKey == "" {
		missing = append(missing, "unstrK")
	}

	var loc models.SourceLocation
	if location != "" {
		parsed, err := models.ParseSourceLocation(location)
		switch {
		case err != nil:
			invalid = append(invalid, "s3Path: "+err.Error())
		case parsed.IsPrefix():
			invalid = append(invalid, "s3Path: must name a single object, not a folder")
		default:
			loc = parsed
		}
	}

	strategy, ok := defines.ParseStrategy(body.Strategy)
	if !ok {
		invalid = append(invalid, "strategy: must be one of auto, fast, hi_res, ocr_only, vlm")
	}

	if len(missing) > 0 || len(invalid) > 0 {
		return nil, errors.NewValidationError(missing, invalid)
	}

	fetcher, err := s.fetchers(ctx, creds)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrInternalServer.Code, "failed to open source store", errors.ErrInternalServer.Status)
	}

	obj, err := fetcher.GetObject(ctx, loc.Bucket, loc.Key())
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrUpstream.Code, "failed to download source file", errors.ErrUpstream.Status)
	}

	fileName := path.Base(loc.Key())
	elements, err := s.partitioners(apiKey).Partition(ctx, fileName, obj.Body, unstructured.PartitionOptions{
		Strategy:  string(strategy),
		Languages: []string{"eng"},
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrUpstream.Code, "failed to partition file", errors.ErrUpstream.Status)
	}

	fylogger.InfoLog(ctx, "partitioned single file", map[string]interface{}{
		"bucket":   loc.Bucket,
		"key":      loc.Key(),
		"elements": len(elements),
		"strategy": string(strategy),
	})

	return &models.PartitionResult{
		Message:  "File processed successfully",
		File:     fileName,
		Elements: elements,
		Metadata: models.PartitionMetadata{
			Bucket:      loc.Bucket,
			Key:         loc.Key(),
			FileSize:    obj.Size,
			ContentType: obj.ContentType,
		},
	}, nil
}
