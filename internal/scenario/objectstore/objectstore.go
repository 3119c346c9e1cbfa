// Package objectstore keeps scenario documents in an S3 compatible bucket,
// one <prefix><name>.json object per scenario.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	applog "rbudget/internal/log"
	"rbudget/internal/scenario"
)

const documentSuffix = ".json"

// Config locates the bucket. Endpoint and static keys are only needed for
// non-AWS stores such as MinIO.
type Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Ensure interface conformance
var (
	_ scenario.Loader = (*Store)(nil)
	_ scenario.Lister = (*Store)(nil)
	_ scenario.Writer = (*Store)(nil)
)

type Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	logger   *applog.Logger
}

func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("missing bucket")
	}
	if logger == nil {
		logger = applog.Discard()
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
		// Third party stores often reject the default trailing checksums.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return &Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		logger:   logger.WithComponent(applog.ComponentStorage),
	}, nil
}

func (s *Store) key(name string) string {
	return s.prefix + name + documentSuffix
}

// Load fetches and decodes the named scenario document.
func (s *Store) Load(ctx context.Context, name string) (scenario.Definition, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return scenario.Definition{}, fmt.Errorf("%w: %s", scenario.ErrNotFound, name)
		}
		return scenario.Definition{}, fmt.Errorf("get %s: %w", s.key(name), err)
	}
	defer out.Body.Close()

	def, err := scenario.DecodeJSON(out.Body)
	if err != nil {
		return scenario.Definition{}, fmt.Errorf("%s: %w", s.key(name), err)
	}
	s.logger.DebugContext(ctx, "Scenario fetched", applog.FieldScenario, name, "bucket", s.bucket)
	return def, nil
}

// Scenarios lists the documents under the prefix in sorted order.
func (s *Store) Scenarios(ctx context.Context) ([]string, error) {
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	var names []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", s.bucket, s.prefix, err)
		}
		for _, obj := range page.Contents {
			name, ok := strings.CutSuffix(strings.TrimPrefix(aws.ToString(obj.Key), s.prefix), documentSuffix)
			if !ok || name == "" || strings.Contains(name, "/") {
				continue
			}
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Save uploads def as the named scenario document.
func (s *Store) Save(ctx context.Context, name string, def scenario.Definition) error {
	if strings.TrimSpace(name) == "" || strings.Contains(name, "/") {
		return fmt.Errorf("invalid scenario name %q", name)
	}
	var buf bytes.Buffer
	if err := scenario.EncodeJSON(&buf, def); err != nil {
		return err
	}
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(name)),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", s.key(name), err)
	}
	s.logger.InfoContext(ctx, "Scenario uploaded", applog.FieldScenario, name, "bucket", s.bucket)
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
