// Package sink opens destinations for report files.
//
// A target is either a local path or an s3://bucket/key URL. Local files are
// truncated on open; S3 objects are buffered and uploaded in one PutObject
// on Close.
package sink

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"

	"github.com/idr/idrstat/pkg/constants"
	"github.com/idr/idrstat/pkg/errors"
)

// SchemeS3 prefixes S3 targets.
const SchemeS3 = "s3://"

// Uploader is the subset of the S3 client used for reports.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config configures the S3 client built on first use.
type S3Config struct {
	Region    string
	Endpoint  string // optional; set for MinIO and other S3-compatible stores
	PathStyle bool
}

// Opener creates report sinks.
type Opener struct {
	fs       afero.Fs
	s3Config S3Config

	mu       sync.Mutex
	uploader Uploader
}

// Option configures an Opener.
type Option func(*Opener)

// WithUploader sets the S3 client instead of loading one from the AWS
// default credential chain.
func WithUploader(u Uploader) Option {
	return func(o *Opener) { o.uploader = u }
}

// WithS3Config sets the region and endpoint of the lazily built S3 client.
func WithS3Config(cfg S3Config) Option {
	return func(o *Opener) { o.s3Config = cfg }
}

// New returns an Opener writing local files to fs.
func New(fs afero.Fs, opts ...Option) *Opener {
	o := &Opener{fs: fs}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Target is a parsed sink destination.
type Target struct {
	Bucket string
	Key    string
	Path   string
}

// IsS3 reports whether the target is an S3 object.
func (t Target) IsS3() bool {
	return t.Bucket != ""
}

// String returns the target in its configured form.
func (t Target) String() string {
	if t.IsS3() {
		return SchemeS3 + t.Bucket + "/" + t.Key
	}
	return t.Path
}

// ParseTarget splits a target into an S3 location or a local path.
func ParseTarget(target string) (Target, error) {
	if target == "" {
		return Target{}, errors.NewValidationError("target", target, "report target is required")
	}
	if !strings.HasPrefix(target, SchemeS3) {
		return Target{Path: target}, nil
	}
	u, err := url.Parse(target)
	if err != nil {
		return Target{}, errors.NewValidationError("target", target, err.Error())
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return Target{}, errors.NewValidationError("target", target, "expected s3://bucket/key")
	}
	return Target{Bucket: u.Host, Key: key}, nil
}

// Create opens target for writing. Data reaches an S3 target only when the
// returned writer is closed.
func (o *Opener) Create(ctx context.Context, target string) (io.WriteCloser, error) {
	t, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}
	if !t.IsS3() {
		if dir := filepath.Dir(t.Path); dir != "." {
			if err := o.fs.MkdirAll(dir, constants.DirPermissions); err != nil {
				return nil, errors.WrapIO("create", dir, err)
			}
		}
		f, err := o.fs.OpenFile(t.Path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.FilePermissions)
		if err != nil {
			return nil, errors.WrapIO("create", t.Path, err)
		}
		return f, nil
	}
	up, err := o.s3(ctx)
	if err != nil {
		return nil, err
	}
	return &objectWriter{ctx: ctx, uploader: up, target: t}, nil
}

func (o *Opener) s3(ctx context.Context) (Uploader, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.uploader != nil {
		return o.uploader, nil
	}
	var loadOpts []func(*config.LoadOptions) error
	if o.s3Config.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.s3Config.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.NewConfigError("sink", "load aws config", err)
	}
	o.uploader = s3.NewFromConfig(awsCfg, func(opts *s3.Options) {
		opts.UsePathStyle = o.s3Config.PathStyle
		if o.s3Config.Endpoint != "" {
			opts.BaseEndpoint = aws.String(o.s3Config.Endpoint)
		}
	})
	return o.uploader, nil
}

// objectWriter buffers a report and uploads it on Close.
type objectWriter struct {
	ctx      context.Context
	uploader Uploader
	target   Target

	buf    bytes.Buffer
	closed bool
}

func (w *objectWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.ErrClosed
	}
	return w.buf.Write(p)
}

func (w *objectWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	_, err := w.uploader.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.target.Bucket),
		Key:         aws.String(w.target.Key),
		Body:        bytes.NewReader(w.buf.Bytes()),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	return errors.WrapIO("upload", w.target.String(), err)
}
