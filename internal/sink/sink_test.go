package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idr/idrstat/pkg/errors"
)

type fakeUploader struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakeUploader) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, f.err
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		target  string
		want    Target
		wantErr bool
	}{
		{target: "no_matches.txt", want: Target{Path: "no_matches.txt"}},
		{target: "/tmp/out/report.txt", want: Target{Path: "/tmp/out/report.txt"}},
		{target: "s3://idr-reports/audit/no_matches.txt", want: Target{Bucket: "idr-reports", Key: "audit/no_matches.txt"}},
		{target: "s3://idr-reports/", wantErr: true},
		{target: "s3:///key", wantErr: true},
		{target: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			got, err := ParseTarget(tt.target)
			if tt.wantErr {
				assert.True(t, errors.IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.target, got.String())
		})
	}
}

func TestCreate_LocalOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "no_matches.txt", []byte("stale line that is longer\n"), 0o644))
	o := New(fs)

	w, err := o.Create(context.Background(), "no_matches.txt")
	require.NoError(t, err)
	_, err = io.WriteString(w, "CDK1\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := afero.ReadFile(fs, "no_matches.txt")
	require.NoError(t, err)
	assert.Equal(t, "CDK1\n", string(data))
}

func TestCreate_LocalMakesParents(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := New(fs).Create(context.Background(), "reports/2026/no_matches.txt")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	info, err := fs.Stat("reports/2026")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreate_LocalError(t *testing.T) {
	o := New(afero.NewReadOnlyFs(afero.NewMemMapFs()))
	_, err := o.Create(context.Background(), "out.txt")
	var ioErr *errors.IOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestCreate_S3UploadsOnClose(t *testing.T) {
	up := &fakeUploader{}
	o := New(afero.NewMemMapFs(), WithUploader(up))

	w, err := o.Create(context.Background(), "s3://idr-reports/audit/no_matches.txt")
	require.NoError(t, err)
	_, err = io.WriteString(w, "CDK1\nGFP\n")
	require.NoError(t, err)
	assert.Empty(t, up.inputs, "nothing is uploaded before close")

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	require.Len(t, up.inputs, 1)
	assert.Equal(t, "idr-reports", aws.ToString(up.inputs[0].Bucket))
	assert.Equal(t, "audit/no_matches.txt", aws.ToString(up.inputs[0].Key))
	assert.Equal(t, "CDK1\nGFP\n", up.bodies[0])

	_, err = w.Write([]byte("late"))
	assert.ErrorIs(t, err, errors.ErrClosed)
}

func TestCreate_S3UploadError(t *testing.T) {
	up := &fakeUploader{err: fmt.Errorf("access denied")}
	o := New(afero.NewMemMapFs(), WithUploader(up))

	w, err := o.Create(context.Background(), "s3://idr-reports/no_matches.txt")
	require.NoError(t, err)
	err = w.Close()
	var ioErr *errors.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "upload", ioErr.Operation)
}

// recordingTransport answers every S3 request with 200 and keeps PUT bodies.
type recordingTransport struct {
	mu   sync.Mutex
	puts map[string][]byte
}

func (rt *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if req.Method == http.MethodPut {
		body, _ := io.ReadAll(req.Body)
		rt.puts[req.URL.Path] = body
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader(nil)),
		Header:     http.Header{"ETag": {"\"etag\""}},
		Request:    req,
	}, nil
}

func TestCreate_S3Client(t *testing.T) {
	rt := &recordingTransport{puts: map[string][]byte{}}
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(t, err)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
	})
	o := New(afero.NewMemMapFs(), WithUploader(client))

	w, err := o.Create(context.Background(), "s3://idr-reports/no_matches.txt")
	require.NoError(t, err)
	_, err = io.WriteString(w, "Homo sapiens\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	body, ok := rt.puts["/idr-reports/no_matches.txt"]
	require.True(t, ok, "PUT issued against the bucket path")
	assert.True(t, strings.Contains(string(body), "Homo sapiens"))
}
