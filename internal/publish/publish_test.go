package publish

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zebrafishlab/fishviz/internal/config"
)

func writeOutputs(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"fig.html": "<html></html>",
		"fig.svg":  "<svg/>",
	}
	var paths []string
	for _, name := range []string{"fig.html", "fig.svg"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(files[name]), 0o644))
		paths = append(paths, p)
	}
	return paths
}

func TestKey(t *testing.T) {
	k, err := Key("", "/tmp/out/fig.html")
	require.NoError(t, err)
	assert.Equal(t, "fig.html", k)

	k, err = Key("/lab/runs/", "fig.svg")
	require.NoError(t, err)
	assert.Equal(t, "lab/runs/fig.svg", k)

	_, err = Key("../up", "fig.svg")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = Key("", "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/html; charset=utf-8", ContentType("a.HTML"))
	assert.Equal(t, "image/svg+xml", ContentType("a.svg"))
	assert.Contains(t, ContentType("a.xlsx"), "spreadsheetml")
	assert.Equal(t, "application/octet-stream", ContentType("a.bin"))
}

func TestFSPublish(t *testing.T) {
	paths := writeOutputs(t)
	root := filepath.Join(t.TempDir(), "shared")

	p, err := New(context.Background(), config.PublishConfig{Driver: config.DriverFS, Dir: root, Prefix: "day4"})
	require.NoError(t, err)
	assert.Equal(t, config.DriverFS, p.Driver())

	got, err := p.Publish(context.Background(), paths)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(root, "day4", "fig.html"),
		filepath.Join(root, "day4", "fig.svg"),
	}, got)

	data, err := os.ReadFile(got[1])
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(data))

	// republishing overwrites
	require.NoError(t, os.WriteFile(paths[1], []byte("<svg>2</svg>"), 0o644))
	_, err = p.Publish(context.Background(), paths)
	require.NoError(t, err)
	data, _ = os.ReadFile(got[1])
	assert.Equal(t, "<svg>2</svg>", string(data))

	entries, _ := os.ReadDir(filepath.Join(root, "day4"))
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestFSPublishMissingSource(t *testing.T) {
	p, err := NewFS(t.TempDir(), "")
	require.NoError(t, err)
	_, err = p.Publish(context.Background(), []string{filepath.Join(t.TempDir(), "nope.html")})
	assert.Error(t, err)
}

func TestFSPublishCanceled(t *testing.T) {
	p, err := NewFS(t.TempDir(), "")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Publish(ctx, writeOutputs(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.PublishConfig{Driver: "ftp"})
	assert.Error(t, err)
}

func TestNewS3NeedsBucket(t *testing.T) {
	_, err := NewS3(context.Background(), config.PublishConfig{Driver: config.DriverS3})
	assert.Error(t, err)
}

func TestNewS3StaticCredentials(t *testing.T) {
	p, err := NewS3(context.Background(), config.PublishConfig{
		Driver:    config.DriverS3,
		Bucket:    "lab",
		Endpoint:  "http://localhost:9000",
		PathStyle: true,
	}, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")))
	require.NoError(t, err)
	assert.Equal(t, config.DriverS3, p.Driver())
}

type object struct {
	body        []byte
	contentType string
}

// bucketTransport is an in-memory path-style S3 that accepts PUTs.
type bucketTransport struct {
	mu      sync.Mutex
	objects map[string]object
	fail    bool
}

func (b *bucketTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	empty := io.NopCloser(bytes.NewReader(nil))
	if req.Method != http.MethodPut {
		return &http.Response{StatusCode: http.StatusNotImplemented, Body: empty, Header: http.Header{}}, nil
	}
	if b.fail {
		body := `<?xml version="1.0"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`
		return &http.Response{StatusCode: http.StatusForbidden, Body: io.NopCloser(strings.NewReader(body)),
			Header: http.Header{"Content-Type": {"application/xml"}}}, nil
	}
	body, _ := io.ReadAll(req.Body)
	if dec, ok := decodeChunked(body); ok {
		body = dec
	}
	b.mu.Lock()
	b.objects[strings.TrimPrefix(req.URL.Path, "/")] = object{body: body, contentType: req.Header.Get("Content-Type")}
	b.mu.Unlock()
	return &http.Response{StatusCode: http.StatusOK, Body: empty, Header: http.Header{"ETag": {`"etag"`}}}, nil
}

// decodeChunked unwraps a single-chunk aws-chunked payload.
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 || parts[2] != "0" {
		return nil, false
	}
	size, err := strconv.ParseInt(parts[0], 16, 64)
	if err != nil || int64(len(parts[1])) != size {
		return nil, false
	}
	return []byte(parts[1]), true
}

func mockS3(t *testing.T, rt *bucketTransport) *s3.Client {
	t.Helper()
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(t, err)
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.RetryMaxAttempts = 1
	})
}

func TestS3Publish(t *testing.T) {
	rt := &bucketTransport{objects: map[string]object{}}
	p := NewS3FromClient(mockS3(t, rt), "lab", "runs/2024")

	got, err := p.Publish(context.Background(), writeOutputs(t))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"s3://lab/runs/2024/fig.html",
		"s3://lab/runs/2024/fig.svg",
	}, got)

	html, ok := rt.objects["lab/runs/2024/fig.html"]
	require.True(t, ok, "keys: %v", rt.objects)
	assert.Equal(t, "<html></html>", string(html.body))
	assert.Equal(t, "text/html; charset=utf-8", html.contentType)
	assert.Equal(t, "image/svg+xml", rt.objects["lab/runs/2024/fig.svg"].contentType)
}

func TestS3PublishError(t *testing.T) {
	rt := &bucketTransport{objects: map[string]object{}, fail: true}
	p := NewS3FromClient(mockS3(t, rt), "lab", "")

	_, err := p.Publish(context.Background(), writeOutputs(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fig.")
}
