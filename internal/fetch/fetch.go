// Package fetch opens import source objects by URI: local paths, file://,
// http(s)://, s3://bucket/key and gs://bucket/object.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

// ErrNotExist is returned when the object does not exist.
var ErrNotExist = errors.New("source object does not exist")

// Opener opens source objects. The zero value uses http.DefaultClient and
// lazily creates cloud clients on first use.
type Opener struct {
	HTTPClient *http.Client
	// S3Client replaces the client built from the default AWS config.
	S3Client *s3.Client

	s3Once sync.Once
	s3     *s3.Client
	s3Err  error
}

var defaultOpener = &Opener{}

// Open opens uri with the default Opener.
func Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	return defaultOpener.Open(ctx, uri)
}

// Open returns a reader for uri. The caller must close it.
func (o *Opener) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Plain path (a one-letter scheme is a Windows drive).
		return openFile(uri)
	}

	switch u.Scheme {
	case "file":
		return openFile(u.Path)
	case "http", "https":
		return o.openHTTP(ctx, uri)
	case "s3":
		return o.openS3(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
	case "gs":
		return openGCS(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
	default:
		return nil, fmt.Errorf("unsupported source scheme %q", u.Scheme)
	}
}

// Join appends name to a base location, keeping the base's scheme.
func Join(base, name string) string {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		return filepath.Join(base, name)
	}
	u.Path = path.Join(u.Path, name)
	return u.String()
}

func openFile(p string) (io.ReadCloser, error) {
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, p)
		}
		return nil, err
	}
	return f, nil
}

func (o *Opener) openHTTP(ctx context.Context, uri string) (io.ReadCloser, error) {
	client := o.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotExist, uri)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status code %d", uri, resp.StatusCode)
	}
	return resp.Body, nil
}

func (o *Opener) s3Client(ctx context.Context) (*s3.Client, error) {
	o.s3Once.Do(func() {
		if o.S3Client != nil {
			o.s3 = o.S3Client
			return
		}
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			o.s3Err = fmt.Errorf("failed to load AWS config: %w", err)
			return
		}
		o.s3 = s3.NewFromConfig(cfg)
	})
	return o.s3, o.s3Err
}

func (o *Opener) openS3(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	client, err := o.s3Client(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrNotExist, bucket, key)
		}
		return nil, fmt.Errorf("s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

// gcsReader closes the storage client together with the object reader.
type gcsReader struct {
	*storage.Reader
	client *storage.Client
}

func (r gcsReader) Close() error {
	err := r.Reader.Close()
	if cerr := r.client.Close(); err == nil {
		err = cerr
	}
	return err
}

func openGCS(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		logrus.WithError(err).Debug("error creating storage client")
		return nil, err
	}
	reader, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		client.Close()
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: gs://%s/%s", ErrNotExist, bucket, object)
		}
		return nil, fmt.Errorf("gs://%s/%s: %w", bucket, object, err)
	}
	return gcsReader{Reader: reader, client: client}, nil
}
