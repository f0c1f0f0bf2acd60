package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/fullstorydev/emulators/storage/gcsemu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestOpenLocalFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "obs.csv")
	require.NoError(t, os.WriteFile(p, []byte("a,b\n1,2\n"), 0o644))

	rc, err := Open(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", readAll(t, rc))

	rc, err = Open(context.Background(), "file://"+p)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", readAll(t, rc))

	_, err = Open(context.Background(), filepath.Join(dir, "missing.csv"))
	assert.True(t, errors.Is(err, ErrNotExist))
}

func TestOpenHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/logs/Jan24log.txt":
			_, _ = w.Write([]byte("log"))
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	o := &Opener{HTTPClient: srv.Client()}

	rc, err := o.Open(context.Background(), Join(srv.URL+"/logs", "Jan24log.txt"))
	require.NoError(t, err)
	assert.Equal(t, "log", readAll(t, rc))

	_, err = o.Open(context.Background(), srv.URL+"/nope")
	assert.True(t, errors.Is(err, ErrNotExist))

	_, err = o.Open(context.Background(), srv.URL+"/broken")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotExist))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "s3://bucket/logs/Feb24log.txt", Join("s3://bucket/logs", "Feb24log.txt"))
	assert.Equal(t, "gs://b/Feb24log.txt", Join("gs://b", "Feb24log.txt"))
	assert.Equal(t, filepath.Join("data", "cumulus", "Feb24log.txt"), Join("data/cumulus", "Feb24log.txt"))
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	_, err := Open(context.Background(), "ftp://host/file")
	assert.Error(t, err)
}

func TestOpenS3(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wx-bucket/cumulus/May24log.txt":
			_, _ = w.Write([]byte("01/05/24,00:00,12.3"))
		default:
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
				`<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
		}
	}))
	defer srv.Close()

	client := s3.NewFromConfig(aws.Config{
		Region:      "us-east-1",
		Credentials: aws.AnonymousCredentials{},
		HTTPClient:  srv.Client(),
	}, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(srv.URL)
		o.UsePathStyle = true
	})
	o := &Opener{S3Client: client}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rc, err := o.Open(context.Background(), "s3://wx-bucket/cumulus/May24log.txt")
			if !assert.NoError(t, err) {
				return
			}
			defer rc.Close()
			b, err := io.ReadAll(rc)
			assert.NoError(t, err)
			assert.Equal(t, "01/05/24,00:00,12.3", string(b))
		}()
	}
	wg.Wait()

	_, err := o.Open(context.Background(), Join("s3://wx-bucket/cumulus", "Jun24log.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotExist))
}

func TestOpenGCS(t *testing.T) {
	svr, err := gcsemu.NewServer("127.0.0.1:9024", gcsemu.Options{})
	require.NoError(t, err)
	defer svr.Close()
	t.Setenv("STORAGE_EMULATOR_HOST", "http://127.0.0.1:9024")

	ctx := context.Background()
	client, err := storage.NewClient(ctx)
	require.NoError(t, err)
	defer client.Close()

	bucket := client.Bucket("wx-bucket")
	require.NoError(t, bucket.Create(ctx, "wx-project", nil))
	w := bucket.Object("csv/station.csv").NewWriter(ctx)
	_, err = w.Write([]byte("dateTime,outTemp\n1714564800,12.3\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	rc, err := Open(ctx, "gs://wx-bucket/csv/station.csv")
	require.NoError(t, err)
	assert.Equal(t, "dateTime,outTemp\n1714564800,12.3\n", readAll(t, rc))

	_, err = Open(ctx, "gs://wx-bucket/csv/missing.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotExist))
}
