package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	puts      []*s3.PutObjectInput
	body      []byte
	deletes   []string
	deleteErr error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, in)
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, f.deleteErr
}

func TestReviewKey(t *testing.T) {
	now := time.UnixMilli(1704067200000)
	key := ReviewKey("abc-123", "my review.pdf", now)

	assert.Equal(t, "reviews/abc-123/1704067200000_my_review.pdf", key)
	assert.True(t, strings.HasPrefix(key, ReviewPrefix("abc-123")))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "notes.txt", SanitizeFilename("../../etc/notes.txt"))
	assert.Equal(t, "file.docx", SanitizeFilename(`C:\Users\me\file.docx`))
	assert.Equal(t, "review", SanitizeFilename(""))
	assert.Equal(t, "review", SanitizeFilename(".."))
	assert.Equal(t, "ab", SanitizeFilename("a\x00b"))
}

func TestS3StorePut(t *testing.T) {
	fake := &fakeS3{}
	store := &S3Store{client: fake, bucket: "paper-reviews", endpoint: "https://acc.r2.cloudflarestorage.com/"}

	url, err := store.Put(context.Background(), "reviews/p1/1_r.pdf", []byte("%PDF"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "https://acc.r2.cloudflarestorage.com/paper-reviews/reviews/p1/1_r.pdf", url)
	require.Len(t, fake.puts, 1)
	assert.Equal(t, "application/pdf", aws.ToString(fake.puts[0].ContentType))
	assert.Equal(t, "paper-reviews", aws.ToString(fake.puts[0].Bucket))
	assert.Equal(t, []byte("%PDF"), fake.body)
}

func TestS3StoreDelete(t *testing.T) {
	t.Run("missing key is not an error", func(t *testing.T) {
		fake := &fakeS3{deleteErr: &types.NoSuchKey{}}
		store := &S3Store{client: fake, bucket: "b"}
		assert.NoError(t, store.Delete(context.Background(), "reviews/p1/x"))
		assert.Equal(t, []string{"reviews/p1/x"}, fake.deletes)
	})

	t.Run("other errors propagate", func(t *testing.T) {
		fake := &fakeS3{deleteErr: errors.New("boom")}
		store := &S3Store{client: fake, bucket: "b"}
		assert.Error(t, store.Delete(context.Background(), "reviews/p1/x"))
	})
}

func TestSplitEndpoint(t *testing.T) {
	host, secure := splitEndpoint("https://minio.local:9000/", false)
	assert.Equal(t, "minio.local:9000", host)
	assert.True(t, secure)

	host, secure = splitEndpoint("http://localhost:9000", true)
	assert.Equal(t, "localhost:9000", host)
	assert.False(t, secure)

	host, secure = splitEndpoint("minio:9000", true)
	assert.Equal(t, "minio:9000", host)
	assert.True(t, secure)
}
