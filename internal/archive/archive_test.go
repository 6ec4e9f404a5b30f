package archive

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/signalist/internal/config"
)

type fakeUploader struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.input = input
	data, _ := io.ReadAll(input.Body)
	f.body = string(data)
	if f.err != nil {
		return nil, f.err
	}
	return &manager.UploadOutput{Key: input.Key}, nil
}

func TestKey(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)
	date := time.Date(2025, 3, 10, 22, 0, 0, 0, loc)

	assert.Equal(t, "digests/2025-03-11/user-1.html", Key(date, "user-1"))
}

func TestStore(t *testing.T) {
	up := &fakeUploader{}
	a := New(up, "signalist-digests", zerolog.Nop())

	key, err := a.Store(context.Background(), time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), "u1", "<p>digest</p>")
	require.NoError(t, err)

	assert.Equal(t, "digests/2025-03-10/u1.html", key)
	require.NotNil(t, up.input)
	assert.Equal(t, "signalist-digests", aws.ToString(up.input.Bucket))
	assert.Equal(t, key, aws.ToString(up.input.Key))
	assert.Equal(t, "text/html; charset=utf-8", aws.ToString(up.input.ContentType))
	assert.Equal(t, "<p>digest</p>", up.body)
}

func TestStore_Error(t *testing.T) {
	a := New(&fakeUploader{err: errors.New("denied")}, "b", zerolog.Nop())

	_, err := a.Store(context.Background(), time.Now(), "u1", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}

func TestNewFromConfig_Disabled(t *testing.T) {
	a, err := NewFromConfig(context.Background(), config.ArchiveConfig{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestNewFromConfig_Enabled(t *testing.T) {
	a, err := NewFromConfig(context.Background(), config.ArchiveConfig{
		Bucket:          "digests",
		Endpoint:        "https://account.r2.cloudflarestorage.com",
		Region:          "auto",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	}, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "digests", a.bucket)
}
