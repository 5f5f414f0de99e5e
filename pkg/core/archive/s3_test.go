package archive

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Archive_Put(t *testing.T) {
	client := &fakeS3{}
	a, err := NewWithClient(client, "reports-bucket", "research/")
	require.NoError(t, err)
	a.now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC) }

	key := a.Key("NVIDIA Corp", "2023q1..2023q4", "html")
	assert.Equal(t, "research/nvidia-corp/2023q1..2023q4/20240501T123000Z.html", key)

	loc, err := a.Put(context.Background(), key, []byte("<h1>report</h1>"), "text/html")
	require.NoError(t, err)
	assert.Equal(t, "s3://reports-bucket/"+key, loc)
	assert.Equal(t, "reports-bucket", awssdk.ToString(client.input.Bucket))
	assert.Equal(t, "text/html", awssdk.ToString(client.input.ContentType))
	assert.Equal(t, "<h1>report</h1>", string(client.body))
}

func TestS3Archive_Errors(t *testing.T) {
	_, err := NewWithClient(&fakeS3{}, "", "")
	assert.ErrorIs(t, err, ErrNoBucket)

	a, err := NewWithClient(&fakeS3{err: errors.New("access denied")}, "b", "")
	require.NoError(t, err)
	_, err = a.Put(context.Background(), "k.md", []byte("x"), "text/markdown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
