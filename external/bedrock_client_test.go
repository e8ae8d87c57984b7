package external

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventStream_SkipsFramingAndBlankLines(t *testing.T) {
	body := io.NopCloser(strings.NewReader(
		"data: {\"delta\":{\"text\":\"A\"}}\n" +
			"\n" +
			"{\"delta\":{\"text\":\"B\"}}\n"))
	stream := newEventStream(body)

	chunk, err := stream.Recv()
	require.NoError(t, err)
	assert.JSONEq(t, `{"delta":{"text":"A"}}`, string(chunk))

	chunk, err = stream.Recv()
	require.NoError(t, err)
	assert.JSONEq(t, `{"delta":{"text":"B"}}`, string(chunk))

	_, err = stream.Recv()
	assert.Equal(t, io.EOF, err)
	assert.NoError(t, stream.Close())
}

func TestAPIError_CodeStripsSuffix(t *testing.T) {
	err := &apiError{
		status:  429,
		code:    "ThrottlingException:http://internal/aws",
		message: "Too many requests",
		reqID:   "req-1",
	}

	assert.Equal(t, "ThrottlingException", err.ErrorCode())
	assert.Equal(t, "Too many requests", err.ErrorMessage())
	assert.Equal(t, "req-1", err.ServiceRequestID())
	assert.Contains(t, err.Error(), "429")
}
