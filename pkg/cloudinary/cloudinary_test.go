package cloudinary

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestBuildPublicID(t *testing.T) {
	now := time.Unix(1700000000, 0)
	require.Equal(t, "My-Essay-v2-1700000000", BuildPublicID("My Essay v2.pdf", now))
	require.Equal(t, "upload-1700000000", BuildPublicID("...", now))
	require.Equal(t, "report-1700000000", BuildPublicID("../../report.txt", now))
}

func TestNewUploaderFallsBackToDisabled(t *testing.T) {
	uploader, err := NewUploader(Config{}, zerolog.Nop())
	require.NoError(t, err)

	_, err = uploader.Upload(context.Background(), "a.pdf", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrUploadsDisabled)
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)
}
