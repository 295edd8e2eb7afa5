package cloudinary

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)
	require.False(t, Config{APIKey: "k", APISecret: "s"}.Configured())
	require.True(t, Config{CloudName: "c", APIKey: "k", APISecret: "s"}.Configured())
}

func TestBuildPublicID(t *testing.T) {
	now := time.Unix(0, 42)

	require.Equal(t, "parcel-photo-42", buildPublicID("parcel photo.JPG", now))
	require.Equal(t, "attachment-42", buildPublicID("???.png", now))
}
