package naming

import (
	"testing"
	"time"

	"field_uploader/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeTestImage(t *testing.T) {
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, JST)
	id := "3f1c9a2e-6d8b-4c1e-9a55-0b7d2f4e8c61"

	name, err := Compose(TestImage, Keys{TrayID: "T1"}, ts, id, ".jpg")
	require.NoError(t, err)
	assert.Equal(t, "T1_2024-06-01T10-00-00_"+id+".jpg", name)
}

func TestComposeHabitatImage(t *testing.T) {
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, JST)

	name, err := Compose(HabitatImage, Keys{TrayID: "T9"}, ts, "ignored", ".jpg")
	require.NoError(t, err)
	assert.Equal(t, "T9_2024-06-01T10-00-00.jpg", name)
}

func TestComposeRendersInJST(t *testing.T) {
	ts := time.Date(2024, 6, 1, 1, 0, 0, 999, time.UTC)

	name, err := Compose(HabitatImage, Keys{TrayID: "T9"}, ts, "", ".png")
	require.NoError(t, err)
	assert.Equal(t, "T9_2024-06-01T10-00-00.png", name)
}

func TestComposeIsDeterministic(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, JST)
	first, err := Compose(TestImage, Keys{TrayID: "A-7"}, ts, "abc", ".heic")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := Compose(TestImage, Keys{TrayID: "A-7"}, ts, "abc", ".heic")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestComposeRejectsMissingKeys(t *testing.T) {
	ts := time.Now()

	_, err := Compose(TestImage, Keys{}, ts, "abc", ".jpg")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = Compose(TestImage, Keys{TrayID: "T1"}, ts, "", ".jpg")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = Compose(HabitatImage, Keys{TrayID: "../T1"}, ts, "", ".jpg")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestNewCorrelationID(t *testing.T) {
	a, b := NewCorrelationID(), NewCorrelationID()
	assert.NotEqual(t, a, b)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".jpg", Extension("photo.jpg"))
	assert.Equal(t, ".gz", Extension("dir/archive.tar.gz"))
	assert.Equal(t, "", Extension("noext"))
}
