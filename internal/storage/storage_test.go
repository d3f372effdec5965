package storage

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dieworks-backend/internal/model"
)

func TestObjectKey(t *testing.T) {
	key := ObjectKey("1100", `C:\drawings\mandrel.dxf`)
	assert.True(t, strings.HasPrefix(key, "dies/1100/"), key)
	assert.True(t, strings.HasSuffix(key, "_mandrel.dxf"), key)
	assert.NotEqual(t, key, ObjectKey("1100", "mandrel.dxf"))

	key = ObjectKey("A 7/B", "front plate.dxf")
	assert.True(t, strings.HasPrefix(key, "dies/A 7_B/"), key)
	assert.True(t, strings.HasSuffix(key, "_front plate.dxf"), key)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, model.FileKindDXF, KindOf("plate.DXF"))
	assert.Equal(t, model.FileKindDocument, KindOf("certificate.pdf"))
	assert.Equal(t, model.FileKindDocument, KindOf("README"))
}

func TestResolver(t *testing.T) {
	r := Resolver{
		PublicBaseURL: "http://files.local/die-files/",
		DXFViewerURL:  "http://viewer.local/view?theme=dark",
	}

	assert.Equal(t, "http://files.local/die-files/dies/1100/a_plate.dxf", r.FileURL("dies/1100/a_plate.dxf"))

	viewer, err := url.Parse(r.ViewerURL("dies/1100/a_plate.dxf"))
	require.NoError(t, err)
	assert.Equal(t, "viewer.local", viewer.Host)
	assert.Equal(t, "dark", viewer.Query().Get("theme"))
	assert.Equal(t, "http://files.local/die-files/dies/1100/a_plate.dxf", viewer.Query().Get("file"))

	f := model.DieFile{ObjectKey: "dies/1100/b_notes.pdf", Kind: model.FileKindDocument}
	r.Decorate(&f)
	assert.Equal(t, "http://files.local/die-files/dies/1100/b_notes.pdf", f.URL)
	assert.Empty(t, f.ViewerURL, "only DXF files get a viewer link")

	assert.Empty(t, Resolver{}.FileURL("dies/x"))
}

func TestResolver_EscapesKeySegments(t *testing.T) {
	r := Resolver{PublicBaseURL: "http://files.local/die-files"}

	raw := r.FileURL("dies/A 7/c_front plate%.dxf")
	assert.Equal(t, "http://files.local/die-files/dies/A%207/c_front%20plate%25.dxf", raw)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/die-files/dies/A 7/c_front plate%.dxf", u.Path, "the file server decodes back to the stored key")
}
