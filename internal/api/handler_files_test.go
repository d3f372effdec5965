package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dieworks-backend/internal/model"
)

func upload(t *testing.T, s *testServer, dieID int64, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mpw := multipart.NewWriter(&body)
	part, err := mpw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mpw.Close())

	req, err := http.NewRequest(http.MethodPost, "/api/dies/"+itoa(dieID)+"/files", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mpw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestDieFiles(t *testing.T) {
	s := newTestServer(t, newFakeFiles())
	die := s.draftDie("1100")

	w := upload(t, s, die.ID, "profile.DXF", "0\nSECTION\n")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	dxf := decode[model.DieFile](t, w)
	assert.Equal(t, model.FileKindDXF, dxf.Kind)
	assert.True(t, strings.HasPrefix(dxf.ObjectKey, "dies/1100/"))
	assert.Equal(t, "https://files.example/"+dxf.ObjectKey, dxf.URL)
	assert.Contains(t, dxf.ViewerURL, "https://viewer.example/?file=")
	assert.Equal(t, []byte("0\nSECTION\n"), s.files.objects[dxf.ObjectKey])

	w = upload(t, s, die.ID, "certificate.pdf", "%PDF")
	require.Equal(t, http.StatusCreated, w.Code)
	pdf := decode[model.DieFile](t, w)
	assert.Equal(t, model.FileKindDocument, pdf.Kind)
	assert.Empty(t, pdf.ViewerURL)

	w = s.do(http.MethodGet, "/api/dies/"+itoa(die.ID)+"/files", nil)
	require.Equal(t, http.StatusOK, w.Code)
	files := decode[[]model.DieFile](t, w)
	require.Len(t, files, 2)
	assert.NotEmpty(t, files[0].URL)

	w = s.do(http.MethodDelete, "/api/dies/"+itoa(die.ID)+"/files/"+itoa(pdf.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{pdf.ObjectKey}, s.files.removed)

	w = s.do(http.MethodDelete, "/api/dies/"+itoa(die.ID)+"/files/"+itoa(pdf.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodDelete, "/api/dies/"+itoa(die.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{pdf.ObjectKey, dxf.ObjectKey}, s.files.removed, "deleting the die removes its objects")
	assert.Empty(t, s.files.objects)
}

func TestDieFiles_Errors(t *testing.T) {
	s := newTestServer(t, newFakeFiles())

	w := upload(t, s, 404, "a.dxf", "x")
	assert.Equal(t, http.StatusNotFound, w.Code)

	die := s.draftDie("1100")
	w = s.do(http.MethodPost, "/api/dies/"+itoa(die.ID)+"/files", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	noStorage := newTestServer(t, nil)
	w = upload(t, noStorage, 1, "a.dxf", "x")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
