package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/dayoff-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestListAddsCount(t *testing.T) {
	c, w := newContext()
	List(c, []string{"a", "b"}, 2, map[string]interface{}{"sort": "desc"})

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []string               `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"a", "b"}, body.Data)
	assert.EqualValues(t, 2, body.Meta["count"])
	assert.Equal(t, "desc", body.Meta["sort"])
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestErrorUsesAppErrorStatus(t *testing.T) {
	c, w := newContext()
	Error(c, appErrors.Clone(appErrors.ErrNotReviewerTurn, "not your turn"))
	assert.Equal(t, http.StatusConflict, w.Code)

	c, w = newContext()
	Error(c, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAttachmentSetsDisposition(t *testing.T) {
	c, w := newContext()
	Attachment(c, "archive.csv", "text/csv", []byte("id\n"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="archive.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "id\n", w.Body.String())
}
