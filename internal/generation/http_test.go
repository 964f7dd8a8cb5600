package generation

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/roomforge/roomforge-backend/internal/apperr"
	"github.com/roomforge/roomforge-backend/internal/auth"
	"github.com/roomforge/roomforge-backend/internal/providers"
)

func handlerRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(auth.CtxUserID, "user-1")
	})
	Register(r.Group(""), svc)
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWriteErrorMapping(t *testing.T) {
	t.Run("validation errors are 400", func(t *testing.T) {
		svc := newTestService(newFakeLedger(), &fakeImages{}, nil, nil, newMemBlob(), 1)
		r := handlerRouter(svc)

		w := postJSON(r, "/generate-image", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("quota exhaustion is 403 with upgrade messaging", func(t *testing.T) {
		ledger := newFakeLedger()
		ledger.checkErr = fmt.Errorf("image quota: %w", apperr.ErrQuotaExceeded)
		svc := newTestService(ledger, &fakeImages{}, nil, nil, newMemBlob(), 1)
		r := handlerRouter(svc)

		w := postJSON(r, "/generate-image", `{"prompt":"x"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "upgrade")
	})

	t.Run("upstream failures are 502", func(t *testing.T) {
		images := &fakeImages{generate: func(context.Context, providers.ImageRequest) (*providers.ImageResult, error) {
			return nil, apperr.Upstream("bria", 500, []byte("boom"))
		}}
		svc := newTestService(newFakeLedger(), images, nil, nil, newMemBlob(), 1)
		r := handlerRouter(svc)

		w := postJSON(r, "/generate-image", `{"prompt":"x"}`)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("missing mesh url is 404", func(t *testing.T) {
		mesh := &fakeMesh{reconstruct: func(context.Context, string) (map[string]any, error) {
			return map[string]any{"status": "ok"}, nil
		}}
		svc := newTestService(newFakeLedger(), nil, nil, mesh, newMemBlob(), 1)
		r := handlerRouter(svc)

		w := postJSON(r, "/generate-3d-model", `{"imageUrl":"https://example.com/a.png"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed bodies are 400", func(t *testing.T) {
		svc := newTestService(newFakeLedger(), &fakeImages{}, nil, nil, newMemBlob(), 1)
		r := handlerRouter(svc)

		w := postJSON(r, "/fibo-render", `{not json`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
