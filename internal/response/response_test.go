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

	apperrors "github.com/sumicowork/HOYODB/internal/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(t *testing.T, lang string, handler gin.HandlerFunc) (int, map[string]interface{}) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/test", nil)
	if lang != "" {
		c.Request.Header.Set("Accept-Language", lang)
	}
	handler(c)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestSuccess(t *testing.T) {
	code, body := perform(t, "", func(c *gin.Context) {
		SuccessWithPage(c, []int{1, 2}, map[string]int{"page": 1})
	})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["data"], 2)
	assert.NotNil(t, body["pagination"])
	assert.NotContains(t, body, "message")

	code, body = perform(t, "", func(c *gin.Context) { Created(c, map[string]int{"id": 1}) })
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, true, body["success"])
}

func TestFail(t *testing.T) {
	t.Run("业务错误保留自定义消息", func(t *testing.T) {
		code, body := perform(t, "en-US", func(c *gin.Context) {
			Fail(c, apperrors.New(apperrors.ErrInvalidParams, "游戏ID、分类ID和标题不能为空"))
		})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "游戏ID、分类ID和标题不能为空", body["message"])
	})

	t.Run("默认消息按语言翻译", func(t *testing.T) {
		_, zh := perform(t, "zh-CN", func(c *gin.Context) { Fail(c, apperrors.New(apperrors.ErrMaterialNotFound, "")) })
		_, en := perform(t, "en-US,en;q=0.9", func(c *gin.Context) { Fail(c, apperrors.New(apperrors.ErrMaterialNotFound, "")) })
		assert.NotEqual(t, zh["message"], en["message"])
	})

	t.Run("上游错误不暴露细节", func(t *testing.T) {
		code, body := perform(t, "", func(c *gin.Context) {
			Fail(c, apperrors.Wrap(apperrors.ErrDatabaseInsert, "创建素材失败", errors.New("UNIQUE constraint failed: secret_table.col")))
		})
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.NotContains(t, body["message"], "secret_table")
	})

	t.Run("未知错误按500处理", func(t *testing.T) {
		code, body := perform(t, "", func(c *gin.Context) { Fail(c, errors.New("boom")) })
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.NotEqual(t, "boom", body["message"])
	})

	t.Run("仍被引用返回409", func(t *testing.T) {
		code, _ := perform(t, "", func(c *gin.Context) { Fail(c, apperrors.New(apperrors.ErrResourceInUse, "标签仍被素材使用，无法删除")) })
		assert.Equal(t, http.StatusConflict, code)
	})
}
