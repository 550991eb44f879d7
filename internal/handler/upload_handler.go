package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	apperrors "github.com/sumicowork/HOYODB/internal/errors"
	"github.com/sumicowork/HOYODB/internal/response"
	"github.com/sumicowork/HOYODB/internal/service/upload"
)

const octetStream = "application/octet-stream"

// UploadHandler 存储维护处理器
type UploadHandler struct {
	uploadService upload.UploadService
}

// NewUploadHandler 创建上传处理器实例
func NewUploadHandler(uploadService upload.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// DeleteFileRequest 删除文件请求
type DeleteFileRequest struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
}

// detectContentType 客户端未声明类型时根据文件内容识别
func detectContentType(declared string, f io.ReadSeeker) string {
	ct := mediaType(declared)
	if ct != "" && ct != octetStream {
		return ct
	}

	mt, err := mimetype.DetectReader(f)
	if _, seekErr := f.Seek(0, io.SeekStart); seekErr != nil || err != nil {
		return octetStream
	}
	return mediaType(mt.String())
}

func mediaType(ct string) string {
	ct, _, _ = strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

// openPayload 打开表单文件，调用方负责关闭返回的文件
func openPayload(fh *multipart.FileHeader) (*upload.FilePayload, multipart.File, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrFileReadFailed, "文件读取失败", err)
	}
	return &upload.FilePayload{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: detectContentType(fh.Header.Get("Content-Type"), f),
		Body:        f,
	}, f, nil
}

// Upload 上传单个文件
// @Summary 上传文件
// @Tags 存储
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "文件"
// @Param gameSlug formData string true "游戏slug"
// @Param categorySlug formData string false "分类slug"
// @Success 200 {object} response.Response{data=upload.UploadResult} "文件上传成功"
// @Router /api/upload/upload [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, apperrors.New(apperrors.ErrFileMissing, "没有上传文件"))
		return
	}

	payload, f, err := openPayload(fh)
	if err != nil {
		response.Fail(c, err)
		return
	}
	defer f.Close()

	result, err := h.uploadService.UploadFile(c.Request.Context(), c.PostForm("gameSlug"), c.PostForm("categorySlug"), payload)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "文件上传成功", result)
}

// UploadBatch 批量上传，单个文件失败不影响其他文件
// @Summary 批量上传
// @Tags 存储
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param files formData file true "文件"
// @Param gameSlug formData string true "游戏slug"
// @Success 200 {object} response.Response{data=upload.BatchResult} "批量上传完成"
// @Router /api/upload/batch [post]
func (h *UploadHandler) UploadBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		response.Fail(c, apperrors.New(apperrors.ErrFileMissing, "没有上传文件"))
		return
	}

	headers := form.File["files"]
	payloads := make([]*upload.FilePayload, 0, len(headers))
	for _, fh := range headers {
		payload, f, err := openPayload(fh)
		if err != nil {
			response.Fail(c, err)
			return
		}
		defer f.Close()
		payloads = append(payloads, payload)
	}

	result, err := h.uploadService.UploadBatch(c.Request.Context(), c.PostForm("gameSlug"), c.PostForm("categorySlug"), payloads)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "批量上传完成", result)
}

// DeleteFile 删除存储中的文件
// @Summary 删除文件
// @Tags 存储
// @Accept json
// @Security BearerAuth
// @Param body body DeleteFileRequest true "文件位置"
// @Success 200 {object} response.Response "文件删除成功"
// @Router /api/upload/delete [delete]
func (h *UploadHandler) DeleteFile(c *gin.Context) {
	var req DeleteFileRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.uploadService.DeleteFile(c.Request.Context(), req.Path, req.Filename); err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "文件删除成功", nil)
}

// ListFiles 列出目录内容
// @Summary 目录列表
// @Tags 存储
// @Security BearerAuth
// @Param path query string false "目录" default(/)
// @Success 200 {object} response.Response{data=[]upload.FileEntry} "获取成功"
// @Router /api/upload/list [get]
func (h *UploadHandler) ListFiles(c *gin.Context) {
	entries, err := h.uploadService.List(c.Request.Context(), c.DefaultQuery("path", "/"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, entries)
}

// StorageInfo 存储空间使用情况
// @Summary 存储空间
// @Tags 存储
// @Security BearerAuth
// @Success 200 {object} response.Response{data=upload.StorageInfo} "获取成功"
// @Router /api/upload/storage [get]
func (h *UploadHandler) StorageInfo(c *gin.Context) {
	info, err := h.uploadService.StorageInfo(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	if info == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": nil, "message": "无法获取存储信息"})
		return
	}
	response.Success(c, info)
}

// Status 存储连接状态
// @Summary 存储状态
// @Tags 存储
// @Security BearerAuth
// @Success 200 {object} response.Response{data=upload.Status} "获取成功"
// @Router /api/upload/status [get]
func (h *UploadHandler) Status(c *gin.Context) {
	response.Success(c, h.uploadService.Status(c.Request.Context()))
}
