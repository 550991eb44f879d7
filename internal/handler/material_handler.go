package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sumicowork/HOYODB/internal/database"
	"github.com/sumicowork/HOYODB/internal/response"
	"github.com/sumicowork/HOYODB/internal/service/material"
	"github.com/sumicowork/HOYODB/internal/service/upload"
)

// MaterialHandler 素材处理器
// 带文件创建素材时交给上传服务处理，其余操作直接调用素材服务
type MaterialHandler struct {
	materialService material.MaterialService
	uploadService   upload.UploadService
}

// NewMaterialHandler 创建素材处理器实例
// 参数:
//   materialService - 素材服务接口
//   uploadService - 上传服务接口
// 返回:
//   *MaterialHandler - 素材处理器实例
func NewMaterialHandler(materialService material.MaterialService, uploadService upload.UploadService) *MaterialHandler {
	return &MaterialHandler{
		materialService: materialService,
		uploadService:   uploadService,
	}
}

// listFilter 从查询参数构造筛选条件
func listFilter(c *gin.Context) (material.ListFilter, bool) {
	filter := material.ListFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Sort:   c.Query("sort"),
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
		Status: database.MaterialStatus(c.Query("status")),
	}

	var ok bool
	if filter.GameID, ok = queryID(c, "gameId"); !ok {
		return filter, false
	}
	if filter.CategoryID, ok = queryID(c, "categoryId"); !ok {
		return filter, false
	}
	if filter.TagID, ok = queryID(c, "tagId"); !ok {
		return filter, false
	}
	if c.Query("featured") == "true" {
		featured := true
		filter.Featured = &featured
	}
	return filter, true
}

// ListMaterials 前台素材列表，只返回已发布的素材
// @Summary 素材列表
// @Description 支持按游戏、分类、标签、关键字、精选筛选，sort 为 latest 或 popular
// @Tags 素材
// @Produce json
// @Param gameId query int false "游戏ID"
// @Param categoryId query int false "分类ID"
// @Param tagId query int false "标签ID"
// @Param search query string false "标题或描述关键字"
// @Param featured query bool false "仅精选"
// @Param sort query string false "排序" Enums(latest, popular)
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=[]database.Material,pagination=material.Pagination} "获取成功"
// @Router /api/materials [get]
func (h *MaterialHandler) ListMaterials(c *gin.Context) {
	filter, ok := listFilter(c)
	if !ok {
		return
	}

	result, err := h.materialService.ListPublic(c.Request.Context(), filter)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithPage(c, result.Materials, result.Pagination)
}

// GetMaterial 前台素材详情
// @Summary 素材详情
// @Tags 素材
// @Produce json
// @Param id path int true "素材ID"
// @Success 200 {object} response.Response{data=database.Material} "获取成功"
// @Failure 404 {object} response.Response "素材不存在"
// @Router /api/materials/{id} [get]
func (h *MaterialHandler) GetMaterial(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	m, err := h.materialService.GetPublic(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, m)
}

// RecordDownload 记录一次下载
// @Summary 记录下载
// @Tags 素材
// @Produce json
// @Param id path int true "素材ID"
// @Success 200 {object} response.Response "下载记录已保存"
// @Failure 404 {object} response.Response "素材不存在"
// @Router /api/materials/{id}/download [post]
func (h *MaterialHandler) RecordDownload(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.materialService.RecordDownload(c.Request.Context(), id, c.ClientIP(), c.Request.UserAgent()); err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "下载记录已保存", nil)
}

// AdminListMaterials 管理端素材列表，可按状态筛选
// @Summary 管理端素材列表
// @Tags 管理-素材
// @Produce json
// @Security BearerAuth
// @Param status query string false "状态" Enums(DRAFT, PUBLISHED, ARCHIVED)
// @Success 200 {object} response.Response{data=[]database.Material,pagination=material.Pagination} "获取成功"
// @Router /api/admin/materials [get]
func (h *MaterialHandler) AdminListMaterials(c *gin.Context) {
	filter, ok := listFilter(c)
	if !ok {
		return
	}

	result, err := h.materialService.ListAdmin(c.Request.Context(), filter)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithPage(c, result.Materials, result.Pagination)
}

// AdminGetMaterial 管理端素材详情，不限状态
// @Summary 管理端素材详情
// @Tags 管理-素材
// @Security BearerAuth
// @Param id path int true "素材ID"
// @Success 200 {object} response.Response{data=database.Material} "获取成功"
// @Router /api/admin/materials/{id} [get]
func (h *MaterialHandler) AdminGetMaterial(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	m, err := h.materialService.Get(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, m)
}

// CreateMaterial 使用已有文件地址创建素材
// @Summary 创建素材
// @Tags 管理-素材
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param material body material.CreateMaterialRequest true "创建素材请求"
// @Success 201 {object} response.Response{data=database.Material} "创建成功"
// @Failure 400 {object} response.Response "请求参数错误"
// @Router /api/admin/materials [post]
func (h *MaterialHandler) CreateMaterial(c *gin.Context) {
	var req material.CreateMaterialRequest
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.materialService.CreateMaterial(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, created)
}

// CreateMaterialWithUpload 上传文件并创建素材
// @Summary 上传并创建素材
// @Description 文件写入 {gameSlug}/{categorySlug}，数据库写入失败时删除已上传的文件
// @Tags 管理-素材
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file false "素材文件"
// @Param gameId formData int true "游戏ID"
// @Param gameSlug formData string false "游戏slug，上传文件时必填"
// @Param categoryId formData int true "分类ID"
// @Param categorySlug formData string false "分类slug"
// @Param title formData string true "标题"
// @Param tagIds formData string false "标签ID，JSON数组"
// @Success 201 {object} response.Response{data=database.Material} "创建成功"
// @Failure 400 {object} response.Response "请求参数错误"
// @Failure 502 {object} response.Response "存储上传失败"
// @Router /api/admin/materials/with-upload [post]
func (h *MaterialHandler) CreateMaterialWithUpload(c *gin.Context) {
	form := newFormReader(c)
	req := &upload.CreateWithUploadRequest{
		GameID:       form.uintField("gameId"),
		GameSlug:     strings.TrimSpace(c.PostForm("gameSlug")),
		CategoryID:   form.uintField("categoryId"),
		CategorySlug: strings.TrimSpace(c.PostForm("categorySlug")),
		Title:        c.PostForm("title"),
		Description:  form.stringField("description"),
		Duration:     form.intField("duration"),
		Resolution:   form.stringField("resolution"),
		Version:      form.stringField("version"),
		IsFeatured:   form.boolField("isFeatured"),
		Status:       database.MaterialStatus(c.PostForm("status")),
		TagIDs:       form.tagIDs(),
		FilePath:     c.PostForm("filePath"),
		FileSize:     form.int64Field("fileSize"),
		FileType:     c.PostForm("fileType"),
	}
	if !form.valid() {
		return
	}

	fh, err := c.FormFile("file")
	switch {
	case err == nil:
		payload, f, err := openPayload(fh)
		if err != nil {
			response.Fail(c, err)
			return
		}
		defer f.Close()
		req.File = payload
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		response.BadRequest(c, "表单解析失败")
		return
	}

	created, err := h.uploadService.CreateMaterialWithUpload(c.Request.Context(), req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, created)
}

// UpdateMaterial 更新素材，tagIds 存在时整体替换标签
// @Summary 更新素材
// @Tags 管理-素材
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "素材ID"
// @Param material body material.UpdateMaterialRequest true "更新素材请求"
// @Success 200 {object} response.Response{data=database.Material} "更新成功"
// @Router /api/admin/materials/{id} [put]
func (h *MaterialHandler) UpdateMaterial(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req material.UpdateMaterialRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.materialService.UpdateMaterial(c.Request.Context(), id, &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, updated)
}

// DeleteMaterial 删除素材，下载记录保留
// @Summary 删除素材
// @Tags 管理-素材
// @Security BearerAuth
// @Param id path int true "素材ID"
// @Success 200 {object} response.Response "素材已删除"
// @Router /api/admin/materials/{id} [delete]
func (h *MaterialHandler) DeleteMaterial(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.materialService.DeleteMaterial(c.Request.Context(), id); err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "素材已删除", nil)
}
