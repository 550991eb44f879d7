package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sumicowork/HOYODB/internal/database"
	"github.com/sumicowork/HOYODB/internal/response"
	"github.com/sumicowork/HOYODB/internal/service/tag"
)

// TagHandler 标签处理器
// 处理所有标签相关的HTTP请求
type TagHandler struct {
	tagService tag.TagService
}

// NewTagHandler 创建标签处理器实例
// 参数:
//   tagService - 标签服务接口
// 返回:
//   *TagHandler - 标签处理器实例
func NewTagHandler(tagService tag.TagService) *TagHandler {
	return &TagHandler{tagService: tagService}
}

// ListTags 标签列表
// @Summary 标签列表
// @Description 按名称升序返回标签，可按类型过滤
// @Tags 标签
// @Produce json
// @Param type query string false "标签类型" Enums(CHARACTER, ELEMENT, RARITY, VERSION, SCENE, OTHER)
// @Success 200 {object} response.Response{data=[]database.Tag} "获取成功"
// @Router /api/tags [get]
func (h *TagHandler) ListTags(c *gin.Context) {
	tags, err := h.tagService.List(c.Request.Context(), database.TagType(c.Query("type")))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, tags)
}

// GetTag 根据slug获取标签及最近的已发布素材
// @Summary 标签详情
// @Tags 标签
// @Produce json
// @Param slug path string true "标签slug"
// @Success 200 {object} response.Response{data=database.Tag} "获取成功"
// @Failure 404 {object} response.Response "标签不存在"
// @Router /api/tags/{slug} [get]
func (h *TagHandler) GetTag(c *gin.Context) {
	t, err := h.tagService.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, t)
}

// AdminListTags 管理端标签列表，附带素材数
// @Summary 管理端标签列表
// @Tags 管理-标签
// @Produce json
// @Security BearerAuth
// @Param type query string false "标签类型"
// @Success 200 {object} response.Response{data=[]database.Tag} "获取成功"
// @Router /api/admin/tags [get]
func (h *TagHandler) AdminListTags(c *gin.Context) {
	tags, err := h.tagService.ListWithCount(c.Request.Context(), database.TagType(c.Query("type")))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, tags)
}

// CreateTag 创建标签
// @Summary 创建新标签
// @Description 创建一个新的标签，名称与slug必须唯一
// @Tags 管理-标签
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tag body tag.CreateTagRequest true "创建标签请求"
// @Success 201 {object} response.Response{data=database.Tag} "创建成功"
// @Failure 400 {object} response.Response "请求参数错误"
// @Failure 409 {object} response.Response "标签名称或slug已存在"
// @Router /api/admin/tags [post]
func (h *TagHandler) CreateTag(c *gin.Context) {
	var req tag.CreateTagRequest
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.tagService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, created)
}

// UpdateTag 更新标签
// @Summary 更新标签
// @Tags 管理-标签
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "标签ID"
// @Param tag body tag.UpdateTagRequest true "更新标签请求"
// @Success 200 {object} response.Response{data=database.Tag} "更新成功"
// @Failure 404 {object} response.Response "标签不存在"
// @Router /api/admin/tags/{id} [put]
func (h *TagHandler) UpdateTag(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req tag.UpdateTagRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.tagService.Update(c.Request.Context(), id, &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, updated)
}

// DeleteTag 删除标签
// @Summary 删除标签
// @Tags 管理-标签
// @Security BearerAuth
// @Param id path int true "标签ID"
// @Success 200 {object} response.Response "标签已删除"
// @Failure 409 {object} response.Response "标签仍被素材使用"
// @Router /api/admin/tags/{id} [delete]
func (h *TagHandler) DeleteTag(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.tagService.Delete(c.Request.Context(), id); err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "标签已删除", nil)
}
