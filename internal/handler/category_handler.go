package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sumicowork/HOYODB/internal/response"
	"github.com/sumicowork/HOYODB/internal/service/category"
)

// CategoryHandler 分类管理处理器
type CategoryHandler struct {
	categoryService category.CategoryService
}

// NewCategoryHandler 创建分类处理器实例
func NewCategoryHandler(categoryService category.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// ListCategories 分类列表，可按 gameId 过滤
// @Summary 管理端分类列表
// @Tags 管理-分类
// @Produce json
// @Security BearerAuth
// @Param gameId query int false "游戏ID"
// @Success 200 {object} response.Response{data=[]database.Category} "获取成功"
// @Router /api/admin/categories [get]
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	gameID, ok := queryID(c, "gameId")
	if !ok {
		return
	}

	categories, err := h.categoryService.List(c.Request.Context(), gameID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, categories)
}

// CreateCategory 创建分类
// @Summary 创建分类
// @Tags 管理-分类
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param category body category.CreateCategoryRequest true "创建分类请求"
// @Success 201 {object} response.Response{data=database.Category} "创建成功"
// @Failure 400 {object} response.Response "父分类不属于同一游戏"
// @Failure 409 {object} response.Response "该游戏下分类slug已存在"
// @Router /api/admin/categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req category.CreateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.categoryService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, created)
}

// UpdateCategory 更新分类，parentId 传 null 时移动到顶层
// @Summary 更新分类
// @Tags 管理-分类
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "分类ID"
// @Param category body category.UpdateCategoryRequest true "更新分类请求"
// @Success 200 {object} response.Response{data=database.Category} "更新成功"
// @Router /api/admin/categories/{id} [put]
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req category.UpdateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.categoryService.Update(c.Request.Context(), id, &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, updated)
}

// DeleteCategory 删除分类
// @Summary 删除分类
// @Tags 管理-分类
// @Security BearerAuth
// @Param id path int true "分类ID"
// @Success 200 {object} response.Response "分类已删除"
// @Failure 409 {object} response.Response "分类仍有素材或子分类"
// @Router /api/admin/categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.categoryService.Delete(c.Request.Context(), id); err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "分类已删除", nil)
}
