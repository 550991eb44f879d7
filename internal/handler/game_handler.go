package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sumicowork/HOYODB/internal/response"
	"github.com/sumicowork/HOYODB/internal/service/game"
)

// GameHandler 游戏处理器
// 前台只读接口与管理端增删改共用
type GameHandler struct {
	gameService game.GameService
}

// NewGameHandler 创建游戏处理器实例
// 参数:
//   gameService - 游戏服务接口
// 返回:
//   *GameHandler - 游戏处理器实例
func NewGameHandler(gameService game.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

// ListGames 获取启用的游戏列表
// @Summary 游戏列表
// @Tags 游戏
// @Produce json
// @Success 200 {object} response.Response{data=[]database.Game} "获取成功"
// @Router /api/games [get]
func (h *GameHandler) ListGames(c *gin.Context) {
	games, err := h.gameService.ListActive(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, games)
}

// GetGame 根据slug获取游戏及其顶级分类
// @Summary 游戏详情
// @Tags 游戏
// @Produce json
// @Param slug path string true "游戏slug"
// @Success 200 {object} response.Response{data=database.Game} "获取成功"
// @Failure 404 {object} response.Response "游戏不存在"
// @Router /api/games/{slug} [get]
func (h *GameHandler) GetGame(c *gin.Context) {
	g, err := h.gameService.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, g)
}

// AdminListGames 管理端游戏列表，包含停用的游戏与关联计数
// @Summary 管理端游戏列表
// @Tags 管理-游戏
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]database.Game} "获取成功"
// @Router /api/admin/games [get]
func (h *GameHandler) AdminListGames(c *gin.Context) {
	games, err := h.gameService.ListAll(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, games)
}

// CreateGame 创建游戏
// @Summary 创建游戏
// @Tags 管理-游戏
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param game body game.CreateGameRequest true "创建游戏请求"
// @Success 201 {object} response.Response{data=database.Game} "创建成功"
// @Failure 400 {object} response.Response "请求参数错误"
// @Failure 409 {object} response.Response "游戏名称或slug已存在"
// @Router /api/admin/games [post]
func (h *GameHandler) CreateGame(c *gin.Context) {
	var req game.CreateGameRequest
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.gameService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, created)
}

// UpdateGame 更新游戏
// @Summary 更新游戏
// @Tags 管理-游戏
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "游戏ID"
// @Param game body game.UpdateGameRequest true "更新游戏请求"
// @Success 200 {object} response.Response{data=database.Game} "更新成功"
// @Failure 404 {object} response.Response "游戏不存在"
// @Router /api/admin/games/{id} [put]
func (h *GameHandler) UpdateGame(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req game.UpdateGameRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.gameService.Update(c.Request.Context(), id, &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, updated)
}

// DeleteGame 删除游戏
// @Summary 删除游戏
// @Tags 管理-游戏
// @Security BearerAuth
// @Param id path int true "游戏ID"
// @Success 200 {object} response.Response "游戏已删除"
// @Failure 409 {object} response.Response "游戏下仍有分类或素材"
// @Router /api/admin/games/{id} [delete]
func (h *GameHandler) DeleteGame(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.gameService.Delete(c.Request.Context(), id); err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "游戏已删除", nil)
}
