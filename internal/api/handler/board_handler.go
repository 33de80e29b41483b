package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bukulele/beontrack-portal-sub001/internal/dto"
	"github.com/bukulele/beontrack-portal-sub001/internal/service"
	"github.com/bukulele/beontrack-portal-sub001/pkg/response"
)

// BoardHandler 调度看板 HTTP 处理器
type BoardHandler struct {
	boardSvc service.BoardService
}

// NewBoardHandler 创建 BoardHandler
func NewBoardHandler(boardSvc service.BoardService) *BoardHandler {
	return &BoardHandler{boardSvc: boardSvc}
}

// GetBoard 获取看板
// GET /api/v1/board?terminal=&route=&refresh=
func (h *BoardHandler) GetBoard(c *gin.Context) {
	var req dto.BoardRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	board, err := h.boardSvc.Get(c.Request.Context(), &req)
	if err != nil {
		h.handleBoardError(c, err)
		return
	}

	response.OK(c, board)
}

// RefreshBoard 手动刷新看板并重置自动刷新倒计时
// POST /api/v1/board/refresh
func (h *BoardHandler) RefreshBoard(c *gin.Context) {
	if err := h.boardSvc.Refresh(c.Request.Context()); err != nil {
		h.handleBoardError(c, service.ErrBoardUnavailable)
		return
	}

	board, err := h.boardSvc.Get(c.Request.Context(), &dto.BoardRequest{})
	if err != nil {
		h.handleBoardError(c, err)
		return
	}

	response.OK(c, board)
}

func (h *BoardHandler) handleBoardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBoardUnavailable):
		response.Error(c, http.StatusServiceUnavailable, 23001, "看板数据暂不可用，请稍后重试")
	default:
		response.InternalError(c)
	}
}
