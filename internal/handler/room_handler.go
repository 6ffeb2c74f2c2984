package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/go-demo/roomchat/internal/chat"
	"github.com/go-demo/roomchat/internal/dto/request"
	"github.com/go-demo/roomchat/internal/dto/response"
	apperrors "github.com/go-demo/roomchat/internal/pkg/errors"
)

// RoomService is the read side of chat.Service used by the REST API.
type RoomService interface {
	ListRooms(includePrivate bool) []chat.RoomSummary
	FindRoom(code string) (chat.RoomSummary, bool)
	RoomMembers(code string) ([]chat.MemberInfo, bool)
}

type RoomHandler struct {
	rooms RoomService
}

func NewRoomHandler(rooms RoomService) *RoomHandler {
	return &RoomHandler{
		rooms: rooms,
	}
}

// ListPublic godoc
// @Summary 獲取公開聊天室列表
// @Description 獲取所有公開聊天室，大廳永遠排在第一位
// @Tags 聊天室
// @Produce json
// @Param category query string false "分類" Enums(general, gaming, music, education, chat, help, other)
// @Param status query string false "狀態" Enums(open, full, locked)
// @Param q query string false "名稱或描述關鍵字"
// @Success 200 {object} response.Response{data=response.RoomListResponse}
// @Failure 400 {object} response.Response
// @Router /api/v1/rooms [get]
func (h *RoomHandler) ListPublic(c *gin.Context) {
	var req request.ListRoomsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, apperrors.ErrValidation.WithMessage("invalid room filter"))
		return
	}

	search := strings.ToLower(strings.TrimSpace(req.Search))
	rooms := make([]chat.RoomSummary, 0)
	for _, room := range h.rooms.ListRooms(false) {
		if req.Category != "" && string(room.Category) != req.Category {
			continue
		}
		if req.Status != "" && string(room.Status) != req.Status {
			continue
		}
		if search != "" && !matchesSearch(room, search) {
			continue
		}
		rooms = append(rooms, room)
	}

	response.Success(c, response.NewRoomListResponse(rooms))
}

// GetByCode godoc
// @Summary 獲取聊天室詳情
// @Description 依房間代碼獲取聊天室資訊，代碼不分大小寫。有密碼的聊天室不會列出成員。
// @Tags 聊天室
// @Produce json
// @Param code path string true "房間代碼"
// @Success 200 {object} response.Response{data=response.RoomDetailResponse}
// @Failure 404 {object} response.Response
// @Router /api/v1/rooms/{code} [get]
func (h *RoomHandler) GetByCode(c *gin.Context) {
	code := c.Param("code")

	room, ok := h.rooms.FindRoom(code)
	if !ok {
		response.Error(c, apperrors.ErrRoomNotFound)
		return
	}

	var members []chat.MemberInfo
	if !room.PasswordProtected {
		members, _ = h.rooms.RoomMembers(room.ID)
	}

	response.Success(c, response.NewRoomDetailResponse(room, members))
}

func matchesSearch(room chat.RoomSummary, search string) bool {
	return strings.Contains(strings.ToLower(room.Name), search) ||
		strings.Contains(strings.ToLower(room.Description), search)
}
