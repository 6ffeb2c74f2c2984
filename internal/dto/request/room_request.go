package request

// ListRoomsRequest filters the public room listing
type ListRoomsRequest struct {
	Category string `form:"category" binding:"omitempty,oneof=general gaming music education chat help other"`
	Status   string `form:"status" binding:"omitempty,oneof=open full locked"`
	Search   string `form:"q" binding:"omitempty,max=50"`
}
