package dto

type Coordinates struct {
	Lat float64 `json:"lat" binding:"required"`
	Lng float64 `json:"lng" binding:"required"`
}

type CreateBranchRequest struct {
	Name        string      `json:"name" binding:"required,max=100"`
	Address     string      `json:"address" binding:"required,max=255"`
	Coordinates Coordinates `json:"coordinates" binding:"required"`
}

type UpdateBranchRequest struct {
	Name        *string      `json:"name" binding:"omitempty,max=100"`
	Address     *string      `json:"address" binding:"omitempty,max=255"`
	Coordinates *Coordinates `json:"coordinates"`
}

type BranchFilter struct {
	Query string `form:"q"`
}
