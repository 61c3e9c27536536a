package tracking

import "github.com/EJ-pro/Walky/internal/walk"

type StartLocationRequest struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

type StartRequest struct {
	Mode       string `json:"mode" validate:"omitempty,oneof=MY PET my pet"`
	StepSource string `json:"step_source" validate:"omitempty,oneof=distance sensor health"`
}

type SamplesRequest struct {
	Samples []walk.Sample `json:"samples" validate:"required,min=1,max=500,dive"`
}

type StepsRequest struct {
	Cumulative int64 `json:"cumulative" validate:"gte=0"`
}

type SamplesResponse struct {
	Accepted int           `json:"accepted"`
	Snapshot walk.Snapshot `json:"snapshot"`
}
