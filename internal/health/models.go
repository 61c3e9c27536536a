package health

type DailySteps struct {
	Date     string `json:"date"`
	Total    int64  `json:"total"`
	Reported bool   `json:"reported"`
}

type ReportRequest struct {
	Total int64 `json:"total" validate:"gte=0"`
}
