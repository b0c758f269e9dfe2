package openrouter

type creditsResponse struct {
	Data creditsData `json:"data"`
}

type creditsData struct {
	TotalCredits float64 `json:"total_credits"`
	TotalUsage   float64 `json:"total_usage"`
}
