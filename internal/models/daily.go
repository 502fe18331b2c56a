package models

// DailyContent — кэшируемое на день содержимое главной панели:
// мотивационная цитата и список задач на день.
type DailyContent struct {
	Date     string   `json:"date"`
	Quote    string   `json:"quote"`
	Briefing []string `json:"briefing"`
}

// AdminStats — сводка для панели администратора.
type AdminStats struct {
	PendingCount  int     `json:"pendingCount"`
	ActiveCount   int     `json:"activeCount"`
	TotalEarnings float64 `json:"totalEarnings"`
}
