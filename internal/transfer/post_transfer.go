package transfer

type PostCreation struct {
	Content          string `json:"content"`
	Title            string `json:"title"`
	LinkURL          string `json:"link_url"`
	Platforms        string `json:"platforms"`
	AccountIDs       string `json:"account_ids"`
	PlatformSettings string `json:"platform_settings"`
	ScheduledTime    string `json:"scheduled_time"`
	Draft            bool   `json:"draft"`
}
