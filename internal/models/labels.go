package models

var platformLabels = map[string]string{
	"facebook":  "Facebook",
	"instagram": "Instagram",
	"twitter":   "Twitter / X",
	"linkedin":  "LinkedIn",
	"tiktok":    "TikTok",
	"youtube":   "YouTube",
	"pinterest": "Pinterest",
	"threads":   "Threads",
}

var postStatusLabels = map[string]string{
	PostStatusDraft:              "Draft",
	PostStatusScheduled:          "Scheduled",
	PostStatusPublishing:         "Publishing",
	PostStatusPublished:          "Published",
	PostStatusPartiallyPublished: "Partially published",
	PostStatusFailed:             "Failed",
	PostStatusCancelled:          "Cancelled",
}

var accountStatusLabels = map[string]string{
	AccountStatusActive:       "Active",
	AccountStatusTokenExpired: "Token expired",
	AccountStatusAuthFailed:   "Authentication failed",
	AccountStatusRateLimited:  "Rate limited",
	AccountStatusSuspended:    "Suspended",
}

func PlatformLabel(platform string) string {
	if label, ok := platformLabels[platform]; ok {
		return label
	}
	return platform
}

func PostStatusLabel(status string) string {
	if label, ok := postStatusLabels[status]; ok {
		return label
	}
	return status
}

func AccountStatusLabel(status string) string {
	if label, ok := accountStatusLabels[status]; ok {
		return label
	}
	return status
}
