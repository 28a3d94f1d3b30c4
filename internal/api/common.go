package api

import (
	"github.com/Abbo0dio/taqweem/internal/model"
)

// webhookResp is the outward shape of a subscription; the shared secret is
// never echoed back.
type webhookResp struct {
	ID        string   `json:"id"`
	URL       string   `json:"url"`
	Events    []string `json:"events"`
	HasSecret bool     `json:"has_secret"`
	CreatedAt string   `json:"created_at"`
}

func mapToWebhookResp(sub *model.Webhook) (*webhookResp, error) {
	return &webhookResp{
		ID:        sub.ID,
		URL:       sub.URL,
		Events:    sub.Events,
		HasSecret: sub.Secret != "",
		CreatedAt: sub.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}, nil
}
