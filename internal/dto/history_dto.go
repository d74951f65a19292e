package dto

import "time"

type HistoryMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type HistoryResponse struct {
	Messages []HistoryMessage `json:"messages"`
}

type SendHistoryRequest struct {
	Content string `json:"content" validate:"required,max=8000"`
}

type SendHistoryResponse struct {
	Reply    HistoryMessage   `json:"reply"`
	Messages []HistoryMessage `json:"messages"`
}
