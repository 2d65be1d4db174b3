package model

import "time"

// AdDocument はユーザーが作成・保存する広告コピー文書を表す。
// BodyHTMLは保存前に必ずサニタイズされる。
type AdDocument struct {
	ID        string
	UserID    string
	Title     string
	BodyHTML  string
	Tone      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
