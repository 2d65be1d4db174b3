package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestLogMailer_Send_LogsMetadataOnly(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := m.Send(context.Background(), "taro@example.com", "パスワード再設定",
		"<p>コード: 042991</p>", "コード: 042991")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}

	if entry["to"] != "taro@example.com" {
		t.Errorf("to = %v", entry["to"])
	}
	if entry["subject"] != "パスワード再設定" {
		t.Errorf("subject = %v", entry["subject"])
	}
	// ワンタイムコードを含む本文はログに出力しない
	if strings.Contains(buf.String(), "042991") {
		t.Error("mail body must not appear in logs")
	}
}

func TestNewLogMailer_NilLogger_UsesDefault(t *testing.T) {
	m := NewLogMailer(nil)
	if err := m.Send(context.Background(), "a@example.com", "s", "", ""); err != nil {
		t.Errorf("Send() error = %v", err)
	}
}
