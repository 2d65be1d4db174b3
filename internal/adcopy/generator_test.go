package adcopy

import (
	"context"
	"strings"
	"testing"
)

func TestTemplateGenerator_Generate_CasualTone(t *testing.T) {
	g := NewTemplateGenerator()

	title, body, err := g.Generate(context.Background(), GenerateInput{
		Product:  "スマート加湿器",
		Audience: "在宅ワーカー",
		Tone:     "casual",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if title != "スマート加湿器をもっと身近に。" {
		t.Errorf("title = %q", title)
	}
	if !strings.Contains(body, "<h2>スマート加湿器をもっと身近に。</h2>") {
		t.Errorf("body should embed the title, got %q", body)
	}
	if !strings.Contains(body, "<p>在宅ワーカーのあなたへ。</p>") {
		t.Errorf("body should address the audience, got %q", body)
	}
	if !strings.Contains(body, "<em>まずは無料でお試しください。</em>") {
		t.Errorf("body should end with the CTA, got %q", body)
	}
}

func TestTemplateGenerator_Generate_ToneSelection(t *testing.T) {
	tests := []struct {
		tone      string
		wantTitle string
	}{
		{"formal", "加湿器という選択肢をご提案します。"},
		{"urgent", "今だけ。加湿器を手に入れる最後のチャンス。"},
		{"playful", "加湿器、試してみない？"},
		{"empathetic", "加湿器選びに迷っていませんか。"},
		// 未知のトーンはデフォルトテンプレートに落ちる。
		{"mysterious", "加湿器で、毎日が変わる。"},
		{"", "加湿器で、毎日が変わる。"},
		// トーンは大文字小文字を区別しない。
		{"FORMAL", "加湿器という選択肢をご提案します。"},
	}

	g := NewTemplateGenerator()
	for _, tt := range tests {
		t.Run("tone_"+tt.tone, func(t *testing.T) {
			title, _, err := g.Generate(context.Background(), GenerateInput{
				Product: "加湿器",
				Tone:    tt.tone,
			})
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
		})
	}
}

func TestTemplateGenerator_Generate_NoAudience_SkipsParagraph(t *testing.T) {
	g := NewTemplateGenerator()

	_, body, err := g.Generate(context.Background(), GenerateInput{Product: "加湿器"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Contains(body, "のあなたへ。") {
		t.Errorf("audience paragraph should be omitted, got %q", body)
	}
}

func TestTemplateGenerator_Generate_EscapesInput(t *testing.T) {
	g := NewTemplateGenerator()

	title, body, err := g.Generate(context.Background(), GenerateInput{
		Product:  `<script>alert("x")</script>`,
		Audience: "<b>みんな</b>",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if strings.Contains(title, "<script>") || strings.Contains(body, "<script>") {
		t.Error("product must be HTML-escaped")
	}
	if strings.Contains(body, "<b>みんな</b>") {
		t.Error("audience must be HTML-escaped")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Errorf("escaped product should appear in body, got %q", body)
	}
}

func TestTemplateGenerator_Generate_EmptyProduct_Errors(t *testing.T) {
	g := NewTemplateGenerator()

	if _, _, err := g.Generate(context.Background(), GenerateInput{Product: "   "}); err == nil {
		t.Error("Generate() should fail for empty product")
	}
}
