package adcopy

import (
	"context"
	"fmt"
	"html"
	"strings"
)

// GenerateInput は広告コピー生成の入力。
type GenerateInput struct {
	Product  string
	Audience string
	Tone     string
}

// Generator は広告コピーの生成インターフェース。
// 外部AIプロバイダー連携はこの境界の別実装として差し替える。
type Generator interface {
	Generate(ctx context.Context, input GenerateInput) (title, bodyHTML string, err error)
}

// toneOpeners はトーンごとの書き出しテンプレート。
var toneOpeners = map[string]string{
	"casual":     "%sをもっと身近に。",
	"formal":     "%sという選択肢をご提案します。",
	"urgent":     "今だけ。%sを手に入れる最後のチャンス。",
	"playful":    "%s、試してみない？",
	"empathetic": "%s選びに迷っていませんか。",
}

const defaultToneOpener = "%sで、毎日が変わる。"

// TemplateGenerator はテンプレートベースのローカル生成器。
// 外部サービスに依存せず決定的な出力を返す。
type TemplateGenerator struct{}

// NewTemplateGenerator はTemplateGeneratorを生成する。
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

// Generate はテンプレートから広告コピーを組み立てる。
// 入力はHTMLエスケープされるが、呼び出し側のサニタイズ工程は省略しないこと。
func (g *TemplateGenerator) Generate(_ context.Context, input GenerateInput) (string, string, error) {
	product := html.EscapeString(strings.TrimSpace(input.Product))
	audience := html.EscapeString(strings.TrimSpace(input.Audience))
	if product == "" {
		return "", "", fmt.Errorf("product is required")
	}

	opener, ok := toneOpeners[strings.ToLower(input.Tone)]
	if !ok {
		opener = defaultToneOpener
	}

	title := fmt.Sprintf(opener, product)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<h2>%s</h2>", title))
	if audience != "" {
		b.WriteString(fmt.Sprintf("<p>%sのあなたへ。</p>", audience))
	}
	b.WriteString(fmt.Sprintf("<p>%sが、これまでの当たり前を変えます。</p>", product))
	b.WriteString("<ul>")
	b.WriteString(fmt.Sprintf("<li><strong>%s</strong>だから実現できる体験</li>", product))
	b.WriteString("<li>今日から始められるシンプルさ</li>")
	b.WriteString("</ul>")
	b.WriteString("<p><em>まずは無料でお試しください。</em></p>")

	return title, b.String(), nil
}

var _ Generator = (*TemplateGenerator)(nil)
