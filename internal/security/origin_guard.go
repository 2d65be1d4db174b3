package security

import (
	"net/url"
	"strings"
)

// OriginGuard はOrigin/Refererヘッダーを許可リストと照合し、
// クロスサイトからの状態変更リクエストを拒否する。
//
// ポリシー（適用順）:
//  1. 開発モードではlocalhost/127.0.0.1由来のOriginまたはRefererを信頼する。
//  2. OriginとRefererの両方が欠けている場合はリクエストを信頼する。
//     ブラウザが両ヘッダーを省略する同一オリジンのトップレベル遷移を
//     カバーするための意図的な緩和であり、ヘッダーを任意に省略できる
//     非ブラウザクライアントに対しては防御にならないことを認識した上での
//     ポリシー判断である（バグではない）。
//  3. それ以外はOrigin（なければRefererのscheme+host）が
//     許可リストに含まれることを要求する。
type OriginGuard struct {
	allowed     map[string]struct{}
	development bool
}

// NewOriginGuard はOriginGuardを生成する。
// allowedOriginsには "https://app.example.com" 形式のオリジンを渡す。
// developmentがtrueの場合はlocalhost緩和が有効になる。
func NewOriginGuard(allowedOrigins []string, development bool) *OriginGuard {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if normalized := normalizeOrigin(o); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}
	return &OriginGuard{allowed: allowed, development: development}
}

// IsTrusted はOrigin/Refererヘッダーの組がポリシー上信頼できるかを返す。
func (g *OriginGuard) IsTrusted(origin, referer string) bool {
	// 1. 開発モードのlocalhost緩和
	if g.development {
		if isLocalhost(origin) || isLocalhost(referer) {
			return true
		}
	}

	// 2. 両方欠けている場合は同一オリジン遷移とみなして信頼する
	if origin == "" && referer == "" {
		return true
	}

	// 3. Origin優先、なければRefererのscheme+hostで許可リスト照合
	candidate := origin
	if candidate == "" {
		candidate = referer
	}

	normalized := normalizeOrigin(candidate)
	if normalized == "" {
		return false
	}

	_, ok := g.allowed[normalized]
	return ok
}

// normalizeOrigin はURL文字列をscheme://host[:port]形式に正規化する。
// 解析できない場合は空文字を返す。
func normalizeOrigin(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// isLocalhost はURLのホストがlocalhostまたは127.0.0.1かどうかを返す。
func isLocalhost(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}
