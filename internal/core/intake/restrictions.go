package intake

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// 限制條款為空時的佔位詞
const noRestrictions = "Nenhuma"

// Restrictions 有序且去重的限制詞集合；保留第一次出現的寫法供顯示
type Restrictions []string

// NewRestrictions 合併多組限制詞，去除空白與重複（不分大小寫與重音）
func NewRestrictions(groups ...[]string) Restrictions {
	seen := make(map[string]bool)
	out := Restrictions{}
	for _, group := range groups {
		for _, term := range group {
			term = strings.Join(strings.Fields(term), " ")
			if term == "" {
				continue
			}
			key := fold(term)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, term)
		}
	}
	return out
}

// Empty 是否沒有任何限制
func (r Restrictions) Empty() bool {
	return len(r) == 0
}

// Clause 以逗號連接，空集合時回傳 "Nenhuma"
func (r Restrictions) Clause() string {
	if len(r) == 0 {
		return noRestrictions
	}
	return strings.Join(r, ", ")
}

// fold 轉為小寫並移除重音，用於比對
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(strings.TrimSpace(out))
}

// tokens 將已 fold 的字串切成單字
func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// singular 粗略的葡語單數化，只用於比對
func singular(w string) string {
	switch {
	case len(w) <= 3:
		return w
	case strings.HasSuffix(w, "oes"), strings.HasSuffix(w, "aes"):
		return w[:len(w)-3] + "ao"
	case strings.HasSuffix(w, "ns"):
		return w[:len(w)-2] + "m"
	case strings.HasSuffix(w, "zes"), strings.HasSuffix(w, "res"), strings.HasSuffix(w, "ses"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "s"):
		return w[:len(w)-1]
	}
	return w
}
