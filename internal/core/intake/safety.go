package intake

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"meal-intake/internal/pkg/common"

	"go.uber.org/zap"
)

// SafetyAnnotator 生成後的本地安全檢查：標記受限食材、加入警告與替代建議
// 不拒絕也不丟棄食譜，且永不失敗
type SafetyAnnotator struct{}

// NewSafetyAnnotator 創建安全標註器
func NewSafetyAnnotator() *SafetyAnnotator {
	return &SafetyAnnotator{}
}

// Annotation 一次標註的摘要
type Annotation struct {
	Flagged       int // 本次新標記的食材數
	Warnings      int // 本次新增的警告數
	Substitutions int // 本次新增的替代數
}

// Annotate 回傳標註後的副本，輸入不會被修改；重複執行結果相同
func (a *SafetyAnnotator) Annotate(result *AnalysisResult, restrictions Restrictions) (out *AnalysisResult, note Annotation) {
	out = result.Clone()
	if out == nil || out.Recipe == nil || restrictions.Empty() {
		return out, note
	}

	defer func() {
		if r := recover(); r != nil {
			common.LogError("安全標註失敗，保留原始結果", zap.Any("panic", r))
			out, note = result.Clone(), Annotation{}
		}
	}()

	rules := make([]restrictionRule, 0, len(restrictions))
	for _, term := range restrictions {
		rules = append(rules, newRule(term))
	}

	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	if out.Substitutions == nil {
		out.Substitutions = []Substitution{}
	}

	for i := range out.Recipe.Ingredients {
		ing := &out.Recipe.Ingredients[i]
		name := fold(ing.Name)

		// 第一個命中的限制詞（依集合順序）才會出現在警告中
		var term, keyword string
		for _, rule := range rules {
			if kw, ok := rule.match(name); ok {
				term, keyword = rule.term, kw
				break
			}
		}
		if term == "" {
			continue
		}

		if !ing.IsRestricted {
			ing.IsRestricted = true
			note.Flagged++
		}

		if !mentions(out.Warnings, name) {
			out.Warnings = append(out.Warnings, warningText(ing.Name, term))
			note.Warnings++
		}

		if hasSubstitution(out.Substitutions, name) {
			continue
		}
		if sub, ok := substituteFor(name, keyword); ok && !violatesAny(rules, sub) {
			out.Substitutions = append(out.Substitutions, Substitution{Ingredient: ing.Name, Substitute: sub})
			note.Substitutions++
		}
	}

	return out, note
}

// 本地警告的固定開頭，用來辨認哪些警告是這裡產生的
const warningPrefix = "Atenção: "

func warningText(ingredient, term string) string {
	return fmt.Sprintf(warningPrefix+"%q entra em conflito com a restrição %q.", ingredient, term)
}

// warnedIngredient 取出本地警告引用的食材名稱；不是本地格式時回傳 false
func warnedIngredient(warning string) (string, bool) {
	rest, ok := strings.CutPrefix(warning, warningPrefix)
	if !ok {
		return "", false
	}
	quoted, err := strconv.QuotedPrefix(rest)
	if err != nil {
		return "", false
	}
	name, err := strconv.Unquote(quoted)
	return name, err == nil
}

// mentions 是否已有警告提到這個食材（name 必須已 fold）
// 本地警告只比對被引用的食材；模型的警告以完整單字序列比對
func mentions(warnings []string, name string) bool {
	want := tokens(name)
	if len(want) == 0 {
		return false
	}
	for _, w := range warnings {
		if ingredient, ok := warnedIngredient(w); ok {
			if fold(ingredient) == name {
				return true
			}
			continue
		}
		if containsWords(tokens(fold(w)), want) {
			return true
		}
	}
	return false
}

// containsWords words 中是否有連續的一段等於 seq
func containsWords(words, seq []string) bool {
	for i := 0; i+len(seq) <= len(words); i++ {
		if slices.Equal(words[i:i+len(seq)], seq) {
			return true
		}
	}
	return false
}

// hasSubstitution 是否已有這個食材的替代建議
func hasSubstitution(subs []Substitution, name string) bool {
	for _, s := range subs {
		if fold(s.Ingredient) == name {
			return true
		}
	}
	return false
}

// violatesAny 替代品本身是否又違反任一限制
func violatesAny(rules []restrictionRule, candidate string) bool {
	folded := fold(candidate)
	for _, rule := range rules {
		if _, ok := rule.match(folded); ok {
			return true
		}
	}
	return false
}
