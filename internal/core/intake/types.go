package intake

import (
	"slices"
	"strings"
	"time"
)

// Modality 輸入管道
type Modality string

const (
	ModalityImage Modality = "image"
	ModalityText  Modality = "text"
	ModalityVoice Modality = "voice"
)

// ResultType 分析結果分類
type ResultType string

const (
	TypeIngredients ResultType = "ingredients"
	TypeDish        ResultType = "dish"
	TypeDessert     ResultType = "dessert"
	TypeText        ResultType = "text"
	TypeMixed       ResultType = "mixed"
)

// Difficulty 難度，線上格式固定為三個在地化標籤
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Fácil"
	DifficultyMedium Difficulty = "Médio"
	DifficultyHard   Difficulty = "Difícil"
)

// RawInput 尚未正規化的使用者輸入
type RawInput struct {
	Modality  Modality
	Text      string // text 模式
	Image     []byte // image 模式：原始位元組
	ImageData string // image 模式：data URI 或 base64（與 Image 擇一）
	Audio     []byte // voice 模式
	AudioName string // 音訊檔名，用於推斷格式
}

// NormalizedRequest 正規化後的單一生成請求
type NormalizedRequest struct {
	Modality     Modality
	PromptText   string
	ImagePayload string // data URI；僅 image 模式
	Restrictions Restrictions
}

// Valid 請求是否可送出：有非空白的 prompt 或圖片
func (r *NormalizedRequest) Valid() bool {
	if r.Modality == ModalityImage {
		return r.ImagePayload != ""
	}
	return strings.TrimSpace(r.PromptText) != "" && r.ImagePayload == ""
}

// Ingredient 食材
type Ingredient struct {
	Name         string `json:"name" validate:"nonblank"`
	Quantity     string `json:"quantity" validate:"nonblank"`
	IsRestricted bool   `json:"isRestricted"`
}

// Variations 食譜變化
type Variations struct {
	Quick      string `json:"quick,omitempty"`
	Economical string `json:"economical,omitempty"`
	Healthy    string `json:"healthy,omitempty"`
}

// Recipe 生成的食譜
type Recipe struct {
	Title            string       `json:"title" validate:"nonblank"`
	Description      string       `json:"description,omitempty"`
	PrepTime         string       `json:"prepTime"`
	Difficulty       Difficulty   `json:"difficulty" validate:"oneof=Fácil Médio Difícil"`
	Servings         int          `json:"servings" validate:"gte=1"`
	Ingredients      []Ingredient `json:"ingredients" validate:"dive"`
	Steps            []string     `json:"steps" validate:"min=1,dive,nonblank"`
	Variations       Variations   `json:"variations"`
	ChefTips         []string     `json:"chefTips"`
	VideoSuggestions []string     `json:"videoSuggestions,omitempty"`
}

// Substitution 食材替代
type Substitution struct {
	Ingredient string `json:"ingredient"`
	Substitute string `json:"substitute"`
}

// AnalysisResult 完整的分析結果
// Recipe 為 nil 表示生成失敗，呼叫端只顯示 Message
type AnalysisResult struct {
	Type          ResultType     `json:"type" validate:"oneof=ingredients dish dessert text mixed"`
	Message       string         `json:"message"`
	Items         []string       `json:"items,omitempty"`
	Recipe        *Recipe        `json:"recipe,omitempty" validate:"required"`
	Warnings      []string       `json:"warnings"`
	Substitutions []Substitution `json:"substitutions"`
}

// Clone 深拷貝，後處理只修改副本
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Items = slices.Clone(r.Items)
	out.Warnings = slices.Clone(r.Warnings)
	out.Substitutions = slices.Clone(r.Substitutions)
	if r.Recipe != nil {
		rec := *r.Recipe
		rec.Ingredients = slices.Clone(r.Recipe.Ingredients)
		rec.Steps = slices.Clone(r.Recipe.Steps)
		rec.ChefTips = slices.Clone(r.Recipe.ChefTips)
		rec.VideoSuggestions = slices.Clone(r.Recipe.VideoSuggestions)
		out.Recipe = &rec
	}
	return &out
}

// MessageOnly 生成失敗時回傳給顯示層的結果
func MessageOnly(modality Modality, message string) *AnalysisResult {
	t := TypeText
	if modality == ModalityImage {
		t = TypeMixed
	}
	return &AnalysisResult{
		Type:          t,
		Message:       message,
		Warnings:      []string{},
		Substitutions: []Substitution{},
	}
}

// HistoryEntry 搜尋歷史記錄
type HistoryEntry struct {
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
	Type      Modality  `json:"type"`
}

// Replayable 只有文字與語音記錄可以重新執行（圖片原始資料不保留）
func (e HistoryEntry) Replayable() bool {
	return e.Type == ModalityText || e.Type == ModalityVoice
}
