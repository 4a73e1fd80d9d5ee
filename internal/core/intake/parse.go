package intake

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"meal-intake/internal/pkg/common"

	"github.com/go-playground/validator/v10"
)

// 缺少 message 時的預設摘要
const defaultMessage = "Aqui está a tua receita."

// 缺少數量時的填充值（quanto baste）
const defaultQuantity = "q.b."

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// 錯誤訊息使用 JSON 欄位名稱
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// ParseResult 將模型原始輸出解析為 AnalysisResult
//   - 空輸出 → ErrEmptyGeneration
//   - 非 JSON 或 JSON 前後有其他文字 → ErrMalformedResponse
//   - 型別不符、缺少必要欄位或值不合法 → ErrContractViolation
func ParseResult(raw string, modality Modality) (*AnalysisResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, common.ErrEmptyGeneration
	}

	var result AnalysisResult
	if err := common.ParseJSON(raw, &result); err != nil {
		if common.IsJSONTypeError(err) {
			return nil, common.Wrap(common.ErrContractViolation, err)
		}
		return nil, common.Wrap(common.ErrMalformedResponse, err)
	}

	fillDefaults(&result, modality)

	if err := validate.Struct(&result); err != nil {
		return nil, common.Wrap(common.ErrContractViolation, describeValidation(err))
	}
	return &result, nil
}

// fillDefaults 檢查並補充空值（只補寬鬆欄位，必要欄位交給驗證）
func fillDefaults(r *AnalysisResult, modality Modality) {
	r.Type = ResultType(strings.ToLower(strings.TrimSpace(string(r.Type))))
	if r.Type == "" {
		if modality == ModalityImage {
			r.Type = TypeMixed
		} else {
			r.Type = TypeText
		}
	}
	if strings.TrimSpace(r.Message) == "" {
		r.Message = defaultMessage
	}
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	if r.Substitutions == nil {
		r.Substitutions = []Substitution{}
	}

	rec := r.Recipe
	if rec == nil {
		return
	}
	rec.Title = strings.TrimSpace(rec.Title)
	rec.Difficulty = normalizeDifficulty(rec.Difficulty)
	if rec.Servings == 0 {
		rec.Servings = 1
	}
	if rec.Ingredients == nil {
		rec.Ingredients = []Ingredient{}
	}
	for i := range rec.Ingredients {
		rec.Ingredients[i].Name = strings.TrimSpace(rec.Ingredients[i].Name)
		if strings.TrimSpace(rec.Ingredients[i].Quantity) == "" {
			rec.Ingredients[i].Quantity = defaultQuantity
		}
	}
	if rec.ChefTips == nil {
		rec.ChefTips = []string{}
	}
}

// normalizeDifficulty 接受大小寫、無重音與英文寫法，其他值原樣保留讓驗證失敗
func normalizeDifficulty(d Difficulty) Difficulty {
	switch fold(string(d)) {
	case "facil", "easy":
		return DifficultyEasy
	case "medio", "media", "medium":
		return DifficultyMedium
	case "dificil", "hard":
		return DifficultyHard
	}
	return d
}

// describeValidation 把驗證錯誤整理成欄位清單（只寫日誌）
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s(%s)", strings.TrimPrefix(fe.Namespace(), "AnalysisResult."), fe.Tag()))
	}
	return fmt.Errorf("contract violation: %s", strings.Join(fields, ", "))
}
