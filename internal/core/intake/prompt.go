package intake

import (
	"fmt"
	"strings"
)

// PromptVersion 指令模板版本；輸出結構與 ParseResult 綁定，修改模板必須升版
const PromptVersion = "2"

// ImageInstruction 圖片模式的固定指令（不可由使用者修改）
const ImageInstruction = `Analisa esta imagem e identifica:
1. Se são ingredientes, lista-os
2. Se é um prato pronto, sugere a receita
3. Se é uma sobremesa, dá a receita
Classifica a imagem como "ingredients", "dish", "dessert" ou "mixed" e gera sempre uma receita completa.`

// ImagePlaceholderQuery 圖片模式寫入歷史記錄的查詢文字
const ImagePlaceholderQuery = "Análise de imagem"

// resultSchema 要求模型遵守的輸出結構（%s 為 type 的允許值）
const resultSchema = `Retorna APENAS um objeto JSON, sem texto adicional e sem blocos de código, com esta estrutura:
{
  "type": "%s",
  "message": "descrição curta do que entendeste",
  "items": ["item1", "item2"],
  "recipe": {
    "title": "Nome da Receita",
    "description": "Descrição curta",
    "prepTime": "30 minutos",
    "difficulty": "Fácil|Médio|Difícil",
    "servings": 4,
    "ingredients": [{"name": "ingrediente", "quantity": "200g", "isRestricted": false}],
    "steps": ["Passo 1", "Passo 2"],
    "variations": {"quick": "versão rápida", "economical": "versão económica", "healthy": "versão saudável"},
    "chefTips": ["dica 1", "dica 2"],
    "videoSuggestions": ["pesquisa de vídeo 1"]
  },
  "warnings": ["aviso sobre ingrediente restrito"],
  "substitutions": [{"ingredient": "X", "substitute": "Y"}]
}`

// strictReminder 重試時附加的更嚴格要求
const strictReminder = `IMPORTANTE: a resposta anterior não respeitou o formato. Responde só com JSON válido.
Campos obrigatórios: recipe.title não vazio, recipe.steps com pelo menos um passo,
recipe.difficulty exatamente "Fácil", "Médio" ou "Difícil", recipe.servings inteiro positivo,
cada ingrediente com "name" e "quantity" não vazios.`

// RestrictionClause 限制條款，空集合時為 "Nenhuma"
func RestrictionClause(r Restrictions) string {
	return "Restrições do usuário: " + r.Clause()
}

// BuildPrompt 組合完整指令：請求內容、限制條款與輸出結構
func BuildPrompt(req *NormalizedRequest, strict bool) string {
	var sb strings.Builder

	switch req.Modality {
	case ModalityImage:
		sb.WriteString(ImageInstruction)
		sb.WriteString("\n\n")
		sb.WriteString(RestrictionClause(req.Restrictions))
		sb.WriteString("\nNão uses ingredientes que violem as restrições; se aparecerem, marca isRestricted=true e sugere substituições.\n\n")
		sb.WriteString(fmt.Sprintf(resultSchema, "ingredients|dish|dessert|mixed"))
	default:
		sb.WriteString(fmt.Sprintf("Analisa este pedido: %q\n\n", req.PromptText))
		sb.WriteString(RestrictionClause(req.Restrictions))
		sb.WriteString("\nNão uses ingredientes que violem as restrições; se aparecerem, marca isRestricted=true e sugere substituições.\n\n")
		sb.WriteString("Gera uma receita COMPLETA e REALISTA em português de Portugal.\n\n")
		sb.WriteString(fmt.Sprintf(resultSchema, "text"))
	}

	if strict {
		sb.WriteString("\n\n")
		sb.WriteString(strictReminder)
	}
	return sb.String()
}
