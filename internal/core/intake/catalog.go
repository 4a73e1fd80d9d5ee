package intake

import "strings"

// 關鍵字群組；限制詞透過 restrictionCatalog 展開成多個關鍵字
var (
	meatWords      = []string{"carne", "frango", "peru", "porco", "vaca", "bife", "vitela", "borrego", "cabrito", "pato", "coelho", "fiambre", "presunto", "bacon", "toucinho", "chourico", "salsicha", "linguica", "alheira", "morcela", "banha", "gelatina", "caldo de carne", "caldo de galinha"}
	fishWords      = []string{"peixe", "atum", "bacalhau", "salmao", "sardinha", "pescada", "robalo", "dourada", "anchova", "carapau", "truta", "cavala"}
	shellfishWords = []string{"marisco", "camarao", "gamba", "lagosta", "lagostim", "ameijoa", "mexilhao", "berbigao", "caranguejo", "sapateira", "lula", "polvo", "choco", "ostra", "vieira"}
	dairyWords     = []string{"leite", "queijo", "manteiga", "nata", "natas", "iogurte", "requeijao", "lactose", "mozzarella", "parmesao", "ricota", "mascarpone", "chantilly"}
	eggWords       = []string{"ovo", "gema", "clara", "maionese"}
	glutenWords    = []string{"trigo", "farinha", "pao", "pao ralado", "massa", "esparguete", "cevada", "centeio", "cuscuz", "bolacha", "seitan", "gluten", "bulgur", "tortilha"}
	nutWords       = []string{"noz", "amendoa", "avela", "caju", "pistacho", "pinhao", "castanha", "macadamia", "noz peca"}
	peanutWords    = []string{"amendoim", "manteiga de amendoim"}
	soyWords       = []string{"soja", "tofu", "edamame", "molho de soja", "miso", "tempeh"}
	carbWords      = []string{"acucar", "arroz", "massa", "pao", "batata", "farinha", "esparguete", "cuscuz"}
	porkWords      = []string{"porco", "bacon", "presunto", "fiambre", "chourico", "toucinho", "banha", "linguica", "salsicha"}
	alcoholWords   = []string{"vinho", "cerveja", "rum", "aguardente", "licor", "vodka"}
)

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// restrictionCatalog 已 fold 的限制詞 → 需要檢查的關鍵字
var restrictionCatalog = map[string][]string{
	// 飲食偏好
	"vegetariano":       concat(meatWords, fishWords, shellfishWords),
	"vegano":            concat(meatWords, fishWords, shellfishWords, dairyWords, eggWords, []string{"mel"}),
	"sem gluten":        glutenWords,
	"sem lactose":       dairyWords,
	"halal":             concat(porkWords, alcoholWords, []string{"gelatina"}),
	"kosher":            concat(porkWords, shellfishWords),
	"baixo carboidrato": carbWords,
	"paleo":             concat(carbWords, dairyWords, soyWords, []string{"feijao", "grao", "lentilha", "ervilha"}),

	// 過敏
	"nozes":        nutWords,
	"frutos secos": nutWords,
	"amendoim":     peanutWords,
	"leite":        dairyWords,
	"lactose":      dairyWords,
	"ovos":         eggWords,
	"ovo":          eggWords,
	"peixe":        fishWords,
	"marisco":      shellfishWords,
	"mariscos":     shellfishWords,
	"soja":         soyWords,
	"trigo/gluten": glutenWords,
	"gluten":       glutenWords,
	"trigo":        glutenWords,
}

// substituteCatalog 已 fold 並單數化的關鍵字 → 建議替代品
var substituteCatalog = map[string]string{
	"leite":                "bebida vegetal de aveia",
	"queijo":               "levedura nutricional",
	"manteiga":             "azeite",
	"nata":                 "natas de aveia",
	"iogurte":              "iogurte de coco",
	"requeijao":            "húmus",
	"ovo":                  "sementes de linhaça hidratadas",
	"maionese":             "maionese de grão-de-bico",
	"farinha":              "farinha sem glúten",
	"pao":                  "pão sem glúten",
	"pao ralado":           "pão ralado sem glúten",
	"massa":                "massa sem glúten",
	"esparguete":           "esparguete sem glúten",
	"cuscuz":               "quinoa",
	"amendoim":             "sementes de girassol",
	"manteiga de amendoim": "manteiga de sementes de girassol",
	"noz":                  "sementes de abóbora",
	"amendoa":              "sementes de girassol",
	"avela":                "sementes de abóbora",
	"caju":                 "sementes de girassol",
	"carne":                "grão-de-bico",
	"vaca":                 "cogumelos portobello",
	"frango":               "grão-de-bico",
	"porco":                "frango",
	"bacon":                "cogumelos fumados",
	"presunto":             "cogumelos salteados",
	"chourico":             "pimentão fumado",
	"atum":                 "grão-de-bico esmagado",
	"bacalhau":             "cogumelos",
	"salmao":               "cenoura marinada",
	"peixe":                "cogumelos",
	"camarao":              "cogumelos",
	"soja":                 "grão-de-bico",
	"molho de soja":        "aminos de coco",
	"tofu":                 "grão-de-bico",
	"acucar":               "eritritol",
	"arroz":                "couve-flor ralada",
	"batata":               "couve-flor",
	"mel":                  "xarope de ácer",
	"vinho":                "caldo de legumes",
	"cerveja":              "caldo de legumes",
	"gelatina":             "agar-agar",
	"banha":                "azeite",
}

// restrictionRule 一個限制詞展開後的比對規則
type restrictionRule struct {
	term     string   // 原始寫法，用於警告文字
	bases    []string // 「sem X」中的 X；出現時視為符合限制
	keywords []string // 已 fold 的關鍵字
}

// newRule 建立比對規則；不在目錄中的限制詞只比對其本身
func newRule(term string) restrictionRule {
	key := fold(term)
	r := restrictionRule{term: term}

	base := strings.TrimPrefix(key, "sem ")
	for _, b := range strings.Split(base, "/") {
		if b = strings.TrimSpace(b); b != "" {
			r.bases = append(r.bases, b)
		}
	}

	r.keywords = append(r.keywords, key)
	r.keywords = append(r.keywords, r.bases...)
	for _, kw := range restrictionCatalog[key] {
		r.keywords = append(r.keywords, fold(kw))
	}
	return r
}

// match 回傳命中的關鍵字；ingredient 必須已 fold
func (r restrictionRule) match(ingredient string) (string, bool) {
	if ingredient == "" {
		return "", false
	}
	for _, b := range r.bases {
		if strings.Contains(ingredient, "sem "+b) {
			return "", false
		}
	}

	words := tokens(ingredient)
	for _, kw := range r.keywords {
		if kw == "" {
			continue
		}
		if strings.ContainsRune(kw, ' ') {
			if strings.Contains(ingredient, kw) {
				return kw, true
			}
			continue
		}
		stem := singular(kw)
		for _, w := range words {
			if w == kw || singular(w) == stem {
				return kw, true
			}
		}
	}

	// 目錄外的自由文字限制詞，退回子字串比對
	if _, known := restrictionCatalog[r.keywords[0]]; !known && strings.Contains(ingredient, r.keywords[0]) {
		return r.keywords[0], true
	}
	return "", false
}

// substituteFor 查詢替代品：先比對整個食材名稱，再比對命中的關鍵字
func substituteFor(ingredient, keyword string) (string, bool) {
	for _, k := range []string{ingredient, singular(ingredient), keyword, singular(keyword)} {
		if s, ok := substituteCatalog[k]; ok {
			return s, true
		}
	}
	return "", false
}
