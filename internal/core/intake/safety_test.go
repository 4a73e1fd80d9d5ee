package intake

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult(t *testing.T) *AnalysisResult {
	t.Helper()
	result, err := ParseResult(recipeJSON, ModalityText)
	require.NoError(t, err)
	return result
}

func ingredient(r *AnalysisResult, name string) Ingredient {
	for _, ing := range r.Recipe.Ingredients {
		if ing.Name == name {
			return ing
		}
	}
	return Ingredient{}
}

func TestAnnotateFlagsRestrictedIngredient(t *testing.T) {
	a := NewSafetyAnnotator()
	out, note := a.Annotate(sampleResult(t), NewRestrictions([]string{"Ovos"}))

	assert.True(t, ingredient(out, "Ovos").IsRestricted)
	assert.False(t, ingredient(out, "Arroz").IsRestricted)
	assert.False(t, ingredient(out, "Frango").IsRestricted)

	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "Ovos")
	assert.Equal(t, []Substitution{{Ingredient: "Ovos", Substitute: "sementes de linhaça hidratadas"}}, out.Substitutions)
	assert.Equal(t, Annotation{Flagged: 1, Warnings: 1, Substitutions: 1}, note)
}

func TestAnnotateEmptyRestrictionsIsNoop(t *testing.T) {
	in := sampleResult(t)
	out, note := NewSafetyAnnotator().Annotate(in, NewRestrictions())

	assert.Equal(t, in, out)
	assert.Equal(t, Annotation{}, note)
}

func TestAnnotateDoesNotMutateInput(t *testing.T) {
	in := sampleResult(t)
	before := in.Clone()

	_, _ = NewSafetyAnnotator().Annotate(in, NewRestrictions([]string{"Vegetariano", "Ovos"}))

	assert.Equal(t, before, in)
}

func TestAnnotateIsIdempotent(t *testing.T) {
	a := NewSafetyAnnotator()
	r := NewRestrictions([]string{"Vegano"}, []string{"Trigo/Glúten"})

	once, _ := a.Annotate(sampleResult(t), r)
	twice, note := a.Annotate(once, r)

	assert.Equal(t, once, twice)
	assert.Equal(t, Annotation{}, note)
}

func TestAnnotateNeverUnflags(t *testing.T) {
	in := sampleResult(t)
	in.Recipe.Ingredients[0].IsRestricted = true

	out, _ := NewSafetyAnnotator().Annotate(in, NewRestrictions([]string{"Ovos"}))

	assert.True(t, ingredient(out, "Arroz").IsRestricted)
	assert.True(t, ingredient(out, "Ovos").IsRestricted)
}

func TestAnnotateCatalogExpansion(t *testing.T) {
	tests := []struct {
		name        string
		restriction string
		ingredient  string
		flagged     bool
	}{
		{"vegetarian catches chicken", "Vegetariano", "Peitos de frango", true},
		{"vegetarian allows vegetables", "Vegetariano", "Caldo de legumes", false},
		{"vegan catches honey", "Vegano", "Mel", true},
		{"shellfish plural", "Marisco", "Camarões", true},
		{"accent insensitive", "sem glúten", "Farinha de TRIGO", true},
		{"sem gluten product complies", "Sem Glúten", "Pão sem glúten", false},
		{"lactose free milk complies", "Sem Lactose", "Leite sem lactose", false},
		{"peanut butter", "Amendoim", "Manteiga de amendoim", true},
		{"nuts do not match coconut", "Nozes", "Leite de coco", false},
		{"free text restriction", "Coentros", "Coentros frescos", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &AnalysisResult{
				Type:    TypeText,
				Message: "ok",
				Recipe: &Recipe{
					Title:       "Teste",
					Difficulty:  DifficultyEasy,
					Servings:    1,
					Ingredients: []Ingredient{{Name: tt.ingredient, Quantity: "1"}},
					Steps:       []string{"Misturar"},
				},
			}
			out, _ := NewSafetyAnnotator().Annotate(in, NewRestrictions([]string{tt.restriction}))
			assert.Equal(t, tt.flagged, out.Recipe.Ingredients[0].IsRestricted)
			assert.Equal(t, tt.flagged, len(out.Warnings) == 1)
		})
	}
}

func TestAnnotateWarningNamesFirstRestrictionInOrder(t *testing.T) {
	in := sampleResult(t)
	in.Recipe.Ingredients = append(in.Recipe.Ingredients, Ingredient{Name: "Queijo", Quantity: "100g"})

	out, _ := NewSafetyAnnotator().Annotate(in, NewRestrictions([]string{"Vegano", "Sem Lactose"}))

	var queijo string
	for _, w := range out.Warnings {
		if strings.Contains(w, "Queijo") {
			queijo = w
		}
	}
	assert.Contains(t, queijo, `"Vegano"`)
	assert.NotContains(t, queijo, "Sem Lactose")
}

func TestAnnotateKeepsModelWarningsAndSubstitutions(t *testing.T) {
	in := sampleResult(t)
	in.Warnings = []string{"Os ovos podem causar reações alérgicas."}
	in.Substitutions = []Substitution{{Ingredient: "Ovos", Substitute: "aquafaba"}}

	out, note := NewSafetyAnnotator().Annotate(in, NewRestrictions([]string{"Ovos"}))

	assert.Equal(t, in.Warnings, out.Warnings)
	assert.Equal(t, in.Substitutions, out.Substitutions)
	assert.Equal(t, 1, note.Flagged)
	assert.Zero(t, note.Warnings)
	assert.Zero(t, note.Substitutions)
}

func TestAnnotateWarnsOncePerFlaggedIngredient(t *testing.T) {
	tests := []struct {
		name          string
		restrictions  []string
		ingredients   []string
		modelWarnings []string
		wantWarned    []string
	}{
		{
			name:         "name contained in another ingredient",
			restrictions: []string{"Ovos"},
			ingredients:  []string{"Gemas de ovos", "Ovos"},
			wantWarned:   []string{"Gemas de ovos", "Ovos"},
		},
		{
			name:         "shorter ingredient first",
			restrictions: []string{"Ovos"},
			ingredients:  []string{"Ovos", "Claras de ovos", "Gemas de ovos"},
			wantWarned:   []string{"Ovos", "Claras de ovos", "Gemas de ovos"},
		},
		{
			name:         "ingredient equal to the restriction term",
			restrictions: []string{"Leite"},
			ingredients:  []string{"Leite", "Leite condensado"},
			wantWarned:   []string{"Leite", "Leite condensado"},
		},
		{
			name:          "model warning mentions the whole word",
			restrictions:  []string{"Ovos"},
			ingredients:   []string{"Gemas de ovos", "Ovos"},
			modelWarnings: []string{"Cuidado: esta receita leva ovos."},
			wantWarned:    []string{"Gemas de ovos"},
		},
		{
			name:          "model warning with a partial word does not count",
			restrictions:  []string{"Mel"},
			ingredients:   []string{"Mel"},
			modelWarnings: []string{"Caramelizar bem a cebola."},
			wantWarned:    []string{"Mel"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := sampleResult(t)
			in.Warnings = tt.modelWarnings
			in.Recipe.Ingredients = nil
			for _, name := range tt.ingredients {
				in.Recipe.Ingredients = append(in.Recipe.Ingredients, Ingredient{Name: name, Quantity: "1"})
			}
			r := NewRestrictions(tt.restrictions)

			a := NewSafetyAnnotator()
			out, note := a.Annotate(in, r)

			for _, ing := range out.Recipe.Ingredients {
				assert.True(t, ing.IsRestricted, ing.Name)
			}
			var warned []string
			for _, w := range out.Warnings {
				if name, ok := warnedIngredient(w); ok {
					warned = append(warned, name)
				}
			}
			assert.Equal(t, tt.wantWarned, warned)
			assert.Equal(t, len(tt.wantWarned), note.Warnings)
			assert.Len(t, out.Warnings, len(tt.modelWarnings)+len(tt.wantWarned))

			again, note := a.Annotate(out, r)
			assert.Equal(t, out, again)
			assert.Equal(t, Annotation{}, note)
		})
	}
}

func TestAnnotateSkipsSubstituteThatViolatesAnotherRestriction(t *testing.T) {
	in := sampleResult(t)
	in.Recipe.Ingredients = []Ingredient{{Name: "Leite", Quantity: "200ml"}}

	// 燕麥飲品本身違反第二個限制
	out, _ := NewSafetyAnnotator().Annotate(in, NewRestrictions([]string{"Sem Lactose", "Aveia"}))

	assert.True(t, out.Recipe.Ingredients[0].IsRestricted)
	assert.Empty(t, out.Substitutions)
}

func TestAnnotateMessageOnlyResult(t *testing.T) {
	in := MessageOnly(ModalityText, "erro")
	out, note := NewSafetyAnnotator().Annotate(in, NewRestrictions([]string{"Ovos"}))

	assert.Equal(t, in, out)
	assert.Equal(t, Annotation{}, note)
}

func TestNewRestrictionsDedupsAcrossGroups(t *testing.T) {
	r := NewRestrictions(
		[]string{"Vegano", " sem  glúten ", ""},
		[]string{"VEGANO", "Sem Gluten", "Amendoim"},
	)
	assert.Equal(t, Restrictions{"Vegano", "sem glúten", "Amendoim"}, r)
	assert.Equal(t, "Vegano, sem glúten, Amendoim", r.Clause())
	assert.Equal(t, "Nenhuma", NewRestrictions().Clause())
}

func TestSingular(t *testing.T) {
	assert.Equal(t, "camarao", singular("camaroes"))
	assert.Equal(t, "ovo", singular("ovos"))
	assert.Equal(t, "noz", singular("nozes"))
	assert.Equal(t, "atum", singular("atuns"))
	assert.Equal(t, "mel", singular("mel"))
}
