package taxonomy

import (
	"fmt"

	"threadberry/product-service/internal/app/product/entity"
)

// MatchKind - результат классификации категорийного токена
type MatchKind int

const (
	// Ambiguous - токен не является ни main, ни sub категорией;
	// вызывающая сторона делает best-effort поиск по обоим полям
	Ambiguous MatchKind = iota
	// MainMatch - точное совпадение с main категорией
	MainMatch
	// SubMatch - точное совпадение с sub категорией
	SubMatch
)

// Match - разрешённый категорийный токен
type Match struct {
	Kind MatchKind
	Main string // заполнено для MainMatch и SubMatch (родительская категория)
	Sub  string // заполнено для SubMatch
}

// Taxonomy - иммутабельная двухуровневая иерархия категорий плюс перечисление размеров
// Конструируется один раз при старте и внедряется в query resolver и service
type Taxonomy struct {
	mains       []string
	subs        map[string][]string
	subToMain   map[string]string
	sizes       []entity.Size
	sizeByValue map[string]string // value -> каноническое name
}

// Default возвращает таксономию каталога одежды
func Default() *Taxonomy {
	subs := map[string][]string{
		"TOPS":       {"TSHIRT", "POLO_SHIRT", "TANK_TOP", "BLOUSE", "SHIRT", "TUNIC"},
		"SPORTSWEAR": {"JERSEY", "SWEATSHIRT", "HOODIE", "FLEECE"},
		"OUTERWEAR":  {"LEATHER_JACKET", "COAT"},
		"BOTTOMS":    {"JEANS", "TROUSERS", "CHINOS", "SHORTS", "CARGO_PANTS", "LEGGINGS", "SKIRT", "PALAZZOS", "DUNGAREES"},
		"ACCESSORIES": {"GLOVES", "CAPS", "SOCKS", "WRIST_BANDS"},
	}

	sizes := []entity.Size{
		{Name: "2X Small", Value: "2XS"},
		{Name: "X Small", Value: "XS"},
		{Name: "Small", Value: "S"},
		{Name: "Medium", Value: "M"},
		{Name: "Large", Value: "L"},
		{Name: "X Large", Value: "XL"},
		{Name: "2X Large", Value: "2XL"},
		{Name: "3X Large", Value: "3XL"},
		{Name: "4X Large", Value: "4XL"},
		{Name: "5X Large", Value: "5XL"},
	}

	t := &Taxonomy{
		mains:       []string{"TOPS", "BOTTOMS", "OUTERWEAR", "SPORTSWEAR", "ACCESSORIES"},
		subs:        subs,
		subToMain:   make(map[string]string),
		sizes:       sizes,
		sizeByValue: make(map[string]string),
	}

	for main, list := range subs {
		for _, sub := range list {
			t.subToMain[sub] = main
		}
	}
	for _, s := range sizes {
		t.sizeByValue[s.Value] = s.Name
	}

	return t
}

// Resolve классифицирует произвольный токен
// Приоритет строгий: точное совпадение с main, затем точное совпадение с sub,
// затем Ambiguous (fallback остаётся за вызывающей стороной)
func (t *Taxonomy) Resolve(token string) Match {
	for _, main := range t.mains {
		if token == main {
			return Match{Kind: MainMatch, Main: main}
		}
	}
	if main, ok := t.subToMain[token]; ok {
		return Match{Kind: SubMatch, Main: main, Sub: token}
	}
	return Match{Kind: Ambiguous}
}

// ValidateCategory проверяет инвариант иерархии: sub должен принадлежать main
// Нарушение - ошибка валидации, категория никогда не исправляется молча
func (t *Taxonomy) ValidateCategory(c entity.Category) error {
	list, ok := t.subs[c.Main]
	if !ok {
		return fmt.Errorf("unknown main category %q", c.Main)
	}
	for _, sub := range list {
		if c.Sub == sub {
			return nil
		}
	}
	return fmt.Errorf("sub category %q does not belong to main category %q", c.Sub, c.Main)
}

// ValidateSizes проверяет, что каждая пара name/value является одной
// канонической записью перечисления размеров
func (t *Taxonomy) ValidateSizes(sizes []entity.Size) error {
	for _, s := range sizes {
		name, ok := t.sizeByValue[s.Value]
		if !ok {
			return fmt.Errorf("unknown size value %q", s.Value)
		}
		if s.Name != name {
			return fmt.Errorf("size name %q does not match canonical name %q for value %q", s.Name, name, s.Value)
		}
	}
	return nil
}

// MainCategories возвращает копию списка main категорий
func (t *Taxonomy) MainCategories() []string {
	out := make([]string, len(t.mains))
	copy(out, t.mains)
	return out
}

// SubCategories возвращает копию списка sub категорий для main
func (t *Taxonomy) SubCategories(main string) []string {
	list, ok := t.subs[main]
	if !ok {
		return nil
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// Sizes возвращает копию перечисления размеров
func (t *Taxonomy) Sizes() []entity.Size {
	out := make([]entity.Size, len(t.sizes))
	copy(out, t.sizes)
	return out
}
