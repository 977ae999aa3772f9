package query

import (
	"regexp"
	"strings"

	"threadberry/product-service/internal/app/product/entity"
	"threadberry/product-service/internal/app/product/taxonomy"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Лимиты по умолчанию для разных листингов
const (
	DefaultLimitCurated  = 8  // подборка "our products" на главной
	DefaultLimitBrowse   = 12 // общий листинг каталога
	DefaultLimitCategory = 20 // страница категории
	DefaultLimitRelated  = 6  // похожие товары
)

// Plan - разрешённый запрос к коллекции товаров
// Filter потребляется репозиторием напрямую; в него никогда не попадают
// несанкционированные ключи из параметров запроса
type Plan struct {
	Filter bson.M
	Sort   bson.D
	Skip   int64
	Limit  int64
	Page   int
}

// allowedSortFields - whitelist полей сортировки
// Произвольное имя поля из query параметров в sort не попадает
var allowedSortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"price":      true,
	"name":       true,
	"stock":      true,
}

// Resolver превращает сырые параметры фильтрации в query plan
type Resolver struct {
	tax *taxonomy.Taxonomy
}

// NewResolver создает resolver с внедрённой таксономией
func NewResolver(tax *taxonomy.Taxonomy) *Resolver {
	return &Resolver{tax: tax}
}

// Resolve строит план запроса из параметров листинга
// defaultLimit зависит от вызывающего листинга (8/12/20)
func (r *Resolver) Resolve(params entity.ListParams, defaultLimit int) *Plan {
	filter := bson.M{}
	var orGroups []bson.M

	// Категорийный фильтр: точное совпадение main > точное совпадение sub >
	// best-effort regex по обоим полям (legacy данные с плоской категорией)
	if params.Category != "" {
		match := r.tax.Resolve(params.Category)
		switch match.Kind {
		case taxonomy.MainMatch:
			filter["category.main"] = match.Main
		case taxonomy.SubMatch:
			filter["category.sub"] = match.Sub
		default:
			orGroups = append(orGroups, bson.M{"$or": []bson.M{
				{"category.main": caseInsensitive(params.Category)},
				{"category.sub": caseInsensitive(params.Category)},
			}})
		}
	}

	// Поисковый фильтр: дизъюнкция по name/description/category/search_text.
	// С категорийным фильтром соединяется конъюнкцией на верхнем уровне -
	// плоское слияние двух $or групп было бы некорректным
	if params.Search != "" {
		term := caseInsensitive(params.Search)
		orGroups = append(orGroups, bson.M{"$or": []bson.M{
			{"name": term},
			{"description": term},
			{"category.main": term},
			{"category.sub": term},
			{"search_text": term},
		}})
	}

	switch len(orGroups) {
	case 0:
	case 1:
		filter["$or"] = orGroups[0]["$or"]
	default:
		filter["$and"] = orGroups
	}

	// Ценовой интервал: границы включительные, отсутствующая граница
	// не накладывает ограничения
	if params.MinPrice != nil || params.MaxPrice != nil {
		price := bson.M{}
		if params.MinPrice != nil {
			price["$gte"] = *params.MinPrice
		}
		if params.MaxPrice != nil {
			price["$lte"] = *params.MaxPrice
		}
		filter["price"] = price
	}

	// Размеры: пересечение множеств, а не точное равенство набора
	if len(params.Sizes) > 0 {
		filter["sizes.value"] = bson.M{"$in": params.Sizes}
	}

	return &Plan{
		Filter: filter,
		Sort:   resolveSort(params.SortBy, params.SortOrder),
		Skip:   int64((sanitizePage(params.Page) - 1) * sanitizeLimit(params.Limit, defaultLimit)),
		Limit:  int64(sanitizeLimit(params.Limit, defaultLimit)),
		Page:   sanitizePage(params.Page),
	}
}

// Owner строит план выборки товаров владельца
// Использует индекс (owner, category.main)
func Owner(owner string) *Plan {
	return &Plan{
		Filter: bson.M{"owner": owner},
		Sort:   bson.D{{Key: "created_at", Value: -1}},
		Page:   1,
	}
}

// Related строит план выборки похожих товаров: та же main категория,
// сам товар исключается
func Related(main string, exclude primitive.ObjectID, page, limit int) *Plan {
	p := sanitizePage(page)
	l := sanitizeLimit(limit, DefaultLimitRelated)
	return &Plan{
		Filter: bson.M{
			"category.main": main,
			"_id":           bson.M{"$ne": exclude},
		},
		Sort:  bson.D{{Key: "created_at", Value: -1}},
		Skip:  int64((p - 1) * l),
		Limit: int64(l),
		Page:  p,
	}
}

// NewArrivals строит план выборки новинок
func NewArrivals(limit int) *Plan {
	return &Plan{
		Filter: bson.M{"is_new_arrival": true},
		Sort:   bson.D{{Key: "created_at", Value: -1}},
		Limit:  int64(sanitizeLimit(limit, DefaultLimitRelated)),
		Page:   1,
	}
}

// TextSearch строит план полнотекстового поиска по производному полю
func TextSearch(term string) *Plan {
	return &Plan{
		Filter: bson.M{"search_text": caseInsensitive(term)},
		Sort:   bson.D{{Key: "created_at", Value: -1}},
		Page:   1,
	}
}

// BuildPagination вычисляет метаданные пагинации от независимого count
func BuildPagination(plan *Plan, total int64) entity.Pagination {
	totalPages := 0
	if plan.Limit > 0 {
		totalPages = int((total + plan.Limit - 1) / plan.Limit)
	} else if total > 0 {
		totalPages = 1
	}
	return entity.Pagination{
		CurrentPage:   plan.Page,
		TotalPages:    totalPages,
		TotalProducts: total,
		HasNext:       plan.Page < totalPages,
		HasPrev:       plan.Page > 1,
	}
}

func resolveSort(sortBy, sortOrder string) bson.D {
	field := sortBy
	if !allowedSortFields[field] {
		field = "created_at"
	}
	direction := -1
	if strings.EqualFold(sortOrder, "asc") {
		direction = 1
	}
	return bson.D{{Key: field, Value: direction}}
}

func sanitizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func sanitizeLimit(limit, defaultLimit int) int {
	if limit < 1 {
		return defaultLimit
	}
	return limit
}

func caseInsensitive(token string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(token), Options: "i"}
}
