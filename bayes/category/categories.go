package category

// Categories represents all our trained categories and enables us to interact with them.
// Names come back in the order categories were first added.
type Categories struct {
	categories map[string]*Category // Map of category names to categories
	order      []string             // Insertion order of category names
}

// NewCategories returns a pointer to a instance of type Categories
func NewCategories() *Categories {
	return &Categories{
		categories: make(map[string]*Category),
	}
}

// AddCategory is responsible for adding a new trainable category.
// Adding a name that already exists returns the existing category.
func (cats *Categories) AddCategory(name string) *Category {
	if cat, ok := cats.categories[name]; ok {
		return cat
	}

	cat := NewCategory(name)
	cats.categories[name] = cat
	cats.order = append(cats.order, name)

	return cat
}

// GetCategory returns a specified category
func (cats *Categories) GetCategory(name string) *Category {
	if val, ok := cats.categories[name]; ok {
		return val
	}

	// If we get here, we don't have this category, so we're adding it.
	return cats.AddCategory(name)
}

// LookupCategory returns a category without creating it.
func (cats *Categories) LookupCategory(name string) (*Category, bool) {
	cat, ok := cats.categories[name]
	return cat, ok
}

// Names returns category names in insertion order.
func (cats *Categories) Names() []string {
	names := make([]string, len(cats.order))
	copy(names, cats.order)
	return names
}

// Len returns the number of categories.
func (cats *Categories) Len() int {
	return len(cats.order)
}

// Summaries returns value snapshots of all categories in insertion order.
func (cats *Categories) Summaries() []Summary {
	summaries := make([]Summary, 0, len(cats.order))
	for _, name := range cats.order {
		summaries = append(summaries, cats.categories[name].Summary())
	}
	return summaries
}
