package domain

// FallbackCategory marks a document the category generator could not handle;
// it signals "needs manual review" rather than a real assignment.
const FallbackCategory = "미분류"

const (
	TaxonomyMinDepth = 1
	TaxonomyMaxDepth = 4
)

// CategoryAssignment is the authoritative per-document result of LLM-driven
// taxonomy generation. Fields beyond the requested depth stay empty.
type CategoryAssignment struct {
	Path        string `json:"path"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory,omitempty"`
	Detail      string `json:"detail,omitempty"`
	SubDetail   string `json:"sub_detail,omitempty"`
	Fallback    bool   `json:"fallback,omitempty"`
}

// CategoryTree groups document paths by category and subcategory. It is a
// presentation aid only; the per-document assignments are what gets persisted.
type CategoryTree map[string]map[string][]string

// TaxonomyResult bundles one generation run.
type TaxonomyResult struct {
	Depth       int                  `json:"depth"`
	Assignments []CategoryAssignment `json:"assignments"`
	Tree        CategoryTree         `json:"tree"`
}

// BuildCategoryTree aggregates assignments into a category → subcategory →
// paths tree. Assignments without a subcategory land under the empty key.
func BuildCategoryTree(assignments []CategoryAssignment) CategoryTree {
	tree := make(CategoryTree)
	for _, a := range assignments {
		sub, ok := tree[a.Category]
		if !ok {
			sub = make(map[string][]string)
			tree[a.Category] = sub
		}
		sub[a.Subcategory] = append(sub[a.Subcategory], a.Path)
	}
	return tree
}
