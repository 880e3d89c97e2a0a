package internal

type MatchMethod string

const (
	MethodExactCode          MatchMethod = "exact_code"
	MethodExactCodeWithAttrs MatchMethod = "exact_code_with_attributes"
	MethodFuzzyCodeWithAttrs MatchMethod = "fuzzy_code_with_attributes"
	MethodAttributeMatching  MatchMethod = "attribute_matching"
	MethodRAGSemantic        MatchMethod = "rag_semantic"
	MethodRAGSemanticAttrs   MatchMethod = "rag_semantic_with_attributes"
	MethodKeywordName        MatchMethod = "keyword_name_matching"
	MethodPartialReview      MatchMethod = "partial_match_review_required"
	MethodNoMatch            MatchMethod = "no_match"
)

// NoCodeSentinel is what the extraction layer emits when a line item carried
// no recognizable product code.
const NoCodeSentinel = "NO_CODE_FOUND"

type CatalogProduct struct {
	ID            int     `json:"id"`
	Code          string  `json:"default_code"`
	Name          string  `json:"name"`
	ListPrice     float64 `json:"list_price"`
	StandardPrice float64 `json:"standard_price"`
	Category      string  `json:"category"`
}

type ExtractedLineItem struct {
	LineNo    int      `json:"line_no"`
	Name      string   `json:"name"`
	Code      *string  `json:"code"`
	Quantity  *float64 `json:"quantity"`
	UnitPrice *float64 `json:"unit_price"`
}

// AttributeSet holds facets pulled out of free text. A nil/empty field means
// "no constraint", not zero. Dimensions are millimeters.
type AttributeSet struct {
	Brand         string
	MachineType   string
	Color         string
	ProductLine   string
	Width         *float64
	Height        *float64
	Thickness     *float64
	Length        *float64
	MaterialCodes map[string]struct{}
}

func (a AttributeSet) HasDimensions() bool {
	return a.Width != nil || a.Height != nil || a.Thickness != nil || a.Length != nil
}

func (a AttributeSet) Usable() bool {
	return a.Brand != "" || a.MachineType != "" || a.Color != "" || a.ProductLine != "" || a.HasDimensions()
}

type MatchCandidate struct {
	Product CatalogProduct `json:"product"`
	Score   float64        `json:"score"`
}

type MatchResult struct {
	Match          *CatalogProduct  `json:"match"`
	Confidence     float64          `json:"confidence"`
	Method         MatchMethod      `json:"method"`
	RequiresReview bool             `json:"requires_review"`
	Candidates     []MatchCandidate `json:"candidates,omitempty"`
}

type OrderRow struct {
	ID        int
	Reference string
	Status    string
	CreatedAt string
}

type LineExportRow struct {
	LineNo           int
	InputName        string
	InputCode        *string
	InputQty         *float64
	InputUnitPrice   *float64
	Method           string
	Confidence       float64
	RequiresReview   bool
	ProductID        *int
	ProductCode      *string
	ProductName      *string
	ProductCategory  *string
	ProductListPrice *float64
	Candidate2Name   *string
	Candidate2Score  *float64
}
