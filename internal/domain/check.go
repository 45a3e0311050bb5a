package domain

// SearchScope - где искать совпадения.
type SearchScope string

const (
	ScopeInternet SearchScope = "internet"
	ScopePrivate  SearchScope = "private"
	ScopeCombined SearchScope = "combined"
)

func (s SearchScope) IsValid() bool {
	switch s {
	case ScopeInternet, ScopePrivate, ScopeCombined:
		return true
	default:
		return false
	}
}

func (s SearchScope) String() string {
	return string(s)
}

// CheckRequest - проверка URL или текста. Ровно одно из URL/Text.
type CheckRequest struct {
	UserID   int64
	URL      string
	Text     string
	Encoding string
	Scope    SearchScope
	Full     int
}

func (r *CheckRequest) IsText() bool {
	return r.URL == ""
}

func (r *CheckRequest) Validate() error {
	if !r.Scope.IsValid() {
		return ErrInvalidScope
	}
	if r.Full < 0 || r.Full > MaxFullComparisons {
		return ErrInvalidFull
	}
	if r.URL != "" && r.Text != "" {
		return ErrAmbiguousRequest
	}
	if r.URL == "" && r.Text == "" {
		return ErrAmbiguousRequest
	}
	if r.URL != "" {
		return ValidateURL(r.URL)
	}
	return ValidateText(r.Text)
}
