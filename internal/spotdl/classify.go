package spotdl

import "strings"

// Category is the outcome a line of tool output reports.
type Category int

const (
	CategoryOther Category = iota
	CategorySuccess
	CategorySkipped
	CategoryFailed
	CategoryProgress
)

func (c Category) String() string {
	switch c {
	case CategorySuccess:
		return "success"
	case CategorySkipped:
		return "skipped"
	case CategoryFailed:
		return "failed"
	case CategoryProgress:
		return "progress"
	default:
		return "other"
	}
}

// Rule maps lines matching Match to Category.
type Rule struct {
	Name     string
	Category Category
	Match    func(line string) bool
}

// Contains matches lines containing any of subs, case sensitive.
func Contains(subs ...string) func(string) bool {
	return func(line string) bool {
		for _, s := range subs {
			if strings.Contains(line, s) {
				return true
			}
		}
		return false
	}
}

// ContainsFold matches lines whose lowercase form contains any of subs, which must be lowercase.
func ContainsFold(subs ...string) func(string) bool {
	match := Contains(subs...)
	return func(line string) bool {
		return match(strings.ToLower(line))
	}
}

// Any matches when any of the matchers does.
func Any(matchers ...func(string) bool) func(string) bool {
	return func(line string) bool {
		for _, m := range matchers {
			if m(line) {
				return true
			}
		}
		return false
	}
}

// DefaultRules is evaluated in order; the first matching rule wins.
var DefaultRules = []Rule{
	{Name: "success", Category: CategorySuccess, Match: Contains("Downloaded", "Success", "✓")},
	{Name: "skip", Category: CategorySkipped, Match: Any(Contains("Skipping"), ContainsFold("exists"))},
	{Name: "failure", Category: CategoryFailed, Match: Any(ContainsFold("error", "failed"), Contains("✗"))},
	{Name: "progress", Category: CategoryProgress, Match: Contains("Downloading", "Found", "Searching")},
}

// Classifier assigns a [Category] to lines with an ordered rule table.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds a classifier from rules, or from [DefaultRules] when none are given.
func NewClassifier(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Classifier{rules: rules}
}

// Classify returns the category of the first rule matching line, or [CategoryOther].
func (c *Classifier) Classify(line string) Category {
	for _, r := range c.rules {
		if r.Match(line) {
			return r.Category
		}
	}
	return CategoryOther
}

// Tally counts classified lines.
type Tally struct {
	Success  int
	Skipped  int
	Failed   int
	Progress int
	Other    int
}

// Add records one line of category c.
func (t *Tally) Add(c Category) {
	switch c {
	case CategorySuccess:
		t.Success++
	case CategorySkipped:
		t.Skipped++
	case CategoryFailed:
		t.Failed++
	case CategoryProgress:
		t.Progress++
	default:
		t.Other++
	}
}
