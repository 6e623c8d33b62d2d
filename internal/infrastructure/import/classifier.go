package sheetimport

import (
	"fmt"
	"io"
	"strings"
)

// DocumentKind is the expected type of an uploaded workbook
type DocumentKind string

const (
	KindPnL          DocumentKind = "pnl"
	KindTrialBalance DocumentKind = "osv"
)

// DefaultScanRows is how many leading rows the classifier looks at
const DefaultScanRows = 30

// Verdict reasons
const (
	ReasonNotTrialBalance    = "not a turnover-balance statement: title or account column missing"
	ReasonMissingDebitCredit = "missing debit/credit columns"
	ReasonNotPnL             = "not a comparative financial analysis report"
	ReasonMissingPlanFact    = "missing plan/fact columns"
	ReasonCrossContamination = "file looks like a turnover-balance statement, not a P&L report"
	ReasonUnknownKind        = "unknown document kind"
	ReasonUnreadable         = "unable to parse file"
)

// Keywords are the lowercase markers the classifier searches for. Stems
// are used where the source documents inflect the word.
type Keywords struct {
	TrialBalancePhrase string   `mapstructure:"trial_balance_phrase"`
	Account            string   `mapstructure:"account"`
	Debit              string   `mapstructure:"debit"`
	Credit             string   `mapstructure:"credit"`
	PnLMarkers         []string `mapstructure:"pnl_markers"`
	Plan               string   `mapstructure:"plan"`
	Fact               string   `mapstructure:"fact"`
}

// DefaultKeywords returns markers for Russian accounting exports
func DefaultKeywords() Keywords {
	return Keywords{
		TrialBalancePhrase: "оборотно-сальдовая ведомость",
		Account:            "счет",
		Debit:              "дебет",
		Credit:             "кредит",
		PnLMarkers:         []string{"сравнительн", "анализ", "финансов"},
		Plan:               "план",
		Fact:               "факт",
	}
}

// Verdict is the outcome of classifying a workbook
type Verdict struct {
	OK     bool         `json:"ok"`
	Kind   DocumentKind `json:"kind"`
	Reason string       `json:"reason,omitempty"`
}

// Classifier decides whether a workbook is the expected document type by
// keyword presence in its leading rows
type Classifier struct {
	keywords Keywords
	scanRows int
}

// ClassifierOption configures a Classifier
type ClassifierOption func(*Classifier)

// WithKeywords overrides the marker set
func WithKeywords(k Keywords) ClassifierOption {
	return func(c *Classifier) {
		c.keywords = k
	}
}

// WithScanRows overrides the number of rows inspected
func WithScanRows(n int) ClassifierOption {
	return func(c *Classifier) {
		if n > 0 {
			c.scanRows = n
		}
	}
}

// NewClassifier creates a classifier with default keywords
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		keywords: DefaultKeywords(),
		scanRows: DefaultScanRows,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Flatten joins the first n rows into one lowercase string with collapsed
// whitespace and "ё" read as "е"
func Flatten(grid Grid, n int) string {
	var sb strings.Builder
	for i := 0; i < n && i < len(grid); i++ {
		for _, cell := range grid[i] {
			sb.WriteString(cell)
			sb.WriteByte(' ')
		}
	}
	return normalizeText(sb.String())
}

func normalizeText(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "ё", "е")
	return strings.Join(strings.Fields(s), " ")
}

// Classify checks grid against the expected kind
func (c *Classifier) Classify(grid Grid, expected DocumentKind) Verdict {
	text := Flatten(grid, c.scanRows)
	k := c.keywords

	switch expected {
	case KindTrialBalance:
		if !strings.Contains(text, k.TrialBalancePhrase) || !strings.Contains(text, k.Account) {
			return Verdict{Kind: expected, Reason: ReasonNotTrialBalance}
		}
		if !strings.Contains(text, k.Debit) && !strings.Contains(text, k.Credit) {
			return Verdict{Kind: expected, Reason: ReasonMissingDebitCredit}
		}
		return Verdict{OK: true, Kind: expected}

	case KindPnL:
		for _, marker := range k.PnLMarkers {
			if !strings.Contains(text, marker) {
				return Verdict{Kind: expected, Reason: ReasonNotPnL}
			}
		}
		if !strings.Contains(text, k.Plan) || !strings.Contains(text, k.Fact) {
			return Verdict{Kind: expected, Reason: ReasonMissingPlanFact}
		}
		if strings.Contains(text, k.TrialBalancePhrase) {
			return Verdict{Kind: expected, Reason: ReasonCrossContamination}
		}
		return Verdict{OK: true, Kind: expected}
	}

	return Verdict{Kind: expected, Reason: ReasonUnknownKind}
}

// ReadAndClassify reads a workbook and classifies it. A file that cannot
// be read yields a failed verdict with the read error attached.
func (c *Classifier) ReadAndClassify(filename string, r io.Reader, expected DocumentKind) (Grid, Verdict, error) {
	grid, err := ReadWorkbook(filename, r)
	if err != nil {
		return nil, Verdict{Kind: expected, Reason: fmt.Sprintf("%s: %v", ReasonUnreadable, err)}, err
	}
	return grid, c.Classify(grid, expected), nil
}
