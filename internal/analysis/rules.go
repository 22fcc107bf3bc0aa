package analysis

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// RuleAnalyzer is a deterministic analyzer used in dev mode and tests,
// when no LLM endpoint is configured. It emits the same result schema as
// the OpenAI analyzer.
type RuleAnalyzer struct{}

// NewRuleAnalyzer constructs a RuleAnalyzer.
func NewRuleAnalyzer() *RuleAnalyzer {
	return &RuleAnalyzer{}
}

type ruleResult struct {
	DocType string            `json:"docType"`
	Valid   bool              `json:"valid"`
	Summary string            `json:"summary"`
	Flags   []string          `json:"flags"`
	Fields  map[string]string `json:"fields"`
}

var (
	idNumberPattern = regexp.MustCompile(`\b[A-Z0-9]{6,}\b`)
	amountPattern   = regexp.MustCompile(`\d+[.,]\d{2}`)
)

func (a *RuleAnalyzer) Analyze(ctx context.Context, input Input) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := ruleResult{
		DocType: input.DocType,
		Valid:   true,
		Flags:   []string{},
		Fields:  map[string]string{},
	}

	text := strings.TrimSpace(input.Text)
	if text == "" {
		res.Valid = false
		res.Summary = "document contains no readable text"
		res.Flags = append(res.Flags, "empty_text")
		return json.Marshal(res)
	}
	if input.OCRConfidence < 0.5 {
		res.Flags = append(res.Flags, "low_extraction_confidence")
	}

	switch input.DocType {
	case "identity_document":
		if id := idNumberPattern.FindString(text); id != "" {
			res.Fields["idNumber"] = id
		} else {
			res.Valid = false
			res.Flags = append(res.Flags, "missing_id_number")
		}
		res.Summary = "identity document with " + pluralFields(len(res.Fields))
	case "bank_statement":
		amounts := amountPattern.FindAllString(text, 4)
		if len(amounts) == 0 {
			res.Valid = false
			res.Flags = append(res.Flags, "no_monetary_amounts")
		} else {
			res.Fields["firstAmount"] = amounts[0]
		}
		res.Summary = "bank statement with " + pluralFields(len(res.Fields))
	default:
		res.Summary = "document of unknown category"
		res.Flags = append(res.Flags, "unknown_doc_type")
	}

	return json.Marshal(res)
}

func pluralFields(n int) string {
	if n == 1 {
		return "1 extracted field"
	}
	return strconv.Itoa(n) + " extracted fields"
}

// RuleDecider issues the eligibility verdict from the per-document
// findings. It parses the analyzer result schema; a result that does not
// parse is treated as a review flag, never as a hard failure.
type RuleDecider struct {
	// MinConfidence is the extraction confidence below which an otherwise
	// clean application still goes to review.
	MinConfidence float64
}

// NewRuleDecider constructs a RuleDecider with the default threshold.
func NewRuleDecider() *RuleDecider {
	return &RuleDecider{MinConfidence: 0.6}
}

func (d *RuleDecider) Decide(ctx context.Context, findings []Finding) (Verdict, error) {
	if err := ctx.Err(); err != nil {
		return Verdict{}, err
	}
	if len(findings) == 0 {
		return Verdict{}, ErrNoFindings
	}

	var (
		invalid    []string
		flagged    []string
		unreadable []string
		confSum    float64
		minConf    = 1.0
	)
	for _, f := range findings {
		confSum += f.Confidence
		if f.Confidence < minConf {
			minConf = f.Confidence
		}

		var res ruleResult
		if err := json.Unmarshal(f.Result, &res); err != nil {
			unreadable = append(unreadable, f.DocType)
			continue
		}
		if !res.Valid {
			invalid = append(invalid, f.DocType)
		}
		if len(res.Flags) > 0 {
			flagged = append(flagged, f.DocType)
		}
	}
	avgConf := confSum / float64(len(findings))

	switch {
	case len(invalid) > 0:
		return Verdict{
			Outcome:    OutcomeRejected,
			Reason:     "invalid documents: " + strings.Join(invalid, ", "),
			Confidence: avgConf,
		}, nil
	case len(unreadable) > 0:
		return Verdict{
			Outcome:    OutcomeNeedsReview,
			Reason:     "unreadable analysis results: " + strings.Join(unreadable, ", "),
			Confidence: avgConf,
		}, nil
	case len(flagged) > 0:
		return Verdict{
			Outcome:    OutcomeNeedsReview,
			Reason:     "flagged documents: " + strings.Join(flagged, ", "),
			Confidence: avgConf,
		}, nil
	case minConf < d.MinConfidence:
		return Verdict{
			Outcome:    OutcomeNeedsReview,
			Reason:     "extraction confidence below threshold",
			Confidence: avgConf,
		}, nil
	}

	return Verdict{
		Outcome:    OutcomeApproved,
		Reason:     "all documents verified",
		Confidence: avgConf,
	}, nil
}

var (
	_ Analyzer = (*RuleAnalyzer)(nil)
	_ Decider  = (*RuleDecider)(nil)
)
