package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func analyzeRaw(t *testing.T, input Input) ruleResult {
	t.Helper()
	raw, err := NewRuleAnalyzer().Analyze(context.Background(), input)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var res ruleResult
	if err := json.Unmarshal(raw, &res); err != nil {
		t.Fatalf("analyzer result is not the expected schema: %v", err)
	}
	return res
}

func TestRuleAnalyzerIdentityDocument(t *testing.T) {
	res := analyzeRaw(t, Input{
		DocType:       "identity_document",
		Text:          "National ID Card\nName: Jane Doe\nNumber: AB1234567\nExpires 2030-01-01",
		OCRConfidence: 0.95,
	})
	if !res.Valid {
		t.Fatalf("expected valid, got flags %v", res.Flags)
	}
	if res.Fields["idNumber"] == "" {
		t.Fatal("expected an extracted id number")
	}
}

func TestRuleAnalyzerMissingIDNumber(t *testing.T) {
	res := analyzeRaw(t, Input{
		DocType:       "identity_document",
		Text:          "name only, no number here",
		OCRConfidence: 0.95,
	})
	if res.Valid {
		t.Fatal("expected invalid when no id number found")
	}
	if len(res.Flags) == 0 || res.Flags[0] != "missing_id_number" {
		t.Fatalf("unexpected flags: %v", res.Flags)
	}
}

func TestRuleAnalyzerBankStatement(t *testing.T) {
	res := analyzeRaw(t, Input{
		DocType:       "bank_statement",
		Text:          "Opening balance 1200.50\nClosing balance 980.00",
		OCRConfidence: 0.9,
	})
	if !res.Valid {
		t.Fatalf("expected valid statement, got flags %v", res.Flags)
	}
	if res.Fields["firstAmount"] != "1200.50" {
		t.Fatalf("unexpected amount: %q", res.Fields["firstAmount"])
	}
}

func TestRuleAnalyzerEmptyText(t *testing.T) {
	res := analyzeRaw(t, Input{DocType: "bank_statement", Text: "   ", OCRConfidence: 0.9})
	if res.Valid {
		t.Fatal("expected empty text to be invalid")
	}
}

func TestRuleAnalyzerLowConfidenceFlag(t *testing.T) {
	res := analyzeRaw(t, Input{
		DocType:       "bank_statement",
		Text:          "balance 10.00",
		OCRConfidence: 0.3,
	})
	found := false
	for _, f := range res.Flags {
		if f == "low_extraction_confidence" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected low-confidence flag, got %v", res.Flags)
	}
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func TestRuleDeciderApproves(t *testing.T) {
	verdict, err := NewRuleDecider().Decide(context.Background(), []Finding{
		{DocType: "identity_document", Confidence: 0.9, Result: mustJSON(t, ruleResult{Valid: true, Flags: []string{}})},
		{DocType: "bank_statement", Confidence: 0.8, Result: mustJSON(t, ruleResult{Valid: true, Flags: []string{}})},
	})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if verdict.Outcome != OutcomeApproved {
		t.Fatalf("outcome = %s, want approved (%s)", verdict.Outcome, verdict.Reason)
	}
	if verdict.Confidence < 0.84 || verdict.Confidence > 0.86 {
		t.Fatalf("confidence should be the average, got %f", verdict.Confidence)
	}
}

func TestRuleDeciderRejectsInvalidDocument(t *testing.T) {
	verdict, err := NewRuleDecider().Decide(context.Background(), []Finding{
		{DocType: "identity_document", Confidence: 0.9, Result: mustJSON(t, ruleResult{Valid: false, Flags: []string{"missing_id_number"}})},
		{DocType: "bank_statement", Confidence: 0.9, Result: mustJSON(t, ruleResult{Valid: true, Flags: []string{}})},
	})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if verdict.Outcome != OutcomeRejected {
		t.Fatalf("outcome = %s, want rejected", verdict.Outcome)
	}
}

func TestRuleDeciderFlagsGoToReview(t *testing.T) {
	verdict, err := NewRuleDecider().Decide(context.Background(), []Finding{
		{DocType: "identity_document", Confidence: 0.9, Result: mustJSON(t, ruleResult{Valid: true, Flags: []string{"low_extraction_confidence"}})},
		{DocType: "bank_statement", Confidence: 0.9, Result: mustJSON(t, ruleResult{Valid: true, Flags: []string{}})},
	})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if verdict.Outcome != OutcomeNeedsReview {
		t.Fatalf("outcome = %s, want needs_review", verdict.Outcome)
	}
}

func TestRuleDeciderLowConfidenceGoesToReview(t *testing.T) {
	verdict, err := NewRuleDecider().Decide(context.Background(), []Finding{
		{DocType: "identity_document", Confidence: 0.4, Result: mustJSON(t, ruleResult{Valid: true, Flags: []string{}})},
		{DocType: "bank_statement", Confidence: 0.9, Result: mustJSON(t, ruleResult{Valid: true, Flags: []string{}})},
	})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if verdict.Outcome != OutcomeNeedsReview {
		t.Fatalf("outcome = %s, want needs_review", verdict.Outcome)
	}
}

func TestRuleDeciderUnparseableResultGoesToReview(t *testing.T) {
	verdict, err := NewRuleDecider().Decide(context.Background(), []Finding{
		{DocType: "identity_document", Confidence: 0.9, Result: json.RawMessage(`not json`)},
		{DocType: "bank_statement", Confidence: 0.9, Result: mustJSON(t, ruleResult{Valid: true, Flags: []string{}})},
	})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if verdict.Outcome != OutcomeNeedsReview {
		t.Fatalf("outcome = %s, want needs_review", verdict.Outcome)
	}
}

func TestRuleDeciderNoFindings(t *testing.T) {
	_, err := NewRuleDecider().Decide(context.Background(), nil)
	if !errors.Is(err, ErrNoFindings) {
		t.Fatalf("expected ErrNoFindings, got %v", err)
	}
}
