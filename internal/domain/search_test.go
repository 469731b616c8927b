package domain

import (
	"strings"
	"testing"
)

func TestSearchResult_String(t *testing.T) {
	ok := SearchResult{Kind: SearchOK, Text: "TAM is $4B"}
	if ok.String() != "TAM is $4B" {
		t.Errorf("ok render = %q", ok.String())
	}

	failed := SearchResult{Kind: SearchTransientFailure, Reason: "timeout"}
	if !strings.HasPrefix(failed.String(), "An error occurred while performing the search") {
		t.Errorf("failure render = %q", failed.String())
	}
	if !strings.Contains(failed.String(), "timeout") {
		t.Errorf("failure render should carry the reason: %q", failed.String())
	}
	if failed.OK() {
		t.Error("transient failure must not report OK")
	}
}
